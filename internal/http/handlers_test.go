package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

type authServiceStub struct {
	authenticateResult application.AuthenticateResult
	authenticateErr    error
	revokedTokens      []string
	changePasswordErr  error
}

func (s *authServiceStub) Authenticate(_ context.Context, _ application.AuthenticateParams) (application.AuthenticateResult, error) {
	return s.authenticateResult, s.authenticateErr
}

func (s *authServiceStub) RevokeSession(_ context.Context, token string) error {
	s.revokedTokens = append(s.revokedTokens, token)
	return nil
}

func (s *authServiceStub) ChangePassword(_ context.Context, _ application.ChangePasswordParams) error {
	return s.changePasswordErr
}

type assignmentServiceStub struct {
	activity  application.Activity
	err       error
	lastParam application.AssignActivityParams
}

func (s *assignmentServiceStub) AssignActivity(_ context.Context, params application.AssignActivityParams) (application.Activity, error) {
	s.lastParam = params
	return s.activity, s.err
}

func (s *assignmentServiceStub) UnassignActivity(_ context.Context, _ application.Principal, _ int64) (application.Activity, error) {
	return s.activity, s.err
}

type activityServiceStub struct {
	activity  application.Activity
	emptyList bool
	err       error
}

func (s *activityServiceStub) CreateActivity(_ context.Context, _ application.CreateActivityParams) (application.Activity, error) {
	return s.activity, s.err
}

func (s *activityServiceStub) GetActivity(_ context.Context, _ application.Principal, _ int64) (application.Activity, error) {
	return s.activity, s.err
}

func (s *activityServiceStub) UpdateActivity(_ context.Context, _ application.UpdateActivityParams) (application.Activity, error) {
	return s.activity, s.err
}

func (s *activityServiceStub) DeleteActivity(_ context.Context, _ application.Principal, _ int64) error {
	return s.err
}

func (s *activityServiceStub) ListActivities(_ context.Context, _ application.ListActivitiesParams) ([]application.Activity, application.PageInfo, error) {
	if s.err != nil {
		return nil, application.PageInfo{}, s.err
	}
	if s.emptyList {
		return nil, application.PageInfo{CurrentPage: 1, PageSize: 10, TotalItems: 0, TotalPages: 0}, nil
	}
	return []application.Activity{s.activity}, application.PageInfo{CurrentPage: 1, PageSize: 10, TotalItems: 1, TotalPages: 1}, nil
}

type workloadServiceStub struct {
	workloads []application.DailyWorkload
	err       error
}

func (s *workloadServiceStub) DailyWorkloads(_ context.Context, _ application.Principal, _ string, _ int) ([]application.DailyWorkload, error) {
	return s.workloads, s.err
}

type availabilityServiceStub struct {
	block     application.AvailabilityBlock
	proposals []application.SlotProposal
	err       error
}

func (s *availabilityServiceStub) DeclareAvailability(_ context.Context, _ application.DeclareAvailabilityParams) (application.AvailabilityBlock, error) {
	return s.block, s.err
}

func (s *availabilityServiceStub) ListAvailability(_ context.Context, _ application.Principal, _ string) ([]application.AvailabilityBlock, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []application.AvailabilityBlock{s.block}, nil
}

func (s *availabilityServiceStub) RemoveAvailability(_ context.Context, _ application.Principal, _ string, _ int64) error {
	return s.err
}

func (s *availabilityServiceStub) ProposeSlots(_ context.Context, _ application.Principal, _ int64) ([]application.SlotProposal, error) {
	return s.proposals, s.err
}

// staticSession injects a fixed principal, standing in for RequireSession.
func staticSession(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func testActivity() application.Activity {
	day := scheduler.Monday
	hour := 9
	maintainer := "alice"
	return application.Activity{
		ID:                 7,
		Type:               application.ActivityPlanned,
		Site:               "Fuorigrotta",
		Typology:           "electrical",
		Description:        "replace breaker panel",
		EstimatedMinutes:   90,
		Week:               14,
		WeekDay:            &day,
		StartHour:          &hour,
		MaintainerUsername: &maintainer,
		CreatedAt:          time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(t *testing.T, principal application.Principal, assignments *assignmentServiceStub, availability *availabilityServiceStub, workloads *workloadServiceStub) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Auth:        NewAuthHandler(&authServiceStub{}, nil),
		Users:       NewUserHandler(nil, nil),
		Activities:  NewActivityHandler(&activityServiceStub{activity: testActivity()}, assignments, nil),
		Maintainers: NewMaintainerHandler(availability, workloads, nil),
		Session:     staticSession(principal),
	})
}

func TestAuthHandler_Login(t *testing.T) {
	service := &authServiceStub{
		authenticateResult: application.AuthenticateResult{
			User: application.User{Username: "alice", Role: application.RolePlanner},
			Session: application.Session{
				Token:     "token-1",
				ExpiresAt: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	handler := NewAuthHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Session-Token"); got != "token-1" {
		t.Fatalf("expected session token header, got %q", got)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "token-1" || resp.Role != "planner" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	service := &authServiceStub{authenticateErr: application.ErrInvalidCredentials}
	handler := NewAuthHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
		t.Fatalf("unexpected error code: %q", resp.ErrorCode)
	}
}

func TestAuthHandler_LoginBadBody(t *testing.T) {
	handler := NewAuthHandler(&authServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActivityHandler_AssignRoute(t *testing.T) {
	assignments := &assignmentServiceStub{activity: testActivity()}
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, assignments, &availabilityServiceStub{}, &workloadServiceStub{})

	body := `{"maintainer_username":"alice","week":14,"week_day":"monday","start_time":9}`
	req := httptest.NewRequest(http.MethodPost, "/activity/7/assign", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if assignments.lastParam.ActivityID != 7 || assignments.lastParam.MaintainerUsername != "alice" || assignments.lastParam.StartHour != 9 {
		t.Fatalf("unexpected assignment params: %+v", assignments.lastParam)
	}

	var resp activityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Activity.ActivityID != 7 || resp.Activity.WeekDay == nil || *resp.Activity.WeekDay != "monday" {
		t.Fatalf("unexpected activity payload: %+v", resp.Activity)
	}
	if len(resp.Activity.SkillsNeeded) == 0 {
		t.Fatal("expected skills_needed to be populated")
	}
}

func TestActivityHandler_AssignConflict(t *testing.T) {
	assignments := &assignmentServiceStub{err: application.ErrSchedulingConflict}
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, assignments, &availabilityServiceStub{}, &workloadServiceStub{})

	body := `{"maintainer_username":"alice","week":14,"week_day":"monday","start_time":9}`
	req := httptest.NewRequest(http.MethodPost, "/activity/7/assign", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ErrorCode != "SCHEDULING_CONFLICT" {
		t.Fatalf("unexpected error code: %q", resp.ErrorCode)
	}
}

func TestActivityHandler_AssignInvalidID(t *testing.T) {
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, &assignmentServiceStub{}, &availabilityServiceStub{}, &workloadServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/activity/not-a-number/assign", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActivityHandler_ListEmptyPageEncodesEmptyArray(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{emptyList: true}, &assignmentServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/activities?week=30", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{Username: "pam", Role: application.RolePlanner}))
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"activities":[]`) {
		t.Fatalf("expected an empty activities array, got %s", rec.Body.String())
	}
}

func TestActivityHandler_ForbiddenMapsTo403(t *testing.T) {
	assignments := &assignmentServiceStub{err: application.ErrUnauthorized}
	router := newTestRouter(t, application.Principal{Username: "alice", Role: application.RoleMaintainer}, assignments, &availabilityServiceStub{}, &workloadServiceStub{})

	body := `{"maintainer_username":"alice","week":14,"week_day":"monday","start_time":9}`
	req := httptest.NewRequest(http.MethodPost, "/activity/7/assign", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestMaintainerHandler_WorkloadRoute(t *testing.T) {
	workloads := &workloadServiceStub{workloads: []application.DailyWorkload{
		{WeekDay: scheduler.Monday, TotalEstimated: 150, ActivityCount: 2},
		{WeekDay: scheduler.Tuesday, TotalEstimated: 0, ActivityCount: 0},
	}}
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, &assignmentServiceStub{}, &availabilityServiceStub{}, workloads)

	req := httptest.NewRequest(http.MethodGet, "/maintainer/alice/workload?week=14", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp workloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.MaintainerUsername != "alice" || resp.Week != 14 || len(resp.Workloads) != 2 {
		t.Fatalf("unexpected workload response: %+v", resp)
	}
	if resp.Workloads[0].TotalEstimatedTime != 150 {
		t.Fatalf("unexpected monday total: %+v", resp.Workloads[0])
	}
}

func TestMaintainerHandler_WorkloadRequiresWeek(t *testing.T) {
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, &assignmentServiceStub{}, &availabilityServiceStub{}, &workloadServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/maintainer/alice/workload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMaintainerHandler_ProposeSlotsRoute(t *testing.T) {
	availability := &availabilityServiceStub{proposals: []application.SlotProposal{
		{MaintainerUsername: "alice", WeekDay: scheduler.Monday, StartHour: 8},
		{MaintainerUsername: "alice", WeekDay: scheduler.Monday, StartHour: 11},
	}}
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, &assignmentServiceStub{}, availability, &workloadServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/maintainer/7/availabilities", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp proposalsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Availabilities) != 2 || resp.Availabilities[1].StartTime != 11 {
		t.Fatalf("unexpected proposals: %+v", resp.Availabilities)
	}
}

func TestMaintainerHandler_UnavailableMapsTo409(t *testing.T) {
	assignments := &assignmentServiceStub{err: application.ErrMaintainerUnavailable}
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, assignments, &availabilityServiceStub{}, &workloadServiceStub{})

	body := `{"maintainer_username":"alice","week":14,"week_day":"monday","start_time":9}`
	req := httptest.NewRequest(http.MethodPost, "/activity/7/assign", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, application.Principal{Username: "pam", Role: application.RolePlanner}, &assignmentServiceStub{}, &availabilityServiceStub{}, &workloadServiceStub{})

	req := httptest.NewRequest(http.MethodPut, "/login", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("expected Allow header POST, got %q", got)
	}
}
