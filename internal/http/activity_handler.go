package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

type activityService interface {
	CreateActivity(ctx context.Context, params application.CreateActivityParams) (application.Activity, error)
	GetActivity(ctx context.Context, principal application.Principal, activityID int64) (application.Activity, error)
	UpdateActivity(ctx context.Context, params application.UpdateActivityParams) (application.Activity, error)
	DeleteActivity(ctx context.Context, principal application.Principal, activityID int64) error
	ListActivities(ctx context.Context, params application.ListActivitiesParams) ([]application.Activity, application.PageInfo, error)
}

type assignmentService interface {
	AssignActivity(ctx context.Context, params application.AssignActivityParams) (application.Activity, error)
	UnassignActivity(ctx context.Context, principal application.Principal, activityID int64) (application.Activity, error)
}

type ActivityHandler struct {
	service     activityService
	assignments assignmentService
	responder   responder
	logger      *slog.Logger
}

func NewActivityHandler(service activityService, assignments assignmentService, logger *slog.Logger) *ActivityHandler {
	base := defaultLogger(logger)
	return &ActivityHandler{service: service, assignments: assignments, responder: newResponder(base), logger: base}
}

func (h *ActivityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ActivityHandler", operation, attrs...)
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal", principal.Username, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode activity request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal", principal.Username)

	activity, err := h.service.CreateActivity(r.Context(), application.CreateActivityParams{
		Principal: principal,
		Input: application.ActivityInput{
			Type:             req.ActivityType,
			Site:             req.Site,
			Typology:         req.Typology,
			Description:      req.Description,
			Interruptible:    req.Interruptible,
			Materials:        req.Materials,
			WorkspaceNotes:   req.WorkspaceNotes,
			EstimatedMinutes: req.EstimatedTime,
			Week:             req.Week,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "activity creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("activity_id", activity.ID).InfoContext(r.Context(), "activity created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, activityResponse{Activity: toActivityDTO(activity)})
}

func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal", principal.Username, "activity_id", activityID)

	activity, err := h.service.GetActivity(r.Context(), principal, activityID)
	if err != nil {
		logger.ErrorContext(r.Context(), "activity fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, activityResponse{Activity: toActivityDTO(activity)})
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req activityUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal", principal.Username, "activity_id", activityID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode activity update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal", principal.Username, "activity_id", activityID)

	activity, err := h.service.UpdateActivity(r.Context(), application.UpdateActivityParams{
		Principal:  principal,
		ActivityID: activityID,
		Update: application.ActivityUpdate{
			Type:             req.ActivityType,
			Site:             req.Site,
			Typology:         req.Typology,
			Description:      req.Description,
			Interruptible:    req.Interruptible,
			Materials:        req.Materials,
			WorkspaceNotes:   req.WorkspaceNotes,
			EstimatedMinutes: req.EstimatedTime,
			Week:             req.Week,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "activity update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "activity updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, activityResponse{Activity: toActivityDTO(activity)})
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal", principal.Username, "activity_id", activityID)

	if err := h.service.DeleteActivity(r.Context(), principal, activityID); err != nil {
		logger.ErrorContext(r.Context(), "activity delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "activity deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal", principal.Username)

	query := r.URL.Query()
	params := application.ListActivitiesParams{Principal: principal}

	if raw := strings.TrimSpace(query.Get("week")); raw != "" {
		week, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		params.Week = &week
	}
	if raw := strings.TrimSpace(query.Get("week_day")); raw != "" {
		day, ok := scheduler.ParseWeekday(raw)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		params.WeekDay = &day
	}
	if raw := strings.TrimSpace(query.Get("maintainer")); raw != "" {
		params.Username = &raw
	}
	page := pageRequestFromQuery(r)
	params.Page = page.Page
	params.PageSize = page.PageSize

	activities, pageInfo, err := h.service.ListActivities(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "activity list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(activities)).InfoContext(r.Context(), "activities listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listActivitiesResponse{
		Activities: toActivityDTOs(activities),
		Meta:       toPageMetaDTO(pageInfo),
	})
}

func (h *ActivityHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.assignments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Assign", "principal", principal.Username, "activity_id", activityID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Assign",
		"principal", principal.Username,
		"activity_id", activityID,
		"maintainer", req.MaintainerUsername,
	)

	activity, err := h.assignments.AssignActivity(r.Context(), application.AssignActivityParams{
		Principal:          principal,
		ActivityID:         activityID,
		MaintainerUsername: req.MaintainerUsername,
		Week:               req.Week,
		WeekDay:            req.WeekDay,
		StartHour:          req.StartTime,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "activity assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, activityResponse{Activity: toActivityDTO(activity)})
}

func (h *ActivityHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.assignments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Unassign", "principal", principal.Username, "activity_id", activityID)

	activity, err := h.assignments.UnassignActivity(r.Context(), principal, activityID)
	if err != nil {
		logger.ErrorContext(r.Context(), "unassignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "activity unassigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, activityResponse{Activity: toActivityDTO(activity)})
}

func activityIDFromRequest(r *http.Request) (int64, bool) {
	raw, ok := ActivityIDFromContext(r.Context())
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func pageRequestFromQuery(r *http.Request) application.PageRequest {
	query := r.URL.Query()
	page := application.PageRequest{}
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			page.Page = value
		}
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			page.PageSize = value
		}
	}
	return page
}

type activityRequest struct {
	ActivityType   string  `json:"activity_type"`
	Site           string  `json:"site"`
	Typology       string  `json:"typology"`
	Description    string  `json:"description"`
	EstimatedTime  int     `json:"estimated_time"`
	Interruptible  bool    `json:"interruptible"`
	Materials      *string `json:"materials"`
	Week           int     `json:"week"`
	WorkspaceNotes *string `json:"workspace_notes"`
}

type activityUpdateRequest struct {
	ActivityType   *string `json:"activity_type"`
	Site           *string `json:"site"`
	Typology       *string `json:"typology"`
	Description    *string `json:"description"`
	EstimatedTime  *int    `json:"estimated_time"`
	Interruptible  *bool   `json:"interruptible"`
	Materials      *string `json:"materials"`
	Week           *int    `json:"week"`
	WorkspaceNotes *string `json:"workspace_notes"`
}

type assignRequest struct {
	MaintainerUsername string `json:"maintainer_username"`
	Week               int    `json:"week"`
	WeekDay            string `json:"week_day"`
	StartTime          int    `json:"start_time"`
}

type activityResponse struct {
	Activity activityDTO `json:"activity"`
}

type listActivitiesResponse struct {
	Activities []activityDTO `json:"activities"`
	Meta       pageMetaDTO   `json:"meta"`
}

type activityDTO struct {
	ActivityID         int64    `json:"activity_id"`
	ActivityType       string   `json:"activity_type"`
	Site               string   `json:"site"`
	Typology           string   `json:"typology"`
	Description        string   `json:"description"`
	EstimatedTime      int      `json:"estimated_time"`
	Interruptible      bool     `json:"interruptible"`
	Materials          *string  `json:"materials"`
	Week               int      `json:"week"`
	WeekDay            *string  `json:"week_day"`
	StartTime          *int     `json:"start_time"`
	MaintainerUsername *string  `json:"maintainer_username"`
	WorkspaceNotes     *string  `json:"workspace_notes"`
	SkillsNeeded       []string `json:"skills_needed"`
}

// requiredSkills is a fixed placeholder list surfaced with every activity;
// per-activity skill tracking has no backing store yet.
var requiredSkills = []string{
	"PAV certification",
	"Electrical Maintenance",
	"Knowledge of cable types",
	"XYZ-type robot knowledge",
	"Knowledge of robot workstation 23",
}

func toActivityDTO(activity application.Activity) activityDTO {
	dto := activityDTO{
		ActivityID:         activity.ID,
		ActivityType:       string(activity.Type),
		Site:               activity.Site,
		Typology:           activity.Typology,
		Description:        activity.Description,
		EstimatedTime:      activity.EstimatedMinutes,
		Interruptible:      activity.Interruptible,
		Materials:          activity.Materials,
		Week:               activity.Week,
		StartTime:          activity.StartHour,
		MaintainerUsername: activity.MaintainerUsername,
		WorkspaceNotes:     activity.WorkspaceNotes,
		SkillsNeeded:       requiredSkills,
	}
	if activity.WeekDay != nil {
		day := string(*activity.WeekDay)
		dto.WeekDay = &day
	}
	return dto
}

// toActivityDTOs always returns a non-nil slice so an empty page encodes as
// an empty JSON array instead of null.
func toActivityDTOs(activities []application.Activity) []activityDTO {
	out := make([]activityDTO, 0, len(activities))
	for _, activity := range activities {
		out = append(out, toActivityDTO(activity))
	}
	return out
}
