package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
)

type availabilityService interface {
	DeclareAvailability(ctx context.Context, params application.DeclareAvailabilityParams) (application.AvailabilityBlock, error)
	ListAvailability(ctx context.Context, principal application.Principal, username string) ([]application.AvailabilityBlock, error)
	RemoveAvailability(ctx context.Context, principal application.Principal, username string, blockID int64) error
	ProposeSlots(ctx context.Context, principal application.Principal, activityID int64) ([]application.SlotProposal, error)
}

type workloadService interface {
	DailyWorkloads(ctx context.Context, principal application.Principal, username string, week int) ([]application.DailyWorkload, error)
}

type MaintainerHandler struct {
	availability availabilityService
	workloads    workloadService
	responder    responder
	logger       *slog.Logger
}

func NewMaintainerHandler(availability availabilityService, workloads workloadService, logger *slog.Logger) *MaintainerHandler {
	base := defaultLogger(logger)
	return &MaintainerHandler{availability: availability, workloads: workloads, responder: newResponder(base), logger: base}
}

func (h *MaintainerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MaintainerHandler", operation, attrs...)
}

func (h *MaintainerHandler) DeclareAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	username, ok := UsernameFromContext(r.Context())
	if !ok || strings.TrimSpace(username) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUsername)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "DeclareAvailability", "principal", principal.Username, "maintainer", username, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "DeclareAvailability", "principal", principal.Username, "maintainer", username)

	block, err := h.availability.DeclareAvailability(r.Context(), application.DeclareAvailabilityParams{
		Principal:          principal,
		MaintainerUsername: username,
		Input: application.AvailabilityInput{
			WeekDay:   req.WeekDay,
			StartHour: req.StartHour,
			EndHour:   req.EndHour,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability declaration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("block_id", block.ID).InfoContext(r.Context(), "availability declared")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, availabilityResponse{Availability: toAvailabilityDTO(block)})
}

func (h *MaintainerHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	username, ok := UsernameFromContext(r.Context())
	if !ok || strings.TrimSpace(username) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUsername)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListAvailability", "principal", principal.Username, "maintainer", username)

	blocks, err := h.availability.ListAvailability(r.Context(), principal, username)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(blocks)).InfoContext(r.Context(), "availability listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAvailabilityResponse{Availability: toAvailabilityDTOs(blocks)})
}

func (h *MaintainerHandler) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	username, ok := UsernameFromContext(r.Context())
	if !ok || strings.TrimSpace(username) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUsername)
		return
	}

	rawBlockID, ok := BlockIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlockID)
		return
	}
	blockID, err := strconv.ParseInt(strings.TrimSpace(rawBlockID), 10, 64)
	if err != nil || blockID < 1 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlockID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RemoveAvailability", "principal", principal.Username, "maintainer", username, "block_id", blockID)

	if err := h.availability.RemoveAvailability(r.Context(), principal, username, blockID); err != nil {
		logger.ErrorContext(r.Context(), "availability removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "availability removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MaintainerHandler) ProposeSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := activityIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActivityID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ProposeSlots", "principal", principal.Username, "activity_id", activityID)

	proposals, err := h.availability.ProposeSlots(r.Context(), principal, activityID)
	if err != nil {
		logger.ErrorContext(r.Context(), "slot proposal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(proposals)).InfoContext(r.Context(), "slots proposed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, proposalsResponse{Availabilities: toProposalDTOs(proposals)})
}

func (h *MaintainerHandler) Workload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.workloads == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	username, ok := UsernameFromContext(r.Context())
	if !ok || strings.TrimSpace(username) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUsername)
		return
	}

	week, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("week")))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the week query parameter is required"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Workload", "principal", principal.Username, "maintainer", username, "week", week)

	workloads, err := h.workloads.DailyWorkloads(r.Context(), principal, username, week)
	if err != nil {
		logger.ErrorContext(r.Context(), "workload report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "workload reported")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, workloadResponse{
		MaintainerUsername: username,
		Week:               week,
		Workloads:          toWorkloadDTOs(workloads),
	})
}

type availabilityRequest struct {
	WeekDay   string `json:"week_day"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

type availabilityResponse struct {
	Availability availabilityDTO `json:"availability"`
}

type listAvailabilityResponse struct {
	Availability []availabilityDTO `json:"availability"`
}

type availabilityDTO struct {
	ID                 int64  `json:"id"`
	MaintainerUsername string `json:"maintainer_username"`
	WeekDay            string `json:"week_day"`
	StartHour          int    `json:"start_hour"`
	EndHour            int    `json:"end_hour"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type proposalsResponse struct {
	Availabilities []proposalDTO `json:"availabilities"`
}

type proposalDTO struct {
	MaintainerUsername string `json:"maintainer_username"`
	WeekDay            string `json:"week_day"`
	StartTime          int    `json:"start_time"`
}

type workloadResponse struct {
	MaintainerUsername string        `json:"maintainer_username"`
	Week               int           `json:"week"`
	Workloads          []workloadDTO `json:"workloads"`
}

type workloadDTO struct {
	WeekDay            string `json:"week_day"`
	TotalEstimatedTime int    `json:"total_estimated_time"`
	ActivityCount      int    `json:"activity_count"`
}

func toAvailabilityDTO(block application.AvailabilityBlock) availabilityDTO {
	return availabilityDTO{
		ID:                 block.ID,
		MaintainerUsername: block.MaintainerUsername,
		WeekDay:            string(block.WeekDay),
		StartHour:          block.StartHour,
		EndHour:            block.EndHour,
		CreatedAt:          block.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          block.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toAvailabilityDTOs(blocks []application.AvailabilityBlock) []availabilityDTO {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]availabilityDTO, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, toAvailabilityDTO(block))
	}
	return out
}

func toProposalDTOs(proposals []application.SlotProposal) []proposalDTO {
	if len(proposals) == 0 {
		return nil
	}
	out := make([]proposalDTO, 0, len(proposals))
	for _, proposal := range proposals {
		out = append(out, proposalDTO{
			MaintainerUsername: proposal.MaintainerUsername,
			WeekDay:            string(proposal.WeekDay),
			StartTime:          proposal.StartHour,
		})
	}
	return out
}

func toWorkloadDTOs(workloads []application.DailyWorkload) []workloadDTO {
	if len(workloads) == 0 {
		return nil
	}
	out := make([]workloadDTO, 0, len(workloads))
	for _, workload := range workloads {
		out = append(out, workloadDTO{
			WeekDay:            string(workload.WeekDay),
			TotalEstimatedTime: workload.TotalEstimated,
			ActivityCount:      workload.ActivityCount,
		})
	}
	return out
}
