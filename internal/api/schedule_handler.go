package api

import (
	"errors"
	"log/slog"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/sprout-api/internal/api/shared"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/service/schedule"
)

// ScheduleHandler handles schedule rules and occurrence completion.
type ScheduleHandler struct {
	schedules schedule.Service
	logger    *slog.Logger
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(schedules schedule.Service, logger *slog.Logger) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{schedules: schedules, logger: logger.With(slog.String("handler", "schedules"))}
}

// PutSchedule handles PUT /api/plants/{plantID}/schedules/{kind}.
func (h *ScheduleHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	ownerID, plantID, ok := requireOwnerAndPathUUID(w, r, "plantID")
	if !ok {
		return
	}

	kind := domain.TaskKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		HandleAPIError(w, r, domain.NewValidationError("kind", "is not a known task kind", domain.ErrInvalidTaskKind), "")
		return
	}

	var req PutScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	anchor, err := civil.ParseDate(req.AnchorDate)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("anchor_date", "must be a valid date", domain.ErrValidation), "")
		return
	}

	rule, err := h.schedules.CreateOrReplaceRule(
		r.Context(), ownerID, plantID, kind, anchor, req.IntervalValue, domain.IntervalUnit(req.IntervalUnit),
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save schedule")
		return
	}

	pending, err := h.schedules.PendingForRule(r.Context(), rule.ID)
	if err != nil && !errors.Is(err, schedule.ErrNoPendingOccurrence) {
		HandleAPIError(w, r, err, "Failed to load pending task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("schedule saved",
		slog.String("rule_id", rule.ID.String()),
		slog.String("kind", string(rule.Kind)))
	shared.RespondWithJSON(w, r, http.StatusOK, scheduleToResponse(rule, pending))
}

// DeactivateSchedule handles POST /api/schedules/{id}/deactivate.
func (h *ScheduleHandler) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	ownerID, ruleID, ok := requireOwnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	rule, err := h.schedules.DeactivateRule(r.Context(), ruleID, ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to deactivate schedule")
		return
	}

	pending, err := h.schedules.PendingForRule(r.Context(), rule.ID)
	if err != nil && !errors.Is(err, schedule.ErrNoPendingOccurrence) {
		HandleAPIError(w, r, err, "Failed to load pending task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, scheduleToResponse(rule, pending))
}

// CompleteOccurrence handles POST /api/occurrences/{id}/complete. Repeating
// the call returns the completed occurrence with a null successor.
func (h *ScheduleHandler) CompleteOccurrence(w http.ResponseWriter, r *http.Request) {
	ownerID, occID, ok := requireOwnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.schedules.CompleteOccurrence(r.Context(), occID, ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CompletionResponse{
		Completed: *occurrenceToResponse(res.Completed),
		Next:      occurrenceToResponse(res.Next),
	})
}
