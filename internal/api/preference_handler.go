package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/api/shared"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/service/preferences"
)

// PreferenceManager reads and updates notification preferences.
type PreferenceManager interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*domain.NotificationPreference, error)
	Update(ctx context.Context, ownerID uuid.UUID, patch preferences.Patch) (*domain.NotificationPreference, error)
}

// PreferenceHandler serves /api/notifications/preferences.
type PreferenceHandler struct {
	prefs  PreferenceManager
	logger *slog.Logger
}

// NewPreferenceHandler creates a PreferenceHandler.
func NewPreferenceHandler(prefs PreferenceManager, logger *slog.Logger) *PreferenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceHandler{prefs: prefs, logger: logger.With(slog.String("handler", "preferences"))}
}

// Get returns the owner's preferences, creating defaults on first access.
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	pref, err := h.prefs.GetOrCreate(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, preferenceToResponse(pref))
}

// Patch applies a partial update. Omitted fields keep their values.
func (h *PreferenceHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var patch preferences.Patch
	if !decodeAndValidate(w, r, &patch) {
		return
	}

	pref, err := h.prefs.Update(r.Context(), ownerID, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, preferenceToResponse(pref))
}
