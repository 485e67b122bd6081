package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/api/shared"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
)

// DeviceRegistrar registers push tokens.
type DeviceRegistrar interface {
	RegisterOrRefresh(
		ctx context.Context,
		ownerID uuid.UUID,
		token string,
		platform domain.Platform,
	) (*domain.DeviceToken, bool, error)
}

// DeviceHandler handles device registration.
type DeviceHandler struct {
	registry DeviceRegistrar
	logger   *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(registry DeviceRegistrar, logger *slog.Logger) *DeviceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceHandler{registry: registry, logger: logger.With(slog.String("handler", "devices"))}
}

// Register handles POST /api/devices. It answers 201 for a new token and
// 200 for a refreshed one.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dt, created, err := h.registry.RegisterOrRefresh(r.Context(), ownerID, req.Token, domain.Platform(req.Platform))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register device")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("device registered",
		slog.String("platform", req.Platform),
		slog.Bool("created", created))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	shared.RespondWithJSON(w, r, status, DeviceResponse{
		ID:         dt.ID,
		Platform:   string(dt.Platform),
		Active:     dt.Active,
		LastSeenAt: dt.LastSeenAt,
		Created:    created,
	})
}
