// Package devices manages push device tokens: registration from clients and
// deactivation when the push transport reports a token as dead.
package devices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/notify"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/store"
)

// Registry stores push destinations per owner.
type Registry struct {
	store  store.DeviceStore
	now    func() time.Time
	logger *slog.Logger
}

var _ notify.TokenRegistry = (*Registry)(nil)

// NewRegistry creates a Registry over the given store.
func NewRegistry(s store.DeviceStore, logger *slog.Logger) *Registry {
	if s == nil {
		panic("device store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  s,
		now:    time.Now,
		logger: logger.With(slog.String("component", "device_registry")),
	}
}

// RegisterOrRefresh records token for the owner. A token already known,
// even under another owner, is reassigned, reactivated and refreshed.
// created reports whether the token was new.
func (r *Registry) RegisterOrRefresh(
	ctx context.Context,
	ownerID uuid.UUID,
	token string,
	platform domain.Platform,
) (*domain.DeviceToken, bool, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	dt, err := domain.NewDeviceToken(ownerID, token, platform, r.now())
	if err != nil {
		return nil, false, err
	}

	created, err := r.store.Upsert(ctx, dt)
	if err != nil {
		log.Error("failed to upsert device token",
			slog.String("owner_id", ownerID.String()),
			slog.Any("error", err))
		return nil, false, fmt.Errorf("failed to register device: %w", err)
	}

	log.Debug("device token registered",
		slog.String("owner_id", ownerID.String()),
		slog.String("platform", string(platform)),
		slog.Bool("created", created))
	return dt, created, nil
}

// ActiveTokens returns the owner's active push tokens.
func (r *Registry) ActiveTokens(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	devices, err := r.store.ListActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active devices: %w", err)
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}
	return tokens, nil
}

// Deactivate marks tokens inactive. Unknown or already inactive tokens are ignored.
// It returns the number of tokens changed.
func (r *Registry) Deactivate(ctx context.Context, tokens []string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	n, err := r.store.Deactivate(ctx, tokens, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate devices: %w", err)
	}
	return n, nil
}
