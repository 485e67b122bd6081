package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// DeviceStore defines persistence for push device tokens.
type DeviceStore interface {
	// Upsert inserts dt or, if the token already exists, reassigns it to
	// dt.OwnerID, updates the platform, reactivates it and refreshes its
	// last-seen time. Returns true when a new row was created.
	Upsert(ctx context.Context, dt *domain.DeviceToken) (created bool, err error)

	// ListActive returns the owner's active tokens.
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.DeviceToken, error)

	// Deactivate flags the given tokens inactive and returns how many rows changed.
	// Unknown tokens are ignored.
	Deactivate(ctx context.Context, tokens []string, at time.Time) (int, error)
}
