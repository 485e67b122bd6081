package store

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// DeliveryStore is the append-only delivery ledger.
// Implementations must enforce uniqueness of (owner, channel, kind, local date)
// at the storage layer.
type DeliveryStore interface {
	// Insert adds rec. Returns ErrAlreadyClaimed (an ErrDuplicate) if the slot
	// already has a record. Concurrent inserts of the same slot must result in
	// exactly one success.
	Insert(ctx context.Context, rec *domain.DeliveryRecord) error

	// Exists reports whether the slot has a record.
	Exists(
		ctx context.Context,
		ownerID uuid.UUID,
		channel domain.Channel,
		kind domain.NotificationKind,
		localDate civil.Date,
	) (bool, error)
}
