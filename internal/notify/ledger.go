package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/metrics"
	"github.com/phrazzld/sprout-api/internal/store"
)

// Ledger records which (owner, channel, kind, local day) slots have been
// delivered. The unique slot key in the backing store is what keeps
// concurrent ticks from notifying twice.
type Ledger struct {
	store   store.DeliveryStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewLedger creates a Ledger over the given delivery store.
func NewLedger(s store.DeliveryStore, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	if s == nil {
		panic("delivery store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   s,
		metrics: m,
		logger:  logger.With(slog.String("component", "delivery_ledger")),
		now:     time.Now,
	}
}

// TryClaim records the slot. It returns true if this call created the record
// and false if the slot was already claimed. Losing the race is not an error.
// Call it only after a send succeeded.
func (l *Ledger) TryClaim(
	ctx context.Context,
	ownerID uuid.UUID,
	channel domain.Channel,
	kind domain.NotificationKind,
	localDay civil.Date,
) (bool, error) {
	rec, err := domain.NewDeliveryRecord(ownerID, channel, kind, localDay, l.now())
	if err != nil {
		return false, err
	}

	err = l.store.Insert(ctx, rec)
	switch {
	case err == nil:
		l.metrics.Claim(string(channel), string(kind), true)
		return true, nil
	case store.IsDuplicateError(err):
		l.metrics.Claim(string(channel), string(kind), false)
		l.logger.DebugContext(ctx, "delivery slot already claimed", slog.String("key", rec.Key()))
		return false, nil
	default:
		return false, fmt.Errorf("failed to claim delivery slot %s: %w", rec.Key(), err)
	}
}

// Claimed reports whether the slot is already recorded. It is an advisory
// pre-check; TryClaim remains the authority.
func (l *Ledger) Claimed(
	ctx context.Context,
	ownerID uuid.UUID,
	channel domain.Channel,
	kind domain.NotificationKind,
	localDay civil.Date,
) (bool, error) {
	ok, err := l.store.Exists(ctx, ownerID, channel, kind, localDay)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery slot: %w", err)
	}
	return ok, nil
}
