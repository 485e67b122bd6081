package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// PostgresDeliveryStore implements store.DeliveryStore on the
// delivery_records table and its (owner, channel, kind, local_date)
// unique constraint.
type PostgresDeliveryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeliveryStore creates a ledger store on db.
func NewPostgresDeliveryStore(db store.DBTX, logger *slog.Logger) *PostgresDeliveryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeliveryStore{
		db:     db,
		logger: logger.With(slog.String("component", "delivery_store")),
	}
}

var _ store.DeliveryStore = (*PostgresDeliveryStore)(nil)

// Insert implements store.DeliveryStore. A conflicting slot affects no
// rows and is reported as store.ErrAlreadyClaimed.
func (s *PostgresDeliveryStore) Insert(ctx context.Context, rec *domain.DeliveryRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_records (id, owner_id, channel, kind, local_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT delivery_records_slot_key DO NOTHING`,
		rec.ID,
		rec.OwnerID,
		rec.Channel,
		rec.Kind,
		rec.LocalDate.String(),
		rec.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrAlreadyClaimed
		}
		return MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrAlreadyClaimed
	}
	return nil
}

// Exists implements store.DeliveryStore.
func (s *PostgresDeliveryStore) Exists(
	ctx context.Context,
	ownerID uuid.UUID,
	channel domain.Channel,
	kind domain.NotificationKind,
	localDate civil.Date,
) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_records
			WHERE owner_id = $1 AND channel = $2 AND kind = $3 AND local_date = $4
		)`,
		ownerID, channel, kind, localDate.String(),
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}
