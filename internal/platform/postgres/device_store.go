package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// PostgresDeviceStore implements store.DeviceStore.
type PostgresDeviceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeviceStore creates a device token store on db.
func NewPostgresDeviceStore(db store.DBTX, logger *slog.Logger) *PostgresDeviceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeviceStore{
		db:     db,
		logger: logger.With(slog.String("component", "device_store")),
	}
}

var _ store.DeviceStore = (*PostgresDeviceStore)(nil)

// Upsert implements store.DeviceStore. The row is keyed by token; xmax is
// zero only for freshly inserted tuples, which tells insert from update
// in a single round trip.
func (s *PostgresDeviceStore) Upsert(ctx context.Context, dt *domain.DeviceToken) (bool, error) {
	if err := dt.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var inserted bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO device_tokens (id, owner_id, token, platform, active, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT device_tokens_token_key DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			platform = EXCLUDED.platform,
			active = TRUE,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0)`,
		dt.ID,
		dt.OwnerID,
		dt.Token,
		dt.Platform,
		dt.LastSeenAt,
		dt.CreatedAt,
		dt.UpdatedAt,
	).Scan(&dt.ID, &dt.CreatedAt, &inserted)
	if err != nil {
		return false, MapError(err)
	}

	dt.Active = true
	return inserted, nil
}

// ListActive implements store.DeviceStore.
func (s *PostgresDeviceStore) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.DeviceToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, token, platform, active, last_seen_at, created_at, updated_at
		FROM device_tokens
		WHERE owner_id = $1 AND active
		ORDER BY last_seen_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.DeviceToken
	for rows.Next() {
		var d domain.DeviceToken
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.Token, &d.Platform, &d.Active,
			&d.LastSeenAt, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// Deactivate implements store.DeviceStore.
func (s *PostgresDeviceStore) Deactivate(ctx context.Context, tokens []string, at time.Time) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(tokens)+1)
	args = append(args, at.UTC())
	placeholders := make([]string, len(tokens))
	for i, tok := range tokens {
		args = append(args, tok)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE device_tokens
		SET active = FALSE, updated_at = $1
		WHERE active AND token IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
