package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/store"
)

const occurrenceColumns = `id, rule_id, owner_id, due_date, status, completed_at, completion_source, created_at, updated_at`

// PostgresOccurrenceStore implements store.OccurrenceStore.
type PostgresOccurrenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOccurrenceStore creates an occurrence store on db.
func NewPostgresOccurrenceStore(db store.DBTX, logger *slog.Logger) *PostgresOccurrenceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOccurrenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "occurrence_store")),
	}
}

var _ store.OccurrenceStore = (*PostgresOccurrenceStore)(nil)

// Create implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) Create(ctx context.Context, occ *domain.TaskOccurrence) error {
	if err := occ.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_occurrences (`+occurrenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		occ.ID,
		occ.RuleID,
		occ.OwnerID,
		occ.DueDate.String(),
		occ.Status,
		occ.CompletedAt,
		nullableSource(occ.CompletionSource),
		occ.CreatedAt,
		occ.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create task occurrence",
			slog.String("rule_id", occ.RuleID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM task_occurrences WHERE id = $1`, id)
	return scanOccurrence(row)
}

// GetForUpdate implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+occurrenceColumns+` FROM task_occurrences WHERE id = $1 FOR UPDATE`, id)
	return scanOccurrence(row)
}

// ListPendingByRule implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) ListPendingByRule(
	ctx context.Context,
	ruleID uuid.UUID,
) ([]*domain.TaskOccurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+occurrenceColumns+`
		FROM task_occurrences
		WHERE rule_id = $1 AND status = 'pending'
		ORDER BY due_date ASC, created_at ASC`,
		ruleID,
	)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.TaskOccurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// MarkCompleted implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) MarkCompleted(ctx context.Context, occ *domain.TaskOccurrence) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE task_occurrences
		SET status = $1, completed_at = $2, completion_source = $3, updated_at = $4
		WHERE id = $5`,
		occ.Status,
		occ.CompletedAt,
		nullableSource(occ.CompletionSource),
		occ.UpdatedAt,
		occ.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrOccurrenceNotFound)
}

// CountPending implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) CountPending(ctx context.Context, ownerID uuid.UUID, due civil.Date) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM task_occurrences
		WHERE owner_id = $1 AND due_date = $2 AND status = 'pending'`,
		ownerID, due.String(),
	).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.OccurrenceStore.
func (s *PostgresOccurrenceStore) WithTx(tx *sql.Tx) store.OccurrenceStore {
	return &PostgresOccurrenceStore{db: tx, logger: s.logger}
}

func nullableSource(src domain.CompletionSource) sql.NullString {
	return sql.NullString{String: string(src), Valid: src != ""}
}

func scanOccurrence(row rowScanner) (*domain.TaskOccurrence, error) {
	var (
		o           domain.TaskOccurrence
		due         time.Time
		completedAt sql.NullTime
		source      sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.RuleID,
		&o.OwnerID,
		&due,
		&o.Status,
		&completedAt,
		&source,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, store.ErrOccurrenceNotFound)
	}

	o.DueDate = civil.DateOf(due)
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	o.CompletionSource = domain.CompletionSource(source.String)
	return &o, nil
}
