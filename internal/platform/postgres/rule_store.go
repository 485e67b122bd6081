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

const ruleColumns = `id, owner_id, subject_id, kind, anchor_date, interval_value, interval_unit, active, created_at, updated_at`

// PostgresRuleStore implements store.RuleStore.
type PostgresRuleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRuleStore creates a rule store on db, which may be a *sql.DB or *sql.Tx.
func NewPostgresRuleStore(db store.DBTX, logger *slog.Logger) *PostgresRuleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRuleStore{
		db:     db,
		logger: logger.With(slog.String("component", "rule_store")),
	}
}

var _ store.RuleStore = (*PostgresRuleStore)(nil)

// Create implements store.RuleStore.
func (s *PostgresRuleStore) Create(ctx context.Context, rule *domain.ScheduleRule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rule.ID,
		rule.OwnerID,
		rule.SubjectID,
		rule.Kind,
		rule.AnchorDate.String(),
		rule.IntervalValue,
		rule.IntervalUnit,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrRuleExists, err)
		}
		log.Error("failed to create schedule rule",
			slog.String("rule_id", rule.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.RuleStore.
func (s *PostgresRuleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM schedule_rules WHERE id = $1`, id)
	return scanRule(row)
}

// GetForUpdate implements store.RuleStore.
func (s *PostgresRuleStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM schedule_rules WHERE id = $1 FOR UPDATE`, id)
	return scanRule(row)
}

// GetBySubjectKindForUpdate implements store.RuleStore.
func (s *PostgresRuleStore) GetBySubjectKindForUpdate(
	ctx context.Context,
	subjectID uuid.UUID,
	kind domain.TaskKind,
) (*domain.ScheduleRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM schedule_rules
		WHERE subject_id = $1 AND kind = $2
		FOR UPDATE`,
		subjectID, kind,
	)
	return scanRule(row)
}

// Update implements store.RuleStore.
func (s *PostgresRuleStore) Update(ctx context.Context, rule *domain.ScheduleRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE schedule_rules
		SET anchor_date = $1, interval_value = $2, interval_unit = $3, active = $4, updated_at = $5
		WHERE id = $6`,
		rule.AnchorDate.String(),
		rule.IntervalValue,
		rule.IntervalUnit,
		rule.Active,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return MapError(err)
	}

	return checkRowsAffected(result, store.ErrRuleNotFound)
}

// WithTx implements store.RuleStore.
func (s *PostgresRuleStore) WithTx(tx *sql.Tx) store.RuleStore {
	return &PostgresRuleStore{db: tx, logger: s.logger}
}

func scanRule(row rowScanner) (*domain.ScheduleRule, error) {
	var (
		r      domain.ScheduleRule
		anchor time.Time
	)
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.SubjectID,
		&r.Kind,
		&anchor,
		&r.IntervalValue,
		&r.IntervalUnit,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, store.ErrRuleNotFound)
	}
	r.AnchorDate = civil.DateOf(anchor)
	return &r, nil
}
