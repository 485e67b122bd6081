package store

import (
	"context"
	"database/sql"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// RuleStore defines persistence for schedule rules.
type RuleStore interface {
	// Create inserts a new rule.
	// Returns ErrRuleExists if a rule for the same subject and kind exists.
	Create(ctx context.Context, rule *domain.ScheduleRule) error

	// GetByID retrieves a rule by ID.
	// Returns ErrRuleNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error)

	// GetForUpdate retrieves a rule by ID and locks its row until the
	// enclosing transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error)

	// GetBySubjectKindForUpdate retrieves and locks the rule for a subject and kind.
	// Returns ErrRuleNotFound if none exists.
	GetBySubjectKindForUpdate(
		ctx context.Context,
		subjectID uuid.UUID,
		kind domain.TaskKind,
	) (*domain.ScheduleRule, error)

	// Update persists the cadence and active flag of an existing rule.
	// Returns ErrRuleNotFound if it does not exist.
	Update(ctx context.Context, rule *domain.ScheduleRule) error

	// WithTx returns a RuleStore bound to tx.
	WithTx(tx *sql.Tx) RuleStore
}

// OccurrenceStore defines persistence for task occurrences.
type OccurrenceStore interface {
	// Create inserts a new occurrence.
	Create(ctx context.Context, occ *domain.TaskOccurrence) error

	// GetByID retrieves an occurrence by ID.
	// Returns ErrOccurrenceNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error)

	// GetForUpdate retrieves and locks an occurrence row.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error)

	// ListPendingByRule returns the rule's pending occurrences ordered by
	// due date ascending. More than one result is a data integrity problem
	// callers must tolerate.
	ListPendingByRule(ctx context.Context, ruleID uuid.UUID) ([]*domain.TaskOccurrence, error)

	// MarkCompleted persists the completion fields of occ.
	// Returns ErrOccurrenceNotFound if the row does not exist.
	MarkCompleted(ctx context.Context, occ *domain.TaskOccurrence) error

	// CountPending counts the owner's pending occurrences due on the given date.
	CountPending(ctx context.Context, ownerID uuid.UUID, due civil.Date) (int, error)

	// WithTx returns an OccurrenceStore bound to tx.
	WithTx(tx *sql.Tx) OccurrenceStore
}

// ScheduleTxFn runs inside one transaction with stores bound to it.
type ScheduleTxFn func(ctx context.Context, rules RuleStore, occurrences OccurrenceStore) error

// ScheduleUnitOfWork runs rule and occurrence mutations atomically.
// Lock order inside fn must be rule before occurrence wherever both are locked.
type ScheduleUnitOfWork interface {
	WithinTx(ctx context.Context, fn ScheduleTxFn) error
}
