package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/sprout-api/internal/store"
)

// ScheduleUnitOfWork runs rule and occurrence operations in one transaction.
type ScheduleUnitOfWork struct {
	db          *sql.DB
	rules       store.RuleStore
	occurrences store.OccurrenceStore
}

// NewScheduleUnitOfWork creates a unit of work over db.
func NewScheduleUnitOfWork(db *sql.DB, logger *slog.Logger) *ScheduleUnitOfWork {
	return &ScheduleUnitOfWork{
		db:          db,
		rules:       NewPostgresRuleStore(db, logger),
		occurrences: NewPostgresOccurrenceStore(db, logger),
	}
}

var _ store.ScheduleUnitOfWork = (*ScheduleUnitOfWork)(nil)

// WithinTx implements store.ScheduleUnitOfWork.
func (u *ScheduleUnitOfWork) WithinTx(ctx context.Context, fn store.ScheduleTxFn) error {
	return store.RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, u.rules.WithTx(tx), u.occurrences.WithTx(tx))
	})
}
