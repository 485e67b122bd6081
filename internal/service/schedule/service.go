// Package schedule implements the schedule rule and task occurrence
// lifecycle: rule creation and cadence edits, completion with successor
// generation, and deactivation. Every mutation runs in one transaction that
// locks the rule row before touching its occurrences, which keeps at most one
// occurrence pending per rule.
package schedule

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// CompletionResult is the outcome of completing an occurrence.
type CompletionResult struct {
	// Completed is the occurrence in its completed state.
	Completed *domain.TaskOccurrence `json:"completed"`

	// Next is the pending successor, or nil when none was created: the
	// occurrence was already completed or the rule is inactive.
	Next *domain.TaskOccurrence `json:"next"`
}

// Service manages schedule rules and their occurrences.
type Service interface {
	// CreateOrReplaceRule creates the rule for (subjectID, kind) or updates its
	// cadence. A new rule gets one pending occurrence at the next due date. A
	// changed cadence, or reactivation of an inactive rule, closes the pending
	// occurrences as completed-by-edit and generates one from the new cadence.
	// An unchanged active rule is returned as is.
	//
	// Returns ErrRuleNotOwned if the rule belongs to another owner and a
	// *domain.ValidationError for invalid input.
	CreateOrReplaceRule(
		ctx context.Context,
		ownerID, subjectID uuid.UUID,
		kind domain.TaskKind,
		anchor civil.Date,
		intervalValue int,
		unit domain.IntervalUnit,
	) (*domain.ScheduleRule, error)

	// CompleteOccurrence marks the occurrence completed and, if its rule is
	// active, creates the successor one interval after the completed due date.
	// Completing an already completed occurrence returns it with Next == nil.
	//
	// Returns ErrOccurrenceNotFound or ErrOccurrenceNotOwned.
	CompleteOccurrence(ctx context.Context, occurrenceID, ownerID uuid.UUID) (*CompletionResult, error)

	// DeactivateRule stops the rule from spawning occurrences. Its pending
	// occurrence stays completable.
	//
	// Returns ErrRuleNotFound or ErrRuleNotOwned.
	DeactivateRule(ctx context.Context, ruleID, ownerID uuid.UUID) (*domain.ScheduleRule, error)

	// EnsurePending makes sure an active rule has exactly one pending
	// occurrence and returns it. For an inactive rule it returns the existing
	// pending occurrence, or ErrNoPendingOccurrence.
	EnsurePending(ctx context.Context, ruleID uuid.UUID) (*domain.TaskOccurrence, error)

	// PendingForRule returns the pending occurrence of a rule. If several are
	// found, the earliest due one is returned.
	//
	// Returns ErrNoPendingOccurrence when there is none.
	PendingForRule(ctx context.Context, ruleID uuid.UUID) (*domain.TaskOccurrence, error)
}
