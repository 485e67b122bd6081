package domain

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// OccurrenceStatus is the state of a TaskOccurrence.
type OccurrenceStatus string

// Occurrence states. The only transition is pending -> completed.
const (
	OccurrenceStatusPending   OccurrenceStatus = "pending"
	OccurrenceStatusCompleted OccurrenceStatus = "completed"
)

// CompletionSource records why an occurrence left the pending state.
type CompletionSource string

// Completion sources.
const (
	// CompletionSourceUser marks an occurrence the owner completed.
	CompletionSourceUser CompletionSource = "user"

	// CompletionSourceEdit marks an occurrence closed because its rule's cadence changed.
	CompletionSourceEdit CompletionSource = "edit"
)

// ErrOccurrenceRuleIDEmpty is returned when an occurrence has no owning rule.
var ErrOccurrenceRuleIDEmpty = errors.New("occurrence rule ID cannot be empty")

// TaskOccurrence is one concrete due-date instance of a ScheduleRule.
type TaskOccurrence struct {
	ID               uuid.UUID        `json:"id"`
	RuleID           uuid.UUID        `json:"rule_id"`
	OwnerID          uuid.UUID        `json:"owner_id"`
	DueDate          civil.Date       `json:"due_date"`
	Status           OccurrenceStatus `json:"status"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CompletionSource CompletionSource `json:"completion_source,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewTaskOccurrence creates a pending occurrence of rule due on the given date.
func NewTaskOccurrence(rule *ScheduleRule, due civil.Date) (*TaskOccurrence, error) {
	if rule == nil || rule.ID == uuid.Nil {
		return nil, ErrOccurrenceRuleIDEmpty
	}

	now := time.Now().UTC()
	occ := &TaskOccurrence{
		ID:        uuid.New(),
		RuleID:    rule.ID,
		OwnerID:   rule.OwnerID,
		DueDate:   due,
		Status:    OccurrenceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := occ.Validate(); err != nil {
		return nil, err
	}

	return occ, nil
}

// Validate checks if the TaskOccurrence has valid data.
func (o *TaskOccurrence) Validate() error {
	if o.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if o.RuleID == uuid.Nil {
		return ErrOccurrenceRuleIDEmpty
	}
	if o.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if !o.DueDate.IsValid() {
		return NewValidationError("due_date", "must be a valid calendar date", ErrValidation)
	}
	switch o.Status {
	case OccurrenceStatusPending:
		if o.CompletedAt != nil {
			return NewValidationError("completed_at", "must be empty while pending", ErrValidation)
		}
	case OccurrenceStatusCompleted:
		if o.CompletedAt == nil {
			return NewValidationError("completed_at", "is required once completed", ErrValidation)
		}
	default:
		return NewValidationError("status", "must be pending or completed", ErrValidation)
	}
	return nil
}

// IsPending reports whether the occurrence is still outstanding.
func (o *TaskOccurrence) IsPending() bool {
	return o.Status == OccurrenceStatusPending
}

// Complete moves the occurrence to completed.
// It returns false, leaving the occurrence untouched, if it was already completed.
func (o *TaskOccurrence) Complete(now time.Time, source CompletionSource) bool {
	if !o.IsPending() {
		return false
	}

	at := now.UTC()
	o.Status = OccurrenceStatusCompleted
	o.CompletedAt = &at
	o.CompletionSource = source
	o.UpdatedAt = at
	return true
}
