package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// TaskKind identifies the kind of care a schedule rule recurs.
type TaskKind string

// Known task kinds.
const (
	TaskKindWater     TaskKind = "water"
	TaskKindMist      TaskKind = "mist"
	TaskKindFertilize TaskKind = "fertilize"
	TaskKindCare      TaskKind = "care"
	TaskKindRepot     TaskKind = "repot"
)

// Valid reports whether k is one of the known task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindWater, TaskKindMist, TaskKindFertilize, TaskKindCare, TaskKindRepot:
		return true
	}
	return false
}

// IntervalUnit is the granularity of a recurrence step.
type IntervalUnit string

// Known interval units.
const (
	IntervalUnitDays   IntervalUnit = "days"
	IntervalUnitMonths IntervalUnit = "months"
)

// Valid reports whether u is a known interval unit.
func (u IntervalUnit) Valid() bool {
	return u == IntervalUnitDays || u == IntervalUnitMonths
}

// ScheduleRule is a typed recurrence attached to one subject (a plant).
// At most one rule exists per (SubjectID, Kind).
type ScheduleRule struct {
	ID            uuid.UUID    `json:"id"`
	OwnerID       uuid.UUID    `json:"owner_id"`
	SubjectID     uuid.UUID    `json:"subject_id"`
	Kind          TaskKind     `json:"kind"`
	AnchorDate    civil.Date   `json:"anchor_date"`
	IntervalValue int          `json:"interval_value"`
	IntervalUnit  IntervalUnit `json:"interval_unit"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewScheduleRule creates a new active rule with a fresh ID.
// Returns an error if validation fails.
func NewScheduleRule(
	ownerID, subjectID uuid.UUID,
	kind TaskKind,
	anchor civil.Date,
	intervalValue int,
	unit IntervalUnit,
) (*ScheduleRule, error) {
	now := time.Now().UTC()
	rule := &ScheduleRule{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		SubjectID:     subjectID,
		Kind:          kind,
		AnchorDate:    anchor,
		IntervalValue: intervalValue,
		IntervalUnit:  unit,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	return rule, nil
}

// Validate checks if the ScheduleRule has valid data.
func (r *ScheduleRule) Validate() error {
	if r.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if r.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if r.SubjectID == uuid.Nil {
		return NewValidationError("subject_id", "cannot be empty", ErrInvalidID)
	}
	if !r.Kind.Valid() {
		return NewValidationError("kind", "must be one of water, mist, fertilize, care, repot", ErrInvalidTaskKind)
	}
	if !r.AnchorDate.IsValid() {
		return NewValidationError("anchor_date", "must be a valid calendar date", ErrValidation)
	}
	if r.IntervalValue < 1 {
		return NewValidationError("interval_value", "must be a positive integer", ErrInvalidInterval)
	}
	if !r.IntervalUnit.Valid() {
		return NewValidationError("interval_unit", "must be days or months", ErrInvalidInterval)
	}
	return nil
}

// SameCadence reports whether the rule already recurs with the given anchor and interval.
func (r *ScheduleRule) SameCadence(anchor civil.Date, intervalValue int, unit IntervalUnit) bool {
	return r.AnchorDate == anchor && r.IntervalValue == intervalValue && r.IntervalUnit == unit
}

// Reconfigure replaces the cadence and reactivates the rule.
// The caller is responsible for regenerating occurrences.
func (r *ScheduleRule) Reconfigure(anchor civil.Date, intervalValue int, unit IntervalUnit, now time.Time) error {
	orig := *r

	r.AnchorDate = anchor
	r.IntervalValue = intervalValue
	r.IntervalUnit = unit
	r.Active = true

	if err := r.Validate(); err != nil {
		*r = orig
		return err
	}

	r.UpdatedAt = now.UTC()
	return nil
}

// Deactivate stops the rule from spawning new occurrences.
func (r *ScheduleRule) Deactivate(now time.Time) {
	r.Active = false
	r.UpdatedAt = now.UTC()
}
