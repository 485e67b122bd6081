package api

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// RegisterDeviceRequest is the body of POST /api/devices.
type RegisterDeviceRequest struct {
	Token    string `json:"token"    validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,oneof=android ios"`
}

// DeviceResponse describes a registered device.
type DeviceResponse struct {
	ID         uuid.UUID `json:"id"`
	Platform   string    `json:"platform"`
	Active     bool      `json:"active"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Created    bool      `json:"created"`
}

// PutScheduleRequest is the body of PUT /api/plants/{plantID}/schedules/{kind}.
type PutScheduleRequest struct {
	AnchorDate    string `json:"anchor_date"    validate:"required,datetime=2006-01-02"`
	IntervalValue int    `json:"interval_value" validate:"required,gte=1,lte=3650"`
	IntervalUnit  string `json:"interval_unit"  validate:"required,oneof=days months"`
}

// OccurrenceResponse describes one task occurrence.
type OccurrenceResponse struct {
	ID          uuid.UUID  `json:"id"`
	RuleID      uuid.UUID  `json:"rule_id"`
	DueDate     civil.Date `json:"due_date"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Source      string     `json:"completion_source,omitempty"`
}

// ScheduleResponse describes a rule and its pending occurrence, if any.
type ScheduleResponse struct {
	ID            uuid.UUID           `json:"id"`
	PlantID       uuid.UUID           `json:"plant_id"`
	Kind          string              `json:"kind"`
	AnchorDate    civil.Date          `json:"anchor_date"`
	IntervalValue int                 `json:"interval_value"`
	IntervalUnit  string              `json:"interval_unit"`
	Active        bool                `json:"active"`
	Pending       *OccurrenceResponse `json:"pending,omitempty"`
}

// CompletionResponse is returned by POST /api/occurrences/{id}/complete.
type CompletionResponse struct {
	Completed OccurrenceResponse  `json:"completed"`
	Next      *OccurrenceResponse `json:"next"`
}

// PreferenceResponse mirrors the stored notification preferences.
type PreferenceResponse struct {
	Timezone      string `json:"timezone"`
	Language      string `json:"language"`
	EmailDueToday bool   `json:"email_due_today"`
	EmailOverdue  bool   `json:"email_overdue_1d"`
	EmailHour     int    `json:"email_hour"`
	EmailMinute   int    `json:"email_minute"`
	PushDueToday  bool   `json:"push_due_today"`
	PushOverdue   bool   `json:"push_overdue_1d"`
	PushHour      int    `json:"push_hour"`
	PushMinute    int    `json:"push_minute"`
}

func occurrenceToResponse(o *domain.TaskOccurrence) *OccurrenceResponse {
	if o == nil {
		return nil
	}
	return &OccurrenceResponse{
		ID:          o.ID,
		RuleID:      o.RuleID,
		DueDate:     o.DueDate,
		Status:      string(o.Status),
		CompletedAt: o.CompletedAt,
		Source:      string(o.CompletionSource),
	}
}

func scheduleToResponse(rule *domain.ScheduleRule, pending *domain.TaskOccurrence) ScheduleResponse {
	return ScheduleResponse{
		ID:            rule.ID,
		PlantID:       rule.SubjectID,
		Kind:          string(rule.Kind),
		AnchorDate:    rule.AnchorDate,
		IntervalValue: rule.IntervalValue,
		IntervalUnit:  string(rule.IntervalUnit),
		Active:        rule.Active,
		Pending:       occurrenceToResponse(pending),
	}
}

func preferenceToResponse(p *domain.NotificationPreference) PreferenceResponse {
	return PreferenceResponse{
		Timezone:      p.Timezone,
		Language:      p.Language,
		EmailDueToday: p.EmailDueToday,
		EmailOverdue:  p.EmailOverdue,
		EmailHour:     p.EmailHour,
		EmailMinute:   p.EmailMinute,
		PushDueToday:  p.PushDueToday,
		PushOverdue:   p.PushOverdue,
		PushHour:      p.PushHour,
		PushMinute:    p.PushMinute,
	}
}
