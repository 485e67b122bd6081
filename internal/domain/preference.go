package domain

import (
	"time"

	"github.com/google/uuid"
)

// Preference defaults applied when an owner has no stored row.
const (
	DefaultLanguage = "en"
	DefaultSendHour = 12
)

// SupportedLanguages lists the languages reminder texts are available in.
var SupportedLanguages = []string{"en", "pl"}

// NotificationPreference holds one owner's reminder settings.
type NotificationPreference struct {
	OwnerID       uuid.UUID `json:"owner_id"`
	Timezone      string    `json:"timezone"`
	Language      string    `json:"language"`
	EmailDueToday bool      `json:"email_due_today"`
	EmailOverdue  bool      `json:"email_overdue_1d"`
	EmailHour     int       `json:"email_hour"`
	EmailMinute   int       `json:"email_minute"`
	PushDueToday  bool      `json:"push_due_today"`
	PushOverdue   bool      `json:"push_overdue_1d"`
	PushHour      int       `json:"push_hour"`
	PushMinute    int       `json:"push_minute"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewDefaultPreference returns the settings a new owner starts with:
// due-today reminders on both channels at 12:00, overdue reminders off.
func NewDefaultPreference(ownerID uuid.UUID, timezone string) *NotificationPreference {
	now := time.Now().UTC()
	return &NotificationPreference{
		OwnerID:       ownerID,
		Timezone:      timezone,
		Language:      DefaultLanguage,
		EmailDueToday: true,
		EmailHour:     DefaultSendHour,
		PushDueToday:  true,
		PushHour:      DefaultSendHour,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks if the NotificationPreference has valid data.
// The timezone is only checked for loadability when non-empty; an empty
// zone falls back to the configured default at evaluation time.
func (p *NotificationPreference) Validate() error {
	if p.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return NewValidationError("timezone", "must be a known IANA zone", ErrInvalidTimezone)
		}
	}
	if !IsSupportedLanguage(p.Language) {
		return NewValidationError("language", "is not supported", ErrValidation)
	}
	if !validClock(p.EmailHour, p.EmailMinute) {
		return NewValidationError("email_hour", "must be a valid time of day", ErrInvalidSendTime)
	}
	if !validClock(p.PushHour, p.PushMinute) {
		return NewValidationError("push_hour", "must be a valid time of day", ErrInvalidSendTime)
	}
	return nil
}

// AnyEnabled reports whether at least one channel/kind combination is on.
func (p *NotificationPreference) AnyEnabled() bool {
	return p.EmailDueToday || p.EmailOverdue || p.PushDueToday || p.PushOverdue
}

// Enabled reports whether the given channel/kind combination is on.
func (p *NotificationPreference) Enabled(channel Channel, kind NotificationKind) bool {
	switch channel {
	case ChannelEmail:
		if kind == NotificationKindDueToday {
			return p.EmailDueToday
		}
		return kind == NotificationKindOverdue1D && p.EmailOverdue
	case ChannelPush:
		if kind == NotificationKindDueToday {
			return p.PushDueToday
		}
		return kind == NotificationKindOverdue1D && p.PushOverdue
	}
	return false
}

// SendTime returns the configured local hour and minute for a channel.
func (p *NotificationPreference) SendTime(channel Channel) (hour, minute int) {
	if channel == ChannelPush {
		return p.PushHour, p.PushMinute
	}
	return p.EmailHour, p.EmailMinute
}

// IsSupportedLanguage reports whether lang has a reminder catalog.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}
