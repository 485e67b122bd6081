// Package preferences manages per-owner notification preferences, creating
// the default row on first access.
package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/store"
)

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Timezone      *string `json:"timezone,omitempty"`
	Language      *string `json:"language,omitempty"`
	EmailDueToday *bool   `json:"email_due_today,omitempty"`
	EmailOverdue  *bool   `json:"email_overdue_1d,omitempty"`
	EmailHour     *int    `json:"email_hour,omitempty"`
	EmailMinute   *int    `json:"email_minute,omitempty"`
	PushDueToday  *bool   `json:"push_due_today,omitempty"`
	PushOverdue   *bool   `json:"push_overdue_1d,omitempty"`
	PushHour      *int    `json:"push_hour,omitempty"`
	PushMinute    *int    `json:"push_minute,omitempty"`
}

func (p Patch) apply(pref *domain.NotificationPreference) {
	if p.Timezone != nil {
		pref.Timezone = strings.TrimSpace(*p.Timezone)
	}
	if p.Language != nil {
		pref.Language = strings.ToLower(strings.TrimSpace(*p.Language))
	}
	setBool(&pref.EmailDueToday, p.EmailDueToday)
	setBool(&pref.EmailOverdue, p.EmailOverdue)
	setInt(&pref.EmailHour, p.EmailHour)
	setInt(&pref.EmailMinute, p.EmailMinute)
	setBool(&pref.PushDueToday, p.PushDueToday)
	setBool(&pref.PushOverdue, p.PushOverdue)
	setInt(&pref.PushHour, p.PushHour)
	setInt(&pref.PushMinute, p.PushMinute)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Service reads and updates notification preferences.
type Service struct {
	store           store.PreferenceStore
	defaultTimezone string
	now             func() time.Time
	logger          *slog.Logger
}

// NewService creates a Service. New owners get defaultTimezone.
func NewService(s store.PreferenceStore, defaultTimezone string, logger *slog.Logger) *Service {
	if s == nil {
		panic("preference store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:           s,
		defaultTimezone: defaultTimezone,
		now:             time.Now,
		logger:          logger.With(slog.String("component", "preference_service")),
	}
}

// GetOrCreate returns the owner's preferences, storing the defaults first if
// the owner has none.
func (s *Service) GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*domain.NotificationPreference, error) {
	pref, err := s.store.Get(ctx, ownerID)
	if err == nil {
		return pref, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	pref, err = s.store.CreateIfMissing(ctx, domain.NewDefaultPreference(ownerID, s.defaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("failed to create default preferences: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("default notification preferences created",
		slog.String("owner_id", ownerID.String()))
	return pref, nil
}

// Update applies patch to the owner's preferences and stores the result.
// Invalid values leave the stored row unchanged and return a
// *domain.ValidationError.
func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, patch Patch) (*domain.NotificationPreference, error) {
	pref, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	patch.apply(pref)
	if err := pref.Validate(); err != nil {
		return nil, err
	}
	pref.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return pref, nil
}

// ListEnabled returns every preference with at least one reminder turned on.
func (s *Service) ListEnabled(ctx context.Context) ([]*domain.NotificationPreference, error) {
	prefs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled preferences: %w", err)
	}
	return prefs, nil
}
