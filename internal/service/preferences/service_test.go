package preferences_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/mocks"
	"github.com/phrazzld/sprout-api/internal/service/preferences"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestGetOrCreate_Defaults(t *testing.T) {
	ctx := context.Background()
	st := mocks.NewMockPreferenceStore()
	svc := preferences.NewService(st, "Europe/Warsaw", nil)
	owner := uuid.New()

	pref, err := svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, owner, pref.OwnerID)
	assert.Equal(t, "Europe/Warsaw", pref.Timezone)
	assert.Equal(t, domain.DefaultLanguage, pref.Language)
	assert.True(t, pref.EmailDueToday)
	assert.True(t, pref.PushDueToday)
	assert.False(t, pref.EmailOverdue)
	assert.False(t, pref.PushOverdue)
	assert.Equal(t, 12, pref.EmailHour)
	assert.Equal(t, 0, pref.EmailMinute)

	// Second call returns the stored row.
	pref.EmailHour = 7
	require.NoError(t, st.Update(ctx, pref))
	again, err := svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 7, again.EmailHour)
}

func TestGetOrCreate_StoreError(t *testing.T) {
	st := mocks.NewMockPreferenceStore()
	boom := errors.New("db down")
	st.GetErr = boom
	svc := preferences.NewService(st, "UTC", nil)

	_, err := svc.GetOrCreate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	tests := []struct {
		name    string
		patch   preferences.Patch
		wantErr error
		check   func(t *testing.T, p *domain.NotificationPreference)
	}{
		{
			name: "partial update",
			patch: preferences.Patch{
				Timezone:     ptr("America/New_York"),
				Language:     ptr(" PL "),
				EmailOverdue: ptr(true),
				PushHour:     ptr(8),
				PushMinute:   ptr(30),
			},
			check: func(t *testing.T, p *domain.NotificationPreference) {
				assert.Equal(t, "America/New_York", p.Timezone)
				assert.Equal(t, "pl", p.Language)
				assert.True(t, p.EmailOverdue)
				assert.True(t, p.EmailDueToday, "untouched field keeps its value")
				assert.Equal(t, 8, p.PushHour)
				assert.Equal(t, 30, p.PushMinute)
			},
		},
		{
			name:    "hour out of range",
			patch:   preferences.Patch{EmailHour: ptr(24)},
			wantErr: domain.ErrInvalidSendTime,
		},
		{
			name:    "minute out of range",
			patch:   preferences.Patch{PushMinute: ptr(60)},
			wantErr: domain.ErrInvalidSendTime,
		},
		{
			name:    "unknown timezone",
			patch:   preferences.Patch{Timezone: ptr("Mars/Olympus")},
			wantErr: domain.ErrInvalidTimezone,
		},
		{
			name:    "unsupported language",
			patch:   preferences.Patch{Language: ptr("xx")},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mocks.NewMockPreferenceStore()
			svc := preferences.NewService(st, "UTC", nil)

			got, err := svc.Update(ctx, owner, tt.patch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				stored, getErr := st.Get(ctx, owner)
				require.NoError(t, getErr)
				assert.Equal(t, "UTC", stored.Timezone, "stored row must be unchanged")
				return
			}
			require.NoError(t, err)
			tt.check(t, got)

			stored, err := st.Get(ctx, owner)
			require.NoError(t, err)
			tt.check(t, stored)
		})
	}
}

func TestListEnabled(t *testing.T) {
	ctx := context.Background()
	st := mocks.NewMockPreferenceStore()
	svc := preferences.NewService(st, "UTC", nil)

	on := domain.NewDefaultPreference(uuid.New(), "UTC")
	off := domain.NewDefaultPreference(uuid.New(), "UTC")
	off.EmailDueToday = false
	off.PushDueToday = false
	st.SeedPreference(on)
	st.SeedPreference(off)

	prefs, err := svc.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, on.OwnerID, prefs[0].OwnerID)
}
