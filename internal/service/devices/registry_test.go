package devices_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/mocks"
	"github.com/phrazzld/sprout-api/internal/service/devices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOrRefresh(t *testing.T) {
	ctx := context.Background()
	st := mocks.NewMockDeviceStore()
	reg := devices.NewRegistry(st, nil)
	alice, bob := uuid.New(), uuid.New()

	first, created, err := reg.RegisterOrRefresh(ctx, alice, "  tok-1  ", domain.PlatformAndroid)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "tok-1", first.Token)

	again, created, err := reg.RegisterOrRefresh(ctx, alice, "tok-1", domain.PlatformAndroid)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// Reinstall under another account moves the token.
	moved, created, err := reg.RegisterOrRefresh(ctx, bob, "tok-1", domain.PlatformIOS)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, moved.ID)

	aliceTokens, err := reg.ActiveTokens(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, aliceTokens)

	bobTokens, err := reg.ActiveTokens(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, bobTokens)

	stored, ok := st.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, domain.PlatformIOS, stored.Platform)
}

func TestRegisterOrRefresh_Validation(t *testing.T) {
	ctx := context.Background()
	reg := devices.NewRegistry(mocks.NewMockDeviceStore(), nil)

	tests := []struct {
		name     string
		token    string
		platform domain.Platform
		wantErr  error
	}{
		{"empty token", "   ", domain.PlatformAndroid, domain.ErrValidation},
		{"too long", strings.Repeat("x", domain.MaxTokenLength+1), domain.PlatformAndroid, domain.ErrValidation},
		{"unknown platform", "tok", domain.Platform("web"), domain.ErrInvalidPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reg.RegisterOrRefresh(ctx, uuid.New(), tt.token, tt.platform)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	st := mocks.NewMockDeviceStore()
	reg := devices.NewRegistry(st, nil)
	owner := uuid.New()

	for _, tok := range []string{"a", "b", "c"} {
		_, _, err := reg.RegisterOrRefresh(ctx, owner, tok, domain.PlatformAndroid)
		require.NoError(t, err)
	}

	n, err := reg.Deactivate(ctx, []string{"a", "c", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tokens, err := reg.ActiveTokens(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, tokens)

	n, err = reg.Deactivate(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Registering a deactivated token again reactivates it.
	_, created, err := reg.RegisterOrRefresh(ctx, owner, "a", domain.PlatformAndroid)
	require.NoError(t, err)
	assert.False(t, created)
	tokens, err = reg.ActiveTokens(ctx, owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, tokens)
}

func TestRegistry_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	st := mocks.NewMockDeviceStore()
	st.UpsertErr = boom
	st.ListActiveErr = boom
	st.DeactivateErr = boom
	reg := devices.NewRegistry(st, nil)

	_, _, err := reg.RegisterOrRefresh(ctx, uuid.New(), "tok", domain.PlatformAndroid)
	assert.ErrorIs(t, err, boom)

	_, err = reg.ActiveTokens(ctx, uuid.New())
	assert.ErrorIs(t, err, boom)

	_, err = reg.Deactivate(ctx, []string{"tok"})
	assert.ErrorIs(t, err, boom)
}
