package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	userID := uuid.New()

	svc := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, accessTokenType, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(tokenLifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	userID := uuid.New()
	ctx := context.Background()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := svc.GenerateToken(ctx, userID)
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				gen := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := gen.GenerateToken(ctx, userID)
				require.NoError(t, err)
				return newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime.Add(tokenLifetime+time.Hour))), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "within clock skew",
			setupFunc: func(t *testing.T) (JWTService, string) {
				gen := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := gen.GenerateToken(ctx, userID)
				require.NoError(t, err)
				return newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime.Add(tokenLifetime+time.Minute))), token
			},
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				gen := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := gen.GenerateToken(ctx, userID)
				require.NoError(t, err)
				return newHMACJWTService(wrongSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime)), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token type",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := svc.sign(ctx, userID, "refresh", fixedTime.Add(tokenLifetime))
				require.NoError(t, err)
				return svc, token
			},
			wantErr: ErrWrongTokenType,
		},
		{
			name: "missing user id",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newHMACJWTService(testSecret, tokenLifetime, fixedClock(fixedTime))
				token, err := svc.sign(ctx, uuid.Nil, accessTokenType, fixedTime.Add(tokenLifetime))
				require.NoError(t, err)
				return svc, token
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)
			claims, err := svc.ValidateToken(ctx, token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}
