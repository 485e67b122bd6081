package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform is the operating system a push token was issued for.
type Platform string

// Known platforms.
const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformAndroid || p == PlatformIOS
}

// MaxTokenLength bounds the size of an accepted push token.
const MaxTokenLength = 512

// DeviceToken is a push destination registered by an owner.
// Tokens are unique across owners and are deactivated, never deleted.
type DeviceToken struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Token      string    `json:"token"`
	Platform   Platform  `json:"platform"`
	Active     bool      `json:"active"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewDeviceToken creates an active token for the owner.
func NewDeviceToken(ownerID uuid.UUID, token string, platform Platform, now time.Time) (*DeviceToken, error) {
	now = now.UTC()
	dt := &DeviceToken{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Token:      strings.TrimSpace(token),
		Platform:   platform,
		Active:     true,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := dt.Validate(); err != nil {
		return nil, err
	}

	return dt, nil
}

// Validate checks if the DeviceToken has valid data.
func (d *DeviceToken) Validate() error {
	if d.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if d.Token == "" {
		return NewValidationError("token", "cannot be empty", ErrValidation)
	}
	if len(d.Token) > MaxTokenLength {
		return NewValidationError("token", "is too long", ErrValidation)
	}
	if !d.Platform.Valid() {
		return NewValidationError("platform", "must be android or ios", ErrInvalidPlatform)
	}
	return nil
}
