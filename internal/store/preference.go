package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// PreferenceStore defines persistence for notification preferences.
type PreferenceStore interface {
	// Get returns the owner's preferences.
	// Returns ErrPreferenceNotFound if there is no row.
	Get(ctx context.Context, ownerID uuid.UUID) (*domain.NotificationPreference, error)

	// CreateIfMissing inserts p unless the owner already has a row, then
	// returns the stored row. Concurrent callers observe the same row.
	CreateIfMissing(ctx context.Context, p *domain.NotificationPreference) (*domain.NotificationPreference, error)

	// Update overwrites the owner's preferences.
	// Returns ErrPreferenceNotFound if there is no row.
	Update(ctx context.Context, p *domain.NotificationPreference) error

	// ListEnabled returns every preference with at least one channel/kind on.
	ListEnabled(ctx context.Context) ([]*domain.NotificationPreference, error)
}

// RecipientStore resolves an owner's contact data.
type RecipientStore interface {
	// GetRecipient returns ErrRecipientNotFound if the owner is unknown.
	GetRecipient(ctx context.Context, ownerID uuid.UUID) (*domain.Recipient, error)
}
