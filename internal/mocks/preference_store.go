package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// MockPreferenceStore implements store.PreferenceStore and store.RecipientStore.
type MockPreferenceStore struct {
	mu          sync.Mutex
	preferences map[uuid.UUID]domain.NotificationPreference
	recipients  map[uuid.UUID]domain.Recipient

	GetErr         error
	UpdateErr      error
	ListEnabledErr error

	// GetRecipientFn overrides GetRecipient when set.
	GetRecipientFn func(ctx context.Context, ownerID uuid.UUID) (*domain.Recipient, error)
}

var (
	_ store.PreferenceStore = (*MockPreferenceStore)(nil)
	_ store.RecipientStore  = (*MockPreferenceStore)(nil)
)

// NewMockPreferenceStore creates an empty store.
func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{
		preferences: make(map[uuid.UUID]domain.NotificationPreference),
		recipients:  make(map[uuid.UUID]domain.Recipient),
	}
}

// SeedPreference stores p without validation.
func (m *MockPreferenceStore) SeedPreference(p *domain.NotificationPreference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[p.OwnerID] = *p
}

// SeedRecipient stores the contact data for an owner.
func (m *MockPreferenceStore) SeedRecipient(r *domain.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients[r.OwnerID] = *r
}

// Get implements store.PreferenceStore.
func (m *MockPreferenceStore) Get(ctx context.Context, ownerID uuid.UUID) (*domain.NotificationPreference, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.preferences[ownerID]
	if !ok {
		return nil, store.ErrPreferenceNotFound
	}
	return &p, nil
}

// CreateIfMissing implements store.PreferenceStore.
func (m *MockPreferenceStore) CreateIfMissing(
	ctx context.Context,
	p *domain.NotificationPreference,
) (*domain.NotificationPreference, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.preferences[p.OwnerID]
	if !ok {
		existing = *p
		m.preferences[p.OwnerID] = existing
	}
	return &existing, nil
}

// Update implements store.PreferenceStore.
func (m *MockPreferenceStore) Update(ctx context.Context, p *domain.NotificationPreference) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.preferences[p.OwnerID]; !ok {
		return store.ErrPreferenceNotFound
	}
	m.preferences[p.OwnerID] = *p
	return nil
}

// ListEnabled implements store.PreferenceStore.
func (m *MockPreferenceStore) ListEnabled(ctx context.Context) ([]*domain.NotificationPreference, error) {
	if m.ListEnabledErr != nil {
		return nil, m.ListEnabledErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.NotificationPreference
	for _, p := range m.preferences {
		if p.AnyEnabled() {
			c := p
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetRecipient implements store.RecipientStore.
func (m *MockPreferenceStore) GetRecipient(ctx context.Context, ownerID uuid.UUID) (*domain.Recipient, error) {
	if m.GetRecipientFn != nil {
		return m.GetRecipientFn(ctx, ownerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipients[ownerID]
	if !ok {
		return nil, store.ErrRecipientNotFound
	}
	return &r, nil
}
