package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// MockDeviceStore is an in-memory device token store keyed by token.
type MockDeviceStore struct {
	mu     sync.Mutex
	tokens map[string]domain.DeviceToken

	UpsertErr     error
	ListActiveErr error
	DeactivateErr error

	// Deactivated accumulates every token passed to Deactivate.
	Deactivated []string
}

var _ store.DeviceStore = (*MockDeviceStore)(nil)

// NewMockDeviceStore creates an empty store.
func NewMockDeviceStore() *MockDeviceStore {
	return &MockDeviceStore{tokens: make(map[string]domain.DeviceToken)}
}

// Upsert implements store.DeviceStore.
func (m *MockDeviceStore) Upsert(ctx context.Context, dt *domain.DeviceToken) (bool, error) {
	if m.UpsertErr != nil {
		return false, m.UpsertErr
	}
	if err := dt.Validate(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tokens[dt.Token]
	if ok {
		existing.OwnerID = dt.OwnerID
		existing.Platform = dt.Platform
		existing.Active = true
		existing.LastSeenAt = dt.LastSeenAt
		existing.UpdatedAt = dt.UpdatedAt
		m.tokens[dt.Token] = existing

		dt.ID = existing.ID
		dt.CreatedAt = existing.CreatedAt
		dt.Active = true
		return false, nil
	}

	dt.Active = true
	m.tokens[dt.Token] = *dt
	return true, nil
}

// ListActive implements store.DeviceStore.
func (m *MockDeviceStore) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.DeviceToken, error) {
	if m.ListActiveErr != nil {
		return nil, m.ListActiveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.DeviceToken
	for _, t := range m.tokens {
		if t.OwnerID == ownerID && t.Active {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

// Deactivate implements store.DeviceStore.
func (m *MockDeviceStore) Deactivate(ctx context.Context, tokens []string, at time.Time) (int, error) {
	if m.DeactivateErr != nil {
		return 0, m.DeactivateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deactivated = append(m.Deactivated, tokens...)

	n := 0
	for _, tok := range tokens {
		t, ok := m.tokens[tok]
		if !ok || !t.Active {
			continue
		}
		t.Active = false
		t.UpdatedAt = at
		m.tokens[tok] = t
		n++
	}
	return n, nil
}

// Get returns the stored token, if any.
func (m *MockDeviceStore) Get(token string) (*domain.DeviceToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	return &t, true
}
