package mocks

import (
	"context"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// MockDeliveryStore is an in-memory delivery ledger enforcing the slot key
// the way the database unique constraint does.
type MockDeliveryStore struct {
	mu      sync.Mutex
	records map[string]domain.DeliveryRecord

	InsertFn  func(ctx context.Context, rec *domain.DeliveryRecord) error
	InsertErr error
	ExistsErr error
}

var _ store.DeliveryStore = (*MockDeliveryStore)(nil)

// NewMockDeliveryStore creates an empty ledger.
func NewMockDeliveryStore() *MockDeliveryStore {
	return &MockDeliveryStore{records: make(map[string]domain.DeliveryRecord)}
}

// Insert implements store.DeliveryStore.
func (m *MockDeliveryStore) Insert(ctx context.Context, rec *domain.DeliveryRecord) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, rec)
	}
	if m.InsertErr != nil {
		return m.InsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.Key()
	if _, ok := m.records[key]; ok {
		return store.ErrAlreadyClaimed
	}
	m.records[key] = *rec
	return nil
}

// Exists implements store.DeliveryStore.
func (m *MockDeliveryStore) Exists(
	ctx context.Context,
	ownerID uuid.UUID,
	channel domain.Channel,
	kind domain.NotificationKind,
	localDate civil.Date,
) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[domain.DeliveryKey(ownerID, channel, kind, localDate)]
	return ok, nil
}

// Count returns the number of stored records.
func (m *MockDeliveryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Records returns a copy of every stored record.
func (m *MockDeliveryStore) Records() []domain.DeliveryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.DeliveryRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}
