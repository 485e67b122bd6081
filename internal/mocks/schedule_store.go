package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// MockScheduleStore is an in-memory rule and occurrence store.
// It implements store.ScheduleUnitOfWork directly; Rules and Occurrences
// return views over the same data. Transactions are serialized and a failed
// transaction restores the state it started from.
type MockScheduleStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	rules       map[uuid.UUID]domain.ScheduleRule
	occurrences map[uuid.UUID]domain.TaskOccurrence

	// Failure injection
	CreateOccurrenceErr error
	MarkCompletedErr    error
	CountPendingErr     error

	// CountPendingFn overrides CountPending when set.
	CountPendingFn func(ctx context.Context, ownerID uuid.UUID, due civil.Date) (int, error)

	// TxCount is the number of WithinTx calls made.
	TxCount int
}

var _ store.ScheduleUnitOfWork = (*MockScheduleStore)(nil)

// NewMockScheduleStore creates an empty store.
func NewMockScheduleStore() *MockScheduleStore {
	return &MockScheduleStore{
		rules:       make(map[uuid.UUID]domain.ScheduleRule),
		occurrences: make(map[uuid.UUID]domain.TaskOccurrence),
	}
}

// Rules returns the store.RuleStore view.
func (m *MockScheduleStore) Rules() store.RuleStore { return &mockRuleStore{m: m} }

// Occurrences returns the store.OccurrenceStore view.
func (m *MockScheduleStore) Occurrences() store.OccurrenceStore { return &mockOccurrenceStore{m: m} }

// WithinTx implements store.ScheduleUnitOfWork.
func (m *MockScheduleStore) WithinTx(ctx context.Context, fn store.ScheduleTxFn) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.TxCount++
	rules, occs := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(ctx, m.Rules(), m.Occurrences()); err != nil {
		m.mu.Lock()
		m.rules, m.occurrences = rules, occs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MockScheduleStore) snapshotLocked() (map[uuid.UUID]domain.ScheduleRule, map[uuid.UUID]domain.TaskOccurrence) {
	rules := make(map[uuid.UUID]domain.ScheduleRule, len(m.rules))
	for k, v := range m.rules {
		rules[k] = v
	}
	occs := make(map[uuid.UUID]domain.TaskOccurrence, len(m.occurrences))
	for k, v := range m.occurrences {
		occs[k] = copyOccurrence(v)
	}
	return rules, occs
}

// SeedRule stores a rule without validation.
func (m *MockScheduleStore) SeedRule(rule *domain.ScheduleRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = *rule
}

// SeedOccurrence stores an occurrence without validation or invariant checks.
func (m *MockScheduleStore) SeedOccurrence(occ *domain.TaskOccurrence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occurrences[occ.ID] = copyOccurrence(*occ)
}

// OccurrencesForRule returns every occurrence of a rule ordered by due date.
func (m *MockScheduleStore) OccurrencesForRule(ruleID uuid.UUID) []*domain.TaskOccurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(o domain.TaskOccurrence) bool { return o.RuleID == ruleID })
}

// PendingCount returns the number of pending occurrences of a rule.
func (m *MockScheduleStore) PendingCount(ruleID uuid.UUID) int {
	return len(m.pendingFor(ruleID))
}

func (m *MockScheduleStore) pendingFor(ruleID uuid.UUID) []*domain.TaskOccurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(o domain.TaskOccurrence) bool {
		return o.RuleID == ruleID && o.IsPending()
	})
}

func (m *MockScheduleStore) listLocked(keep func(domain.TaskOccurrence) bool) []*domain.TaskOccurrence {
	var out []*domain.TaskOccurrence
	for _, o := range m.occurrences {
		if keep(o) {
			c := copyOccurrence(o)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate == out[j].DueDate {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

func copyOccurrence(o domain.TaskOccurrence) domain.TaskOccurrence {
	if o.CompletedAt != nil {
		at := *o.CompletedAt
		o.CompletedAt = &at
	}
	return o
}

type mockRuleStore struct {
	m *MockScheduleStore
}

var _ store.RuleStore = (*mockRuleStore)(nil)

func (s *mockRuleStore) Create(ctx context.Context, rule *domain.ScheduleRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, r := range s.m.rules {
		if r.ID == rule.ID || (r.SubjectID == rule.SubjectID && r.Kind == rule.Kind) {
			return store.ErrRuleExists
		}
	}
	s.m.rules[rule.ID] = *rule
	return nil
}

func (s *mockRuleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	r, ok := s.m.rules[id]
	if !ok {
		return nil, store.ErrRuleNotFound
	}
	return &r, nil
}

func (s *mockRuleStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScheduleRule, error) {
	return s.GetByID(ctx, id)
}

func (s *mockRuleStore) GetBySubjectKindForUpdate(
	ctx context.Context,
	subjectID uuid.UUID,
	kind domain.TaskKind,
) (*domain.ScheduleRule, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, r := range s.m.rules {
		if r.SubjectID == subjectID && r.Kind == kind {
			return &r, nil
		}
	}
	return nil, store.ErrRuleNotFound
}

func (s *mockRuleStore) Update(ctx context.Context, rule *domain.ScheduleRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.rules[rule.ID]; !ok {
		return store.ErrRuleNotFound
	}
	s.m.rules[rule.ID] = *rule
	return nil
}

func (s *mockRuleStore) WithTx(*sql.Tx) store.RuleStore { return s }

type mockOccurrenceStore struct {
	m *MockScheduleStore
}

var _ store.OccurrenceStore = (*mockOccurrenceStore)(nil)

func (s *mockOccurrenceStore) Create(ctx context.Context, occ *domain.TaskOccurrence) error {
	if s.m.CreateOccurrenceErr != nil {
		return s.m.CreateOccurrenceErr
	}
	if err := occ.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.occurrences[occ.ID]; ok {
		return store.ErrDuplicate
	}
	s.m.occurrences[occ.ID] = copyOccurrence(*occ)
	return nil
}

func (s *mockOccurrenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	o, ok := s.m.occurrences[id]
	if !ok {
		return nil, store.ErrOccurrenceNotFound
	}
	c := copyOccurrence(o)
	return &c, nil
}

func (s *mockOccurrenceStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.TaskOccurrence, error) {
	return s.GetByID(ctx, id)
}

func (s *mockOccurrenceStore) ListPendingByRule(
	ctx context.Context,
	ruleID uuid.UUID,
) ([]*domain.TaskOccurrence, error) {
	return s.m.pendingFor(ruleID), nil
}

func (s *mockOccurrenceStore) MarkCompleted(ctx context.Context, occ *domain.TaskOccurrence) error {
	if s.m.MarkCompletedErr != nil {
		return s.m.MarkCompletedErr
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.occurrences[occ.ID]; !ok {
		return store.ErrOccurrenceNotFound
	}
	s.m.occurrences[occ.ID] = copyOccurrence(*occ)
	return nil
}

func (s *mockOccurrenceStore) CountPending(ctx context.Context, ownerID uuid.UUID, due civil.Date) (int, error) {
	if s.m.CountPendingFn != nil {
		return s.m.CountPendingFn(ctx, ownerID, due)
	}
	if s.m.CountPendingErr != nil {
		return 0, s.m.CountPendingErr
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	n := 0
	for _, o := range s.m.occurrences {
		if o.OwnerID == ownerID && o.DueDate == due && o.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *mockOccurrenceStore) WithTx(*sql.Tx) store.OccurrenceStore { return s }
