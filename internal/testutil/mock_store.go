// mock_store.go - In-memory test/result store for testing
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/store"
)

// MockExamStore implements store.Store in memory.
type MockExamStore struct {
	mu      sync.RWMutex
	tests   map[string]models.Test
	results map[string]models.Result

	// PutErr, when set, is returned by PutTest and PutResult.
	PutErr error
}

func NewMockExamStore() *MockExamStore {
	return &MockExamStore{
		tests:   make(map[string]models.Test),
		results: make(map[string]models.Result),
	}
}

var _ store.Store = (*MockExamStore)(nil)

func (m *MockExamStore) PutTest(_ context.Context, test *models.Test) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *test
	cp.Questions = append([]models.FlatQuestion(nil), test.Questions...)
	m.tests[test.TestID] = cp
	return nil
}

func (m *MockExamStore) GetTest(_ context.Context, testID string) (*models.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[testID]
	if !ok {
		return nil, fmt.Errorf("test %s: %w", testID, store.ErrNotFound)
	}
	t.Questions = append([]models.FlatQuestion(nil), t.Questions...)
	return &t, nil
}

func (m *MockExamStore) ListTests(_ context.Context) ([]models.TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TestSummary, 0, len(m.tests))
	for _, t := range m.tests {
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockExamStore) DeleteTest(_ context.Context, testID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[testID]; !ok {
		return fmt.Errorf("test %s: %w", testID, store.ErrNotFound)
	}
	delete(m.tests, testID)
	for id, r := range m.results {
		if r.TestID == testID {
			delete(m.results, id)
		}
	}
	return nil
}

func (m *MockExamStore) PutResult(_ context.Context, result *models.Result) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.ResultID] = *result
	return nil
}

func (m *MockExamStore) GetResult(_ context.Context, resultID string) (*models.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[resultID]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", resultID, store.ErrNotFound)
	}
	return &r, nil
}

func (m *MockExamStore) ListResults(_ context.Context, testID string) ([]models.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Result, 0)
	for _, r := range m.results {
		if r.TestID == testID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (m *MockExamStore) Close() error { return nil }
