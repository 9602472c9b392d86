package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/verdantlabs/canopy/vector"
)

// MockStore is an in-memory test double for vector.Store.
// It allows custom behavior injection via function fields.
type MockStore struct {
	// UpsertFunc is called by Upsert if set.
	// If nil, documents are stored in memory with generated ids.
	UpsertFunc func(ctx context.Context, docs []vector.Document) ([]string, error)

	// DeleteByIDsFunc is called by DeleteByIDs if set.
	// If nil, ids are removed from the in-memory map.
	DeleteByIDsFunc func(ctx context.Context, ids []string) error

	mu      sync.Mutex
	docs    map[string]vector.Document
	nextID  int
	upserts int
	deletes int
}

var _ vector.Store = (*MockStore)(nil)

// NewMockStore creates a mock vector store with default in-memory behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string]vector.Document)}
}

// Upsert stores the documents in memory and returns one id per document.
func (m *MockStore) Upsert(ctx context.Context, docs []vector.Document) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, docs)
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		m.nextID++
		ids[i] = fmt.Sprintf("mock-vec-%d", m.nextID)
		m.docs[ids[i]] = doc
	}
	return ids, nil
}

// DeleteByIDs removes documents from the in-memory map. Unknown ids are
// ignored.
func (m *MockStore) DeleteByIDs(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++

	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}

	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Get returns the stored document for an id, if present.
func (m *MockStore) Get(id string) (vector.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Len returns the number of stored documents.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// UpsertCount returns the number of Upsert calls.
func (m *MockStore) UpsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// DeleteCount returns the number of DeleteByIDs calls.
func (m *MockStore) DeleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}
