package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory document store used in tests and as the
// fallback when no remote bin is configured.
type MemoryStore struct {
	mu  sync.Mutex
	doc *Document
}

// NewMemoryStore creates a store seeded with the given document.
func NewMemoryStore(doc *Document) *MemoryStore {
	if doc == nil {
		doc = DefaultDocument()
	}
	doc.Normalize()
	return &MemoryStore{doc: doc}
}

// Load returns a deep copy of the current document.
func (m *MemoryStore) Load(ctx context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone(), nil
}

// Update applies fn to a copy of the document and commits it if fn
// succeeds. Serialized by the store mutex.
func (m *MemoryStore) Update(ctx context.Context, fn func(*Document) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	m.doc = next
	return nil
}
