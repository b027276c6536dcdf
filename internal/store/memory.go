package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in memory. Used by tests and useful for
// running the server without persistence.
type MemoryStore struct {
	mu  sync.Mutex
	doc *Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: NewDocument()}
}

func (s *MemoryStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	return nil
}
