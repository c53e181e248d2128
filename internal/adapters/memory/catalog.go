package memory

import (
	"bytes"
	"context"
	"sync"

	"printvault/internal/domain"
)

type document struct {
	data    []byte
	version uint64
}

// CatalogStore is a versioned map of documents.
type CatalogStore struct {
	mu   sync.Mutex
	docs map[string]document

	// BeforeSet, if set, runs before each Set and may mutate the store to
	// simulate a concurrent writer.
	BeforeSet func(key string)
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{docs: make(map[string]document)}
}

func (s *CatalogStore) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	return bytes.Clone(doc.data), doc.version, nil
}

func (s *CatalogStore) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if hook := s.BeforeSet; hook != nil {
		hook(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.docs[key].version
	if current != expectedVersion {
		return 0, &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: current}
	}
	next := current + 1
	s.docs[key] = document{data: bytes.Clone(data), version: next}
	return next, nil
}

// Writes returns the version of key, which counts successful writes.
func (s *CatalogStore) Writes(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[key].version
}

func (s *CatalogStore) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func (s *CatalogStore) Close() error { return nil }
