// Package jsonfile stores catalog documents as plain JSON files, so the
// catalog stays readable and editable by hand.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

var _ ports.CatalogStore = (*Store)(nil)

// Store keeps the document for domain.CatalogKey at path and any other key
// next to it as <key>.json. A document's version is a hash of its bytes, so
// edits made outside the process are detected as conflicts too.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store for the catalog file at path.
func New(path string) *Store {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return &Store{path: path}
}

func (s *Store) file(key string) (string, error) {
	if key == domain.CatalogKey {
		return s.path, nil
	}
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid catalog key %q", key)
	}
	return filepath.Join(filepath.Dir(s.path), key+".json"), nil
}

// version hashes data. The result is never 0, which means "absent".
func version(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	if v := h.Sum64(); v != 0 {
		return v
	}
	return 1
}

func (s *Store) read(file string) ([]byte, uint64, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, version(data), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	file, err := s.file(key)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(file)
}

func (s *Store) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	file, err := s.file(key)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, current, err := s.read(file)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	if current != expectedVersion {
		return 0, &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: current}
	}

	if err := writeFile(file, data); err != nil {
		return 0, fmt.Errorf("failed to write catalog: %w", err)
	}
	return version(data), nil
}

// writeFile replaces file atomically via a temporary file in the same
// directory.
func writeFile(file string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := s.file(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
