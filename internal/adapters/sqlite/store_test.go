package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"printvault/internal/adapters/catalogtest"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	catalogtest.Run(t, func(t *testing.T) ports.CatalogStore {
		return openTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	})
}

func TestVersionsAreSequential(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	ctx := context.Background()

	var version uint64
	for want := uint64(1); want <= 3; want++ {
		got, err := s.Set(ctx, domain.CatalogKey, []byte(`{"armies":[]}`), version)
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if got != want {
			t.Errorf("Set() version = %d, want %d", got, want)
		}
		version = got
	}
}

func TestReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Set(ctx, domain.CatalogKey, []byte(`{"armies":[{"id":"skaven"}]}`), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s = openTestStore(t, path)
	data, version, err := s.Get(ctx, domain.CatalogKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if string(data) != `{"armies":[{"id":"skaven"}]}` {
		t.Errorf("data = %s", data)
	}

	var schema string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&schema); err != nil {
		t.Fatalf("meta query error = %v", err)
	}
	if schema != schemaVersion {
		t.Errorf("schema_version = %q, want %q", schema, schemaVersion)
	}
}
