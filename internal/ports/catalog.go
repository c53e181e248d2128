package ports

import "context"

// CatalogStore is a versioned key/value document store. Version 0 means the
// key does not exist yet.
type CatalogStore interface {
	// Get returns the document and its version, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, uint64, error)

	// Set writes data if the stored version still equals expectedVersion and
	// returns the new version. Otherwise it returns *domain.ConflictError.
	Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error)

	Clear(ctx context.Context, key string) error
	Close() error
}
