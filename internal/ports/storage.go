package ports

import (
	"context"
	"io"

	"printvault/internal/domain"
)

// RemoteStorage is a backend holding unit folders. Every path argument is
// relative to the adapter's configured base path.
type RemoteStorage interface {
	// Name identifies the backend kind, e.g. "ftp" or "webdav"
	Name() string

	// Connect establishes or reuses a session. It is idempotent.
	Connect(ctx context.Context) error
	Close() error

	// Upload creates dir if needed and writes fileName, overwriting any
	// existing file. It returns the relative path written.
	Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error)

	// Download opens a file for reading. Callers must close the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes one file. A missing file is a *domain.NotFoundError.
	Delete(ctx context.Context, path string) error

	// List returns the entries of dir, or an empty slice when dir is absent.
	List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error)

	// Probe checks whether dir exists without collapsing transport errors.
	Probe(ctx context.Context, dir string) domain.Probe

	// Health runs a connect/probe/disconnect cycle on a separate session.
	Health(ctx context.Context) domain.HealthReport
}
