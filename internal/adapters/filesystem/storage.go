package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"printvault/internal/adapters/remote"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

const backendName = "local"

var _ ports.RemoteStorage = (*Storage)(nil)

// Storage implements ports.RemoteStorage on a local directory tree
type Storage struct {
	root string
}

// NewStorage creates a storage rooted at root
func NewStorage(root string) *Storage {
	// Expand ~ to home directory
	if strings.HasPrefix(root, "~") {
		home, _ := os.UserHomeDir()
		root = filepath.Join(home, root[1:])
	}
	return &Storage{root: filepath.Clean(root)}
}

// Root returns the absolute directory files are stored under
func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) Name() string { return backendName }

// Connect creates the root directory if needed
func (s *Storage) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return &domain.ConnectionError{Backend: backendName, Host: s.root, Err: err}
	}
	return nil
}

func (s *Storage) Close() error { return nil }

// resolve maps a relative storage path to a path below root
func (s *Storage) resolve(rel string) (string, string, error) {
	cleaned, err := remote.Clean(rel)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Upload writes through a temporary file in the same directory and renames
// it into place, so readers never see a partial file.
func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	rel, full, err := s.resolve(path.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	fail := func(err error) (string, error) {
		return "", &domain.UploadError{Path: rel, FileName: fileName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fail(fmt.Errorf("failed to create folder: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fail(err)
	}
	return rel, nil
}

// ctxReader stops a copy once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.DownloadError{Path: rel, Err: err}
	}

	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.NotFoundError{Kind: "file", Path: rel}
	}
	if err != nil {
		return nil, &domain.DownloadError{Path: rel, Err: err}
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		f.Close()
		return nil, &domain.DownloadError{Path: rel, Err: errors.New("is a directory")}
	}
	return f, nil
}

func (s *Storage) Delete(ctx context.Context, p string) error {
	rel, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.DeleteError{Path: rel, Err: err}
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return &domain.NotFoundError{Kind: "file", Path: rel}
	}
	if err != nil {
		return &domain.DeleteError{Path: rel, Err: err}
	}
	if info.IsDir() {
		return &domain.DeleteError{Path: rel, Err: errors.New("is a directory")}
	}
	if err := os.Remove(full); err != nil {
		return &domain.DeleteError{Path: rel, Err: err}
	}
	return nil
}

// List returns the entries of dir sorted by name. Temporary upload files
// are hidden.
func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	rel, full, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.RemoteFileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	records := make([]domain.RemoteFileRecord, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		records = append(records, domain.RemoteFileRecord{
			Name:        entry.Name(),
			Size:        info.Size(),
			IsDirectory: entry.IsDir(),
			ModifiedAt:  info.ModTime(),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	return records, nil
}

func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	_, full, err := s.resolve(dir)
	if err != nil {
		return domain.ProbeFailed(err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProbeFailed(err)
	}

	info, err := os.Stat(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.Missing()
	case err != nil:
		return domain.ProbeFailed(err)
	case !info.IsDir():
		return domain.Missing()
	}
	return domain.Found()
}

func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:    domain.HealthOK,
		Backend:   backendName,
		Connected: true,
		Host:      "localhost",
		BasePath:  s.root,
	}
	probe := s.Probe(ctx, "")
	report.BaseDirExists = probe.Exists()
	if probe.State == domain.ProbeError {
		report.Status = domain.HealthError
		report.Error = probe.Err.Error()
	}
	return report
}
