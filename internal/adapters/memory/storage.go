// Package memory provides in-process implementations of the storage and
// catalog ports, used by tests and by the memory backend in development.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"printvault/internal/adapters/remote"
	"printvault/internal/domain"
)

const backendName = "memory"

type object struct {
	data    []byte
	modTime time.Time
}

// Storage keeps files in a map keyed by cleaned relative path. Directories
// exist implicitly when a file lives below them, or explicitly once created.
type Storage struct {
	mu    sync.RWMutex
	files map[string]object
	dirs  map[string]bool

	failures map[string]error // file name -> injected upload error
	listErrs map[string]error // dir -> injected list error
	now      func() time.Time
}

// NewStorage creates an empty store.
func NewStorage() *Storage {
	return &Storage{
		files:    make(map[string]object),
		dirs:     map[string]bool{"": true},
		failures: make(map[string]error),
		listErrs: make(map[string]error),
		now:      time.Now,
	}
}

// FailUpload makes every upload of fileName fail with err until cleared
// with a nil err.
func (s *Storage) FailUpload(fileName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, fileName)
		return
	}
	s.failures[fileName] = err
}

// FailList makes listing dir fail with err until cleared with a nil err.
func (s *Storage) FailList(dir string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, _ = remote.Clean(dir)
	if err == nil {
		delete(s.listErrs, dir)
		return
	}
	s.listErrs[dir] = err
}

// Put stores data directly, creating parent directories.
func (s *Storage) Put(p string, data []byte) {
	p, _ = remote.Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(p, data)
}

// Bytes returns a copy of a stored file.
func (s *Storage) Bytes(p string) ([]byte, bool) {
	p, _ = remote.Clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.files[p]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

func (s *Storage) putLocked(p string, data []byte) {
	s.files[p] = object{data: data, modTime: s.now()}
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		if dir == "." {
			break
		}
		s.dirs[dir] = true
	}
}

func (s *Storage) Name() string { return backendName }

func (s *Storage) Connect(ctx context.Context) error { return ctx.Err() }

func (s *Storage) Close() error { return nil }

func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	rel, err := remote.Clean(path.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &domain.UploadError{Path: rel, FileName: fileName, Err: err}
	}

	s.mu.RLock()
	injected := s.failures[fileName]
	s.mu.RUnlock()
	if injected != nil {
		return "", injected
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", &domain.UploadError{Path: rel, FileName: fileName, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(rel, data)
	return rel, nil
}

func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, err := remote.Clean(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.DownloadError{Path: rel, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.files[rel]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "file", Path: rel}
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

func (s *Storage) Delete(ctx context.Context, p string) error {
	rel, err := remote.Clean(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.DeleteError{Path: rel, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[rel]; !ok {
		return &domain.NotFoundError{Kind: "file", Path: rel}
	}
	delete(s.files, rel)
	return nil
}

func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	rel, err := remote.Clean(dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if injected := s.listErrs[rel]; injected != nil {
		return nil, injected
	}

	prefix := rel + "/"
	if rel == "" {
		prefix = ""
	}
	records := []domain.RemoteFileRecord{}
	seenDirs := map[string]bool{}
	for p, obj := range s.files {
		name, ok := childName(p, prefix)
		if !ok {
			continue
		}
		records = append(records, domain.RemoteFileRecord{Name: name, Size: int64(len(obj.data)), ModifiedAt: obj.modTime})
	}
	for d := range s.dirs {
		name, ok := childName(d, prefix)
		if !ok || seenDirs[name] {
			continue
		}
		seenDirs[name] = true
		records = append(records, domain.RemoteFileRecord{Name: name, IsDirectory: true})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// childName returns the immediate child segment of p below prefix.
func childName(p, prefix string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	rel, err := remote.Clean(dir)
	if err != nil {
		return domain.ProbeFailed(err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProbeFailed(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if injected := s.listErrs[rel]; injected != nil {
		return domain.ProbeFailed(injected)
	}
	if s.dirs[rel] {
		return domain.Found()
	}
	return domain.Missing()
}

func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:    domain.HealthOK,
		Backend:   backendName,
		Connected: true,
		Host:      "in-process",
		BasePath:  "/",
	}
	probe := s.Probe(ctx, "")
	report.BaseDirExists = probe.Exists()
	if probe.State == domain.ProbeError {
		report.Status = domain.HealthError
		report.Error = probe.Err.Error()
	}
	return report
}

// ErrInjected is a convenient error for FailUpload/FailList
var ErrInjected = errors.New("injected failure")

// InjectedConnectionError wraps ErrInjected as a retryable transport error.
func InjectedConnectionError() error {
	return &domain.ConnectionError{Backend: backendName, Host: "in-process", Err: ErrInjected}
}
