// Package webdav implements ports.RemoteStorage on a WebDAV server.
package webdav

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/url"
	"path"
	"sync/atomic"

	"github.com/studio-b12/gowebdav"
	"go.uber.org/zap"

	"printvault/internal/adapters/remote"
	"printvault/internal/config"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

const backendName = "webdav"

var _ ports.RemoteStorage = (*Storage)(nil)

// Storage is a WebDAV-backed RemoteStorage. Requests are independent, so
// the cached client is shared without locking.
type Storage struct {
	cfg       config.WebDAVConfig
	base      string
	timeouts  remote.Timeouts
	client    *gowebdav.Client
	connected atomic.Bool
	logger    *zap.Logger
}

// New creates an adapter for cfg.URL.
func New(cfg config.WebDAVConfig, timeouts remote.Timeouts, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		cfg:      cfg,
		base:     remote.CleanBase(cfg.BasePath),
		timeouts: timeouts,
		client:   newClient(cfg, timeouts),
		logger:   logger.With(zap.String("backend", backendName), zap.String("host", hostOf(cfg.URL))),
	}
}

func newClient(cfg config.WebDAVConfig, timeouts remote.Timeouts) *gowebdav.Client {
	c := gowebdav.NewClient(cfg.URL, cfg.User, cfg.Password)
	// the HTTP timeout covers whole transfers, so it must fit uploads
	if timeouts.Upload > 0 {
		c.SetTimeout(timeouts.Upload)
	}
	return c
}

// hostOf returns the host of a server URL for logs and reports, never the
// credentials that may be embedded in it.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func (s *Storage) Name() string { return backendName }

// Connect authenticates once. Later calls are no-ops until a transport
// failure resets the state.
func (s *Storage) Connect(ctx context.Context) error {
	if s.connected.Load() {
		return nil
	}
	err := remote.Do(ctx, s.timeouts.Op, backendName, "connect", "", nil, s.client.Connect)
	if err != nil {
		return s.connectionError(err)
	}
	s.connected.Store(true)
	return nil
}

func (s *Storage) Close() error {
	s.connected.Store(false)
	return nil
}

func (s *Storage) connectionError(err error) error {
	var timeout *domain.TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	return &domain.ConnectionError{Backend: backendName, Host: hostOf(s.cfg.URL), Err: err}
}

func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	rel, err := remote.Clean(path.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	full := path.Join(s.base, rel)

	err = remote.Do(ctx, s.timeouts.Op, backendName, "mkdir", path.Dir(rel), nil, func() error {
		return s.client.MkdirAll(path.Dir(full), 0o755)
	})
	if err == nil {
		err = remote.Do(ctx, s.timeouts.Upload, backendName, "upload", rel, nil, func() error {
			return s.client.WriteStream(full, r, 0o644)
		})
	}
	if err != nil {
		return "", s.wrap(err, func(cause error) error {
			return &domain.UploadError{Path: rel, FileName: fileName, Err: cause}
		})
	}
	s.logger.Debug("uploaded", zap.String("path", rel))
	return rel, nil
}

func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, err := remote.Clean(p)
	if err != nil {
		return nil, err
	}
	full := path.Join(s.base, rel)

	body, err := remote.Call(ctx, s.timeouts.Op, backendName, "download", rel, nil, func() (io.ReadCloser, error) {
		return s.client.ReadStream(full)
	})
	if err != nil {
		return nil, s.wrap(err, func(cause error) error {
			if isNotFound(cause) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DownloadError{Path: rel, Err: cause}
		})
	}
	return body, nil
}

// Delete stats the file first: the client treats a 404 on DELETE as
// success, which would hide a missing file.
func (s *Storage) Delete(ctx context.Context, p string) error {
	rel, err := remote.Clean(p)
	if err != nil {
		return err
	}
	full := path.Join(s.base, rel)

	info, err := remote.Call(ctx, s.timeouts.Op, backendName, "stat", rel, nil, func() (fs.FileInfo, error) {
		return s.client.Stat(full)
	})
	if err == nil && info.IsDir() {
		return &domain.DeleteError{Path: rel, Err: errors.New("is a directory")}
	}
	if err == nil {
		err = remote.Do(ctx, s.timeouts.Op, backendName, "delete", rel, nil, func() error {
			return s.client.Remove(full)
		})
	}
	if err != nil {
		return s.wrap(err, func(cause error) error {
			if isNotFound(cause) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DeleteError{Path: rel, Err: cause}
		})
	}
	return nil
}

func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	rel, err := remote.Clean(dir)
	if err != nil {
		return nil, err
	}
	full := path.Join(s.base, rel)

	infos, err := remote.Call(ctx, s.timeouts.Op, backendName, "list", rel, nil, func() ([]fs.FileInfo, error) {
		return s.client.ReadDir(full)
	})
	if err != nil {
		if isNotFound(err) {
			return []domain.RemoteFileRecord{}, nil
		}
		return nil, s.wrap(err, func(cause error) error { return cause })
	}
	return toRecords(infos), nil
}

func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	rel, err := remote.Clean(dir)
	if err != nil {
		return domain.ProbeFailed(err)
	}
	return s.probe(ctx, s.client, path.Join(s.base, rel))
}

func (s *Storage) probe(ctx context.Context, client *gowebdav.Client, full string) domain.Probe {
	info, err := remote.Call(ctx, s.timeouts.Op, backendName, "stat", full, nil, func() (fs.FileInfo, error) {
		return client.Stat(full)
	})
	switch {
	case err == nil && info.IsDir():
		return domain.Found()
	case err == nil, isNotFound(err):
		return domain.Missing()
	default:
		return domain.ProbeFailed(s.wrap(err, func(cause error) error { return cause }))
	}
}

// Health uses a fresh client so a broken shared client cannot mask or
// cause a failure.
func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:   domain.HealthOK,
		Backend:  backendName,
		Host:     hostOf(s.cfg.URL),
		BasePath: s.base,
	}

	client := newClient(s.cfg, s.timeouts)
	if err := remote.Do(ctx, s.timeouts.Op, backendName, "connect", "", nil, client.Connect); err != nil {
		report.Status = domain.HealthError
		report.Error = s.connectionError(err).Error()
		return report
	}
	report.Connected = true

	probe := s.probe(ctx, client, s.base)
	report.BaseDirExists = probe.Exists()
	if probe.State == domain.ProbeError {
		report.Status = domain.HealthError
		report.Error = probe.Err.Error()
	}
	return report
}

// wrap passes typed errors through, turns transport failures into
// *domain.ConnectionError and everything else into fn(err).
func (s *Storage) wrap(err error, fn func(error) error) error {
	var timeout *domain.TimeoutError
	switch {
	case errors.As(err, &timeout), errors.Is(err, context.Canceled):
		return err
	case remote.IsDeadline(err):
		return &domain.TimeoutError{Backend: backendName, Err: err}
	case isTransport(err):
		s.connected.Store(false)
		return s.connectionError(err)
	}
	return fn(err)
}

func isNotFound(err error) bool {
	return gowebdav.IsErrNotFound(err) || errors.Is(err, fs.ErrNotExist)
}

// isTransport reports failures below HTTP: DNS, refused or reset
// connections.
func isTransport(err error) bool {
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

func toRecords(infos []fs.FileInfo) []domain.RemoteFileRecord {
	records := make([]domain.RemoteFileRecord, 0, len(infos))
	for _, fi := range infos {
		records = append(records, domain.RemoteFileRecord{
			Name:        fi.Name(),
			Size:        fi.Size(),
			IsDirectory: fi.IsDir(),
			ModifiedAt:  fi.ModTime(),
		})
	}
	return records
}
