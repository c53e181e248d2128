// Package ftp implements ports.RemoteStorage on an FTP server.
//
// The adapter owns exactly one control connection. FTP is a stateful,
// strictly sequential protocol, so every call takes the adapter mutex for
// the lifetime of its command, including an open download stream.
package ftp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"printvault/internal/adapters/remote"
	"printvault/internal/config"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

const backendName = "ftp"

var _ ports.RemoteStorage = (*Storage)(nil)

// Storage is an FTP-backed RemoteStorage.
type Storage struct {
	cfg      config.FTPConfig
	base     string
	timeouts remote.Timeouts
	logger   *zap.Logger

	mu   sync.Mutex
	conn *ftp.ServerConn
}

// New creates an adapter. No connection is made until first use.
func New(cfg config.FTPConfig, timeouts remote.Timeouts, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		cfg:      cfg,
		base:     remote.CleanBase(cfg.BasePath),
		timeouts: timeouts,
		logger:   logger.With(zap.String("backend", backendName), zap.String("host", cfg.Addr())),
	}
}

func (s *Storage) Name() string { return backendName }

// Connect makes sure a logged-in session exists.
func (s *Storage) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureConnected(ctx)
}

// ensureConnected reuses the session when it answers NOOP, and dials a new
// one otherwise. Callers hold s.mu.
func (s *Storage) ensureConnected(ctx context.Context) error {
	if s.conn != nil {
		err := remote.Do(ctx, s.timeouts.Op, backendName, "noop", "", s.dropLocked, s.conn.NoOp)
		if err == nil {
			return nil
		}
		s.logger.Debug("session is stale, reconnecting", zap.Error(err))
		s.dropLocked()
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.conn = conn
	s.logger.Debug("connected")
	return nil
}

// dial opens and authenticates a new control connection.
func (s *Storage) dial(ctx context.Context) (*ftp.ServerConn, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if s.timeouts.Op > 0 {
		opts = append(opts, ftp.DialWithTimeout(s.timeouts.Op))
	}
	if s.cfg.Secure {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}))
	}

	conn, err := ftp.Dial(s.cfg.Addr(), opts...)
	if err != nil {
		if remote.IsDeadline(err) {
			return nil, &domain.TimeoutError{Backend: backendName, Op: "connect", Err: err}
		}
		return nil, &domain.ConnectionError{Backend: backendName, Host: s.cfg.Addr(), Err: err}
	}

	err = remote.Do(ctx, s.timeouts.Op, backendName, "login", "", func() { go conn.Quit() }, func() error {
		return conn.Login(s.cfg.User, s.cfg.Password)
	})
	if err != nil {
		conn.Quit()
		var timeout *domain.TimeoutError
		if errors.As(err, &timeout) {
			return nil, err
		}
		return nil, &domain.ConnectionError{Backend: backendName, Host: s.cfg.Addr(), Err: fmt.Errorf("login as %s: %w", s.cfg.User, err)}
	}
	return conn, nil
}

// dropLocked forgets the current session. Quit runs in the background as
// the connection may be wedged.
func (s *Storage) dropLocked() {
	if s.conn == nil {
		return
	}
	conn := s.conn
	s.conn = nil
	go conn.Quit()
}

// Close ends the session.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Quit()
	s.conn = nil
	return err
}

// session runs fn on a live connection under the adapter lock. Transport
// failures discard the session so the next call re-dials.
func (s *Storage) session(ctx context.Context, fn func(conn *ftp.ServerConn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}
	err := fn(s.conn)
	if err != nil && isTransport(err) {
		s.dropLocked()
	}
	return err
}

func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	rel, err := remote.Clean(path.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	full := path.Join(s.base, rel)

	err = s.session(ctx, func(conn *ftp.ServerConn) error {
		if err := s.makeDirAll(ctx, conn, path.Dir(full)); err != nil {
			return err
		}
		err := remote.Do(ctx, s.timeouts.Upload, backendName, "upload", rel, s.dropLocked, func() error {
			return conn.Stor(full, sourceReader{r})
		})
		if isSourceFailure(err) {
			// the server already stored what arrived
			if derr := conn.Delete(full); derr != nil {
				s.logger.Warn("truncated upload left in place", zap.String("path", rel), zap.Error(derr))
			}
		}
		return err
	})
	if err != nil {
		return "", s.wrap(err, func(cause error) error {
			return &domain.UploadError{Path: rel, FileName: fileName, Err: cause}
		})
	}
	s.logger.Debug("uploaded", zap.String("path", rel))
	return rel, nil
}

// makeDirAll creates every missing directory of the absolute path dir.
// MKD on an existing directory fails, so errors are only reported when the
// final directory is still not usable.
func (s *Storage) makeDirAll(ctx context.Context, conn *ftp.ServerConn, dir string) error {
	current := "/"
	rel := strings.TrimPrefix(dir, "/")
	if rel == "" {
		return nil
	}
	for _, seg := range strings.Split(rel, "/") {
		current = path.Join(current, seg)
		err := remote.Do(ctx, s.timeouts.Op, backendName, "mkdir", current, s.dropLocked, func() error {
			return conn.MakeDir(current)
		})
		if err != nil && isTransport(err) {
			return err
		}
	}
	return remote.Do(ctx, s.timeouts.Op, backendName, "cwd", dir, s.dropLocked, func() error {
		return conn.ChangeDir(dir)
	})
}

// Download opens a data transfer. The adapter stays locked until the
// returned reader is closed.
func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, err := remote.Clean(p)
	if err != nil {
		return nil, err
	}
	full := path.Join(s.base, rel)

	s.mu.Lock()
	if err := s.ensureConnected(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	resp, err := remote.Call(ctx, s.timeouts.Op, backendName, "download", rel, s.dropLocked, func() (*ftp.Response, error) {
		return s.conn.Retr(full)
	})
	if err != nil {
		if isTransport(err) {
			s.dropLocked()
		}
		s.mu.Unlock()
		return nil, s.wrap(err, func(cause error) error {
			if isUnavailable(cause) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DownloadError{Path: rel, Err: cause}
		})
	}
	return &lockedBody{resp: resp, unlock: s.mu.Unlock}, nil
}

// lockedBody releases the adapter when the transfer is closed.
type lockedBody struct {
	resp   *ftp.Response
	unlock func()
	once   sync.Once
}

func (b *lockedBody) Read(p []byte) (int, error) { return b.resp.Read(p) }

func (b *lockedBody) Close() error {
	var err error
	b.once.Do(func() {
		err = b.resp.Close()
		b.unlock()
	})
	return err
}

func (s *Storage) Delete(ctx context.Context, p string) error {
	rel, err := remote.Clean(p)
	if err != nil {
		return err
	}
	full := path.Join(s.base, rel)

	err = s.session(ctx, func(conn *ftp.ServerConn) error {
		return remote.Do(ctx, s.timeouts.Op, backendName, "delete", rel, s.dropLocked, func() error {
			return conn.Delete(full)
		})
	})
	if err != nil {
		return s.wrap(err, func(cause error) error {
			if isUnavailable(cause) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DeleteError{Path: rel, Err: cause}
		})
	}
	return nil
}

// List returns the entries of dir. A directory the server reports as
// unavailable lists as empty.
func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	rel, err := remote.Clean(dir)
	if err != nil {
		return nil, err
	}
	full := path.Join(s.base, rel)

	var entries []*ftp.Entry
	err = s.session(ctx, func(conn *ftp.ServerConn) error {
		var lerr error
		entries, lerr = remote.Call(ctx, s.timeouts.Op, backendName, "list", rel, s.dropLocked, func() ([]*ftp.Entry, error) {
			return conn.List(full)
		})
		return lerr
	})
	if err != nil {
		if isUnavailable(err) {
			return []domain.RemoteFileRecord{}, nil
		}
		return nil, s.wrap(err, func(cause error) error {
			return fmt.Errorf("list %s: %w", rel, cause)
		})
	}
	return toRecords(entries), nil
}

// Probe changes into dir. A 550 reply means the directory is absent; every
// other failure is reported as such.
func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	rel, err := remote.Clean(dir)
	if err != nil {
		return domain.ProbeFailed(err)
	}
	full := path.Join(s.base, rel)

	err = s.session(ctx, func(conn *ftp.ServerConn) error {
		return remote.Do(ctx, s.timeouts.Op, backendName, "cwd", rel, s.dropLocked, func() error {
			return conn.ChangeDir(full)
		})
	})
	switch {
	case err == nil:
		return domain.Found()
	case isUnavailable(err):
		return domain.Missing()
	default:
		return domain.ProbeFailed(s.wrap(err, func(cause error) error { return cause }))
	}
}

// Health dials a separate session so liveness checks never disturb the
// working one.
func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:   domain.HealthOK,
		Backend:  backendName,
		Host:     s.cfg.Addr(),
		BasePath: s.base,
	}

	conn, err := s.dial(ctx)
	if err != nil {
		report.Status = domain.HealthError
		report.Error = err.Error()
		return report
	}
	defer conn.Quit()
	report.Connected = true

	err = remote.Do(ctx, s.timeouts.Op, backendName, "cwd", s.base, func() { go conn.Quit() }, func() error {
		return conn.ChangeDir(s.base)
	})
	switch {
	case err == nil:
		report.BaseDirExists = true
	case isUnavailable(err):
	default:
		report.Status = domain.HealthError
		report.Error = err.Error()
	}
	return report
}

// wrap leaves typed transport errors alone and converts everything else
// with fn. Broken connections become *domain.ConnectionError.
func (s *Storage) wrap(err error, fn func(error) error) error {
	var timeout *domain.TimeoutError
	var conn *domain.ConnectionError
	var invalid *domain.InvalidPathSegmentError
	switch {
	case errors.As(err, &timeout), errors.As(err, &conn), errors.As(err, &invalid):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case remote.IsDeadline(err):
		return &domain.TimeoutError{Backend: backendName, Err: err}
	case isTransport(err):
		return &domain.ConnectionError{Backend: backendName, Host: s.cfg.Addr(), Err: err}
	}
	return fn(err)
}

// isUnavailable reports a 550 reply: file or directory not found or not
// accessible.
func isUnavailable(err error) bool {
	var tp *textproto.Error
	return errors.As(err, &tp) && tp.Code == ftp.StatusFileUnavailable
}

// sourceError is a failure of the caller's reader during STOR.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string { return "reading upload source: " + e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// sourceReader tags read errors so they are not mistaken for a broken
// connection.
type sourceReader struct {
	r io.Reader
}

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &sourceError{err: err}
	}
	return n, err
}

func isSourceFailure(err error) bool {
	var src *sourceError
	return errors.As(err, &src)
}

// isTransport reports whether err broke the control connection rather than
// being a protocol-level refusal.
func isTransport(err error) bool {
	if err == nil || isSourceFailure(err) {
		return false
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code == ftp.StatusNotAvailable
	}
	var typed *domain.InvalidPathSegmentError
	if errors.As(err, &typed) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// toRecords converts a LIST reply, skipping the dot entries some servers
// include.
func toRecords(entries []*ftp.Entry) []domain.RemoteFileRecord {
	records := make([]domain.RemoteFileRecord, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Name == "." || e.Name == ".." {
			continue
		}
		records = append(records, domain.RemoteFileRecord{
			Name:        e.Name,
			Size:        int64(e.Size),
			IsDirectory: e.Type == ftp.EntryTypeFolder,
			ModifiedAt:  e.Time,
		})
	}
	return records
}
