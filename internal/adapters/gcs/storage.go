// Package gcs implements ports.RemoteStorage on a Google Cloud Storage
// bucket. Folders are object name prefixes; they exist while at least one
// object lives below them.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"printvault/internal/adapters/remote"
	"printvault/internal/config"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

const backendName = "gcs"

var _ ports.RemoteStorage = (*Storage)(nil)

// Storage is a GCS-backed RemoteStorage
type Storage struct {
	client   *storage.Client
	bucket   string
	prefix   string // object name prefix without leading or trailing slash
	timeouts remote.Timeouts
	logger   *zap.Logger
}

// Dial creates a client from cfg. STORAGE_EMULATOR_HOST is honored by the
// client library.
func Dial(ctx context.Context, cfg config.GCSConfig, timeouts remote.Timeouts, logger *zap.Logger) (*Storage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, &domain.ConnectionError{Backend: backendName, Host: cfg.Bucket, Err: err}
	}
	return New(client, cfg, timeouts, logger), nil
}

// New wraps an existing client.
func New(client *storage.Client, cfg config.GCSConfig, timeouts remote.Timeouts, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(remote.CleanBase(cfg.BasePath), "/"),
		timeouts: timeouts,
		logger:   logger.With(zap.String("backend", backendName), zap.String("bucket", cfg.Bucket)),
	}
}

func (s *Storage) Name() string { return backendName }

// Connect checks that the bucket is reachable.
func (s *Storage) Connect(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx, s.timeouts.Op)
	defer cancel()
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return s.transport(err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// objectName maps a cleaned relative path to an object name.
func objectName(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	if rel == "" {
		return prefix
	}
	return prefix + "/" + rel
}

// dirPrefix is the listing prefix for a folder, with a trailing slash
// unless it is the bucket root.
func dirPrefix(prefix, rel string) string {
	name := objectName(prefix, rel)
	if name == "" {
		return ""
	}
	return name + "/"
}

func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	rel, err := remote.Clean(path.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	ctx, cancel := s.withTimeout(ctx, s.timeouts.Upload)
	defer cancel()

	// Closing a writer commits what it buffered; abort first so a failed
	// source never replaces the object with a truncated one.
	wctx, abort := context.WithCancel(ctx)
	defer abort()
	w := s.client.Bucket(s.bucket).Object(objectName(s.prefix, rel)).NewWriter(wctx)
	if _, err := io.Copy(w, r); err != nil {
		abort()
		_ = w.Close()
		return "", s.wrap(ctx, "upload", rel, err, func(cause error) error {
			return &domain.UploadError{Path: rel, FileName: fileName, Err: cause}
		})
	}
	if err := w.Close(); err != nil {
		return "", s.wrap(ctx, "upload", rel, err, func(cause error) error {
			return &domain.UploadError{Path: rel, FileName: fileName, Err: cause}
		})
	}
	s.logger.Debug("uploaded", zap.String("path", rel))
	return rel, nil
}

// Download opens an object reader. Only opening is bounded by the
// operation timeout; the transfer runs until the caller closes it or ctx
// ends.
func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, err := remote.Clean(p)
	if err != nil {
		return nil, err
	}
	obj := s.client.Bucket(s.bucket).Object(objectName(s.prefix, rel))

	body, err := remote.Call(ctx, s.timeouts.Op, backendName, "download", rel, nil, func() (io.ReadCloser, error) {
		return obj.NewReader(ctx)
	})
	if err != nil {
		return nil, s.wrap(ctx, "download", rel, err, func(cause error) error {
			if errors.Is(cause, storage.ErrObjectNotExist) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DownloadError{Path: rel, Err: cause}
		})
	}
	return body, nil
}

func (s *Storage) Delete(ctx context.Context, p string) error {
	rel, err := remote.Clean(p)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx, s.timeouts.Op)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(objectName(s.prefix, rel)).Delete(ctx); err != nil {
		return s.wrap(ctx, "delete", rel, err, func(cause error) error {
			if errors.Is(cause, storage.ErrObjectNotExist) {
				return &domain.NotFoundError{Kind: "file", Path: rel}
			}
			return &domain.DeleteError{Path: rel, Err: cause}
		})
	}
	return nil
}

// List returns the objects and sub-prefixes directly below dir.
func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	rel, err := remote.Clean(dir)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx, s.timeouts.Op)
	defer cancel()

	prefix := dirPrefix(s.prefix, rel)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	records := []domain.RemoteFileRecord{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.wrap(ctx, "list", rel, err, func(cause error) error {
				return fmt.Errorf("list %s: %w", rel, cause)
			})
		}
		if rec, ok := toRecord(prefix, attrs); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// toRecord converts one listing item. Folder placeholder objects (the
// prefix itself) are skipped.
func toRecord(prefix string, attrs *storage.ObjectAttrs) (domain.RemoteFileRecord, bool) {
	if attrs.Prefix != "" {
		name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/")
		return domain.RemoteFileRecord{Name: name, IsDirectory: true}, name != ""
	}
	name := strings.TrimPrefix(attrs.Name, prefix)
	if name == "" || strings.Contains(name, "/") {
		return domain.RemoteFileRecord{}, false
	}
	return domain.RemoteFileRecord{Name: name, Size: attrs.Size, ModifiedAt: attrs.Updated}, true
}

// Probe reports a folder as found when any object lives below it. The
// bucket root always exists once the bucket is reachable.
func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	rel, err := remote.Clean(dir)
	if err != nil {
		return domain.ProbeFailed(err)
	}
	ctx, cancel := s.withTimeout(ctx, s.timeouts.Op)
	defer cancel()

	if rel == "" && s.prefix == "" {
		if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
			if errors.Is(err, storage.ErrBucketNotExist) {
				return domain.Missing()
			}
			return domain.ProbeFailed(s.transport(err))
		}
		return domain.Found()
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: dirPrefix(s.prefix, rel)})
	_, err = it.Next()
	switch {
	case err == nil:
		return domain.Found()
	case err == iterator.Done, errors.Is(err, storage.ErrBucketNotExist):
		return domain.Missing()
	default:
		return domain.ProbeFailed(s.wrap(ctx, "probe", rel, err, func(cause error) error { return cause }))
	}
}

// Health checks bucket access and the base prefix. The client is HTTP
// based, so the shared client carries no session to disturb.
func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:   domain.HealthOK,
		Backend:  backendName,
		Host:     "gs://" + s.bucket,
		BasePath: "/" + s.prefix,
	}
	if err := s.Connect(ctx); err != nil {
		report.Status = domain.HealthError
		report.Error = err.Error()
		return report
	}
	report.Connected = true

	probe := s.Probe(ctx, "")
	report.BaseDirExists = probe.Exists()
	if probe.State == domain.ProbeError {
		report.Status = domain.HealthError
		report.Error = probe.Err.Error()
	}
	return report
}

// wrap classifies err: deadlines become *domain.TimeoutError, transport
// failures *domain.ConnectionError, the rest go through fn.
func (s *Storage) wrap(ctx context.Context, op, rel string, err error, fn func(error) error) error {
	var timeout *domain.TimeoutError
	switch {
	case errors.As(err, &timeout):
		return err
	case remote.IsDeadline(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.TimeoutError{Backend: backendName, Op: op, Path: rel, Err: err}
	case errors.Is(err, context.Canceled):
		return err
	case isTransport(err):
		return &domain.ConnectionError{Backend: backendName, Host: s.bucket, Err: err}
	}
	return fn(err)
}

func (s *Storage) transport(err error) error {
	if remote.IsDeadline(err) {
		return &domain.TimeoutError{Backend: backendName, Op: "connect", Err: err}
	}
	return &domain.ConnectionError{Backend: backendName, Host: s.bucket, Err: err}
}

// isTransport reports network failures and server-side errors worth
// retrying.
func isTransport(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}
