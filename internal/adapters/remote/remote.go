// Package remote holds helpers shared by the storage adapters: base path
// handling and deadline-bounded calls into client libraries that take no
// context.
package remote

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"printvault/internal/domain"
)

// CleanBase normalizes a configured base path to an absolute POSIX path
// without a trailing slash ("/" stays "/").
func CleanBase(base string) string {
	return path.Clean("/" + strings.TrimSpace(base))
}

// Clean validates a relative path and returns it cleaned. Paths containing a
// ".." segment or a backslash are rejected so callers can never leave the
// base directory.
func Clean(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if strings.ContainsRune(rel, '\\') || strings.ContainsRune(rel, 0) {
		return "", &domain.InvalidPathSegmentError{Field: "path", Label: rel}
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", &domain.InvalidPathSegmentError{Field: "path", Label: rel}
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+rel), "/")
	return cleaned, nil
}

// Join returns base + "/" + rel after validating rel.
// e.g., ("/prints", "chaos/skaven") -> "/prints/chaos/skaven"
func Join(base, rel string) (string, error) {
	cleaned, err := Clean(rel)
	if err != nil {
		return "", err
	}
	return path.Join(CleanBase(base), cleaned), nil
}

// Call runs fn and waits for it or for ctx to end, whichever comes first.
// timeout, when positive, further bounds the wait. When the wait is cut
// short abort runs so the caller can tear down the stuck session, and the
// result is a *domain.TimeoutError for deadlines or ctx.Err() otherwise.
func Call[T any](ctx context.Context, timeout time.Duration, backend, op, p string, abort func(), fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if abort != nil {
			abort()
		}
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &domain.TimeoutError{Backend: backend, Op: op, Path: p, Err: ctx.Err()}
		}
		return zero, ctx.Err()
	}
}

// Do is Call for functions without a result value.
func Do(ctx context.Context, timeout time.Duration, backend, op, p string, abort func(), fn func() error) error {
	_, err := Call(ctx, timeout, backend, op, p, abort, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// IsDeadline reports whether err came from an expired deadline, either ours
// or a network timeout reported by the client library.
func IsDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Timeouts bounds adapter calls. Op applies to every call except uploads,
// which use Upload.
type Timeouts struct {
	Op     time.Duration
	Upload time.Duration
}
