package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable kind of a failure. Presentation layers map
// codes to status codes and human text.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeInvalidPath  ErrorCode = "INVALID_PATH_SEGMENT"
	CodeConnection   ErrorCode = "CONNECTION_ERROR"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	CodeDownload     ErrorCode = "DOWNLOAD_FAILED"
	CodeDelete       ErrorCode = "DELETE_FAILED"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInternal     ErrorCode = "INTERNAL"
)

// Sentinel errors for errors.Is checks
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalid    = errors.New("invalid argument")
	ErrConflict   = errors.New("version conflict")
	ErrConnection = errors.New("connection failed")
	ErrTimeout    = errors.New("operation timed out")
)

// coded is implemented by every typed error in this package.
type coded interface{ Code() ErrorCode }

// retryable is implemented by transport errors.
type retryable interface{ Retryable() bool }

// InvalidPathSegmentError is returned when a taxonomy label sanitizes to an
// empty segment.
type InvalidPathSegmentError struct {
	Field string
	Label string
}

func (e *InvalidPathSegmentError) Error() string {
	return fmt.Sprintf("%s %q has no usable characters", e.Field, e.Label)
}

func (e *InvalidPathSegmentError) Code() ErrorCode      { return CodeInvalidPath }
func (e *InvalidPathSegmentError) Is(target error) bool { return target == ErrInvalid }

// ConnectionError reports a failure to establish or keep a backend session.
type ConnectionError struct {
	Backend string
	Host    string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection to %s failed: %v", e.Backend, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Code() ErrorCode      { return CodeConnection }
func (e *ConnectionError) Retryable() bool      { return true }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Backend string
	Op      string
	Path    string
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s %s timed out: %v", e.Backend, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s timed out: %v", e.Backend, e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error        { return e.Err }
func (e *TimeoutError) Code() ErrorCode      { return CodeTimeout }
func (e *TimeoutError) Retryable() bool      { return true }
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NotFoundError reports a remote path or catalog record that does not exist.
type NotFoundError struct {
	Kind string // "file", "army", "unit", "entry"
	Path string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "file"
	}
	return fmt.Sprintf("%s not found: %s", kind, e.Path)
}

func (e *NotFoundError) Code() ErrorCode      { return CodeNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UploadError reports a failed write. FileName names the file of a multi-file
// request that failed.
type UploadError struct {
	Path     string
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s to %s failed: %v", e.FileName, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error   { return e.Err }
func (e *UploadError) Code() ErrorCode { return CodeUploadFailed }

// DownloadError reports a failed read of an existing path.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error   { return e.Err }
func (e *DownloadError) Code() ErrorCode { return CodeDownload }

// DeleteError reports a failed removal of an existing path.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete of %s failed: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error   { return e.Err }
func (e *DeleteError) Code() ErrorCode { return CodeDelete }

// ConflictError is returned by a catalog store when the stored document moved
// past the version the writer read.
type ConflictError struct {
	Key      string
	Expected uint64
	Actual   uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("catalog %q changed: expected version %d, found %d", e.Key, e.Expected, e.Actual)
}

func (e *ConflictError) Code() ErrorCode      { return CodeConflict }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// CodeOf returns the code of the outermost typed error in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// IsRetryable reports whether err (or a wrapped cause) is a transient
// transport failure.
func IsRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
