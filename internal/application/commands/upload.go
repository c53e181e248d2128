package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"printvault/internal/application"
	"printvault/internal/domain"
	"printvault/internal/logging"
	"printvault/internal/ports"
)

// UploadFile is one file part of an upload request. Open may be called more
// than once when an attempt is retried.
type UploadFile struct {
	Name     string
	MIMEType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// UploadOptions holds the limits and policies applied to every upload.
type UploadOptions struct {
	MaxFiles    int
	MaxFileSize int64
	Retry       application.RetryPolicy

	// Compressor, when set, stores STL payloads compressed under
	// name + Compressor.Suffix().
	Compressor ports.Compressor
}

// DefaultUploadOptions mirrors the configuration defaults.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		MaxFiles:    20,
		MaxFileSize: 1 << 30,
		Retry:       application.DefaultRetryPolicy(),
	}
}

// UploadedFile describes one stored file
type UploadedFile struct {
	Name             string   `json:"name"`
	Size             string   `json:"size"`
	Path             string   `json:"path"`
	IsCompressed     bool     `json:"isCompressed,omitempty"`
	CompressionRatio *float64 `json:"compressionRatio,omitempty"`
}

// Entry converts the upload into a catalog file entry.
func (f UploadedFile) Entry() domain.StlFileEntry {
	return domain.StlFileEntry{
		Name:             f.Name,
		Size:             f.Size,
		Path:             f.Path,
		IsCompressed:     f.IsCompressed,
		CompressionRatio: f.CompressionRatio,
	}
}

// UploadResult contains the result of an upload
type UploadResult struct {
	Preview    *string        `json:"preview"`
	StlFiles   []UploadedFile `json:"stlFiles"`
	FolderPath string         `json:"folderPath"`
	Message    string         `json:"-"`
}

// UploadCommand stores a preview and STL files in a unit folder. Files are
// written one after another in the given order; the first failure aborts the
// rest and files written before it stay in place.
type UploadCommand struct {
	storage ports.RemoteStorage
	opts    UploadOptions

	Allegiance string
	Faction    string
	Unit       string
	Preview    *UploadFile
	StlFiles   []UploadFile
}

// NewUploadCommand creates a new UploadCommand
func NewUploadCommand(storage ports.RemoteStorage, opts UploadOptions, allegiance, faction, unit string, preview *UploadFile, stlFiles []UploadFile) *UploadCommand {
	return &UploadCommand{
		storage:    storage,
		opts:       opts,
		Allegiance: allegiance,
		Faction:    faction,
		Unit:       unit,
		Preview:    preview,
		StlFiles:   stlFiles,
	}
}

// Validate checks the taxonomy, the file count and every file against the
// type and size policy before anything is written.
func (c *UploadCommand) Validate() error {
	if _, err := application.ValidateTaxonomy(c.Allegiance, c.Faction, c.Unit); err != nil {
		return err
	}

	if c.Preview == nil && len(c.StlFiles) == 0 {
		return &application.ValidationError{Field: "files", Message: "no files to upload"}
	}

	if c.opts.MaxFiles > 0 && len(c.StlFiles) > c.opts.MaxFiles {
		return &application.ValidationError{
			Field:   "stlFiles",
			Message: fmt.Sprintf("too many files: %d (maximum %d)", len(c.StlFiles), c.opts.MaxFiles),
		}
	}

	if c.Preview != nil {
		if err := application.ValidateUploadFile("preview", c.Preview.Name, c.Preview.MIMEType, c.Preview.Size, c.opts.MaxFileSize); err != nil {
			return err
		}
		if !domain.IsImageName(c.Preview.Name) {
			return &application.ValidationError{
				Field:   "preview",
				Message: fmt.Sprintf("preview must be an image: %s", c.Preview.Name),
			}
		}
	}

	for _, f := range c.StlFiles {
		if err := application.ValidateUploadFile("stlFiles", f.Name, f.MIMEType, f.Size, c.opts.MaxFileSize); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the upload command
func (c *UploadCommand) Execute(ctx context.Context) (*UploadResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tp, err := domain.NewTaxonomyPath(c.Allegiance, c.Faction, c.Unit)
	if err != nil {
		return nil, err
	}
	folder := tp.Path()
	logger := logging.FromContext(ctx).With(zap.String("folder", folder))

	result := &UploadResult{StlFiles: []UploadedFile{}, FolderPath: folder}

	if c.Preview != nil {
		stored, err := c.put(ctx, folder, domain.PreviewFileName, *c.Preview, nil)
		if err != nil {
			logger.Error("preview upload failed", zap.Error(err))
			return nil, err
		}
		result.Preview = &stored.Path
	}

	for _, f := range c.StlFiles {
		var compressor ports.Compressor
		if c.opts.Compressor != nil && strings.EqualFold(domain.Extension(f.Name), "stl") {
			compressor = c.opts.Compressor
		}
		stored, err := c.put(ctx, folder, f.Name, f, compressor)
		if err != nil {
			logger.Error("file upload failed",
				zap.String("file", f.Name),
				zap.Int("uploaded", len(result.StlFiles)),
				zap.Error(err))
			return nil, err
		}
		result.StlFiles = append(result.StlFiles, stored)
	}

	count := len(result.StlFiles)
	if result.Preview != nil {
		count++
	}
	result.Message = fmt.Sprintf("Uploaded %d file(s) to %s", count, folder)
	logger.Info("upload complete", zap.Int("files", count))
	return result, nil
}

// put writes one file under storeName, retrying transient failures after a
// reconnect.
func (c *UploadCommand) put(ctx context.Context, folder, storeName string, f UploadFile, compressor ports.Compressor) (UploadedFile, error) {
	if compressor != nil {
		storeName += compressor.Suffix()
	}
	logger := logging.FromContext(ctx)

	var stored string
	var read, written int64
	err := c.opts.Retry.Do(ctx, func() error {
		var err error
		stored, read, written, err = c.attempt(ctx, folder, storeName, f, compressor)
		return err
	}, func(err error, wait time.Duration) {
		logger.Warn("retrying upload",
			zap.String("file", f.Name),
			zap.Duration("wait", wait),
			zap.Error(err))
		if cerr := c.storage.Connect(ctx); cerr != nil {
			logger.Warn("reconnect failed", zap.Error(cerr))
		}
	})
	if err != nil {
		var uploadErr *domain.UploadError
		if errors.As(err, &uploadErr) {
			uploadErr.FileName = f.Name
			return UploadedFile{}, uploadErr
		}
		return UploadedFile{}, &domain.UploadError{Path: path.Join(folder, storeName), FileName: f.Name, Err: err}
	}

	size := f.Size
	if size <= 0 {
		size = read
	}
	out := UploadedFile{
		Name: f.Name,
		Size: domain.HumanSize(size),
		Path: stored,
	}
	if compressor != nil {
		out.IsCompressed = true
		if read > 0 {
			ratio := float64(written) / float64(read)
			out.CompressionRatio = &ratio
		}
	}
	return out, nil
}

// attempt performs a single upload and reports the bytes read from the
// source and the bytes handed to the store.
func (c *UploadCommand) attempt(ctx context.Context, folder, storeName string, f UploadFile, compressor ports.Compressor) (string, int64, int64, error) {
	src, err := f.Open()
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	in := &countingReader{r: src}
	if compressor == nil {
		stored, err := c.storage.Upload(ctx, folder, storeName, in)
		return stored, in.n, in.n, err
	}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(compressor.Compress(pw, in))
	}()

	out := &countingReader{r: pr}
	stored, err := c.storage.Upload(ctx, folder, storeName, out)
	pr.CloseWithError(io.ErrClosedPipe)
	<-done
	return stored, in.n, out.n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
