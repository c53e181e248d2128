package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"printvault/internal/application"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

// FileListing is one file of a unit folder as presented to callers. Name is
// the display name; Path is where the bytes are stored.
type FileListing struct {
	Name         string `json:"name"`
	Size         string `json:"size"`
	Path         string `json:"path"`
	IsPreview    bool   `json:"isPreview"`
	IsCompressed bool   `json:"isCompressed,omitempty"`
}

// ListFilesResult contains the files of one unit folder
type ListFilesResult struct {
	Exists     bool          `json:"exists"`
	Files      []FileListing `json:"files"`
	FolderPath string        `json:"folderPath"`
}

// ListFilesCommand lists the files stored for a unit
type ListFilesCommand struct {
	storage    ports.RemoteStorage
	Allegiance string
	Faction    string
	Unit       string
}

// NewListFilesCommand creates a new ListFilesCommand
func NewListFilesCommand(storage ports.RemoteStorage, allegiance, faction, unit string) *ListFilesCommand {
	return &ListFilesCommand{storage: storage, Allegiance: allegiance, Faction: faction, Unit: unit}
}

func (c *ListFilesCommand) Validate() error {
	_, err := application.ValidateTaxonomy(c.Allegiance, c.Faction, c.Unit)
	return err
}

// Execute lists the unit folder. A folder that does not exist is reported
// with Exists false; a failed probe is an error rather than "missing".
func (c *ListFilesCommand) Execute(ctx context.Context) (*ListFilesResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tp, _ := domain.NewTaxonomyPath(c.Allegiance, c.Faction, c.Unit)
	folder := tp.Path()
	result := &ListFilesResult{Files: []FileListing{}, FolderPath: folder}

	probe := c.storage.Probe(ctx, folder)
	switch probe.State {
	case domain.ProbeError:
		return nil, fmt.Errorf("failed to check folder %s: %w", folder, probe.Err)
	case domain.ProbeNotFound:
		return result, nil
	}
	result.Exists = true

	records, err := c.storage.List(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	for _, r := range records {
		if r.IsDirectory {
			continue
		}
		display := domain.DisplayName(r.Name)
		result.Files = append(result.Files, FileListing{
			Name:         display,
			Size:         domain.HumanSize(r.Size),
			Path:         path.Join(folder, r.Name),
			IsPreview:    domain.IsPreviewName(r.Name),
			IsCompressed: display != r.Name,
		})
	}
	slices.SortFunc(result.Files, func(a, b FileListing) int { return strings.Compare(a.Name, b.Name) })
	return result, nil
}

// DownloadResult is an open file. The caller must close Body.
type DownloadResult struct {
	Body       io.ReadCloser
	FileName   string
	StoredPath string
}

// DownloadCommand opens one file of a unit folder
type DownloadCommand struct {
	storage    ports.RemoteStorage
	compressor ports.Compressor
	Allegiance string
	Faction    string
	Unit       string
	FileName   string
}

// NewDownloadCommand creates a new DownloadCommand. compressor may be nil;
// when set, a missing file is looked up again under its compressed name and
// decompressed on the fly.
func NewDownloadCommand(storage ports.RemoteStorage, compressor ports.Compressor, allegiance, faction, unit, fileName string) *DownloadCommand {
	return &DownloadCommand{
		storage:    storage,
		compressor: compressor,
		Allegiance: allegiance,
		Faction:    faction,
		Unit:       unit,
		FileName:   fileName,
	}
}

func (c *DownloadCommand) Validate() error {
	if _, err := application.ValidateTaxonomy(c.Allegiance, c.Faction, c.Unit); err != nil {
		return err
	}
	return application.ValidateFileName("fileName", c.FileName)
}

// Execute runs the download command
func (c *DownloadCommand) Execute(ctx context.Context) (*DownloadResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tp, _ := domain.NewTaxonomyPath(c.Allegiance, c.Faction, c.Unit)
	p := tp.File(c.FileName)

	body, err := c.storage.Download(ctx, p)
	if err == nil {
		return &DownloadResult{Body: body, FileName: c.FileName, StoredPath: p}, nil
	}
	if !domain.IsNotFound(err) || c.compressor == nil || strings.HasSuffix(c.FileName, c.compressor.Suffix()) {
		return nil, err
	}

	compressedPath := p + c.compressor.Suffix()
	raw, cerr := c.storage.Download(ctx, compressedPath)
	if cerr != nil {
		if domain.IsNotFound(cerr) {
			// report the name the caller asked for
			return nil, err
		}
		return nil, cerr
	}
	plain, derr := c.compressor.Decompress(raw)
	if derr != nil {
		raw.Close()
		return nil, &domain.DownloadError{Path: compressedPath, Err: derr}
	}
	return &DownloadResult{Body: &stackedCloser{ReadCloser: plain, under: raw}, FileName: c.FileName, StoredPath: compressedPath}, nil
}

// stackedCloser closes a decompressing reader and the stream below it.
type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedCloser) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.under.Close())
}

// DeleteFileResult contains the result of a delete
type DeleteFileResult struct {
	Path    string
	Message string
}

// DeleteFileCommand removes one remote file. Catalog entries are not touched.
type DeleteFileCommand struct {
	storage    ports.RemoteStorage
	compressor ports.Compressor
	Allegiance string
	Faction    string
	Unit       string
	FileName   string
}

// NewDeleteFileCommand creates a new DeleteFileCommand
func NewDeleteFileCommand(storage ports.RemoteStorage, compressor ports.Compressor, allegiance, faction, unit, fileName string) *DeleteFileCommand {
	return &DeleteFileCommand{
		storage:    storage,
		compressor: compressor,
		Allegiance: allegiance,
		Faction:    faction,
		Unit:       unit,
		FileName:   fileName,
	}
}

func (c *DeleteFileCommand) Validate() error {
	if _, err := application.ValidateTaxonomy(c.Allegiance, c.Faction, c.Unit); err != nil {
		return err
	}
	return application.ValidateFileName("fileName", c.FileName)
}

// Execute runs the delete command. Deleting a file that does not exist is a
// *domain.NotFoundError.
func (c *DeleteFileCommand) Execute(ctx context.Context) (*DeleteFileResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tp, _ := domain.NewTaxonomyPath(c.Allegiance, c.Faction, c.Unit)
	p := tp.File(c.FileName)

	err := c.storage.Delete(ctx, p)
	if err != nil && domain.IsNotFound(err) && c.compressor != nil && !strings.HasSuffix(c.FileName, c.compressor.Suffix()) {
		if cerr := c.storage.Delete(ctx, p+c.compressor.Suffix()); cerr == nil {
			p, err = p+c.compressor.Suffix(), nil
		} else if !domain.IsNotFound(cerr) {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}

	return &DeleteFileResult{
		Path:    p,
		Message: fmt.Sprintf("Deleted %s", p),
	}, nil
}

// DownloadLink points at one file of a unit folder
type DownloadLink struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	URL       string `json:"url"`
	IsPreview bool   `json:"isPreview"`
}

// DownloadAllResult lists per-file download links for a unit folder
type DownloadAllResult struct {
	FolderPath string         `json:"folderPath"`
	Files      []DownloadLink `json:"files"`
}

// DownloadAllCommand builds download links for every file of a unit folder.
// It does not build an archive.
type DownloadAllCommand struct {
	storage    ports.RemoteStorage
	BaseURL    string
	Allegiance string
	Faction    string
	Unit       string
}

// NewDownloadAllCommand creates a new DownloadAllCommand. baseURL prefixes
// every link and may be empty for relative links.
func NewDownloadAllCommand(storage ports.RemoteStorage, baseURL, allegiance, faction, unit string) *DownloadAllCommand {
	return &DownloadAllCommand{storage: storage, BaseURL: baseURL, Allegiance: allegiance, Faction: faction, Unit: unit}
}

func (c *DownloadAllCommand) Execute(ctx context.Context) (*DownloadAllResult, error) {
	listing, err := NewListFilesCommand(c.storage, c.Allegiance, c.Faction, c.Unit).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if !listing.Exists {
		return nil, &domain.NotFoundError{Kind: "folder", Path: listing.FolderPath}
	}

	tp, _ := domain.NewTaxonomyPath(c.Allegiance, c.Faction, c.Unit)
	prefix := strings.TrimSuffix(c.BaseURL, "/") + "/download/" +
		url.PathEscape(tp.Allegiance) + "/" + url.PathEscape(tp.Faction) + "/" + url.PathEscape(tp.Unit) + "/"

	result := &DownloadAllResult{FolderPath: listing.FolderPath, Files: []DownloadLink{}}
	for _, f := range listing.Files {
		result.Files = append(result.Files, DownloadLink{
			Name:      f.Name,
			Size:      f.Size,
			URL:       prefix + url.PathEscape(f.Name),
			IsPreview: f.IsPreview,
		})
	}
	return result, nil
}
