package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/adapters/compression"
	"printvault/internal/adapters/memory"
	"printvault/internal/application"
	"printvault/internal/domain"
)

func fileOf(name string, data []byte) UploadFile {
	return UploadFile{
		Name:     name,
		MIMEType: "application/octet-stream",
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func testUploadOptions() UploadOptions {
	opts := DefaultUploadOptions()
	opts.Retry = application.RetryPolicy{Retries: 2, Initial: time.Millisecond, MaxDelay: time.Millisecond}
	return opts
}

func TestUploadCommand_Validate(t *testing.T) {
	stl := fileOf("troop.stl", []byte("solid"))
	tests := []struct {
		name       string
		allegiance string
		faction    string
		unit       string
		preview    *UploadFile
		files      []UploadFile
		maxFiles   int
		errMsg     string
	}{
		{name: "valid", allegiance: "Chaos", faction: "skaven", unit: "Clanrats", files: []UploadFile{stl}},
		{name: "missing allegiance", faction: "skaven", unit: "Clanrats", files: []UploadFile{stl}, errMsg: "allegiance is required"},
		{name: "missing unit", allegiance: "Chaos", faction: "skaven", files: []UploadFile{stl}, errMsg: "unit is required"},
		{name: "unit sanitizes to nothing", allegiance: "Chaos", faction: "skaven", unit: "???", files: []UploadFile{stl}, errMsg: "no usable characters"},
		{name: "no files", allegiance: "Chaos", faction: "skaven", unit: "Clanrats", errMsg: "no files"},
		{name: "disallowed type", allegiance: "Chaos", faction: "skaven", unit: "Clanrats", files: []UploadFile{fileOf("virus.exe", nil)}, errMsg: "file type not allowed"},
		{
			name: "too many files", allegiance: "Chaos", faction: "skaven", unit: "Clanrats",
			files: []UploadFile{stl, stl, stl}, maxFiles: 2, errMsg: "too many files",
		},
		{
			name: "preview must be an image", allegiance: "Chaos", faction: "skaven", unit: "Clanrats",
			preview: &UploadFile{Name: "preview.stl"}, errMsg: "preview must be an image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testUploadOptions()
			if tt.maxFiles > 0 {
				opts.MaxFiles = tt.maxFiles
			}
			cmd := NewUploadCommand(memory.NewStorage(), opts, tt.allegiance, tt.faction, tt.unit, tt.preview, tt.files)
			err := cmd.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, domain.ErrInvalid)
		})
	}
}

func TestUploadCommand_StoresFilesInUnitFolder(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	preview := fileOf("cover.png", bytes.Repeat([]byte{1}, 10<<10))
	troop := fileOf("troop.stl", bytes.Repeat([]byte{2}, 1<<20))

	result, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", &preview, []UploadFile{troop}).Execute(ctx)
	require.NoError(t, err)

	assert.Equal(t, "chaos/skaven/clanrats", result.FolderPath)
	require.NotNil(t, result.Preview)
	assert.Equal(t, "chaos/skaven/clanrats/preview.jpg", *result.Preview)
	require.Len(t, result.StlFiles, 1)
	assert.Equal(t, UploadedFile{Name: "troop.stl", Size: "1.0 MiB", Path: "chaos/skaven/clanrats/troop.stl"}, result.StlFiles[0])

	_, ok := storage.Bytes("chaos/skaven/clanrats/troop.stl")
	assert.True(t, ok)
	_, ok = storage.Bytes("chaos/skaven/clanrats/cover.png")
	assert.False(t, ok, "preview is always stored as preview.jpg")
}

func TestUploadCommand_PartialFailure(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.FailUpload("two.stl", errors.New("disk quota exceeded"))

	files := []UploadFile{
		fileOf("one.stl", []byte("1")),
		fileOf("two.stl", []byte("2")),
		fileOf("three.stl", []byte("3")),
	}
	_, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", nil, files).Execute(ctx)
	require.Error(t, err)

	var uploadErr *domain.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "two.stl", uploadErr.FileName)
	assert.Equal(t, domain.CodeUploadFailed, domain.CodeOf(err))

	listing, err := NewListFilesCommand(storage, "Chaos", "skaven", "Clanrats").Execute(ctx)
	require.NoError(t, err)
	var names []string
	for _, f := range listing.Files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"one.stl"}, names)
}

func TestUploadCommand_PreviewFailureAbortsEverything(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.FailUpload(domain.PreviewFileName, errors.New("permission denied"))

	preview := fileOf("cover.jpg", []byte("jpg"))
	_, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", &preview,
		[]UploadFile{fileOf("troop.stl", []byte("x"))}).Execute(ctx)
	require.Error(t, err)

	_, ok := storage.Bytes("chaos/skaven/clanrats/troop.stl")
	assert.False(t, ok)
}

func TestUploadCommand_PreviewOverwrite(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()

	first := fileOf("first.jpg", []byte("first image"))
	second := fileOf("second.webp", []byte("second image"))
	for _, p := range []UploadFile{first, second} {
		_, err := NewUploadCommand(storage, testUploadOptions(), "Order", "Stormcast Eternals", "Liberators", &p, nil).Execute(ctx)
		require.NoError(t, err)
	}

	entries, err := storage.List(ctx, "order/stormcast-eternals/liberators")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "preview.jpg", entries[0].Name)

	data, ok := storage.Bytes("order/stormcast-eternals/liberators/preview.jpg")
	require.True(t, ok)
	assert.Equal(t, "second image", string(data))
}

// flakyStorage fails the first n uploads with a transient error
type flakyStorage struct {
	*memory.Storage
	failures int
	connects int
}

func (f *flakyStorage) Connect(ctx context.Context) error {
	f.connects++
	return nil
}

func (f *flakyStorage) Upload(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	if f.failures > 0 {
		f.failures--
		io.Copy(io.Discard, r)
		return "", &domain.TimeoutError{Backend: "flaky", Op: "upload", Path: dir + "/" + name, Err: context.DeadlineExceeded}
	}
	return f.Storage.Upload(ctx, dir, name, r)
}

func TestUploadCommand_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{Storage: memory.NewStorage(), failures: 2}

	result, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", nil,
		[]UploadFile{fileOf("troop.stl", []byte("solid"))}).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, result.StlFiles, 1)
	assert.Equal(t, 2, storage.connects, "reconnect before each retry")

	data, ok := storage.Bytes("chaos/skaven/clanrats/troop.stl")
	require.True(t, ok)
	assert.Equal(t, "solid", string(data), "retry must re-read the source from the start")
}

func TestUploadCommand_GivesUpAfterRetries(t *testing.T) {
	storage := &flakyStorage{Storage: memory.NewStorage(), failures: 10}

	_, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", nil,
		[]UploadFile{fileOf("troop.stl", []byte("solid"))}).Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)

	var uploadErr *domain.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "troop.stl", uploadErr.FileName)
	assert.Equal(t, 7, storage.failures)
}

func TestUploadCommand_Compression(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	opts := testUploadOptions()
	opts.Compressor = compression.XZ{}

	mesh := strings.Repeat("facet normal 0 0 1\n", 2000)
	result, err := NewUploadCommand(storage, opts, "Chaos", "skaven", "Clanrats", nil,
		[]UploadFile{fileOf("troop.stl", []byte(mesh)), fileOf("bases.zip", []byte("PK"))}).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, result.StlFiles, 2)

	troop := result.StlFiles[0]
	assert.Equal(t, "troop.stl", troop.Name)
	assert.Equal(t, "chaos/skaven/clanrats/troop.stl.xz", troop.Path)
	assert.True(t, troop.IsCompressed)
	require.NotNil(t, troop.CompressionRatio)
	assert.Less(t, *troop.CompressionRatio, 0.5)

	// archives are stored as they are
	assert.Equal(t, "chaos/skaven/clanrats/bases.zip", result.StlFiles[1].Path)
	assert.False(t, result.StlFiles[1].IsCompressed)

	// a download by display name decompresses transparently
	dl, err := NewDownloadCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
	require.NoError(t, err)
	defer dl.Body.Close()
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, mesh, string(data))
	assert.Equal(t, "chaos/skaven/clanrats/troop.stl.xz", dl.StoredPath)
}
