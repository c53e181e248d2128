package commands

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/adapters/compression"
	"printvault/internal/adapters/memory"
	"printvault/internal/domain"
)

func TestEndToEndUploadThenList(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()

	preview := fileOf("clanrats.jpg", bytes.Repeat([]byte{0xff}, 10<<10))
	troop := fileOf("troop.stl", bytes.Repeat([]byte{'s'}, 1<<20))
	_, err := NewUploadCommand(storage, testUploadOptions(), "Chaos", "skaven", "Clanrats", &preview, []UploadFile{troop}).Execute(ctx)
	require.NoError(t, err)

	_, ok := storage.Bytes("chaos/skaven/clanrats/troop.stl")
	assert.True(t, ok)
	_, ok = storage.Bytes("chaos/skaven/clanrats/preview.jpg")
	assert.True(t, ok)

	listing, err := NewListFilesCommand(storage, "Chaos", "skaven", "Clanrats").Execute(ctx)
	require.NoError(t, err)
	assert.True(t, listing.Exists)
	assert.Equal(t, []FileListing{
		{Name: "preview.jpg", Size: "10 KiB", Path: "chaos/skaven/clanrats/preview.jpg", IsPreview: true},
		{Name: "troop.stl", Size: "1.0 MiB", Path: "chaos/skaven/clanrats/troop.stl"},
	}, listing.Files)
}

func TestListFilesCommand(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.Put("chaos/skaven/clanrats/troop.stl.xz", []byte("xz"))
	storage.Put("chaos/skaven/clanrats/supports/raft.stl", []byte("raft"))

	t.Run("compressed names are shown without suffix", func(t *testing.T) {
		listing, err := NewListFilesCommand(storage, "Chaos", "Skaven", "Clanrats").Execute(ctx)
		require.NoError(t, err)
		require.Len(t, listing.Files, 1)
		assert.Equal(t, "troop.stl", listing.Files[0].Name)
		assert.Equal(t, "chaos/skaven/clanrats/troop.stl.xz", listing.Files[0].Path)
		assert.True(t, listing.Files[0].IsCompressed)
	})

	t.Run("missing folder", func(t *testing.T) {
		listing, err := NewListFilesCommand(storage, "Order", "Seraphon", "Saurus").Execute(ctx)
		require.NoError(t, err)
		assert.False(t, listing.Exists)
		assert.Empty(t, listing.Files)
	})

	t.Run("probe failure is an error", func(t *testing.T) {
		storage.FailList("chaos/skaven/rat-ogors", memory.InjectedConnectionError())
		defer storage.FailList("chaos/skaven/rat-ogors", nil)
		_, err := NewListFilesCommand(storage, "Chaos", "Skaven", "Rat Ogors").Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrConnection)
	})
}

func TestDownloadCommand(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.Put("chaos/skaven/clanrats/troop.stl", []byte("solid"))

	t.Run("existing file", func(t *testing.T) {
		res, err := NewDownloadCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
		require.NoError(t, err)
		defer res.Body.Close()
		data, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, "solid", string(data))
	})

	t.Run("missing file is not found", func(t *testing.T) {
		_, err := NewDownloadCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "nope.stl").Execute(ctx)
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
		assert.Contains(t, err.Error(), "chaos/skaven/clanrats/nope.stl")
	})

	t.Run("path escape rejected", func(t *testing.T) {
		_, err := NewDownloadCommand(storage, nil, "Chaos", "skaven", "Clanrats", "../../secrets").Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalid)
	})
}

func TestGzipStoredPayloadsListAndDownloadByPlainName(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	opts := testUploadOptions()
	opts.Compressor = compression.Gzip{}

	troop := fileOf("troop.stl", []byte("solid troop"))
	_, err := NewUploadCommand(storage, opts, "Chaos", "skaven", "Clanrats", nil, []UploadFile{troop}).Execute(ctx)
	require.NoError(t, err)
	_, ok := storage.Bytes("chaos/skaven/clanrats/troop.stl.gz")
	require.True(t, ok)

	listing, err := NewListFilesCommand(storage, "Chaos", "skaven", "Clanrats").Execute(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "troop.stl", listing.Files[0].Name)
	assert.True(t, listing.Files[0].IsCompressed)

	res, err := NewDownloadCommand(storage, compression.Gzip{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, res.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "solid troop", string(data))
	assert.Equal(t, "chaos/skaven/clanrats/troop.stl.gz", res.StoredPath)

	del, err := NewDeleteFileCommand(storage, compression.Gzip{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chaos/skaven/clanrats/troop.stl.gz", del.Path)
}

func TestDeleteFileCommand(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.Put("chaos/skaven/clanrats/troop.stl", []byte("solid"))
	storage.Put("chaos/skaven/clanrats/banner.stl.xz", []byte("xz"))

	res, err := NewDeleteFileCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chaos/skaven/clanrats/troop.stl", res.Path)

	// display name resolves to the compressed file
	res, err = NewDeleteFileCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "banner.stl").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chaos/skaven/clanrats/banner.stl.xz", res.Path)

	_, err = NewDeleteFileCommand(storage, compression.XZ{}, "Chaos", "skaven", "Clanrats", "troop.stl").Execute(ctx)
	assert.True(t, domain.IsNotFound(err))
}

func TestDownloadAllCommand(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	storage.Put("order/stormcast-eternals/liberators/preview.jpg", []byte("jpg"))
	storage.Put("order/stormcast-eternals/liberators/liberator prime.stl", []byte("stl"))

	res, err := NewDownloadAllCommand(storage, "http://localhost:3001", "Order", "Stormcast Eternals", "Liberators").Execute(ctx)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "http://localhost:3001/download/order/stormcast-eternals/liberators/liberator%20prime.stl", res.Files[0].URL)
	assert.True(t, res.Files[1].IsPreview)

	_, err = NewDownloadAllCommand(storage, "", "Order", "Seraphon", "Saurus").Execute(ctx)
	assert.True(t, domain.IsNotFound(err))
}
