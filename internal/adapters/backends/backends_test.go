package backends

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/adapters/cache"
	"printvault/internal/adapters/filesystem"
	"printvault/internal/adapters/ftp"
	"printvault/internal/adapters/jsonfile"
	"printvault/internal/adapters/memory"
	"printvault/internal/adapters/sqlite"
	"printvault/internal/adapters/webdav"
	"printvault/internal/config"
)

func TestOpenStorage(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		check   func(t *testing.T, s any)
		wantErr bool
	}{
		{
			name:   "ftp",
			mutate: func(c *config.Config) { c.Storage.Type = config.StorageFTP },
			check:  func(t *testing.T, s any) { assert.IsType(t, &ftp.Storage{}, s) },
		},
		{
			name: "webdav",
			mutate: func(c *config.Config) {
				c.Storage.Type = config.StorageWebDAV
				c.Storage.WebDAV.URL = "http://localhost:8080"
			},
			check: func(t *testing.T, s any) { assert.IsType(t, &webdav.Storage{}, s) },
		},
		{
			name:   "local",
			mutate: func(c *config.Config) { c.Storage.Type = config.StorageLocal },
			check:  func(t *testing.T, s any) { assert.IsType(t, &filesystem.Storage{}, s) },
		},
		{
			name:   "memory",
			mutate: func(c *config.Config) { c.Storage.Type = config.StorageMemory },
			check:  func(t *testing.T, s any) { assert.IsType(t, &memory.Storage{}, s) },
		},
		{
			name: "cached",
			mutate: func(c *config.Config) {
				c.Storage.Type = config.StorageMemory
				c.Cache.Enabled = true
			},
			check: func(t *testing.T, s any) { assert.IsType(t, &cache.Storage{}, s) },
		},
		{
			name:    "unknown",
			mutate:  func(c *config.Config) { c.Storage.Type = "s3" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Enabled = false
			cfg.Storage.Local.Path = t.TempDir()
			tt.mutate(&cfg)

			s, err := OpenStorage(context.Background(), &cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}
}

func TestOpenCatalogStore(t *testing.T) {
	tests := []struct {
		store string
		path  string
		check func(t *testing.T, s any)
	}{
		{config.CatalogJSON, "catalog.json", func(t *testing.T, s any) { assert.IsType(t, &jsonfile.Store{}, s) }},
		{config.CatalogSQLite, "catalog.db", func(t *testing.T, s any) { assert.IsType(t, &sqlite.Store{}, s) }},
		{config.CatalogMemory, "", func(t *testing.T, s any) { assert.IsType(t, &memory.CatalogStore{}, s) }},
	}

	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cfg := config.Default()
			cfg.Catalog.Store = tt.store
			cfg.Catalog.Path = filepath.Join(t.TempDir(), tt.path)

			s, err := OpenCatalogStore(context.Background(), &cfg, nil)
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}

	cfg := config.Default()
	cfg.Catalog.Store = "mongo"
	_, err := OpenCatalogStore(context.Background(), &cfg, nil)
	assert.Error(t, err)
}

func TestUploadCompressor(t *testing.T) {
	c, err := UploadCompressor(config.UploadConfig{Compress: false, Codec: "xz"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = UploadCompressor(config.UploadConfig{Compress: true, Codec: "gzip"})
	require.NoError(t, err)
	assert.Equal(t, ".gz", c.Suffix())

	_, err = UploadCompressor(config.UploadConfig{Compress: true, Codec: "lz4"})
	assert.Error(t, err)

	assert.Equal(t, ".xz", StoredNameCompressor(config.UploadConfig{}).Suffix())
	assert.Equal(t, ".gz", StoredNameCompressor(config.UploadConfig{Compress: true, Codec: "gzip"}).Suffix())
	assert.Equal(t, ".sz", StoredNameCompressor(config.UploadConfig{Codec: "snappy"}).Suffix())
}

func TestUploadOptions(t *testing.T) {
	opts, err := UploadOptions(config.UploadConfig{MaxFiles: 5, MaxFileSize: 1 << 20, Retries: 3, Compress: true, Codec: "xz"})
	require.NoError(t, err)
	assert.Equal(t, 5, opts.MaxFiles)
	assert.Equal(t, int64(1<<20), opts.MaxFileSize)
	assert.Equal(t, 3, opts.Retry.Retries)
	assert.NotZero(t, opts.Retry.Initial)
	require.NotNil(t, opts.Compressor)
	assert.Equal(t, ".xz", opts.Compressor.Suffix())

	opts, err = UploadOptions(config.UploadConfig{MaxFiles: 1, MaxFileSize: 1, Retries: 0})
	require.NoError(t, err)
	assert.Zero(t, opts.Retry.Retries)
	assert.Nil(t, opts.Compressor)
}

func TestLocalRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Local.Path = "/srv/printvault/../files"
	assert.Equal(t, "/srv/files", LocalRoot(&cfg))
}
