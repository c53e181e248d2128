// Package backends opens the remote storage, catalog store and codecs
// selected by the configuration.
package backends

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"printvault/internal/adapters/badger"
	"printvault/internal/adapters/cache"
	"printvault/internal/adapters/compression"
	"printvault/internal/adapters/filesystem"
	"printvault/internal/adapters/firestore"
	"printvault/internal/adapters/ftp"
	"printvault/internal/adapters/gcs"
	"printvault/internal/adapters/jsonfile"
	"printvault/internal/adapters/memory"
	"printvault/internal/adapters/postgres"
	"printvault/internal/adapters/redis"
	"printvault/internal/adapters/remote"
	"printvault/internal/adapters/sqlite"
	"printvault/internal/adapters/webdav"
	"printvault/internal/application"
	"printvault/internal/application/commands"
	"printvault/internal/config"
	"printvault/internal/ports"
)

// OpenStorage builds the configured RemoteStorage, wrapped in the download
// cache when enabled. It does not connect.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.RemoteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeouts := remote.Timeouts{Op: cfg.Storage.Timeout, Upload: cfg.Storage.UploadTimeout}
	log := logger.Named("storage")

	var s ports.RemoteStorage
	switch cfg.Storage.Type {
	case config.StorageFTP:
		s = ftp.New(cfg.Storage.FTP, timeouts, log)
	case config.StorageWebDAV:
		s = webdav.New(cfg.Storage.WebDAV, timeouts, log)
	case config.StorageLocal:
		s = filesystem.NewStorage(cfg.Storage.Local.Path)
	case config.StorageGCS:
		g, err := gcs.Dial(ctx, cfg.Storage.GCS, timeouts, log)
		if err != nil {
			return nil, err
		}
		s = g
	case config.StorageMemory:
		s = memory.NewStorage()
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}

	if !cfg.Cache.Enabled {
		return s, nil
	}
	cached, err := cache.New(ctx, s, cfg.Cache, logger.Named("cache"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create download cache: %w", err)
	}
	return cached, nil
}

// OpenCatalogStore opens the configured catalog document store.
func OpenCatalogStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.CatalogStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cfg.Catalog
	switch c.Store {
	case config.CatalogJSON:
		return jsonfile.New(c.Path), nil
	case config.CatalogSQLite:
		return sqlite.Open(ctx, c.Path)
	case config.CatalogBadger:
		return badger.Open(c.Path, logger.Named("catalog"))
	case config.CatalogRedis:
		return redis.Dial(ctx, c.RedisURL, "printvault")
	case config.CatalogPostgres:
		return postgres.New(ctx, c.DatabaseURL)
	case config.CatalogFirestore:
		return firestore.Dial(ctx, c.ProjectID, c.Collection)
	case config.CatalogMemory:
		return memory.NewCatalogStore(), nil
	default:
		return nil, fmt.Errorf("unknown catalog store %q", c.Store)
	}
}

// UploadCompressor returns the codec applied to uploaded STL files, or nil
// when compression is off.
func UploadCompressor(cfg config.UploadConfig) (ports.Compressor, error) {
	if !cfg.Compress {
		return nil, nil
	}
	return compression.New(cfg.Codec)
}

// UploadOptions turns the upload section into the orchestrator's limits and
// retry policy.
func UploadOptions(cfg config.UploadConfig) (commands.UploadOptions, error) {
	opts := commands.DefaultUploadOptions()
	opts.MaxFiles = cfg.MaxFiles
	opts.MaxFileSize = cfg.MaxFileSize
	opts.Retry.Retries = cfg.Retries
	if cfg.Retries == 0 {
		opts.Retry = application.NoRetry()
	}
	c, err := UploadCompressor(cfg)
	if err != nil {
		return commands.UploadOptions{}, err
	}
	opts.Compressor = c
	return opts, nil
}

// LocalRoot returns the directory the local backend stores files under,
// with ~ expanded.
func LocalRoot(cfg *config.Config) string {
	return filesystem.NewStorage(cfg.Storage.Local.Path).Root()
}

// StoredNameCompressor returns the codec downloads and deletes fall back to
// when a plain name is missing: the configured upload codec, or xz when
// none is valid.
func StoredNameCompressor(cfg config.UploadConfig) ports.Compressor {
	if c, err := compression.New(cfg.Codec); err == nil {
		return c
	}
	return compression.XZ{}
}

// DescribeCatalog names the store for log lines.
func DescribeCatalog(c config.CatalogConfig) string {
	switch c.Store {
	case config.CatalogJSON, config.CatalogSQLite, config.CatalogBadger:
		return c.Store + ":" + filepath.Clean(c.Path)
	default:
		return c.Store
	}
}
