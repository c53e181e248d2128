// Package cache decorates a RemoteStorage with an in-process read cache for
// small files such as previews.
package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sync"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"printvault/internal/adapters/remote"
	"printvault/internal/config"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

var _ ports.RemoteStorage = (*Storage)(nil)

// Stats counts cache lookups
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Storage serves downloads of files up to maxEntry bytes from memory.
// Uploads and deletes evict the path they touch.
type Storage struct {
	next     ports.RemoteStorage
	cache    *bigcache.BigCache
	maxEntry int64
	logger   *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64

	// mu orders evictions against filling the cache. epoch counts evictions;
	// a read that saw an eviction while in flight is not cached.
	mu    sync.Mutex
	epoch uint64
}

// New wraps next. ctx bounds the cache's background cleanup goroutine.
func New(ctx context.Context, next ports.RemoteStorage, cfg config.CacheConfig, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := bigcache.DefaultConfig(cfg.TTL)
	bc.Shards = 64
	bc.HardMaxCacheSize = cfg.MaxSizeMB
	bc.MaxEntrySize = int(cfg.MaxEntrySize)
	bc.CleanWindow = cfg.TTL / 2
	bc.Verbose = false

	c, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, err
	}
	return &Storage{next: next, cache: c, maxEntry: cfg.MaxEntrySize, logger: logger}, nil
}

// Stats returns hit and miss counters
func (s *Storage) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Len returns the number of cached files
func (s *Storage) Len() int {
	return s.cache.Len()
}

func (s *Storage) Name() string { return s.next.Name() }

func (s *Storage) Connect(ctx context.Context) error { return s.next.Connect(ctx) }

func (s *Storage) Close() error {
	return errors.Join(s.cache.Close(), s.next.Close())
}

func (s *Storage) Upload(ctx context.Context, dir, fileName string, r io.Reader) (string, error) {
	p, err := s.next.Upload(ctx, dir, fileName, r)
	// a failed overwrite may have truncated the old file
	s.evict(path.Join(dir, fileName))
	return p, err
}

func (s *Storage) Delete(ctx context.Context, p string) error {
	err := s.next.Delete(ctx, p)
	s.evict(p)
	return err
}

func (s *Storage) evict(p string) {
	key, err := remote.Clean(p)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		s.logger.Warn("cache eviction failed", zap.String("path", key), zap.Error(err))
	}
}

// Download returns cached bytes when present. Otherwise it reads up to
// maxEntry+1 bytes from the backend: short files are cached, longer ones
// are streamed with the prefix stitched back in front.
func (s *Storage) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := remote.Clean(p)
	if err != nil {
		return nil, err
	}
	if data, err := s.cache.Get(key); err == nil {
		s.hits.Add(1)
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	s.misses.Add(1)
	epoch := s.currentEpoch()

	body, err := s.next.Download(ctx, key)
	if err != nil {
		return nil, err
	}

	head, err := io.ReadAll(io.LimitReader(body, s.maxEntry+1))
	if err != nil {
		body.Close()
		return nil, &domain.DownloadError{Path: key, Err: err}
	}
	if int64(len(head)) <= s.maxEntry {
		body.Close()
		s.fill(key, head, epoch)
		return io.NopCloser(bytes.NewReader(head)), nil
	}

	return &joinedBody{Reader: io.MultiReader(bytes.NewReader(head), body), Closer: body}, nil
}

func (s *Storage) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// fill caches data unless something was evicted since epoch was taken.
func (s *Storage) fill(key string, data []byte, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("not cached, evicted while reading", zap.String("path", key))
		return
	}
	if err := s.cache.Set(key, data); err != nil {
		s.logger.Debug("not cached", zap.String("path", key), zap.Error(err))
	}
}

type joinedBody struct {
	io.Reader
	io.Closer
}

func (s *Storage) List(ctx context.Context, dir string) ([]domain.RemoteFileRecord, error) {
	return s.next.List(ctx, dir)
}

func (s *Storage) Probe(ctx context.Context, dir string) domain.Probe {
	return s.next.Probe(ctx, dir)
}

func (s *Storage) Health(ctx context.Context) domain.HealthReport {
	return s.next.Health(ctx)
}
