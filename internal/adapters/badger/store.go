// Package badger keeps catalog documents in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/golang/snappy"
	"go.uber.org/zap"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

const keyPrefix = "catalog/"

var _ ports.CatalogStore = (*Store)(nil)

// Store stores each document as an 8-byte big-endian version followed by
// the snappy-encoded document.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badgerdb.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}
	opts.SyncWrites = true
	opts.ValueLogFileSize = 64 << 20
	opts.BlockCacheSize = 8 << 20
	opts.IndexCacheSize = 8 << 20
	opts.NumMemtables = 2
	opts.Logger = badgerLogger{logger.Named("badger").Sugar()}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	logger.Info("badger catalog opened", zap.String("dir", dir), zap.Bool("in_memory", dir == ""))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var data []byte
	var version uint64
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, version, err = read(txn, key)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	if version == 0 {
		return nil, 0, domain.ErrNotFound
	}
	return data, version, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	next := expectedVersion + 1
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		_, current, err := read(txn, key)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: current}
		}
		return txn.Set([]byte(keyPrefix+key), encode(next, data))
	})
	if errors.Is(err, badgerdb.ErrConflict) {
		// another transaction committed first
		_, actual, _ := s.Get(ctx, key)
		return 0, &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: actual}
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
}

// read returns version 0 for a missing key
func read(txn *badgerdb.Txn, key string) ([]byte, uint64, error) {
	item, err := txn.Get([]byte(keyPrefix + key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("badger get %s: %w", key, err)
	}
	var data []byte
	var version uint64
	err = item.Value(func(val []byte) error {
		var err error
		version, data, err = decode(val)
		return err
	})
	return data, version, err
}

func encode(version uint64, data []byte) []byte {
	buf := make([]byte, 8, 8+snappy.MaxEncodedLen(len(data)))
	binary.BigEndian.PutUint64(buf, version)
	return append(buf, snappy.Encode(nil, data)...)
}

func decode(val []byte) (uint64, []byte, error) {
	if len(val) < 8 {
		return 0, nil, fmt.Errorf("corrupt catalog record: %d bytes", len(val))
	}
	data, err := snappy.Decode(nil, val[8:])
	if err != nil {
		return 0, nil, fmt.Errorf("corrupt catalog record: %w", err)
	}
	return binary.BigEndian.Uint64(val[:8]), data, nil
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
