// Package redis keeps catalog documents in Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

const (
	fieldData    = "data"
	fieldVersion = "version"
)

var _ ports.CatalogStore = (*Store)(nil)

// Store maps each key to a hash {data, version} under namespace.
// Writes use WATCH/MULTI so a concurrent writer aborts the transaction.
type Store struct {
	client    *redis.Client
	namespace string
}

// Dial parses a redis:// URL and checks the connection
func Dial(ctx context.Context, url, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, &domain.ConnectionError{Backend: "redis", Host: opts.Addr, Err: err}
	}
	return New(client, namespace), nil
}

func New(client *redis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = "printvault"
	}
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(k string) string {
	return s.namespace + ":catalog:" + k
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), fieldData, fieldVersion).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	data, ok1 := vals[0].(string)
	raw, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return nil, 0, domain.ErrNotFound
	}
	var version uint64
	if _, err := fmt.Sscan(raw, &version); err != nil {
		return nil, 0, fmt.Errorf("corrupt version for %s: %w", key, err)
	}
	return []byte(data), version, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	k := s.key(key)
	next := expectedVersion + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, fieldVersion).Uint64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedVersion {
			return &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: current}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, fieldData, data, fieldVersion, next)
			return nil
		})
		return err
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		_, actual, _ := s.Get(ctx, key)
		return 0, &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: actual}
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
