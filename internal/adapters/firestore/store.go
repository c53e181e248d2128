// Package firestore keeps catalog documents in a Firestore collection.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

var _ ports.CatalogStore = (*Store)(nil)

type document struct {
	Data    []byte `firestore:"data"`
	Version int64  `firestore:"version"`
}

// Store writes documents inside Firestore transactions, which retry on
// contention and then see the winner's version.
type Store struct {
	client     *firestore.Client
	collection string
}

// Dial connects using application default credentials, or the emulator when
// FIRESTORE_EMULATOR_HOST is set.
func Dial(ctx context.Context, projectID, collection string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, &domain.ConnectionError{Backend: "firestore", Host: projectID, Err: err}
	}
	return New(client, collection), nil
}

func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = "catalog"
	}
	return &Store{client: client, collection: collection}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ref(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	snap, err := s.ref(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", key, err)
	}
	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", key, err)
	}
	return doc.Data, uint64(doc.Version), nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	ref := s.ref(key)
	next := expectedVersion + 1

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current uint64
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var doc document
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			current = uint64(doc.Version)
		}
		if current != expectedVersion {
			return &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: current}
		}
		return tx.Set(ref, document{Data: data, Version: int64(next)})
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.ref(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("clearing %s: %w", key, err)
	}
	return nil
}
