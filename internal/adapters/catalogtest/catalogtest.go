// Package catalogtest checks ports.CatalogStore implementations against the
// shared versioning contract.
package catalogtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) ports.CatalogStore) {
	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		data, version, err := s.Get(context.Background(), "gameData")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, data)
		assert.Zero(t, version)
	})

	t.Run("create then update", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		v1, err := s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		require.NoError(t, err)
		assert.NotZero(t, v1)

		data, got, err := s.Get(ctx, "gameData")
		require.NoError(t, err)
		assert.Equal(t, v1, got)
		assert.JSONEq(t, `{"armies":[]}`, string(data))

		v2, err := s.Set(ctx, "gameData", []byte(`{"armies":[{"id":"skaven"}]}`), v1)
		require.NoError(t, err)
		assert.NotEqual(t, v1, v2)

		data, got, err = s.Get(ctx, "gameData")
		require.NoError(t, err)
		assert.Equal(t, v2, got)
		assert.JSONEq(t, `{"armies":[{"id":"skaven"}]}`, string(data))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		v1, err := s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		require.NoError(t, err)
		_, err = s.Set(ctx, "gameData", []byte(`{"armies":[{"id":"a"}]}`), v1)
		require.NoError(t, err)

		_, err = s.Set(ctx, "gameData", []byte(`{"armies":[{"id":"b"}]}`), v1)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))

		_, err = s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		assert.ErrorIs(t, err, domain.ErrConflict, "creating an existing key conflicts")

		data, _, err := s.Get(ctx, "gameData")
		require.NoError(t, err)
		assert.JSONEq(t, `{"armies":[{"id":"a"}]}`, string(data))
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		require.NoError(t, err)
		_, _, err = s.Get(ctx, "other")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx, "gameData"))
		require.NoError(t, s.Clear(ctx, "gameData"), "clearing a missing key is not an error")

		_, version, err := s.Get(ctx, "gameData")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, version)

		_, err = s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		assert.NoError(t, err, "a cleared key can be created again")
	})

	t.Run("concurrent writers with the same version", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		v1, err := s.Set(ctx, "gameData", []byte(`{"armies":[]}`), 0)
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Set(ctx, "gameData", []byte(`{"armies":[{"id":"x"}]}`), v1)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok int
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrConflict)
		}
		assert.Equal(t, 1, ok, "exactly one writer wins")
	})
}
