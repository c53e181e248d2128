package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/domain"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "root base", base: "/", rel: "chaos/skaven", want: "/chaos/skaven"},
		{name: "nested base", base: "/prints/", rel: "chaos/skaven/clanrats/troop.stl", want: "/prints/chaos/skaven/clanrats/troop.stl"},
		{name: "relative base", base: "prints", rel: "order", want: "/prints/order"},
		{name: "empty rel is base", base: "/prints", rel: "", want: "/prints"},
		{name: "leading slash in rel", base: "/prints", rel: "/order", want: "/prints/order"},
		{name: "dot segments collapse", base: "/prints", rel: "order/./a", want: "/prints/order/a"},
		{name: "parent segment rejected", base: "/prints", rel: "order/../../etc", wantErr: true},
		{name: "backslash rejected", base: "/prints", rel: `order\..\x`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Join(tt.base, tt.rel)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallReturnsResult(t *testing.T) {
	v, err := Call(context.Background(), time.Second, "ftp", "list", "/", nil, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCallTimeout(t *testing.T) {
	aborted := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	err := Do(context.Background(), 20*time.Millisecond, "ftp", "upload", "/a/b.stl", func() { close(aborted) }, func() error {
		<-release
		return nil
	})

	var timeoutErr *domain.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "upload", timeoutErr.Op)
	assert.True(t, domain.IsRetryable(err))
	assert.False(t, errors.Is(err, domain.ErrConnection))

	select {
	case <-aborted:
	default:
		t.Fatal("abort was not called")
	}
}

func TestCallCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)

	err := Do(ctx, 0, "webdav", "list", "/", nil, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsDeadline(t *testing.T) {
	assert.True(t, IsDeadline(context.DeadlineExceeded))
	assert.False(t, IsDeadline(errors.New("boom")))
}
