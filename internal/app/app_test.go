package app

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"printvault/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Storage.Type = config.StorageMemory
	cfg.Catalog.Store = config.CatalogMemory
	cfg.Log.Level = "error"
	return &cfg
}

func TestModuleValidates(t *testing.T) {
	require.NoError(t, fx.ValidateApp(Module(testConfig(t))))
}

func TestServerLifecycle(t *testing.T) {
	var hs *HTTPServer
	app := fxtest.New(t, Module(testConfig(t)), fx.Populate(&hs))
	app.RequireStart()
	defer app.RequireStop()

	require.NotEmpty(t, hs.Addr())

	resp, err := http.Get("http://" + hs.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health, err := http.Get("http://" + hs.Addr() + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	body, err := io.ReadAll(health.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"storage":"memory"`)
}

func TestBadConfigFailsStartup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.Compress = true
	cfg.Upload.Codec = "lz4"
	assert.Error(t, fx.New(Module(cfg), fx.NopLogger).Err())
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		every(ctx, 5*time.Millisecond, func(context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("every did not stop after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestScheduledScansRunInLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scan.Interval = 10 * time.Millisecond

	app := fxtest.New(t, Module(cfg))
	app.RequireStart()
	time.Sleep(50 * time.Millisecond)
	app.RequireStop()
}

func TestWatchIgnoredForRemoteStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scan.Watch = true

	app := fxtest.New(t, Module(cfg))
	app.RequireStart()
	app.RequireStop()
}

func TestWatchLocalStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scan.Watch = true
	cfg.Storage.Type = config.StorageLocal
	cfg.Storage.Local.Path = t.TempDir()

	app := fxtest.New(t, Module(cfg))
	app.RequireStart()
	app.RequireStop()
}
