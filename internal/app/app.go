// Package app composes the printvault server process with fx.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"printvault/internal/adapters/auth"
	"printvault/internal/adapters/backends"
	"printvault/internal/adapters/httpapi"
	"printvault/internal/application"
	"printvault/internal/config"
	"printvault/internal/logging"
	"printvault/internal/ports"
)

// Module provides every server component built from cfg.
func Module(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newStorage,
			newCatalogStore,
			newCatalog,
			newReconciler,
			newAuthenticator,
			newMetrics,
			newAPI,
			newHTTPServer,
		),
		fx.Invoke(logStartup),
		fx.Invoke(startScheduledScans),
		fx.Invoke(startWatcher),
		fx.Invoke(func(*HTTPServer) {}),
	)
}

// New builds the server application. extra options are appended, which
// tests use to populate or replace components.
func New(cfg *config.Config, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		Module(cfg),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	}
	return fx.New(append(opts, extra...)...)
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

// newStorage opens the configured backend. A failed first connection is
// logged and retried lazily by the adapter, so the server still starts
// and reports the backend as degraded.
func newStorage(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (ports.RemoteStorage, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := backends.OpenStorage(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Connect(ctx); err != nil {
				logger.Warn("storage not reachable at startup", zap.String("backend", s.Name()), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			defer cancel()
			return s.Close()
		},
	})
	return s, nil
}

func newCatalogStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (ports.CatalogStore, error) {
	store, err := backends.OpenCatalogStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(store.Close))
	return store, nil
}

func newCatalog(cfg *config.Config, store ports.CatalogStore, logger *zap.Logger) *application.Catalog {
	if cfg.Catalog.Key != "" {
		return application.NewCatalogWithKey(store, cfg.Catalog.Key, logger.Named("catalog"))
	}
	return application.NewCatalog(store, logger.Named("catalog"))
}

func newReconciler(cfg *config.Config, storage ports.RemoteStorage, catalog *application.Catalog, logger *zap.Logger) *application.Reconciler {
	return application.NewReconciler(storage, catalog, logger.Named("scan"), cfg.Scan.Concurrency)
}

func newAuthenticator(cfg *config.Config) (ports.Authenticator, error) {
	return auth.New(context.Background(), cfg.Auth)
}

func newMetrics() *httpapi.Metrics {
	return httpapi.NewMetrics(nil)
}

type apiParams struct {
	fx.In

	Config        *config.Config
	Storage       ports.RemoteStorage
	Catalog       *application.Catalog
	Reconciler    *application.Reconciler
	Authenticator ports.Authenticator
	Metrics       *httpapi.Metrics
	Logger        *zap.Logger
}

func newAPI(p apiParams) (*httpapi.Server, error) {
	upload, err := backends.UploadOptions(p.Config.Upload)
	if err != nil {
		return nil, err
	}
	return httpapi.New(httpapi.Options{
		Storage:       p.Storage,
		Catalog:       p.Catalog,
		Reconciler:    p.Reconciler,
		Authenticator: p.Authenticator,
		Upload:        upload,
		StoredNames:   backends.StoredNameCompressor(p.Config.Upload),
		Metrics:       p.Metrics,
		Logger:        p.Logger.Named("http"),
	}), nil
}

func logStartup(cfg *config.Config, storage ports.RemoteStorage, logger *zap.Logger) {
	logger.Info("starting printvault",
		zap.String("storage", storage.Name()),
		zap.String("catalog", backends.DescribeCatalog(cfg.Catalog)),
		zap.String("auth", cfg.Auth.Mode),
		zap.Int("port", cfg.Server.Port),
	)
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
}
