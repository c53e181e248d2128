package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"printvault/internal/adapters/backends"
	"printvault/internal/adapters/httpapi"
	"printvault/internal/adapters/watcher"
	"printvault/internal/application"
	"printvault/internal/config"
)

// background runs fn in a goroutine between the start and stop hooks of lc.
func background(lc fx.Lifecycle, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				fn(ctx)
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func startScheduledScans(lc fx.Lifecycle, cfg *config.Config, reconciler *application.Reconciler, metrics *httpapi.Metrics, logger *zap.Logger) {
	if cfg.Scan.Interval <= 0 {
		return
	}
	log := logger.Named("scan")
	background(lc, func(ctx context.Context) {
		log.Info("scheduled scans enabled", zap.Duration("interval", cfg.Scan.Interval))
		every(ctx, cfg.Scan.Interval, func(ctx context.Context) {
			start := time.Now()
			summary, err := reconciler.ScanAll(ctx)
			metrics.ObserveScan("scheduled", err, time.Since(start))
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("scheduled scan failed", zap.Error(err))
				}
				return
			}
			log.Info("scheduled scan",
				zap.Int("armies", summary.ArmiesScanned),
				zap.Int("added", summary.UnitsAdded),
				zap.Int("updated", summary.UnitsUpdated),
				zap.Int("errors", len(summary.Errors)),
			)
		})
	})
}

func startWatcher(lc fx.Lifecycle, cfg *config.Config, reconciler *application.Reconciler, logger *zap.Logger) error {
	if !cfg.Scan.Watch {
		return nil
	}
	log := logger.Named("watch")
	if cfg.Storage.Type != config.StorageLocal {
		log.Warn("scan.watch only applies to local storage", zap.String("storage", cfg.Storage.Type))
		return nil
	}
	root := backends.LocalRoot(cfg)
	w, err := watcher.New(root, reconciler, watcher.WithLogger(log))
	if err != nil {
		return err
	}
	background(lc, func(ctx context.Context) {
		log.Info("watching local storage", zap.String("root", root))
		if err := w.Run(ctx); err != nil {
			log.Error("watcher stopped", zap.Error(err))
		}
	})
	return nil
}
