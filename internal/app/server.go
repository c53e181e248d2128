package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"printvault/internal/adapters/httpapi"
	"printvault/internal/config"
)

// HTTPServer serves the API for the lifetime of the fx application.
type HTTPServer struct {
	srv *http.Server
	ln  net.Listener
}

// Addr returns the bound address once the application has started.
func (h *HTTPServer) Addr() string {
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, api *httpapi.Server, logger *zap.Logger) *HTTPServer {
	h := &HTTPServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          zap.NewStdLog(logger.Named("http")),
		},
	}
	shutdownTimeout := cfg.Server.ShutdownTimeout

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", h.srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", h.srv.Addr, err)
			}
			h.ln = ln
			logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
				defer cancel()
			}
			if err := h.srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			logger.Info("http server stopped")
			return nil
		},
	})
	return h
}
