package main

import (
	"context"
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"printvault/internal/adapters/backends"
	mcpadapter "printvault/internal/adapters/mcp"
	"printvault/internal/application"
	"printvault/internal/config"
	"printvault/internal/logging"
)

func main() {
	configFlag := flag.String("config", "", "config file (default $"+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("printvault-mcp: %v", err)
	}
	// stdout carries the protocol; logs go to stderr and the configured file
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("printvault-mcp: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	storage, err := backends.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer storage.Close()
	if err := storage.Connect(ctx); err != nil {
		logger.Warn("storage not reachable at startup", zap.Error(err))
	}

	store, err := backends.OpenCatalogStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open catalog store", zap.Error(err))
	}
	defer store.Close()

	catalog := application.NewCatalog(store, logger.Named("catalog"))
	if cfg.Catalog.Key != "" {
		catalog = application.NewCatalogWithKey(store, cfg.Catalog.Key, logger.Named("catalog"))
	}
	reconciler := application.NewReconciler(storage, catalog, logger.Named("scan"), cfg.Scan.Concurrency)

	mcpServer := server.NewMCPServer(
		"printvault-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Liveness check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, storage, catalog)
	mcpadapter.RegisterWriteTools(mcpServer, storage, backends.StoredNameCompressor(cfg.Upload), reconciler)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("printvault-mcp stopped", zap.Error(err))
	}
}
