package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mirelwood/blades/internal/mcpserver"
	"github.com/mirelwood/blades/internal/state"
)

// RunMCP starts the MCP stdio server over the feed. The logger goes to
// stderr because the stdio transport owns stdout.
func RunMCP(ctx context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := state.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer db.Close()

	svc, err := buildService(cfg, db, nil, logger)
	if err != nil {
		return err
	}
	if err := svc.Feed().Hydrate(ctx); err != nil {
		logger.Warn("initial feed hydrate failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(svc.Feed(), cfg.Site.Categories)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
