// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/mirelwood/blades/internal/api"
	"github.com/mirelwood/blades/internal/feed"
	"github.com/mirelwood/blades/internal/fetch"
	"github.com/mirelwood/blades/internal/resolver"
	"github.com/mirelwood/blades/internal/sse"
	"github.com/mirelwood/blades/internal/state"
	"github.com/mirelwood/blades/internal/stories"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless an override was supplied.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("index_url", cfg.Site.IndexURL),
		slog.String("site_path", cfg.Site.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// State store.
	db, err := state.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := buildService(cfg, db, broker, logger)
	if err != nil {
		return err
	}

	// Initial hydrate. Failures are non-fatal: the API surfaces an error
	// state and a later refresh retries.
	if err := svc.Feed().Hydrate(ctx); err != nil {
		logger.Warn("initial feed hydrate failed", slog.String("error", err.Error()))
	}
	if err := svc.Stories().Hydrate(ctx); err != nil {
		logger.Warn("initial stories hydrate failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Static hosting of the site directory.
	if cfg.Site.Path != "" {
		fileServer := http.StripPrefix("/site", http.FileServer(http.Dir(cfg.Site.Path)))
		r.Handle("/site/*", fileServer)
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the site directory and re-hydrate on changes.
	if cfg.Site.Path != "" {
		g.Go(func() error {
			watchSite(gCtx, cfg.Site.Path, logger, func() {
				if err := svc.Refresh(gCtx); err != nil {
					logger.Warn("watch refresh failed", slog.String("error", err.Error()))
				}
			})
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildService wires the fetcher, resolver, feed manager, and stories
// service according to the site configuration.
func buildService(cfg *Config, db state.Store, broker *sse.Broker, logger *slog.Logger) (*api.Service, error) {
	var fetcher fetch.Fetcher
	if cfg.Site.Path != "" {
		f, err := fetch.NewFile(cfg.Site.Path)
		if err != nil {
			return nil, fmt.Errorf("init site fetcher: %w", err)
		}
		fetcher = f
	} else {
		fetcher = fetch.NewHTTP(nil)
	}

	res, err := resolver.New(fetcher, cfg.Site.IndexURL, cfg.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("init resolver: %w", err)
	}

	flags := state.NewFlags(db)
	feedMgr := feed.NewManager(cfg.Site.IndexURL, fetcher, res, flags, logger)
	storySvc := stories.NewService(cfg.Site.StoriesURL, fetcher, res, db, logger)

	return api.NewService(feedMgr, storySvc, db, broker, cfg.Site.Categories, cfg.Site.PerCategory), nil
}
