package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/terra-clan/compare-engine/internal/api"
	"github.com/terra-clan/compare-engine/internal/catalog"
	"github.com/terra-clan/compare-engine/internal/cleanup"
	"github.com/terra-clan/compare-engine/internal/config"
	"github.com/terra-clan/compare-engine/internal/health"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/preferences"
	"github.com/terra-clan/compare-engine/internal/region"
	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
	"github.com/terra-clan/compare-engine/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting compare-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Load the catalog once. Without it every page shows the error view.
	loader := catalog.NewLoader(cfg.Catalog.Timeout)
	cat, err := loader.Load(initCtx, cfg.Catalog.Source)
	if err != nil {
		slog.Error("catalog unavailable, serving error view", "source", cfg.Catalog.Source, "error", err)
	} else {
		slog.Info("catalog loaded", "source", cfg.Catalog.Source, "products", cat.Len())
	}

	// Open the preference store (runs migrations for postgres)
	store, err := storage.Open(initCtx, cfg.Store, cfg.Redis)
	if err != nil {
		slog.Error("failed to open preference store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	slog.Info("preference store ready", "backend", cfg.Store.Backend)

	bundle, err := i18n.LoadEmbedded(cfg.I18n.DefaultLanguage, cfg.I18n.Supported)
	if err != nil {
		slog.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		slog.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	// Readiness checks
	registry := health.NewRegistry(2 * time.Second)
	registry.Register("store", health.Ping(store))
	registry.Register("catalog", health.CheckerFunc(func(context.Context) error {
		if cat == nil {
			return health.ErrCatalogNotLoaded
		}
		return nil
	}))
	if pg, ok := store.(*storage.PostgresStore); ok {
		registry.Register("migrations", health.CheckerFunc(func(ctx context.Context) error {
			pending, err := pg.PendingMigrations(ctx, cfg.Store.MigrationsDir)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return fmt.Errorf("pending migrations: %s", strings.Join(pending, ", "))
			}
			return nil
		}))
	}

	prefs := preferences.NewService(store, bundle, cfg.Region.DefaultRegion)
	manager := session.NewManager(cat, prefs, bundle, region.NewResolver(cfg.Region), cfg.Session.TTL)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleanup.NewCleaner(manager, cfg.Session.CleanupInterval).Start(ctx)

	// Setup HTTP server. No WriteTimeout: the live channel is long-lived and
	// the router bounds ordinary requests itself.
	server := api.NewServer(cfg.Server, manager, renderer, registry)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stop in-flight region lookups, then release the store
	manager.Close()
	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("compare-engine stopped")
}
