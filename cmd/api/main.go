package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moonscribe/internal/config"
	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
	"moonscribe/internal/http"
	"moonscribe/internal/metrics"
	"moonscribe/internal/repository"
	"moonscribe/internal/secrets"
	"moonscribe/internal/service"
	"moonscribe/internal/storage"
	"moonscribe/internal/upstream"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API keeps a MoonScribe workspace (projects, content, conversations, insights,
// flashcards and provider keys) in local storage and relays AI requests upstream.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: MoonScribe API
//   description: |
//     Local persistence and event synchronization for the MoonScribe workspace.
//     Every write is published on an event bus that the /api/events and
//     /api/views streams expose to connected views.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, logger)

	collector := metrics.NewCollector("moonscribe")
	quota := storage.Quota{MaxValueBytes: cfg.StoreMaxValueBytes, MaxTotalBytes: cfg.StoreMaxTotalBytes}
	bus := events.NewBus(collector)
	commands := events.NewCommands()

	var store storage.Store
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		store = storage.NewMemoryStore(quota)
		slog.Info("Using in-memory store; data is lost on exit")

	default:
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			_ = db.Close()
		}()

		if err := storage.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		slog.Info("Database initialized", "path", cfg.DBPath)

		sqliteStore := storage.NewSQLiteStore(db, quota)
		store = sqliteStore

		// Writes from other processes on the same file become external events
		if cfg.StoreWatch {
			watcher := storage.NewWatcher(sqliteStore, cfg.DBPath, func(c storage.Change) {
				for _, e := range repository.ExternalChangeEvents(c.Key) {
					bus.Publish(ctx, e)
				}
			}, storage.WatcherOptions{})
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("Storage watcher stopped", "error", err)
				}
			}()
			slog.Info("Watching database for external writes", "writer_id", sqliteStore.WriterID())
		}
	}
	store = storage.NewInstrumentedStore(store, collector)

	repos := repository.New(store, repository.Options{
		Bus:           bus,
		Metrics:       collector,
		MutateRetries: cfg.MutateRetries,
	})

	sealer, err := secrets.NewSealer(cfg.KeySecret)
	if err != nil {
		log.Fatalf("Failed to create key sealer: %v", err)
	}

	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		APIKey:  cfg.UpstreamAPIKey,
		Timeout: cfg.UpstreamTimeout,
	}, collector)
	slog.Debug("Upstream configuration", "base_url", cfg.UpstreamBaseURL, "timeout", cfg.UpstreamTimeout)

	defaults := service.AIDefaults{Provider: cfg.DefaultProvider, Model: cfg.DefaultModel}
	keys := service.NewKeyService(repos, sealer)

	// Create router with dependencies
	deps := &http.Deps{
		Projects:      service.NewProjectService(repos),
		Content:       service.NewContentService(repos, upstreamClient),
		Conversations: service.NewConversationService(repos, upstreamClient, keys, defaults),
		Insights:      service.NewInsightService(repos),
		Flashcards:    service.NewFlashcardService(repos, upstreamClient, keys, defaults),
		Keys:          keys,
		Dashboard:     service.NewDashboardService(repos),
		Teams:         upstreamClient,
		Bus:           bus,
		Commands:      commands,
		Store:         store,
		Upstream:      upstreamClient,
		Metrics:       collector,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when ctx is cancelled, so Shutdown is not held open by them
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr, "store", cfg.StoreBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
}
