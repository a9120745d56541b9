package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shortstrade/feedcore/internal/api"
	"github.com/shortstrade/feedcore/internal/auth"
	"github.com/shortstrade/feedcore/internal/config"
	"github.com/shortstrade/feedcore/internal/engine"
	"github.com/shortstrade/feedcore/internal/feed"
	"github.com/shortstrade/feedcore/internal/inject"
	"github.com/shortstrade/feedcore/internal/metrics"
	"github.com/shortstrade/feedcore/internal/scheduler"
	"github.com/shortstrade/feedcore/internal/snapshot"
	"github.com/shortstrade/feedcore/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedcore.local.yaml", "path to config file")
	session := flag.String("session", "", "session id for snapshot restore (default: instance id)")
	flag.Parse()

	// Env vars referenced by the config file may live in a local .env
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedcore",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *session == "" {
		*session = cfg.Instance.ID
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"snapshot_backend", cfg.Snapshot.Backend,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open the snapshot store
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Create API client
	apiOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	}
	if cfg.API.APIKey != "" {
		creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithCredentials(creds))
	}
	client := api.NewClient(cfg.API.BaseURL, apiOpts...)

	m := metrics.New()

	// Assemble the engine
	engCfg := engine.DefaultConfig()
	engCfg.Session = *session
	engCfg.Scheduler = scheduler.Config{Concurrency: cfg.Scheduler.Concurrency}
	engCfg.Queue = feed.QueueConfig{
		LowWaterMark: cfg.Queue.LowWaterMark,
		BatchSize:    cfg.Queue.BatchSize,
		InjectWindow: cfg.Queue.InjectWindow,
	}
	engCfg.EmbedTimeout = cfg.Embed.ReadyTimeout

	eng := engine.New(engCfg, client, store, m, logger)

	// Serve health and metrics
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: newHTTPHandler(cfg.Metrics.Path, eng, m),
	}
	go func() {
		logger.Info("starting http server", "port", cfg.Metrics.Port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// Side-channel subscriber is optional
	var sub *inject.Subscriber
	if cfg.Inject.WSURL != "" {
		sub = inject.NewSubscriber(inject.SubscriberConfig{
			URL:                cfg.Inject.WSURL,
			APIKey:             cfg.API.APIKey,
			ReconnectBaseDelay: cfg.Inject.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.Inject.ReconnectMaxDelay,
			PingTimeout:        cfg.Inject.ReadTimeout,
		}, eng, logger)
		if err := sub.Start(ctx); err != nil {
			logger.Warn("injection subscriber unavailable", "error", err)
			sub = nil
		}
	}

	logger.Info("feedcore running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if sub != nil {
		sub.Stop()
	}
	eng.Stop(shutdownCtx)
	srv.Shutdown(shutdownCtx)

	logger.Info("feedcore stopped")
}

// openStore selects the snapshot backend from config.
func openStore(ctx context.Context, cfg *config.EngineConfig) (snapshot.Store, error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		return snapshot.NewRedisStore(ctx, cfg.Snapshot.Redis, cfg.Snapshot.TTL)
	case "postgres":
		return snapshot.NewPostgresStore(ctx, cfg.Snapshot.Postgres)
	default:
		return snapshot.NewMemoryStore(), nil
	}
}

// newHTTPHandler serves health, metrics and a queue debug view.
func newHTTPHandler(metricsPath string, eng *engine.Engine, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, m.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		items := eng.Items()

		health := struct {
			Status       string `json:"status"`
			QueueLength  int    `json:"queue_length"`
			CurrentIndex int    `json:"current_index"`
		}{
			Status:       "healthy",
			QueueLength:  len(items),
			CurrentIndex: eng.CurrentIndex(),
		}
		if len(items) == 0 {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/queue", func(w http.ResponseWriter, r *http.Request) {
		items := eng.Items()

		// Limit to first 100 for debugging
		limit := 100
		showing := items
		if len(showing) > limit {
			showing = showing[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   len(items),
			"showing": len(showing),
			"items":   showing,
		})
	})

	return mux
}
