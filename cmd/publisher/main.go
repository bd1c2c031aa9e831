package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gateway-fm/crl-publisher/internal/cache"
	"github.com/gateway-fm/crl-publisher/internal/config"
	"github.com/gateway-fm/crl-publisher/internal/crl"
	"github.com/gateway-fm/crl-publisher/internal/freeze"
	publisherhealth "github.com/gateway-fm/crl-publisher/internal/health"
	"github.com/gateway-fm/crl-publisher/internal/metrics"
	"github.com/gateway-fm/crl-publisher/internal/store"
	"github.com/gateway-fm/crl-publisher/internal/summary"
)

func main() {
	// Configuration flags
	configPath := flag.String("config", "", "Path to TOML config file")
	httpAddr := flag.String("http", "", "HTTP server address (overrides config)")
	storeBackend := flag.String("store", "", "Store backend: sqlite or s3 (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	adminAPIKey := flag.String("admin-api-key", "", "API key for the freeze/unfreeze endpoints")
	sweepInterval := flag.String("sweep-interval", "", "How often to sweep for stale summaries (e.g. 15m)")
	flag.Parse()

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *storeBackend != "" {
		cfg.Store.Backend = *storeBackend
	}
	if *dbPath != "" {
		cfg.Store.SqlitePath = *dbPath
	}
	if *adminAPIKey != "" {
		cfg.Admin.APIKey = *adminAPIKey
	}
	if *sweepInterval != "" {
		interval, err := time.ParseDuration(*sweepInterval)
		if err != nil {
			log.Fatalf("Invalid sweep interval: %v", err)
		}
		cfg.Summary.SweepInterval = config.Duration(interval)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Admin.APIKey == "" {
		slog.Error("no admin API key provided - cannot start")
		return
	}
	adminKeyHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.APIKey), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin API key: %v", err)
	}

	// Initialize the backing object store
	objects, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			slog.Error("failed to close object store", "err", closeErr)
		}
	}()

	// Initialize the response cache
	responses, closeCache, err := buildCache(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize response cache: %v", err)
	}
	defer func() {
		if closeErr := closeCache(); closeErr != nil {
			slog.Error("failed to close response cache", "err", closeErr)
		}
	}()

	coherency := cache.NewCoherency(responses)
	projector := summary.NewProjector(objects, coherency)

	artifactPrefixes := []string{crl.PrefixCA, crl.PrefixCRL, crl.PrefixDelta}
	updater := metrics.NewUpdater(objects, artifactPrefixes)
	updater.Start(ctx)
	updater.Trigger()

	service := crl.NewService(objects, responses, coherency, projector, updater, crl.Options{
		ListTTL: cfg.Cache.ListTTL.Std(),
		MetaTTL: cfg.Cache.MetaTTL.Std(),
	})

	freezeSwitch := freeze.New(freeze.Config{
		Threshold: cfg.Admin.FreezeThreshold,
		Window:    cfg.Admin.FreezeWindow.Std(),
	})

	// Create health service with root context
	healthService := publisherhealth.NewService(ctx)

	// Start the summary sweep scheduler
	scheduler, err := summary.NewScheduler(ctx, projector, artifactPrefixes, cfg.Summary.SweepInterval.Std())
	if err != nil {
		log.Fatalf("Failed to create summary scheduler: %v", err)
	}
	go scheduler.Start()

	// Register HTTP handlers
	apiServer := crl.NewAPIServer(service, freezeSwitch, adminKeyHash)
	apiServer.RegisterHandlers()

	healthApi := publisherhealth.NewApi(healthService)
	healthApi.RegisterHandlers()

	metrics.WireUpHTTPMetrics()

	// Start HTTP server with cancellation context
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: http.DefaultServeMux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		slog.Info("http server listening", "address", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("received shutdown signal")
	case <-ctx.Done():
		slog.Info("context cancelled")
	}

	slog.Info("shutting down...")

	// Cancel the root context to signal all components
	cancel()

	// Give the scheduler and updater a moment to react to cancellation
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Graceful shutdown of the HTTP server: waits for in-flight uploads
	// to finish their commit and cache invalidation.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg *config.Config) (store.ObjectStore, func() error, error) {
	switch cfg.Store.Backend {
	case "s3":
		s3Store, err := store.NewS3Store(ctx, cfg.Store.S3Bucket, cfg.Store.S3Region)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using s3 object store", "bucket", cfg.Store.S3Bucket, "region", cfg.Store.S3Region)
		return s3Store, func() error { return nil }, nil
	default:
		sqliteStore, err := store.NewSqliteStore(cfg.Store.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using sqlite object store", "path", cfg.Store.SqlitePath)
		return sqliteStore, sqliteStore.Close, nil
	}
}

func buildCache(ctx context.Context, cfg *config.Config) (cache.ResponseCache, func() error, error) {
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Address:   cfg.Cache.RedisAddress,
			Password:  cfg.Cache.RedisPassword,
			Database:  cfg.Cache.RedisDatabase,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis response cache", "address", cfg.Cache.RedisAddress)
		return redisCache, redisCache.Close, nil
	default:
		slog.Info("using in-memory response cache")
		return cache.NewMemoryCache(), func() error { return nil }, nil
	}
}
