package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/example/campus-spots/internal/availability"
	"github.com/example/campus-spots/internal/cache"
	"github.com/example/campus-spots/internal/config"
	httptransport "github.com/example/campus-spots/internal/http"
	"github.com/example/campus-spots/internal/persistence/sqlite"
	"github.com/example/campus-spots/internal/remote"
	"github.com/example/campus-spots/internal/schedule"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "spots.yaml", "path to the YAML configuration file")
	flag.Parse()

	// A missing .env file is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	gateway, err := remote.NewClient(cfg.RemoteURL, cfg.RemoteAPIKey)
	if err != nil {
		logger.Error("failed to build remote client", "error", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using default civil zone", "timezone", cfg.Timezone, "error", err)
		location = availability.DefaultLocation()
	}
	resolver := schedule.NewResolver(availability.NewNormalizer(location))

	buildingRepo := sqlite.NewBuildingRepository(storage)
	termRepo := sqlite.NewTermRepository(storage)

	service := cache.NewService(gateway, buildingRepo, termRepo, logger,
		cache.WithResolver(resolver),
		cache.WithBatchSize(cfg.BatchSize),
		cache.WithPageSize(cfg.PageSize),
		cache.WithFreshness(cfg.Freshness.Std()),
	)

	buildingHandler := httptransport.NewBuildingHandler(service, logger)
	cacheHandler := httptransport.NewCacheHandler(service, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Buildings:  buildingHandler,
		Cache:      cacheHandler,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	// Warm the cache before the listener comes up so first reads have data.
	go refresh(ctx, service, logger)

	var scheduler *cron.Cron
	if cfg.RefreshCron != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
			refresh(ctx, service, logger)
		}); err != nil {
			logger.Error("invalid refresh schedule", "schedule", cfg.RefreshCron, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("campus-spots API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// refresh runs one full synchronization pass: the term table first, then the
// building listing merge. Failures are logged and retried on the next tick.
func refresh(ctx context.Context, service *cache.Service, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := service.UpdateTermsCache(ctx); err != nil {
		logger.Error("term refresh failed", "error", err, "error_kind", cache.ErrorKind(err))
	}
	if err := service.Refresh(ctx); err != nil {
		logger.Error("building refresh failed", "error", err, "error_kind", cache.ErrorKind(err))
	}
}
