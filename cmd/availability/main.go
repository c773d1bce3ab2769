package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kenlai212/booking-api-sub001/internal/api"
	"github.com/kenlai212/booking-api-sub001/internal/config"
	"github.com/kenlai212/booking-api-sub001/internal/db"
	"github.com/kenlai212/booking-api-sub001/internal/events"
	"github.com/kenlai212/booking-api-sub001/internal/metrics"
	"github.com/kenlai212/booking-api-sub001/internal/mongostore"
	"github.com/kenlai212/booking-api-sub001/internal/remoteapi"
	"github.com/kenlai212/booking-api-sub001/internal/repository"
	"github.com/kenlai212/booking-api-sub001/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("AVAILABILITY_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && cfg.Logging.Level != "" {
		logger = logger.Level(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus(&logger)

	var (
		repo     repository.OccupancyRepository
		database *db.DB
	)
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.MongoTimeout(), &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect mongo error")
		}
		logger.Warn().Msg("occupancy audit trail is recorded only with sqlite storage")
		repo = store
	default:
		database, err = db.NewDB(cfg.Database.Path, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open db error")
		}
		database.SubscribeAudit(bus)
		repo = database
	}
	defer repo.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	assets, err := cfg.LoadAssets()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load assets config")
	}
	registry := config.NewAssetRegistry(assets)
	logger.Info().Str("assets", assets.String()).Msg("assets config loaded")

	if err := config.WatchAssets(ctx, cfg.AssetsConfigPath, cfg.AssetsWatchInterval(), &logger, func(updated *config.AssetsConfig) {
		registry.Set(updated)
		logger.Info().Time("reloaded_at", time.Now()).Str("assets", updated.String()).Msg("assets config reloaded")
	}); err != nil {
		logger.Error().Err(err).Msg("assets watch failed")
	}

	svc := service.NewOccupancyService(repo, bus, &logger)
	server := api.NewHTTPServer(cfg, registry, repo, svc, rdb, &logger)

	if cfg.Remote.OccupancyEnabled || cfg.Remote.PricingEnabled {
		client := remoteapi.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey)
		if rdb != nil && cfg.CacheTTL() > 0 {
			client.UseRedisCache(rdb, cfg.CacheTTL())
			client.SubscribeInvalidation(bus)
		}
		if err := client.HealthCheck(ctx); err != nil {
			logger.Warn().Err(err).Str("base_url", cfg.Remote.BaseURL).Msg("remote api health check failed")
		}
		if cfg.Remote.OccupancyEnabled {
			server.UseRemoteOccupancy(client)
		}
		if cfg.Remote.PricingEnabled {
			server.UseRemotePricer(client)
		}
	}

	if cfg.Monitoring.HealthCheckPort > 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, server, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled && database != nil {
		go startBackupLoop(ctx, database, cfg, &logger)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("storage", cfg.Storage.Driver).Msg("availability service started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("http server error")
	}
}

func startBackupLoop(ctx context.Context, database *db.DB, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(ctx, database, cfg, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(ctx, database, cfg, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, database *db.DB, cfg *config.Config, retention time.Duration, logger *zerolog.Logger) {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("availability_%s.db", timestamp))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := database.BackupContext(ctx, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := database.CleanupBackups(cfg.Backup.Path, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, server *api.HTTPServer, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	server.RegisterHealth(mux)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
