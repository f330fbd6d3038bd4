package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"coursehub/internal/cache"
	"coursehub/internal/config"
	"coursehub/internal/db"
	"coursehub/internal/http/router"
	"coursehub/internal/jobs"
	"coursehub/internal/log"
	"coursehub/internal/metrics"
	"coursehub/internal/service"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// setup loads configuration and opens the database shared by every command.
func setup(opts *options) (*config.Config, *db.DB, zerolog.Logger, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, zerolog.Nop(), err
	}
	logger := log.New(cfg.Environment)
	if err != nil {
		logger.Warn().Str("file", opts.configFile).Msg("config file not found, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, logger, fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.Init(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("initialize database: %w", err)
	}

	return cfg, database, logger, nil
}

func runServe(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, database, logger, err := setup(opts)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer database.Close()
	logger.Info().Str("config", cfg.String()).Msg("configuration loaded")

	var courseCache service.CourseCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, course cache disabled")
		} else {
			courseCache = cache.NewCourseCache(redisClient, cfg.CacheTTL, logger)
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	deps, err := router.NewDeps(cfg, database, courseCache, m, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build handlers failed")
		return err
	}

	scheduler := jobs.NewScheduler(deps.Sessions, cfg.SessionSweep, m, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
			<-scheduler.Stop().Done()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		srv.Close()
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler did not stop in time")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
	return nil
}
