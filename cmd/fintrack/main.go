package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	appLogger := applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentHTTP})
	srv := apphttp.NewServer(apphttp.Config{
		Addr:                ":" + cfg.Port,
		LegacyEmptyNotFound: cfg.LegacyEmptyNotFound,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
	}, res.Service, appLogger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", cfg.AMQPURL != "",
			"legacy_empty_not_found", cfg.LegacyEmptyNotFound)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
