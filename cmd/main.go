package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glassflow/shopify-shops-etl/internal/api"
	"github.com/glassflow/shopify-shops-etl/internal/app"
	"github.com/glassflow/shopify-shops-etl/internal/config"
	"github.com/glassflow/shopify-shops-etl/internal/logging"
	"github.com/glassflow/shopify-shops-etl/internal/scheduler"
	"github.com/glassflow/shopify-shops-etl/internal/server"
)

//nolint:gochecknoglobals,revive // build variables
var (
	commit string = "unspecified"
	name   string = "shopify-shops-etl"
)

func main() {
	cfg, err := config.Load(os.Getenv("SHOPS_CONFIG_FILE"))
	if err != nil {
		slog.Error("unable to parse config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logging.New(os.Stdout, logging.Options{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		AddSource: cfg.LogAddSource,
		App:       name,
		Commit:    commit,
	})

	if err := mainErr(&cfg, log); err != nil {
		log.Error("Service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("Service terminated gracefully")
}

func mainErr(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, *cfg, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close connections", slog.Any("error", err))
		}
	}()

	sched, err := scheduler.New(cfg.Service.Schedule, func(ctx context.Context) error {
		_, err := a.Run(ctx)
		return err //nolint:wrapcheck // logged by the scheduler
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	apiServer := server.New(server.Config{
		Addr:         cfg.Service.ServerAddr,
		ReadTimeout:  cfg.Service.ServerReadTimeout.Std(),
		WriteTimeout: cfg.Service.ServerWriteTimeout.Std(),
		IdleTimeout:  cfg.Service.ServerIdleTimeout.Std(),
	}, api.NewRouter(log, a.Store(), a.Registry(), sched), log)

	if err := apiServer.Listen(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Serve()
	}()

	sched.Start(ctx)
	if cfg.Service.RunOnStart {
		go sched.Trigger(ctx)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		cancel()
		if stopErr := sched.Stop(context.Background()); stopErr != nil {
			log.Error("failed to stop scheduler", slog.Any("error", stopErr))
		}
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-shutdown:
		log.Info("Received termination signal - service will shutdown")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Service.ServerShutdownTimeout.Std())
		defer stopCancel()

		cancel()
		if err := sched.Stop(stopCtx); err != nil {
			log.Error("failed to stop scheduler", slog.Any("error", err))
		}

		if err := apiServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	}
}
