package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sam-calculator/internal/calculator"
	"sam-calculator/internal/config"
	"sam-calculator/internal/observability"
	"sam-calculator/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the calculator HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	serveCmd.Flags().StringVar(&envFile, "env-file", envFile, "dotenv file loaded before the config")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logger
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		return err
	}
	defer observability.SyncLogger()

	// Tracing, metrics and OTLP logs
	if cfg.Telemetry {
		shutdown, err := initTelemetry(ctx)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				observability.Logger.Warn("telemetry shutdown", zap.Error(err))
			}
		}()
	} else if err := calculator.InitMetrics(); err != nil {
		return err
	}

	store := calculator.NewStore(calculator.StoreOptions{
		MaxSessions: cfg.MaxSessions,
		TTL:         cfg.SessionTTL,
		Logger:      observability.Logger,
	})
	go store.Run(ctx, sweepInterval)

	reg, err := observability.NewRegistry(store.Collector())
	if err != nil {
		return err
	}

	// Router
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(store, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.Bool("telemetry", cfg.Telemetry),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	return waitForShutdown(srv, cfg.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, timeout time.Duration) error {
	observability.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
