package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/signalbot/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signalbot HTTP server",
	Long: `Serve the analysis API. When run.refresh is set, the configured symbols
are re-analyzed on that interval and alerts fire for new bars only.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	rt, err := setup(cfg, log)
	if err != nil {
		return err
	}

	log.Info("starting signalbot server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Collector.Provider),
		zap.Duration("refresh", cfg.Run.Refresh),
	)

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    cfg.Metrics.Path,
	}, api.Dependencies{
		App:      rt.app,
		Reports:  rt.app.Store(),
		Archiver: rt.archiver,
		Metrics:  rt.metrics,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if cfg.Run.Refresh > 0 {
		go func() {
			if err := rt.app.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("refresh loop stopped", zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down signalbot server")
	rt.app.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
