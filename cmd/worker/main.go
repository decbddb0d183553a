package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/bootstrap"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/config"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	logger := app.Logger

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.ImportMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	err = app.Bus.SubscribeSubmissions(ctx, cfg.ImportMaxPayloadBytes, func(handlerCtx context.Context, sub domain.Submission) any {
		done := app.ImportMetrics.StartImport()
		defer done()
		app.ImportMetrics.ObserveSubmissionLag(sub.ModifiedAt)

		importCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		return app.Importer.Import(importCtx, sub)
	})
	if err != nil {
		return fmt.Errorf("subscribe submissions: %w", err)
	}
	logger.Info("worker_stopped")
	return nil
}
