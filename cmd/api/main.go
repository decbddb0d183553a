package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/http"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/http/contract"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/bootstrap"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/config"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	logger := app.Logger

	if cfg.ImportSharedSecret == "" {
		logger.Warn("import_secret_missing", "detail", "IMPORT_SHARED_SECRET is empty; import endpoints will answer 500")
	}

	validator, err := contract.NewValidator(ctx)
	if err != nil {
		log.Fatalf("openapi contract error: %v", err)
	}

	router := httpadapter.NewRouter(app.Importer, app.Logs, httpadapter.Options{
		Service:         "api",
		SharedSecret:    cfg.ImportSharedSecret,
		MaxPayloadBytes: cfg.ImportMaxPayloadBytes,
		RateLimitRPS:    cfg.APIRateLimitRPS,
		RateLimitBurst:  cfg.APIRateLimitBurst,
		MaxInFlight:     cfg.APIMaxInFlight,
		ExportLimit:     cfg.LogExportMaxEntries,
		Contract:        validator,
		Metrics:         app.HTTPMetrics,
		Logger:          logger,
	}).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.APIRequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatalf("api listen error: %v", err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "max_connections", cfg.APIMaxConnections)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
