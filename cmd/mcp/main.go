package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/mcp"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/bootstrap"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/config"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/observability/logging"
)

const version = "1.0.0"

// Stdout carries the MCP protocol, so logs go to stderr.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, "mcp", cfg.LogLevel)
	app, err := bootstrap.NewWithLogger(ctx, cfg, "mcp", logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Importer, app.Logs, cfg.ImportMaxPayloadBytes, logger)
	stdio := server.NewStdioServer(tools.Server(version))
	stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))

	logger.Info("mcp_serving_stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp_server_failed", "error", err)
	}
}
