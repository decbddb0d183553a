package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/config"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/usecase"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/cache/reference"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/queue/nats"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/observability/logging"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/observability/metrics"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/rules"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Bus           *nats.Bus
	HTTPMetrics   *metrics.HTTPServerMetrics
	ImportMetrics *metrics.ImportMetrics

	Importer ports.ReportImporter
	Logs     ports.ImportLogQuery

	closeFn func()
}

// New wires the import pipeline for one process. service names the process
// in logs and metrics.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	return NewWithLogger(ctx, cfg, service, logging.NewJSONLogger(service, cfg.LogLevel))
}

// NewWithLogger is New for processes that cannot log to stdout.
func NewWithLogger(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resiliencePolicy(cfg), logger)

	bus, err := nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
		Submissions: cfg.NATSSubject,
		QueueGroup:  cfg.NATSQueueGroup,
		Outcomes:    cfg.NATSOutcomeSubject,
	}, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message bus: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	importMetrics := metrics.NewImportMetrics(service, httpMetrics.Registry())

	importLogs := postgres.NewImportLogRepository(db, executor)
	importer := usecase.NewImportReportUseCase(usecase.ImportDeps{
		Extractor:  pdf.NewExtractor(cfg.ImportMinTextChars, logger),
		Dictionary: reference.NewCachedDictionary(postgres.NewReferenceRepository(db, executor), cfg.ReferenceCacheTTL),
		Records:    postgres.NewRescueRepository(db, executor),
		Logs:       importLogs,
		Rules:      ruleSet,
		Publisher:  bus,
		Observer:   importMetrics,
		Logger:     logger,
	})
	logQuery := usecase.NewImportLogUseCase(importLogs, xlsx.NewImportLogRenderer(time.Local), logger)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Bus:           bus,
		HTTPMetrics:   httpMetrics,
		ImportMetrics: importMetrics,
		Importer:      importer,
		Logs:          logQuery,
		closeFn: func() {
			bus.Close()
			closeDB(db, logger)
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resiliencePolicy(cfg config.Config) resilience.Policy {
	policy := resilience.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		policy.Attempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		policy.InitialBackoff = cfg.RetryInitialBackoff
	}
	policy.Breaker.Enabled = cfg.BreakerEnabled
	return policy
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("postgres_close_failed", "error", err)
	}
}
