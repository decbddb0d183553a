package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
)

type ImportLogUseCase struct {
	reader   ports.ImportLogReader
	renderer ports.ImportLogRenderer
	logger   *slog.Logger
}

func NewImportLogUseCase(reader ports.ImportLogReader, renderer ports.ImportLogRenderer, logger *slog.Logger) *ImportLogUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportLogUseCase{reader: reader, renderer: renderer, logger: logger}
}

func (uc *ImportLogUseCase) Recent(ctx context.Context, limit int) ([]domain.ImportLogEntry, error) {
	entries, err := uc.reader.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list import logs: %w", err)
	}
	return entries, nil
}

func (uc *ImportLogUseCase) ExportXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	entries, err := uc.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out, err := uc.renderer.RenderImportLogs(entries)
	if err != nil {
		return nil, fmt.Errorf("render import logs: %w", err)
	}

	uc.logger.Info("import_logs_exported",
		"entries", len(entries),
		"bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
