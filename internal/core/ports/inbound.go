package ports

import (
	"context"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

// ReportImporter is the inbound contract for importing one source document.
// Every business outcome, failures included, is carried by the result.
type ReportImporter interface {
	Import(ctx context.Context, submission domain.Submission) *domain.ImportResult
}

// ImportLogQuery serves past import outcomes to operators.
type ImportLogQuery interface {
	Recent(ctx context.Context, limit int) ([]domain.ImportLogEntry, error)
	ExportXLSX(ctx context.Context, limit int) ([]byte, error)
}
