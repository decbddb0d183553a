package ports

import (
	"context"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

// TextExtractor recovers text from a binary document, or reports that the
// document needs OCR. Only undecodable input returns an error.
type TextExtractor interface {
	Extract(ctx context.Context, payload []byte) (domain.ExtractionResult, error)
}

// ReferenceDictionary performs case-insensitive substring lookups against the
// reference tables. A miss returns (nil, nil).
type ReferenceDictionary interface {
	Lookup(ctx context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error)
}

// RecordStore inserts rescue rows one at a time.
type RecordStore interface {
	InsertRescue(ctx context.Context, row domain.RescueRow) (string, error)
}

// ImportLogStore persists audit entries. It is insert-only.
type ImportLogStore interface {
	InsertLog(ctx context.Context, entry domain.ImportLogEntry) (string, error)
}

// ImportLogReader lists audit entries, newest first.
type ImportLogReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ImportLogEntry, error)
}

// ImportLogRenderer turns audit entries into a spreadsheet.
type ImportLogRenderer interface {
	RenderImportLogs(entries []domain.ImportLogEntry) ([]byte, error)
}

// OutcomePublisher announces finished imports.
type OutcomePublisher interface {
	PublishImportOutcome(ctx context.Context, outcome domain.ImportOutcome) error
}

// ImportObserver receives per-import measurements.
type ImportObserver interface {
	ObserveImport(status domain.ImportStatus, duration time.Duration, inputBytes, warnings int)
}
