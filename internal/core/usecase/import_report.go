package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/fieldparser"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/normalize"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/resolver"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/validation"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/rules"
)

// ImportReportUseCase sequences extraction, parsing, normalization,
// validation, resolution and persistence for one submission and writes
// exactly one audit entry whatever the outcome.
type ImportReportUseCase struct {
	extractor  ports.TextExtractor
	parser     *fieldparser.Parser
	normalizer *normalize.Normalizer
	resolver   *resolver.Resolver
	records    ports.RecordStore
	audit      *AuditLogger
	publisher  ports.OutcomePublisher
	observer   ports.ImportObserver
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

type ImportDeps struct {
	Extractor  ports.TextExtractor
	Dictionary ports.ReferenceDictionary
	Records    ports.RecordStore
	Logs       ports.ImportLogStore
	Rules      *rules.Set

	// Publisher and Observer are optional.
	Publisher ports.OutcomePublisher
	Observer  ports.ImportObserver
	Logger    *slog.Logger
}

func NewImportReportUseCase(deps ImportDeps) *ImportReportUseCase {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	set := deps.Rules
	if set == nil {
		set = rules.Default()
	}
	return &ImportReportUseCase{
		extractor:  deps.Extractor,
		parser:     fieldparser.New(set),
		normalizer: normalize.New(set),
		resolver:   resolver.New(deps.Dictionary, set),
		records:    deps.Records,
		audit:      NewAuditLogger(deps.Logs, logger),
		publisher:  deps.Publisher,
		observer:   deps.Observer,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// importRun accumulates the state of one submission until it is logged.
type importRun struct {
	entry   domain.ImportLogEntry
	message string
}

func newImportRun(sub domain.Submission) *importRun {
	entry := domain.ImportLogEntry{
		FileID:        sub.FileID,
		FileName:      sub.FileName,
		FolderID:      sub.FolderID,
		MissingFields: []string{},
		Warnings:      []string{},
		InsertedIDs:   []string{},
		InputBytes:    len(sub.Payload),
	}
	if !sub.ModifiedAt.IsZero() {
		modified := sub.ModifiedAt.UTC()
		entry.ModifiedAt = &modified
	}
	return &importRun{entry: entry}
}

func (r *importRun) terminate(status domain.ImportStatus, message string) {
	r.entry.Status = status
	r.message = message
}

func (r *importRun) fail(message string, err error) {
	r.terminate(domain.ImportError, message)
	if err != nil {
		r.entry.ErrorMessage = err.Error()
	}
}

func (uc *ImportReportUseCase) Import(ctx context.Context, sub domain.Submission) *domain.ImportResult {
	start := uc.now()
	run := newImportRun(sub)

	uc.runPipeline(ctx, sub, run)

	return uc.finish(ctx, run, uc.now().Sub(start))
}

func (uc *ImportReportUseCase) runPipeline(ctx context.Context, sub domain.Submission, run *importRun) {
	defer func() {
		if r := recover(); r != nil {
			run.fail("unexpected failure while importing report", fmt.Errorf("panic: %v", r))
		}
	}()

	text, ok := uc.extractText(ctx, sub, run)
	if !ok {
		return
	}

	bag := uc.parser.Parse(text)
	run.entry.ReportNumber = strings.TrimSpace(bag.ReportNumber)
	run.entry.ReportType = bag.ReportType

	record := uc.normalizer.Record(bag)

	outcome := validation.Check(record)
	if !outcome.Valid {
		run.entry.MissingFields = outcome.Missing
		run.terminate(domain.ImportMissingFields, "missing required fields: "+strings.Join(outcome.Missing, ", "))
		return
	}

	resolved := uc.resolver.Resolve(ctx, record)
	run.entry.Warnings = append(run.entry.Warnings, resolved.Warnings...)

	uc.insertRows(ctx, uc.candidateRows(sub, resolved), run)
}

func (uc *ImportReportUseCase) extractText(ctx context.Context, sub domain.Submission, run *importRun) (string, bool) {
	result, err := uc.extractor.Extract(ctx, sub.Payload)
	if err != nil {
		run.fail("text extraction failed", domain.WrapError(domain.ErrExtraction, "extract text", err))
		return "", false
	}

	text := strings.TrimSpace(result.Text)
	if result.NeedsOCR || text == "" {
		run.entry.MissingFields = []string{domain.FieldExtractedText}
		run.terminate(domain.ImportNeedsOCR, "document has no machine-readable text and must go through OCR")
		return "", false
	}

	run.entry.TextExcerpt = domain.Excerpt(text)
	return text, true
}

// candidateRows expands a resolved record into the rows to insert. A report
// currently yields exactly one row.
func (uc *ImportReportUseCase) candidateRows(sub domain.Submission, rec domain.ResolvedRecord) []domain.RescueRow {
	return []domain.RescueRow{{
		ID:               uc.newID(),
		SourceFileID:     sub.FileID,
		ReportNumber:     rec.ReportNumber,
		ReportType:       rec.ReportType,
		OccurrenceDate:   rec.Date,
		CallTime:         rec.CallTime,
		ArrivalTime:      rec.ArrivalTime,
		EndTime:          rec.EndTime,
		CustodyTime:      rec.CustodyTime,
		OriginLatitude:   rec.OriginLatitude,
		OriginLongitude:  rec.OriginLongitude,
		ReleaseLatitude:  rec.ReleaseLatitude,
		ReleaseLongitude: rec.ReleaseLongitude,
		PopularName:      rec.PopularName,
		ScientificName:   rec.ScientificName,
		Quantity:         rec.Quantity,
		Destination:      rec.Destination,
		DeliveryReason:   rec.DeliveryReason,
		Circumstance:     rec.Circumstance,
		Narrative:        rec.Narrative,
		SpeciesID:        rec.SpeciesID,
		DestinationID:    rec.DestinationID,
		OriginID:         rec.OriginID,
		HealthStateID:    rec.HealthStateID,
		LifeStageID:      rec.LifeStageID,
		OutcomeID:        rec.OutcomeID,
	}}
}

// insertRows inserts every candidate independently. A failed row becomes a
// warning and does not stop the others.
func (uc *ImportReportUseCase) insertRows(ctx context.Context, rows []domain.RescueRow, run *importRun) {
	for i, row := range rows {
		id, err := uc.records.InsertRescue(ctx, row)
		if err != nil {
			run.entry.Warnings = append(run.entry.Warnings, fmt.Sprintf("insert row %d failed: %v", i+1, err))
			continue
		}
		run.entry.InsertedIDs = append(run.entry.InsertedIDs, id)
	}

	if len(run.entry.InsertedIDs) == 0 {
		run.fail("no rows were inserted", fmt.Errorf("all %d candidate rows failed to insert", len(rows)))
		return
	}
	run.terminate(domain.ImportSuccess, fmt.Sprintf("%d row(s) inserted", len(run.entry.InsertedIDs)))
}

func (uc *ImportReportUseCase) finish(ctx context.Context, run *importRun, elapsed time.Duration) *domain.ImportResult {
	if run.entry.Status == "" {
		run.fail("import ended without a terminal status", nil)
	}
	run.entry.ID = uc.newID()
	run.entry.DurationMS = elapsed.Milliseconds()
	run.entry.CreatedAt = uc.now().UTC()

	logID := uc.audit.Write(ctx, run.entry)

	result := &domain.ImportResult{
		Status:        run.entry.Status,
		Message:       run.message,
		LogID:         logID,
		InsertedIDs:   run.entry.InsertedIDs,
		MissingFields: run.entry.MissingFields,
		Warnings:      run.entry.Warnings,
	}

	attrs := []any{
		"file_id", run.entry.FileID,
		"report_number", run.entry.ReportNumber,
		"status", string(result.Status),
		"log_id", logID,
		"inserted", len(result.InsertedIDs),
		"warnings", len(result.Warnings),
		"duration_ms", run.entry.DurationMS,
	}
	if run.entry.Status == domain.ImportError {
		uc.logger.Error("import_finished", append(attrs, "error", run.entry.ErrorMessage)...)
	} else {
		uc.logger.Info("import_finished", attrs...)
	}

	if uc.observer != nil {
		uc.observer.ObserveImport(result.Status, elapsed, run.entry.InputBytes, len(result.Warnings))
	}
	uc.publishOutcome(ctx, run, logID)

	return result
}

func (uc *ImportReportUseCase) publishOutcome(ctx context.Context, run *importRun, logID string) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishImportOutcome(context.WithoutCancel(ctx), domain.ImportOutcome{
		LogID:       logID,
		FileID:      run.entry.FileID,
		Status:      run.entry.Status,
		InsertedIDs: run.entry.InsertedIDs,
		OccurredAt:  run.entry.CreatedAt,
	})
	if err != nil {
		uc.logger.Warn("import_outcome_publish_failed", "file_id", run.entry.FileID, "error", err)
	}
}
