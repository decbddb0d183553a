package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

const sampleReport = `POLÍCIA MILITAR DO DISTRITO FEDERAL
BATALHÃO DE POLÍCIA MILITAR AMBIENTAL
Nº da ocorrência: 1234/2026
Data: 26/01/2026
Hora do acionamento: 14h07
Hora de chegada: 14:35

HISTÓRICO
Via CIOB, a guarnição foi acionada para resgate de animal silvestre em residência.
O morador informou que o animal estava no quintal.

DADOS COMPLEMENTARES
Coordenadas: 16.042776°S, 48.029226°W
Nome popular: Gambá
Nome científico: Didelphis albiventris
Quantidade: 3
Estágio de vida: Adulto
Estado de saúde: Saudável
Destinação: CETAS IBAMA
`

type extractorFake struct {
	result domain.ExtractionResult
	err    error
}

func (f *extractorFake) Extract(context.Context, []byte) (domain.ExtractionResult, error) {
	if f.err != nil {
		return domain.ExtractionResult{}, f.err
	}
	return f.result, nil
}

func textExtractor(text string) *extractorFake {
	return &extractorFake{result: domain.ExtractionResult{Text: text, Method: "plaintext"}}
}

type dictionaryFake struct {
	entries map[domain.ReferenceKind]domain.ReferenceEntry
	calls   int
}

func (f *dictionaryFake) Lookup(_ context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error) {
	f.calls++
	entry, ok := f.entries[kind]
	if !ok || !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(text)) {
		return nil, nil
	}
	return &entry, nil
}

func knownDictionary() *dictionaryFake {
	return &dictionaryFake{entries: map[domain.ReferenceKind]domain.ReferenceEntry{
		domain.RefSpecies:     {ID: "sp-1", Name: "Gambá-de-orelha-branca"},
		domain.RefDestination: {ID: "de-1", Name: "CETAS/IBAMA"},
		domain.RefOrigin:      {ID: "or-1", Name: "CIOB/190"},
	}}
}

type recordStoreFake struct {
	rows    []domain.RescueRow
	err     error
	panicOn bool
}

func (f *recordStoreFake) InsertRescue(_ context.Context, row domain.RescueRow) (string, error) {
	if f.panicOn {
		panic("driver exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, row)
	return row.ID, nil
}

type logStoreFake struct {
	mu      sync.Mutex
	entries []domain.ImportLogEntry
	err     error
}

func (f *logStoreFake) InsertLog(_ context.Context, entry domain.ImportLogEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	if f.err != nil {
		return "", f.err
	}
	return entry.ID, nil
}

type publisherFake struct {
	outcomes []domain.ImportOutcome
}

func (f *publisherFake) PublishImportOutcome(_ context.Context, outcome domain.ImportOutcome) error {
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

type observerFake struct {
	statuses []domain.ImportStatus
}

func (f *observerFake) ObserveImport(status domain.ImportStatus, _ time.Duration, _, _ int) {
	f.statuses = append(f.statuses, status)
}

type importHarness struct {
	uc        *ImportReportUseCase
	dict      *dictionaryFake
	records   *recordStoreFake
	logs      *logStoreFake
	publisher *publisherFake
	observer  *observerFake
}

func newImportHarness(extractor *extractorFake) *importHarness {
	h := &importHarness{
		dict:      knownDictionary(),
		records:   &recordStoreFake{},
		logs:      &logStoreFake{},
		publisher: &publisherFake{},
		observer:  &observerFake{},
	}
	h.uc = NewImportReportUseCase(ImportDeps{
		Extractor:  extractor,
		Dictionary: h.dict,
		Records:    h.records,
		Logs:       h.logs,
		Publisher:  h.publisher,
		Observer:   h.observer,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func submission() domain.Submission {
	return domain.Submission{
		FileID:     "file-1",
		FileName:   "relatorio.pdf",
		FolderID:   "folder-1",
		ModifiedAt: time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC),
		Payload:    []byte("payload"),
	}
}

func (h *importHarness) onlyLog(t *testing.T) domain.ImportLogEntry {
	t.Helper()
	if len(h.logs.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(h.logs.entries))
	}
	return h.logs.entries[0]
}

func TestImportSuccess(t *testing.T) {
	h := newImportHarness(textExtractor(sampleReport))

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportSuccess {
		t.Fatalf("expected success, got %s (%s) missing=%v", result.Status, result.Message, result.MissingFields)
	}
	if len(result.InsertedIDs) != 1 {
		t.Fatalf("expected one inserted id, got %v", result.InsertedIDs)
	}
	if h.dict.calls == 0 {
		t.Fatalf("expected reference resolution to run")
	}

	entry := h.onlyLog(t)
	if entry.Status != domain.ImportSuccess || len(entry.InsertedIDs) == 0 {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.ReportNumber != "1234/2026" || entry.ReportType != domain.ReportRescue {
		t.Fatalf("unexpected report identity: %q %q", entry.ReportNumber, entry.ReportType)
	}
	if result.LogID == "" || result.LogID != entry.ID {
		t.Fatalf("expected log id %q, got %q", entry.ID, result.LogID)
	}
	if entry.InputBytes != len("payload") {
		t.Fatalf("expected input size, got %d", entry.InputBytes)
	}

	row := h.records.rows[0]
	if row.OccurrenceDate != "2026-01-26" || row.CallTime != "14:07:00" {
		t.Fatalf("unexpected normalized row: %+v", row)
	}
	if row.Quantity != (domain.Quantity{Adult: 3, Total: 3}) {
		t.Fatalf("unexpected quantity: %+v", row.Quantity)
	}
	if row.Destination != "CETAS/IBAMA" || row.DestinationID == nil || *row.DestinationID != "de-1" {
		t.Fatalf("unexpected destination: %q %v", row.Destination, row.DestinationID)
	}
	if row.OriginID == nil || *row.OriginID != "or-1" {
		t.Fatalf("expected origin from narrative, got %v", row.OriginID)
	}

	if len(h.publisher.outcomes) != 1 || h.publisher.outcomes[0].Status != domain.ImportSuccess {
		t.Fatalf("expected one published success outcome, got %+v", h.publisher.outcomes)
	}
	if !slices.Equal(h.observer.statuses, []domain.ImportStatus{domain.ImportSuccess}) {
		t.Fatalf("unexpected observed statuses: %v", h.observer.statuses)
	}
}

func TestImportNeedsOCRSkipsGateAndResolver(t *testing.T) {
	h := newImportHarness(&extractorFake{result: domain.ExtractionResult{NeedsOCR: true}})

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportNeedsOCR {
		t.Fatalf("expected needs_ocr, got %s", result.Status)
	}
	entry := h.onlyLog(t)
	if !slices.Equal(entry.MissingFields, []string{domain.FieldExtractedText}) {
		t.Fatalf("expected empty-text marker, got %v", entry.MissingFields)
	}
	if h.dict.calls != 0 || len(h.records.rows) != 0 {
		t.Fatalf("expected no resolution or insert, got %d lookups and %d rows", h.dict.calls, len(h.records.rows))
	}
}

func TestImportWhitespaceTextIsNeedsOCR(t *testing.T) {
	h := newImportHarness(textExtractor(" \n\t "))

	result := h.uc.Import(context.Background(), submission())
	if result.Status != domain.ImportNeedsOCR {
		t.Fatalf("expected needs_ocr, got %s", result.Status)
	}
}

func TestImportMissingFieldsHasNoSideEffects(t *testing.T) {
	text := strings.Replace(sampleReport, "Data: 26/01/2026\n", "", 1)
	text = strings.Replace(text, "Nome popular: Gambá\n", "", 1)
	h := newImportHarness(textExtractor(text))

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportMissingFields {
		t.Fatalf("expected missing_required_fields, got %s", result.Status)
	}
	want := []string{domain.FieldDate, domain.FieldPopularName}
	if !slices.Equal(result.MissingFields, want) {
		t.Fatalf("MissingFields = %v, want %v", result.MissingFields, want)
	}
	if h.dict.calls != 0 || len(h.records.rows) != 0 {
		t.Fatalf("expected no side effects, got %d lookups and %d rows", h.dict.calls, len(h.records.rows))
	}
	entry := h.onlyLog(t)
	if entry.TextExcerpt == "" {
		t.Fatalf("expected text excerpt on rejected import")
	}
}

func TestImportReleaseWithoutReleaseCoordinates(t *testing.T) {
	text := strings.Replace(sampleReport, "Destinação: CETAS IBAMA", "Destinação: Soltura no local", 1)
	h := newImportHarness(textExtractor(text))

	result := h.uc.Import(context.Background(), submission())

	want := []string{domain.FieldReleaseLatitude, domain.FieldReleaseLongitude}
	if result.Status != domain.ImportMissingFields || !slices.Equal(result.MissingFields, want) {
		t.Fatalf("unexpected result: %s %v", result.Status, result.MissingFields)
	}
}

func TestImportExtractionErrorIsLogged(t *testing.T) {
	h := newImportHarness(&extractorFake{err: errors.New("malformed xref table")})

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	entry := h.onlyLog(t)
	if !strings.Contains(entry.ErrorMessage, "malformed xref table") {
		t.Fatalf("expected extraction cause in log, got %q", entry.ErrorMessage)
	}
}

func TestImportAllInsertsFailingIsError(t *testing.T) {
	h := newImportHarness(textExtractor(sampleReport))
	h.records.err = errors.New("unique violation")

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	entry := h.onlyLog(t)
	found := false
	for _, w := range entry.Warnings {
		if strings.Contains(w, "insert row 1 failed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected insert failure warning, got %v", entry.Warnings)
	}
}

func TestImportPanicStillWritesOneAuditEntry(t *testing.T) {
	h := newImportHarness(textExtractor(sampleReport))
	h.records.panicOn = true

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	entry := h.onlyLog(t)
	if !strings.Contains(entry.ErrorMessage, "driver exploded") {
		t.Fatalf("expected panic cause in log, got %q", entry.ErrorMessage)
	}
}

func TestImportAuditFailureIsNotReturned(t *testing.T) {
	h := newImportHarness(textExtractor(sampleReport))
	h.logs.err = errors.New("log table unavailable")

	result := h.uc.Import(context.Background(), submission())

	if result.Status != domain.ImportSuccess {
		t.Fatalf("expected business status to survive audit failure, got %s", result.Status)
	}
	if result.LogID != "" {
		t.Fatalf("expected empty log id, got %q", result.LogID)
	}
	h.onlyLog(t)
}

func TestImportCanceledContextStillAudits(t *testing.T) {
	h := newImportHarness(&extractorFake{result: domain.ExtractionResult{NeedsOCR: true}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.uc.Import(ctx, submission())
	h.onlyLog(t)
}

func TestImportExcerptIsBounded(t *testing.T) {
	long := sampleReport + strings.Repeat("texto adicional ", 400)
	h := newImportHarness(textExtractor(long))

	h.uc.Import(context.Background(), submission())

	entry := h.onlyLog(t)
	if n := len([]rune(entry.TextExcerpt)); n != domain.TextExcerptLimit {
		t.Fatalf("expected excerpt of %d runes, got %d", domain.TextExcerptLimit, n)
	}
}
