package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
		_ = db.Close()
	}
}

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Policy{
		Attempts:       3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, nil)
}

func ptr[T any](v T) *T {
	return &v
}

func sampleRow() domain.RescueRow {
	return domain.RescueRow{
		ID:              "row-1",
		SourceFileID:    "file-1",
		ReportNumber:    "1234/2026",
		ReportType:      domain.ReportRescue,
		OccurrenceDate:  "2026-01-26",
		CallTime:        "14:07:00",
		OriginLatitude:  ptr(-16.042776),
		OriginLongitude: ptr(-48.029226),
		PopularName:     "Gambá",
		Quantity:        domain.Quantity{Adult: 3, Total: 3},
		Destination:     "CETAS/IBAMA",
		SpeciesID:       ptr("sp-1"),
	}
}

func TestInsertRescueWritesNullsForAbsentValues(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewRescueRepository(db, testExecutor())
	row := sampleRow()

	mock.ExpectExec("INSERT INTO rescue_records").
		WithArgs(
			"row-1", "file-1", "1234/2026", "rescue", "2026-01-26",
			"14:07:00", nil, nil, nil,
			-16.042776, -48.029226, nil, nil,
			"Gambá", nil,
			3, 0, 0, 3,
			"CETAS/IBAMA", nil, nil, nil,
			"sp-1", nil, nil, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.InsertRescue(context.Background(), row)
	if err != nil {
		t.Fatalf("InsertRescue() error = %v", err)
	}
	if id != "row-1" {
		t.Fatalf("expected row id, got %q", id)
	}
}

func TestInsertRescueRetriesConnectionFailure(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewRescueRepository(db, testExecutor())

	mock.ExpectExec("INSERT INTO rescue_records").WillReturnError(&pgconn.PgError{Code: "08006"})
	mock.ExpectExec("INSERT INTO rescue_records").WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := repo.InsertRescue(context.Background(), sampleRow()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestInsertRescueConstraintViolationIsPermanent(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewRescueRepository(db, testExecutor())

	mock.ExpectExec("INSERT INTO rescue_records").WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.InsertRescue(context.Background(), sampleRow())
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("constraint violation must not be temporary: %v", err)
	}
}

func TestInsertLogStoresListsAsJSON(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewImportLogRepository(db, testExecutor())

	created := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)
	entry := domain.ImportLogEntry{
		ID:            "log-1",
		FileID:        "file-1",
		FileName:      "relatorio.pdf",
		Status:        domain.ImportMissingFields,
		MissingFields: []string{domain.FieldDate},
		DurationMS:    12,
		InputBytes:    2048,
		CreatedAt:     created,
	}

	mock.ExpectExec("INSERT INTO import_logs").
		WithArgs(
			"log-1", "file-1", "relatorio.pdf", nil, nil, nil, nil, "missing_required_fields",
			[]byte(`["occurrence_date"]`), []byte(`[]`), nil, nil, []byte(`[]`),
			int64(12), 2048, created,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.InsertLog(context.Background(), entry)
	if err != nil {
		t.Fatalf("InsertLog() error = %v", err)
	}
	if id != "log-1" {
		t.Fatalf("expected log id, got %q", id)
	}
}

func TestListRecentDecodesEntries(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewImportLogRepository(db, testExecutor())

	created := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "file_id", "file_name", "folder_id", "modified_at", "report_number", "report_type", "status",
		"missing_fields", "warnings", "error_message", "text_excerpt", "inserted_ids", "duration_ms", "input_bytes", "created_at",
	}).AddRow(
		"log-1", "file-1", "relatorio.pdf", "folder-1", nil, "1234/2026", "rescue", "success",
		[]byte(`[]`), []byte(`["origin not resolved: \"CIOB/190\""]`), nil, "Data: 26/01/2026", []byte(`["row-1"]`),
		int64(40), 2048, created,
	)
	mock.ExpectQuery("FROM import_logs").WithArgs(DefaultLogListLimit).WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Status != domain.ImportSuccess || e.FolderID != "folder-1" || e.ModifiedAt != nil {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if len(e.Warnings) != 1 || len(e.InsertedIDs) != 1 || e.InsertedIDs[0] != "row-1" {
		t.Fatalf("unexpected lists: %+v", e)
	}
	if e.MissingFields == nil {
		t.Fatalf("expected empty, non-nil missing fields")
	}
}

func TestListRecentClampsLimit(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewImportLogRepository(db, testExecutor())

	mock.ExpectQuery("FROM import_logs").WithArgs(MaxLogListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := repo.ListRecent(context.Background(), 10_000)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestListRecentRetriesConnectionFailure(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewImportLogRepository(db, testExecutor())

	mock.ExpectQuery("FROM import_logs").WithArgs(DefaultLogListLimit).
		WillReturnError(&pgconn.PgError{Code: "57P01"})
	mock.ExpectQuery("FROM import_logs").WithArgs(DefaultLogListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestLookupSpeciesMatchesEitherName(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewReferenceRepository(db, testExecutor())

	mock.ExpectQuery("FROM species").
		WithArgs("Didelphis albiventris").
		WillReturnRows(sqlmock.NewRows([]string{"id", "popular_name"}).AddRow("sp-1", "Gambá-de-orelha-branca"))

	entry, err := repo.Lookup(context.Background(), domain.RefSpecies, " Didelphis albiventris ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil || entry.ID != "sp-1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestLookupMissReturnsNil(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewReferenceRepository(db, testExecutor())

	mock.ExpectQuery("FROM destinations").
		WithArgs("Zoológico").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	entry, err := repo.Lookup(context.Background(), domain.RefDestination, "Zoológico")
	if err != nil || entry != nil {
		t.Fatalf("expected miss, got %+v, %v", entry, err)
	}
}

func TestLookupEscapesWildcards(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewReferenceRepository(db, testExecutor())

	mock.ExpectQuery("FROM outcomes").
		WithArgs(`100\% recuperado`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	if _, err := repo.Lookup(context.Background(), domain.RefOutcome, "100% recuperado"); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
}

func TestLookupEmptyTextSkipsQuery(t *testing.T) {
	db, _, done := newMockDB(t)
	defer done()
	repo := NewReferenceRepository(db, testExecutor())

	entry, err := repo.Lookup(context.Background(), domain.RefHealthState, "   ")
	if err != nil || entry != nil {
		t.Fatalf("expected no lookup, got %+v, %v", entry, err)
	}
}

func TestLookupUnknownDictionary(t *testing.T) {
	db, _, done := newMockDB(t)
	defer done()
	repo := NewReferenceRepository(db, testExecutor())

	_, err := repo.Lookup(context.Background(), domain.ReferenceKind("vehicles"), "viatura")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestClassifyPGError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"canceled", context.Canceled, false},
		{"conn done", sql.ErrConnDone, true},
		{"unknown", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := classifyPGError(tc.err).Retryable; got != tc.retryable {
			t.Fatalf("%s: retryable = %v, want %v", tc.name, got, tc.retryable)
		}
	}
}
