package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

const (
	DefaultLogListLimit = 50
	MaxLogListLimit     = 500
)

// ImportLogRepository is insert-only; entries are never updated.
type ImportLogRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewImportLogRepository(db *sql.DB, executor *resilience.Executor) *ImportLogRepository {
	return &ImportLogRepository{db: db, executor: executor}
}

func (r *ImportLogRepository) InsertLog(ctx context.Context, entry domain.ImportLogEntry) (string, error) {
	missingJSON, err := marshalList(entry.MissingFields)
	if err != nil {
		return "", fmt.Errorf("marshal missing fields: %w", err)
	}
	warningsJSON, err := marshalList(entry.Warnings)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	insertedJSON, err := marshalList(entry.InsertedIDs)
	if err != nil {
		return "", fmt.Errorf("marshal inserted ids: %w", err)
	}

	err = r.executor.Do(ctx, "postgres.insert_import_log", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO import_logs (
	id, file_id, file_name, folder_id, modified_at, report_number, report_type, status,
	missing_fields, warnings, error_message, text_excerpt, inserted_ids, duration_ms, input_bytes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
			entry.ID, entry.FileID, entry.FileName, nullIfEmpty(entry.FolderID), entry.ModifiedAt,
			nullIfEmpty(entry.ReportNumber), nullIfEmpty(string(entry.ReportType)), string(entry.Status),
			missingJSON, warningsJSON, nullIfEmpty(entry.ErrorMessage), nullIfEmpty(entry.TextExcerpt), insertedJSON,
			entry.DurationMS, entry.InputBytes, entry.CreatedAt,
		)
		return err
	}, classifyPGError)
	if err != nil {
		return "", wrapStoreError("insert import log", err)
	}
	return entry.ID, nil
}

// ListRecent returns the newest entries first. limit is clamped to
// [1, MaxLogListLimit]; zero selects DefaultLogListLimit.
func (r *ImportLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.ImportLogEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLogListLimit
	case limit > MaxLogListLimit:
		limit = MaxLogListLimit
	}

	entries, err := resilience.Call(ctx, r.executor, "postgres.list_import_logs", func(ctx context.Context) ([]domain.ImportLogEntry, error) {
		rows, err := r.db.QueryContext(ctx, `
SELECT id, file_id, file_name, folder_id, modified_at, report_number, report_type, status,
	missing_fields, warnings, error_message, text_excerpt, inserted_ids, duration_ms, input_bytes, created_at
FROM import_logs
ORDER BY created_at DESC
LIMIT $1
`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]domain.ImportLogEntry, 0, limit)
		for rows.Next() {
			entry, err := scanImportLog(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, entry)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate import logs: %w", err)
		}
		return out, nil
	}, classifyPGError)
	if err != nil {
		return nil, wrapStoreError("list import logs", err)
	}
	return entries, nil
}

func scanImportLog(rows *sql.Rows) (domain.ImportLogEntry, error) {
	var (
		entry      domain.ImportLogEntry
		status     string
		modifiedAt sql.NullTime
	)
	var folderID, reportNumber, reportType, errorMessage, textExcerpt sql.NullString
	var missingRaw, warningsRaw, insertedRaw []byte
	err := rows.Scan(
		&entry.ID, &entry.FileID, &entry.FileName, &folderID, &modifiedAt, &reportNumber, &reportType, &status,
		&missingRaw, &warningsRaw, &errorMessage, &textExcerpt, &insertedRaw,
		&entry.DurationMS, &entry.InputBytes, &entry.CreatedAt,
	)
	if err != nil {
		return entry, fmt.Errorf("scan import log: %w", err)
	}

	entry.FolderID = folderID.String
	entry.ReportNumber = reportNumber.String
	entry.ReportType = domain.ReportType(reportType.String)
	entry.Status = domain.ImportStatus(status)
	entry.ErrorMessage = errorMessage.String
	entry.TextExcerpt = textExcerpt.String
	if modifiedAt.Valid {
		t := modifiedAt.Time
		entry.ModifiedAt = &t
	}

	for _, list := range []struct {
		raw []byte
		dst *[]string
	}{
		{missingRaw, &entry.MissingFields},
		{warningsRaw, &entry.Warnings},
		{insertedRaw, &entry.InsertedIDs},
	} {
		if err := unmarshalList(list.raw, list.dst); err != nil {
			return entry, fmt.Errorf("unmarshal import log %s: %w", entry.ID, err)
		}
	}
	return entry, nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
