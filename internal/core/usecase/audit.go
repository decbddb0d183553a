package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
)

const auditWriteTimeout = 10 * time.Second

// AuditLogger writes the single import log entry of a submission. Write
// failures are reported to the logger and never returned.
type AuditLogger struct {
	store  ports.ImportLogStore
	logger *slog.Logger
}

func NewAuditLogger(store ports.ImportLogStore, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{store: store, logger: logger}
}

// Write persists entry and returns its id, or "" when the write failed. The
// write is detached from caller cancellation so an aborted request still
// leaves its audit trail.
func (a *AuditLogger) Write(ctx context.Context, entry domain.ImportLogEntry) (logID string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("audit_write_failed",
				"file_id", entry.FileID,
				"status", string(entry.Status),
				"error", r,
			)
			logID = ""
		}
	}()

	id, err := a.store.InsertLog(writeCtx, entry)
	if err != nil {
		a.logger.Error("audit_write_failed",
			"file_id", entry.FileID,
			"status", string(entry.Status),
			"error", err,
		)
		return ""
	}
	return id
}
