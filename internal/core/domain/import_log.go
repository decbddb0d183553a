package domain

import "time"

type ImportStatus string

const (
	ImportSuccess       ImportStatus = "success"
	ImportNeedsOCR      ImportStatus = "needs_ocr"
	ImportMissingFields ImportStatus = "missing_required_fields"
	ImportError         ImportStatus = "error"
)

// TextExcerptLimit bounds the extracted text kept on a log entry.
const TextExcerptLimit = 2000

type ImportLogEntry struct {
	ID            string       `json:"id"`
	FileID        string       `json:"file_id"`
	FileName      string       `json:"file_name"`
	FolderID      string       `json:"folder_id,omitempty"`
	ModifiedAt    *time.Time   `json:"modified_at,omitempty"`
	ReportNumber  string       `json:"report_number,omitempty"`
	ReportType    ReportType   `json:"report_type,omitempty"`
	Status        ImportStatus `json:"status"`
	MissingFields []string     `json:"missing_fields"`
	Warnings      []string     `json:"warnings"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	TextExcerpt   string       `json:"text_excerpt,omitempty"`
	InsertedIDs   []string     `json:"inserted_ids"`
	DurationMS    int64        `json:"duration_ms"`
	InputBytes    int          `json:"input_bytes"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ImportResult is what the caller of an import receives.
type ImportResult struct {
	Status        ImportStatus `json:"status"`
	Message       string       `json:"message"`
	LogID         string       `json:"log_id,omitempty"`
	InsertedIDs   []string     `json:"inserted_ids,omitempty"`
	MissingFields []string     `json:"missing_fields,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// ImportOutcome is published after an import has been logged.
type ImportOutcome struct {
	LogID       string       `json:"log_id"`
	FileID      string       `json:"file_id"`
	Status      ImportStatus `json:"status"`
	InsertedIDs []string     `json:"inserted_ids,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// Excerpt returns at most TextExcerptLimit runes of text.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= TextExcerptLimit {
		return text
	}
	return string(runes[:TextExcerptLimit])
}
