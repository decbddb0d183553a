package domain

import "time"

// Submission is one source document handed to the importer. It lives only for
// the duration of a single import.
type Submission struct {
	FileID     string
	FileName   string
	FolderID   string
	ModifiedAt time.Time
	Payload    []byte
}

// ExtractionResult is either recovered text or a signal that the document is
// not machine-readable.
type ExtractionResult struct {
	Text     string
	Method   string
	NeedsOCR bool
}
