package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

const Method = "plaintext"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor returns typed reports as text. Payloads that are not valid UTF-8
// are treated as scanned images and flagged for OCR.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, payload []byte) (domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractionResult{}, err
	}

	text, ok := Decode(payload)
	if !ok || text == "" {
		return domain.ExtractionResult{Method: Method, NeedsOCR: true}, nil
	}
	return domain.ExtractionResult{Text: text, Method: Method}, nil
}

// Decode returns the trimmed text of raw, or false when raw is not UTF-8.
func Decode(raw []byte) (string, bool) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", false
	}
	return strings.TrimSpace(string(raw)), true
}
