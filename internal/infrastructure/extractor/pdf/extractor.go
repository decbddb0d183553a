package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/extractor/plaintext"
)

const (
	MethodPageText      = "pdf_page_text"
	MethodContentStream = "pdf_content_stream"

	DefaultMinTextChars = 20
)

var pdfMagic = []byte("%PDF")

// Extractor recovers text from PDF reports. Anything that is not a PDF is
// handed to the plain text extractor.
type Extractor struct {
	plain        *plaintext.Extractor
	minTextChars int
	logger       *slog.Logger
}

func NewExtractor(minTextChars int, logger *slog.Logger) *Extractor {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		plain:        plaintext.NewExtractor(),
		minTextChars: minTextChars,
		logger:       logger,
	}
}

// IsPDF reports whether payload carries the PDF header. Some producers emit
// a few bytes of junk before it, so the first kilobyte is searched.
func IsPDF(payload []byte) bool {
	head := payload
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

func (e *Extractor) Extract(ctx context.Context, payload []byte) (domain.ExtractionResult, error) {
	if !IsPDF(payload) {
		return e.plain.Extract(ctx, payload)
	}
	if err := ctx.Err(); err != nil {
		return domain.ExtractionResult{}, err
	}

	text, err := readPages(payload)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("decode pdf: %w", err)
	}
	method := MethodPageText

	if utf8.RuneCountInString(text) < e.minTextChars {
		scanned := ScanContentStreams(payload)
		if utf8.RuneCountInString(scanned) > utf8.RuneCountInString(text) {
			e.logger.Debug("pdf_content_stream_fallback",
				"page_text_chars", utf8.RuneCountInString(text),
				"stream_text_chars", utf8.RuneCountInString(scanned),
			)
			text, method = scanned, MethodContentStream
		}
	}

	if text == "" {
		return domain.ExtractionResult{Method: method, NeedsOCR: true}, nil
	}
	return domain.ExtractionResult{Text: text, Method: method}, nil
}

func readPages(payload []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf decoder panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
