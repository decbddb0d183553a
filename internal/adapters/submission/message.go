// Package submission decodes the import request body shared by the HTTP
// endpoint and the NATS worker.
package submission

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

// envelopeOverhead bounds the JSON around the encoded document.
const envelopeOverhead = 64 << 10

type Message struct {
	FileID        string `json:"file_id"`
	FileName      string `json:"file_name"`
	FolderID      string `json:"folder_id,omitempty"`
	ModifiedAt    string `json:"modified_at,omitempty"`
	ContentBase64 string `json:"content_base64"`
}

// MaxBodySize is the largest request body that can carry a document of
// maxPayload bytes. It returns 0, meaning no limit, when maxPayload is not
// positive.
func MaxBodySize(maxPayload int) int64 {
	if maxPayload <= 0 {
		return 0
	}
	return int64(base64.StdEncoding.EncodedLen(maxPayload)) + envelopeOverhead
}

// Decode parses a request body into a submission. Malformed input wraps
// domain.ErrInvalidInput; a document over maxPayload bytes wraps
// domain.ErrPayloadTooLarge.
func Decode(body []byte, maxPayload int) (domain.Submission, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.Submission{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", err)
	}
	return msg.Submission(maxPayload)
}

func (m Message) Submission(maxPayload int) (domain.Submission, error) {
	fileID := strings.TrimSpace(m.FileID)
	if fileID == "" {
		return domain.Submission{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", errors.New("file_id is required"))
	}

	encoded := stripWhitespace(m.ContentBase64)
	if encoded == "" {
		return domain.Submission{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", errors.New("content_base64 is required"))
	}
	if maxPayload > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > maxPayload+2 {
		return domain.Submission{}, domain.WrapError(domain.ErrPayloadTooLarge, "decode submission",
			fmt.Errorf("document exceeds %d bytes", maxPayload))
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Submission{}, domain.WrapError(domain.ErrInvalidInput, "decode content_base64", err)
	}
	if maxPayload > 0 && len(payload) > maxPayload {
		return domain.Submission{}, domain.WrapError(domain.ErrPayloadTooLarge, "decode submission",
			fmt.Errorf("document of %d bytes exceeds %d bytes", len(payload), maxPayload))
	}

	var modifiedAt time.Time
	if raw := strings.TrimSpace(m.ModifiedAt); raw != "" {
		modifiedAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Submission{}, domain.WrapError(domain.ErrInvalidInput, "decode modified_at", err)
		}
	}

	name := strings.TrimSpace(m.FileName)
	if name == "" {
		name = fileID
	}
	return domain.Submission{
		FileID:     fileID,
		FileName:   name,
		FolderID:   strings.TrimSpace(m.FolderID),
		ModifiedAt: modifiedAt,
		Payload:    payload,
	}, nil
}

// stripWhitespace drops the line breaks some encoders insert every 76
// characters.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
