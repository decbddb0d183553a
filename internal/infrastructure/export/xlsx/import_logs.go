package xlsx

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

const importLogSheet = "Import logs"

// excerptCellLimit keeps the excerpt column readable; the full excerpt stays
// in the database.
const excerptCellLimit = 300

var importLogHeaders = []string{
	"Created at",
	"Status",
	"File name",
	"File ID",
	"Folder ID",
	"Report number",
	"Report type",
	"Missing fields",
	"Warnings",
	"Error",
	"Inserted IDs",
	"Duration (ms)",
	"Input bytes",
	"Text excerpt",
	"Log ID",
}

type ImportLogRenderer struct {
	location *time.Location
}

// NewImportLogRenderer renders timestamps in loc, or UTC when nil.
func NewImportLogRenderer(loc *time.Location) *ImportLogRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &ImportLogRenderer{location: loc}
}

func (r *ImportLogRenderer) RenderImportLogs(entries []domain.ImportLogEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", importLogSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range importLogHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(importLogSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(importLogHeaders), 1)
		_ = f.SetCellStyle(importLogSheet, "A1", last, style)
	}

	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(importLogSheet, cell, v)
		}

		write(1, e.CreatedAt.In(r.location).Format("2006-01-02 15:04:05"))
		write(2, string(e.Status))
		write(3, e.FileName)
		write(4, e.FileID)
		write(5, e.FolderID)
		write(6, e.ReportNumber)
		write(7, string(e.ReportType))
		write(8, strings.Join(e.MissingFields, ", "))
		write(9, strings.Join(e.Warnings, "\n"))
		write(10, e.ErrorMessage)
		write(11, strings.Join(e.InsertedIDs, ", "))
		write(12, e.DurationMS)
		write(13, e.InputBytes)
		write(14, truncate(e.TextExcerpt, excerptCellLimit))
		write(15, e.ID)
	}

	_ = f.SetColWidth(importLogSheet, "A", "A", 20) // created at
	_ = f.SetColWidth(importLogSheet, "B", "B", 24) // status
	_ = f.SetColWidth(importLogSheet, "C", "G", 18)
	_ = f.SetColWidth(importLogSheet, "H", "J", 40)
	_ = f.SetColWidth(importLogSheet, "K", "K", 38)
	_ = f.SetColWidth(importLogSheet, "L", "M", 14)
	_ = f.SetColWidth(importLogSheet, "N", "N", 60) // excerpt
	_ = f.SetColWidth(importLogSheet, "O", "O", 38)
	_ = f.SetPanes(importLogSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
