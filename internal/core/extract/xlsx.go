package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/internal/core/parser"
)

// XLSXExtractor turns every sheet of a workbook into one table.
type XLSXExtractor struct {
	logger *slog.Logger
}

func NewXLSXExtractor(logger *slog.Logger) *XLSXExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExtractor{logger: logger}
}

func (e *XLSXExtractor) Extract(ctx context.Context, path string) (Document, error) {
	start := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Document{Method: "xlsx"}, failed(path, "xlsx", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("failed to close workbook", "path", path, "error", err)
		}
	}()

	doc := Document{Method: "xlsx"}
	var text strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return doc, failed(path, "xlsx", err)
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return doc, failed(path, "xlsx", fmt.Errorf("sheet %q: %w", sheet, err))
		}
		var table parser.Table
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.TrimSpace(c)
			}
			if !nonEmptyRow(cells) {
				continue
			}
			table = append(table, cells)
			text.WriteString(strings.Join(cells, " "))
			text.WriteByte('\n')
		}
		if len(table) > 0 {
			doc.Tables = append(doc.Tables, table)
		}
		doc.Pages++
	}

	doc.Text = Normalize(text.String())
	doc.Duration = time.Since(start)
	e.logger.Debug("xlsx extracted", "path", path, "sheets", doc.Pages, "tables", len(doc.Tables))
	return doc, nil
}
