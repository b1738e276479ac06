package extract

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nuam/calificaciones/internal/core/parser"
)

// minTableCells is the cell count a layout line needs to count as a table row.
const minTableCells = 3

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// PDFExtractor reads the text layer of a PDF with pdftotext -layout.
type PDFExtractor struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPDFExtractor(bin string, runner Runner, logger *slog.Logger) *PDFExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{bin: bin, runner: runner, logger: logger}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (Document, error) {
	start := time.Now()
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.bin, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Document{Method: "pdftotext", Warnings: []string{string(errb)}}, failed(path, "pdftotext", err)
	}
	raw := string(out)
	if strings.TrimSpace(strings.ReplaceAll(raw, "\f", "")) == "" {
		return Document{Method: "pdftotext"}, failed(path, "pdftotext", errors.New("no text layer"))
	}

	doc := Document{
		Text:     Normalize(raw),
		Tables:   LayoutTables(raw),
		Pages:    1 + strings.Count(strings.TrimRight(raw, "\f\n"), "\f"),
		Method:   "pdftotext",
		Duration: time.Since(start),
	}
	e.logger.Debug("pdf extracted", "path", path, "pages", doc.Pages, "tables", len(doc.Tables), "duration_ms", doc.Duration.Milliseconds())
	return doc, nil
}

// LayoutTables recovers tables from layout-preserved text. A row is a line
// whose columns are separated by two or more spaces; consecutive rows form a
// table and any other line or a page break closes it.
func LayoutTables(raw string) []parser.Table {
	var (
		tables  []parser.Table
		current parser.Table
	)
	flush := func() {
		if len(current) > 0 {
			tables = append(tables, current)
			current = nil
		}
	}
	for _, page := range strings.Split(reCRLF.ReplaceAllString(raw, "\n"), "\f") {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				flush()
				continue
			}
			cells := reColumnGap.Split(line, -1)
			if len(cells) < minTableCells {
				flush()
				continue
			}
			current = append(current, cells)
		}
		flush()
	}
	return tables
}
