package extract

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nuam/calificaciones/internal/core/parser"
)

// HTMLExtractor reads the text of an HTML export and every <table> in it.
type HTMLExtractor struct {
	logger *slog.Logger
}

func NewHTMLExtractor(logger *slog.Logger) *HTMLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLExtractor{logger: logger}
}

func (e *HTMLExtractor) Extract(_ context.Context, path string) (Document, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return Document{Method: "html"}, failed(path, "html", err)
	}
	defer f.Close()

	dom, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return Document{Method: "html"}, failed(path, "html", err)
	}
	dom.Find("script, style").Remove()

	doc := Document{Method: "html", Pages: 1}
	dom.Find("table").Each(func(_ int, table *goquery.Selection) {
		var t parser.Table
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
			})
			if nonEmptyRow(cells) {
				t = append(t, cells)
			}
		})
		if len(t) > 0 {
			doc.Tables = append(doc.Tables, t)
		}
	})

	// cells would otherwise run together in the text view
	dom.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cell.AppendHtml(" ")
	})
	dom.Find("tr, br, p, div, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Text = Normalize(dom.Text())
	doc.Duration = time.Since(start)

	e.logger.Debug("html extracted", "path", path, "tables", len(doc.Tables))
	return doc, nil
}
