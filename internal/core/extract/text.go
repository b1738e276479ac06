package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/nuam/calificaciones/internal/core/parser"
)

// TextExtractor reads plain text. Input that is not valid UTF-8 is decoded
// as Windows-1252, the encoding of older SII exports.
type TextExtractor struct {
	logger *slog.Logger
}

func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{logger: logger}
}

func (e *TextExtractor) Extract(_ context.Context, path string) (Document, error) {
	start := time.Now()
	data, warnings, err := readUTF8(path)
	if err != nil {
		return Document{Method: "text"}, failed(path, "text", err)
	}
	return Document{
		Text:     Normalize(string(data)),
		Pages:    1,
		Method:   "text",
		Duration: time.Since(start),
		Warnings: warnings,
	}, nil
}

// CSVExtractor reads a delimited export as a single table.
type CSVExtractor struct {
	logger *slog.Logger
}

func NewCSVExtractor(logger *slog.Logger) *CSVExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExtractor{logger: logger}
}

func (e *CSVExtractor) Extract(_ context.Context, path string) (Document, error) {
	start := time.Now()
	data, warnings, err := readUTF8(path)
	if err != nil {
		return Document{Method: "csv"}, failed(path, "csv", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		table parser.Table
		text  strings.Builder
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Document{Method: "csv"}, failed(path, "csv", err)
		}
		cells := make([]string, len(rec))
		for i, c := range rec {
			cells[i] = strings.TrimSpace(c)
		}
		if !nonEmptyRow(cells) {
			continue
		}
		table = append(table, cells)
		text.WriteString(strings.Join(cells, " "))
		text.WriteByte('\n')
	}

	doc := Document{
		Text:     Normalize(text.String()),
		Pages:    1,
		Method:   "csv",
		Duration: time.Since(start),
		Warnings: warnings,
	}
	if len(table) > 0 {
		doc.Tables = []parser.Table{table}
	}
	return doc, nil
}

func readUTF8(path string) ([]byte, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, nil, err
	}
	return decoded, []string{"decoded as windows-1252"}, nil
}

// sniffDelimiter picks ';' when the header line has more of them than commas.
func sniffDelimiter(data []byte) rune {
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}
