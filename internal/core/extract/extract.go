package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/parser"
)

// ErrExtractionFailed is matched by every *ExtractionError.
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractionError reports a reader that could not produce text or tables.
type ExtractionError struct {
	Source string
	Method string
	Cause  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Source, e.Method, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

func failed(source, method string, cause error) error {
	return &ExtractionError{Source: source, Method: method, Cause: cause}
}

// Document is what a reader produced from one file.
type Document struct {
	Text     string
	Tables   []parser.Table
	Pages    int
	Method   string // "pdftotext" | "xlsx" | "html" | "text" | "csv"
	Duration time.Duration
	Warnings []string
}

// TextTableExtractor turns a file into text plus any tables it could find.
type TextTableExtractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Factory builds extractors by file extension.
type Factory struct {
	cfg    common.ExtractConfig
	runner Runner
	logger *slog.Logger
}

// NewFactory returns a factory. A nil runner executes real commands.
func NewFactory(cfg common.ExtractConfig, runner Runner, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Factory{cfg: cfg, runner: runner, logger: logger}
}

// ForPath picks an extractor for path's extension.
func (f *Factory) ForPath(path string) (TextTableExtractor, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return NewPDFExtractor(f.cfg.Pdftotext, f.runner, f.logger), nil
	case constants.XLSX:
		return NewXLSXExtractor(f.logger), nil
	case constants.HTML:
		return NewHTMLExtractor(f.logger), nil
	case constants.TXT:
		return NewTextExtractor(f.logger), nil
	case constants.CSV:
		return NewCSVExtractor(f.logger), nil
	}
	f.logger.Warn("unsupported document extension", "path", path, "extension", ext)
	return nil, common.NewAppError(common.CodeUnsupportedFormat, fmt.Sprintf("unsupported extension %q", ext), common.ErrInvalidInput)
}

// ForPath is NewFactory(cfg, nil, logger).ForPath(path).
func ForPath(path string, cfg common.ExtractConfig, logger *slog.Logger) (TextTableExtractor, error) {
	return NewFactory(cfg, nil, logger).ForPath(path)
}

// nonEmptyRow reports whether any cell has content.
func nonEmptyRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return true
		}
	}
	return false
}
