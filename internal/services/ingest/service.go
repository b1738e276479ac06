// Package ingest parses source documents into reviewable movements and
// persists reviewed movements.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/async"
	"github.com/nuam/calificaciones/internal/core/extract"
	"github.com/nuam/calificaciones/internal/core/parser"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/repository"
)

// Store is the part of repository.Database the service needs.
type Store interface {
	Repositories() *repository.Repositories
	WithTx(ctx context.Context, fn func(r *repository.Repositories) error) error
}

// ExtractorFactory picks a reader for a file.
type ExtractorFactory interface {
	ForPath(path string) (extract.TextTableExtractor, error)
}

// Service handles document ingestion business logic.
type Service struct {
	store      Store
	extractors ExtractorFactory
	parser     *parser.Parser
	pool       *async.Pool
	logger     *slog.Logger
}

// NewService creates a new ingest service.
func NewService(store Store, extractors ExtractorFactory, p *parser.Parser, workers int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		p = parser.NewParser(parser.WithLogger(logger))
	}
	return &Service{
		store:      store,
		extractors: extractors,
		parser:     p,
		pool:       async.NewPool(logger, async.WithWorkers(workers)),
		logger:     logger,
	}
}

// ParsedDocument is the outcome of parsing one file.
type ParsedDocument struct {
	FileID       uuid.UUID               `json:"archivo_id"`
	SourcePath   string                  `json:"source_path"`
	HashHex      string                  `json:"hash"`
	Deduplicated bool                    `json:"deduplicated"`
	Method       string                  `json:"method"`
	Warnings     []string                `json:"warnings,omitempty"`
	Result       parser.ExtractionResult `json:"resultado"`
}

// ParseDocument hashes and registers the file, extracts its text and tables
// and runs the parser. The extraction result is stored as file metadata.
func (s *Service) ParseDocument(ctx context.Context, path string) (*ParsedDocument, error) {
	start := time.Now()
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !AllowedExt(ext) {
		s.logger.Error("ingest.parse.unsupported", "path", abs, "extension", ext)
		return nil, common.NewAppError(common.CodeUnsupportedFormat, fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}

	sum, size, err := hashFile(abs)
	if err != nil {
		s.logger.Error("ingest.parse.hash_failed", "path", abs, "error", err)
		return nil, err
	}

	repos := s.store.Repositories()
	row, dedup, err := repos.Files.UpsertByHash(ctx, &entity.UploadedFile{
		SourcePath:  abs,
		Filename:    filepath.Base(abs),
		Format:      constants.MapExtToFormat(ext),
		FileSize:    int(size),
		ContentHash: sum,
	})
	if err != nil {
		return nil, err
	}

	extractor, err := s.extractors.ForPath(abs)
	if err != nil {
		return nil, err
	}
	doc, err := extractor.Extract(ctx, abs)
	if err != nil {
		s.logger.Error("ingest.parse.extract_failed", "path", abs, "file_id", row.ID, "error", err)
		return nil, err
	}

	result := s.parser.Parse(doc.Text, doc.Tables)
	metadata, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction: %w", err)
	}
	if err := repos.Files.SetMetadata(ctx, row.ID, metadata); err != nil {
		return nil, err
	}

	s.logger.Info("ingest.parse.ok",
		"path", abs,
		"file_id", row.ID,
		"deduplicated", dedup,
		"method", doc.Method,
		"estrategia", result.Strategy,
		"movements", len(result.Movements),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &ParsedDocument{
		FileID:       row.ID,
		SourcePath:   abs,
		HashHex:      hex.EncodeToString(sum),
		Deduplicated: dedup,
		Method:       doc.Method,
		Warnings:     doc.Warnings,
		Result:       result,
	}, nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), n, nil
}
