package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/nuam/calificaciones/constants"
)

// DocumentResult is the per-file outcome of a directory parse.
type DocumentResult struct {
	Path         string `json:"path"`
	FileID       string `json:"archivo_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	Strategy     string `json:"estrategia,omitempty"`
	Movements    int    `json:"calificaciones"`
	Err          string `json:"error,omitempty"`
}

// DirStats summarizes a directory parse.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// ParseDirectory walks root and parses every supported file on the worker
// pool. Results follow the walk order.
func (s *Service) ParseDirectory(ctx context.Context, root string, skipHidden bool) ([]DocumentResult, DirStats, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		stats   DirStats
		results []DocumentResult
		pending []int // results index of each file to parse
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, DocumentResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		pending = append(pending, len(results))
		results = append(results, DocumentResult{Path: path})
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	s.logger.Info("ingest.dir.start", "root", root, "matched", stats.Matched, "skip_hidden", skipHidden)
	s.pool.Run(ctx, len(pending), func(ctx context.Context, i int) {
		r := &results[pending[i]]
		parsed, err := s.ParseDocument(ctx, r.Path)
		if err != nil {
			r.Err = err.Error()
			return
		}
		r.FileID = parsed.FileID.String()
		r.Deduplicated = parsed.Deduplicated
		r.Strategy = string(parsed.Result.Strategy)
		r.Movements = len(parsed.Result.Movements)
	})

	for _, i := range pending {
		r := results[i]
		switch {
		case r.Err != "":
			stats.Failed++
		case r.FileID == "":
			r.Err = "not processed"
			results[i] = r
			stats.Failed++
		default:
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
		}
	}
	s.logger.Info("ingest.dir.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, ctx.Err()
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
