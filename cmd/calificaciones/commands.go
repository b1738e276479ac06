package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/services/ingest"
)

type command func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error

var commands = map[string]command{
	"migrate":     migrateCmd,
	"parse":       parseCmd,
	"parse-dir":   parseDirCmd,
	"watch":       watchCmd,
	"confirm":     confirmCmd,
	"import":      importCmd,
	"certificate": certificateCmd,
}

func migrateCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.db.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("schema up to date", "driver", a.cfg.Database.Driver)
	return nil
}

func parseCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	file := fs.String("file", "", "document to parse (pdf, xlsx, html, txt, csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	doc, err := a.ingest.ParseDocument(ctx, *file)
	if err != nil {
		return err
	}
	return a.printJSON(doc)
}

func parseDirCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	dir := fs.String("dir", "", "directory to scan recursively")
	hidden := fs.Bool("hidden", false, "include hidden files and directories")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("-dir is required")
	}

	results, stats, err := a.ingest.ParseDirectory(ctx, *dir, !*hidden)
	if err != nil {
		return err
	}
	return a.printJSON(struct {
		Results []ingest.DocumentResult `json:"results"`
		Stats   ingest.DirStats         `json:"stats"`
	}{results, stats})
}

func watchCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	dir := fs.String("dir", "", "comma-separated directories to watch")
	initial := fs.Bool("initial", false, "parse documents already present")
	debounce := fs.Duration("debounce", 500*time.Millisecond, "quiet period before a changed file is parsed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var roots []string
	for _, r := range strings.Split(*dir, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		return errors.New("-dir is required")
	}

	cfg := ingest.WatchConfig{Roots: roots, InitialScan: *initial, SkipHidden: true, Debounce: *debounce}
	return a.ingest.Watch(ctx, cfg, func(path string, doc *ingest.ParsedDocument, err error) {
		if err != nil {
			a.logger.Error("watch.parse.failed", "path", path, "error", err)
			return
		}
		_ = a.printJSON(doc)
	})
}

func confirmCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	file := fs.String("file", "", "reviewed extraction result (JSON)")
	fileID := fs.String("file-id", "", "uploaded file id the movements came from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	payload, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var opts []ingest.ConfirmOption
	if *fileID != "" {
		id, err := uuid.Parse(*fileID)
		if err != nil {
			return fmt.Errorf("invalid -file-id: %w", err)
		}
		opts = append(opts, ingest.WithSourceFile(id))
	}

	res, err := a.ingest.ConfirmMovements(ctx, payload, opts...)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func importCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	file := fs.String("file", "", "spreadsheet to import (.xlsx or .csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.bulk.Import(ctx, filepath.Base(*file), f)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func certificateCmd(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	company := fs.String("company", "", "company RUT")
	owner := fs.String("owner", "", "owner RUT")
	year := fs.Int("year", time.Now().Year()-1, "commercial year")
	out := fs.String("out", "", "write the certificate workbook to this .xlsx file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *company == "" || *owner == "" {
		return errors.New("-company and -owner are required")
	}

	companyID, ownerID, err := a.certificates.ResolveRUTs(ctx, *company, *owner)
	if err != nil {
		return err
	}
	cert, err := a.certificates.Generate(ctx, companyID, ownerID, *year)
	if err != nil {
		return err
	}

	if *out != "" {
		data, err := a.certificates.ExportXLSX(ctx, companyID, ownerID, *year)
		if err != nil {
			return err
		}
		path := *out
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cfg.Export.Dir, path)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		a.logger.Info("certificate written", "path", path, "folio", cert.Folio)
	}
	return a.printJSON(cert)
}
