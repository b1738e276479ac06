package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/extract"
	"github.com/nuam/calificaciones/internal/core/parser"
	"github.com/nuam/calificaciones/internal/repository"
	"github.com/nuam/calificaciones/internal/services/bulk"
	"github.com/nuam/calificaciones/internal/services/certificate"
	"github.com/nuam/calificaciones/internal/services/ingest"
)

const usage = `usage: calificaciones <command> [flags]

commands:
  migrate                                  create or update the database schema
  parse       -file PATH                   extract movements from one document
  parse-dir   -dir PATH [-hidden]          extract every supported document under PATH
  watch       -dir PATH [-initial]         parse documents as they appear under PATH
  confirm     -file REVIEWED.json          store a reviewed extraction result
  import      -file ROWS.xlsx|csv          bulk-load movements from a spreadsheet
  certificate -company RUT -owner RUT -year N [-out FILE.xlsx]
`

// app carries the wired services for one command run.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	db     *repository.Database
	out    io.Writer

	ingest       *ingest.Service
	bulk         *bulk.Service
	certificates *certificate.Service
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}

	if err := common.LoadEnvFiles(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("command failed", "command", os.Args[1], "error", err)
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, command string, args []string) error {
	cmd, ok := commands[command]
	if !ok {
		printError(usage)
		return flag.ErrHelp
	}

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// a local sqlite file is usable without a separate migrate step
	if command != "migrate" && cfg.Database.Driver == common.DriverSQLite {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	extractors := extract.NewFactory(cfg.Extract, nil, logger)
	p := parser.NewParser(parser.WithLogger(logger))
	a := &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		out:          os.Stdout,
		ingest:       ingest.NewService(db, extractors, p, cfg.Extract.Workers, logger),
		bulk:         bulk.NewService(db, logger),
		certificates: certificate.NewService(db, logger),
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	return cmd(ctx, a, fs, args)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
