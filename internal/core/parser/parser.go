// Package parser turns extracted document text and tables into candidate
// tax movements. It performs no I/O.
package parser

import (
	"log/slog"
	"strings"
	"time"

	"github.com/nuam/calificaciones/internal/rut"
)

// Parser selects the table or line strategy for a document and runs the classifiers.
type Parser struct {
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Parser)

// WithClock fixes the clock used for the fallback document date.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IsDJ1948 reports whether text carries the markers of a DJ1948 declaration.
func IsDJ1948(text string) bool {
	return strings.Contains(text, "1948") || strings.Contains(text, "Retiros")
}

// Parse builds the extraction result. DJ1948 documents with tables are read
// row by row; anything else is read line by line.
func (p *Parser) Parse(text string, tables []Table) ExtractionResult {
	res := ExtractionResult{Movements: []ExtractedMovement{}}

	ids := rut.FindAll(text)
	if len(ids) > 0 {
		res.CompanyRUT = strPtr(ids[0])
	}

	docDate := datePattern.FindString(text)
	if docDate == "" {
		docDate = p.now().Format("2006-01-02")
	}
	res.DocumentDate = strPtr(docDate)

	if IsDJ1948(text) && len(tables) > 0 {
		res.Strategy = StrategyTables
		for ti, table := range tables {
			for ri, row := range table {
				m := ClassifyRow(row, docDate)
				if m == nil {
					p.logger.Debug("parser.row.skipped", "table", ti, "row", ri, "cells", len(row))
					continue
				}
				res.Movements = append(res.Movements, *m)
			}
		}
		p.logger.Debug("parser.tables.ok", "tables", len(tables), "movements", len(res.Movements))
		return res
	}

	res.Strategy = StrategyLines
	if len(ids) > 0 {
		res.OwnerRUT = strPtr(ids[0])
	}
	for i, line := range strings.Split(text, "\n") {
		m := ClassifyLine(line)
		if m == nil {
			continue
		}
		if res.OwnerRUT != nil {
			m.OwnerRUT = strPtr(*res.OwnerRUT)
		}
		p.logger.Debug("parser.line.matched", "line", i+1, "tipo", m.Type, "imputacion", m.Attribution)
		res.Movements = append(res.Movements, *m)
	}
	return res
}
