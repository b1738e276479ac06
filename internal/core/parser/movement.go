package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/nuam/calificaciones/constants"
)

// Table is a grid of trimmed cell texts as produced by an extractor.
type Table [][]string

// Strategy names the path DocumentParser took for a document.
type Strategy string

const (
	StrategyTables Strategy = "dj1948"
	StrategyLines  Strategy = "lineas"
)

// ExtractedMovement is one candidate movement found in a document, before review.
type ExtractedMovement struct {
	Date        string                    `json:"fecha"`
	OwnerRUT    *string                   `json:"rut_propietario"`
	OwnerName   *string                   `json:"nombre_propietario"`
	Type        constants.MovementType    `json:"tipo"`
	Attribution constants.AttributionCode `json:"imputacion"`
	Amount      int64                     `json:"monto"`
	MatchedCode *string                   `json:"codigo,omitempty"`
	SourceText  string                    `json:"original_line"`
}

// ExtractionResult is the parsed view of a whole document.
type ExtractionResult struct {
	CompanyRUT   *string             `json:"rut_empresa"`
	OwnerRUT     *string             `json:"rut_propietario"`
	DocumentDate *string             `json:"fecha"`
	Strategy     Strategy            `json:"estrategia"`
	Movements    []ExtractedMovement `json:"calificaciones"`
}

var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate reads the date forms found in documents (DD/MM/YYYY, DD-MM-YYYY)
// and the ISO form used for the document fallback date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := leadingDate.FindString(s); m != "" {
		s = m
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func strPtr(s string) *string {
	return &s
}
