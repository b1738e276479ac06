package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nuam/calificaciones/constants"
)

var (
	datePattern      = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{4}`)
	leadingDate      = regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}[-/]\d{4}`)
	numericCell      = regexp.MustCompile(`^[\d.,$]+$`)
	lineAmountTokens = regexp.MustCompile(`[\d.]+`)
)

// RowCode maps a code found in a table cell to a movement type and attribution.
type RowCode struct {
	Code        string
	Type        constants.MovementType
	Attribution constants.AttributionCode
}

// RowCodes is evaluated in order; the first cell holding any code decides.
// DIV, RET and REM only carry the type.
var RowCodes = []RowCode{
	{Code: "DIV", Type: constants.Dividendo, Attribution: constants.Unclassified},
	{Code: "RET", Type: constants.Retiro, Attribution: constants.Unclassified},
	{Code: "REM", Type: constants.Remesa, Attribution: constants.Unclassified},
	{Code: "RAI", Type: constants.Retiro, Attribution: constants.RAI},
	{Code: "REX", Type: constants.Retiro, Attribution: constants.REX},
}

// NameStopWords exclude a cell from owner name candidates when contained in it.
var NameStopWords = []string{
	"RETIRO", "REMESA", "DIVIDENDO", "DEVOLUCION", "CAPITAL",
	"RAI", "DDAN", "REX", "RAP", "SAC", "ISFUT",
}

// LineTypes is evaluated in order against the lower-cased line.
var LineTypes = []constants.MovementType{
	constants.Retiro,
	constants.Remesa,
	constants.Dividendo,
}

// LineAttribution lists the terms that assign a code to a free-text line.
type LineAttribution struct {
	Code  constants.AttributionCode
	Terms []string
}

// LineAttributions is evaluated in order on the accent-folded, lower-cased line.
// Terms match on word boundaries; no match leaves the line unclassified.
var LineAttributions = []LineAttribution{
	{Code: constants.RAI, Terms: []string{"rai", "renta afecta"}},
	{Code: constants.DDAN, Terms: []string{"ddan", "devolucion"}},
	{Code: constants.REX, Terms: []string{"rex", "renta exenta", "rentas exentas"}},
	{Code: constants.INR, Terms: []string{"inr", "ingreso no renta", "ingresos no renta"}},
	{Code: constants.SAC, Terms: []string{"sac"}},
}

type compiledAttribution struct {
	code     constants.AttributionCode
	patterns []*regexp.Regexp
}

var lineAttributionPatterns = compileLineAttributions(LineAttributions)

func compileLineAttributions(rules []LineAttribution) []compiledAttribution {
	out := make([]compiledAttribution, 0, len(rules))
	for _, r := range rules {
		c := compiledAttribution{code: r.Code}
		for _, term := range r.Terms {
			c.patterns = append(c.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(term)+`\b`))
		}
		out = append(out, c)
	}
	return out
}

func lineAttribution(folded string) constants.AttributionCode {
	for _, rule := range lineAttributionPatterns {
		for _, p := range rule.patterns {
			if p.MatchString(folded) {
				return rule.code
			}
		}
	}
	return constants.Unclassified
}

// fold lower-cases s and strips diacritics ("Devolución" -> "devolucion").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func lookupRowCode(token string) (RowCode, bool) {
	for _, c := range RowCodes {
		if c.Code == token {
			return c, true
		}
	}
	return RowCode{}, false
}
