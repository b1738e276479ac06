package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/rut"
)

// ClassifyRow turns one table row into a movement. Rows without a
// RUT-shaped cell are not movements and yield nil. fallbackDate is used
// when no cell starts with a date.
func ClassifyRow(cells []string, fallbackDate string) *ExtractedMovement {
	cleaned := make([]string, len(cells))
	for i, c := range cells {
		cleaned[i] = strings.TrimSpace(c)
	}

	ownerRUT := ""
	for _, c := range cleaned {
		if rut.LooksLike(c) {
			ownerRUT = c
			break
		}
	}
	if ownerRUT == "" {
		return nil
	}

	m := &ExtractedMovement{
		Date:        fallbackDate,
		OwnerRUT:    strPtr(ownerRUT),
		Type:        constants.Retiro,
		Attribution: constants.Unclassified,
		Amount:      rowAmount(cleaned),
		SourceText:  strings.Join(cleaned, " | "),
	}

	if code, ok := rowCode(cleaned); ok {
		m.Type = code.Type
		m.Attribution = code.Attribution
		m.MatchedCode = strPtr(code.Code)
	}

	for _, c := range cleaned {
		if leadingDate.MatchString(c) {
			m.Date = c
			break
		}
	}

	if name, ok := rowOwnerName(cleaned, ownerRUT); ok {
		m.OwnerName = strPtr(name)
	}
	return m
}

func rowCode(cells []string) (RowCode, bool) {
	for _, c := range cells {
		upper := strings.ToUpper(c)
		if code, ok := lookupRowCode(upper); ok {
			return code, true
		}
		for _, token := range strings.Fields(upper) {
			if code, ok := lookupRowCode(token); ok {
				return code, true
			}
		}
	}
	return RowCode{}, false
}

// rowAmount takes the largest numeric cell. Line parsing takes the last
// numeric token instead; the two paths disagree on purpose and are kept as is.
func rowAmount(cells []string) int64 {
	var best int64
	for _, c := range cells {
		digits := strings.NewReplacer("$", "", ".", "", ",", "", " ", "").Replace(c)
		if !isAllDigits(digits) {
			continue
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

func rowOwnerName(cells []string, ownerRUT string) (string, bool) {
	best, bestLen := "", 0
	for _, c := range cells {
		if c == ownerRUT || rut.LooksLike(c) {
			continue
		}
		if leadingDate.MatchString(c) {
			continue
		}
		if numericCell.MatchString(strings.ReplaceAll(c, " ", "")) {
			continue
		}
		if containsStopWord(strings.ToUpper(c)) || !hasLetter(c) {
			continue
		}
		if n := utf8.RuneCountInString(c); n > bestLen {
			best, bestLen = c, n
		}
	}
	return best, bestLen > 0
}

func containsStopWord(upper string) bool {
	for _, w := range NameStopWords {
		if strings.Contains(upper, w) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
