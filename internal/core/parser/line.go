package parser

import (
	"strconv"
	"strings"
)

// ClassifyLine reads a free-text line such as
// "01/01/2024 Retiro 1.500.000 Renta Afecta". Lines without a date, a digit
// or a movement keyword yield nil. The owner is left empty; the document
// parser stamps the document-level owner on line movements.
func ClassifyLine(line string) *ExtractedMovement {
	line = strings.TrimSpace(line)
	date := datePattern.FindString(line)
	if date == "" || !strings.ContainsAny(line, "0123456789") {
		return nil
	}

	lower := strings.ToLower(line)
	var m *ExtractedMovement
	for _, t := range LineTypes {
		if strings.Contains(lower, string(t)) {
			m = &ExtractedMovement{Date: date, Type: t}
			break
		}
	}
	if m == nil {
		return nil
	}

	tokens := lineAmountTokens.FindAllString(line, -1)
	if len(tokens) == 0 {
		return nil
	}
	amount, err := strconv.ParseInt(strings.ReplaceAll(tokens[len(tokens)-1], ".", ""), 10, 64)
	if err != nil {
		return nil
	}

	m.Amount = amount
	m.Attribution = lineAttribution(fold(line))
	m.SourceText = line
	return m
}
