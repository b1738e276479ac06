// Package rut validates and formats Chilean RUT taxpayer identifiers.
//
// A RUT is a numeric body of up to nine digits followed by a modulus-11
// check character (0-9 or K). Identifiers are compared only after removing
// separators and upper-casing, see Normalize.
package rut

import (
	"fmt"
	"regexp"
	"strings"
)

// pattern matches the printed form (12.345.678-5, 12345678-K) without checking the digit.
var pattern = regexp.MustCompile(`\b\d{1,2}\.?\d{3}\.?\d{3}-[\dkK]\b`)

// Normalize strips dots, hyphens and surrounding space and upper-cases the result.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(s)
}

// CheckDigit computes the modulus-11 check character for a numeric body.
func CheckDigit(body string) (byte, error) {
	if body == "" || !isDigits(body) {
		return 0, &FormatError{Input: body, Reason: "non-numeric body"}
	}
	sum, multiplier := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * multiplier
		multiplier++
		if multiplier == 8 {
			multiplier = 2
		}
	}
	switch result := 11 - sum%11; result {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + result), nil
	}
}

// Validate checks the structure and check digit of raw and returns raw unchanged on success.
func Validate(raw string) (string, error) {
	clean := Normalize(raw)
	if len(clean) < 2 {
		return "", &FormatError{Input: raw, Reason: "too short"}
	}
	body, got := clean[:len(clean)-1], clean[len(clean)-1]
	if !isDigits(body) {
		return "", &FormatError{Input: raw, Reason: "non-numeric body"}
	}
	expected, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	if expected != got {
		return "", &ChecksumError{Input: raw, Expected: expected, Got: got}
	}
	return raw, nil
}

// LooksLike reports whether s contains a RUT in printed form. The check digit is not verified.
func LooksLike(s string) bool {
	return pattern.MatchString(s)
}

// FindAll returns every printed RUT in text in order of appearance.
func FindAll(text string) []string {
	return pattern.FindAllString(text, -1)
}

// Format renders a numeric body with its check digit as 12.345.678-5.
func Format(body string) (string, error) {
	body = strings.TrimLeft(strings.TrimSpace(body), "0")
	dv, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	var groups []string
	for len(body) > 3 {
		groups = append([]string{body[len(body)-3:]}, groups...)
		body = body[:len(body)-3]
	}
	groups = append([]string{body}, groups...)
	return fmt.Sprintf("%s-%c", strings.Join(groups, "."), dv), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
