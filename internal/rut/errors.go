package rut

import (
	"errors"
	"fmt"
)

// ErrInvalidRUT is wrapped by every validation failure.
var ErrInvalidRUT = errors.New("invalid rut")

// FormatError reports an identifier that is too short or has a non-numeric body.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("rut %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidRUT
}

// ChecksumError reports a check character that does not match the body.
type ChecksumError struct {
	Input    string
	Expected byte
	Got      byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("rut %q: check digit %c does not match expected %c", e.Input, e.Got, e.Expected)
}

func (e *ChecksumError) Unwrap() error {
	return ErrInvalidRUT
}
