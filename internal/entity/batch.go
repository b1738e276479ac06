package entity

import "fmt"

// RowError records why one row of a batch was not persisted.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

// BatchResult is the outcome of a row-by-row import. Errors keep input order.
type BatchResult struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

// Messages renders errors as "Row N: reason" lines.
func (r BatchResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.String()
	}
	return out
}
