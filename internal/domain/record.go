// Package domain defines the core types shared across the reconciliation
// pipeline: ledger records, datasets, matched pairs, discrepancies and the
// final report.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which side of the reconciliation a dataset came from.
type Source string

const (
	SourceExcel Source = "excel"
	SourceSQL   Source = "sql"
)

// Record is a single general-ledger row. Immutable once loaded.
type Record struct {
	Date        time.Time       `json:"date"`
	Account     string          `json:"account"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
}

// Key returns the join key used by the matcher: reference plus account,
// falling back to the reference alone when the account is empty.
func (r Record) Key() string {
	if r.Account == "" {
		return r.Reference
	}
	return r.Reference + "\x1f" + r.Account
}

// SameDate reports whether two records fall on the same calendar date.
// Time-of-day never participates in comparison.
func (r Record) SameDate(other Record) bool {
	y1, m1, d1 := r.Date.Date()
	y2, m2, d2 := other.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RowError describes a malformed input row that was excluded at load time.
type RowError struct {
	Row    int    `json:"row"` // 1-based data row number, header excluded
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Dataset is an ordered collection of records from one source. No uniqueness
// is assumed on Reference; the matcher copes with duplicate keys. Malformed
// rows are excluded during load and tracked in Excluded.
type Dataset struct {
	Source   Source     `json:"source"`
	Records  []Record   `json:"records"`
	Excluded []RowError `json:"excluded,omitempty"`
}
