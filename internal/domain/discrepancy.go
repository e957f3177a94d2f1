package domain

import "github.com/shopspring/decimal"

// Kind classifies a single reconciliation outcome.
type Kind string

const (
	KindNone            Kind = "NONE"
	KindAmountMismatch  Kind = "AMOUNT_MISMATCH"
	KindDateMismatch    Kind = "DATE_MISMATCH"
	KindAccountMismatch Kind = "ACCOUNT_MISMATCH"
	KindRoundingDiff    Kind = "ROUNDING_DIFFERENCE"
	KindMissingInExcel  Kind = "MISSING_IN_EXCEL"
	KindMissingInSQL    Kind = "MISSING_IN_SQL"
)

// Severity buckets discrepancies by financial materiality.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// FieldDiff is one side-by-side field comparison on a matched pair.
type FieldDiff struct {
	Field string `json:"field"`
	Excel string `json:"excel"`
	SQL   string `json:"sql"`
	Equal bool   `json:"equal"`
}

// MatchedPair joins one record from each side on the composite key.
type MatchedPair struct {
	Excel Record `json:"excel"`
	SQL   Record `json:"sql"`
}

// Discrepancy is one classified reconciliation outcome. For MISSING_* kinds
// only the surviving side is populated and Diffs stays empty, since there is
// nothing to compare against.
type Discrepancy struct {
	Kind        Kind            `json:"kind"`
	Reference   string          `json:"reference"`
	Excel       *Record         `json:"excel,omitempty"`
	SQL         *Record         `json:"sql,omitempty"`
	Diffs       []FieldDiff     `json:"diffs,omitempty"`
	AmountDelta decimal.Decimal `json:"amount_delta"`
	Severity    Severity        `json:"severity"`
	Confidence  float64         `json:"confidence"`
	Detail      string          `json:"detail"`
	AINote      string          `json:"ai_note,omitempty"`
}
