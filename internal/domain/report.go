package domain

import "time"

// Summary provides high-level statistics of a reconciliation run.
type Summary struct {
	RunID         string        `json:"run_id"`
	ExcelRows     int           `json:"excel_rows"`
	SQLRows       int           `json:"sql_rows"`
	ExcelExcluded int           `json:"excel_excluded"`
	SQLExcluded   int           `json:"sql_excluded"`
	Matched       int           `json:"matched"`
	Discrepancies int           `json:"discrepancies"`
	CountsByKind  map[Kind]int  `json:"counts_by_kind"`
	AccuracyPct   float64       `json:"accuracy_pct"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	AIUnavailable bool          `json:"ai_unavailable"`
}

// Pattern is a named pattern surfaced by the analysis step, with the number
// of discrepancies supporting it.
type Pattern struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Analysis is the output contract shared by the AI-backed and statistical
// augmenters.
type Analysis struct {
	Source          string    `json:"source"` // "ai", "ai+statistical" or "statistical"
	AIUsed          bool      `json:"ai_used"`
	Patterns        []Pattern `json:"patterns"`
	Recommendations []string  `json:"recommendations"`
}

// ReconciliationReport is the top-level result of one reconciliation run.
// Nothing is retained after the report is produced; callers own its lifetime.
type ReconciliationReport struct {
	Summary       Summary       `json:"summary"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Analysis      Analysis      `json:"analysis"`
}
