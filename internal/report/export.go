// Package report serializes a ReconciliationReport into interchangeable
// formats: a row-oriented CSV table and structured JSON. Both carry the full
// discrepancy list and the summary block without information loss.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gl-reconciler/internal/domain"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name from a flag or request parameter.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want csv or json)", s)
	}
}

// Write exports the report in the requested format.
func Write(w io.Writer, rep *domain.ReconciliationReport, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	default:
		return WriteCSV(w, rep)
	}
}

// WriteJSON exports the report as indented JSON.
func WriteJSON(w io.Writer, rep *domain.ReconciliationReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

var discrepancyHeader = []string{
	"kind", "reference", "severity", "confidence", "amount_delta",
	"excel_date", "excel_account", "excel_amount", "excel_description",
	"sql_date", "sql_account", "sql_amount", "sql_description",
	"detail", "ai_note",
}

// WriteCSV exports one row per discrepancy followed by a summary section and
// the analysis patterns and recommendations.
func WriteCSV(w io.Writer, rep *domain.ReconciliationReport) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(discrepancyHeader); err != nil {
		return err
	}
	for _, d := range rep.Discrepancies {
		if err := cw.Write(discrepancyRow(d)); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	for _, row := range summaryRows(rep) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func discrepancyRow(d domain.Discrepancy) []string {
	row := []string{
		string(d.Kind),
		d.Reference,
		string(d.Severity),
		strconv.FormatFloat(d.Confidence, 'f', 2, 64),
		d.AmountDelta.StringFixed(2),
	}
	row = append(row, sideColumns(d.Excel)...)
	row = append(row, sideColumns(d.SQL)...)
	return append(row, d.Detail, d.AINote)
}

func sideColumns(rec *domain.Record) []string {
	if rec == nil {
		return []string{"", "", "", ""}
	}
	return []string{
		rec.Date.Format("2006-01-02"),
		rec.Account,
		rec.Amount.StringFixed(2),
		rec.Description,
	}
}

func summaryRows(rep *domain.ReconciliationReport) [][]string {
	s := rep.Summary
	rows := [][]string{
		{"summary", "run_id", s.RunID},
		{"summary", "excel_rows", strconv.Itoa(s.ExcelRows)},
		{"summary", "sql_rows", strconv.Itoa(s.SQLRows)},
		{"summary", "excel_excluded", strconv.Itoa(s.ExcelExcluded)},
		{"summary", "sql_excluded", strconv.Itoa(s.SQLExcluded)},
		{"summary", "matched", strconv.Itoa(s.Matched)},
		{"summary", "discrepancies", strconv.Itoa(s.Discrepancies)},
		{"summary", "accuracy_pct", strconv.FormatFloat(s.AccuracyPct, 'f', 2, 64)},
		{"summary", "elapsed", s.Elapsed.String()},
		{"summary", "ai_unavailable", strconv.FormatBool(s.AIUnavailable)},
	}

	kinds := make([]string, 0, len(s.CountsByKind))
	for kind := range s.CountsByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		rows = append(rows, []string{"count", kind, strconv.Itoa(s.CountsByKind[domain.Kind(kind)])})
	}

	for _, p := range rep.Analysis.Patterns {
		rows = append(rows, []string{"pattern", p.Label, strconv.Itoa(p.Count)})
	}
	for _, r := range rep.Analysis.Recommendations {
		rows = append(rows, []string{"recommendation", r, ""})
	}
	return rows
}
