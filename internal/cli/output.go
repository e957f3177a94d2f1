package cli

import (
	"fmt"
	"sort"
	"strings"

	"gl-reconciler/internal/domain"
)

// PrintHeader prints the run banner.
func PrintHeader(excelPath, sqlSource string) {
	fmt.Printf("gl-reconciler: %s vs %s\n", excelPath, sqlSource)
}

// PrintSummary prints a human-readable run summary.
func PrintSummary(rep *domain.ReconciliationReport) {
	s := rep.Summary
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Run %s: excel=%d sql=%d matched=%d discrepancies=%d accuracy=%.2f%%\n",
		s.RunID, s.ExcelRows, s.SQLRows, s.Matched, s.Discrepancies, s.AccuracyPct)

	if s.ExcelExcluded > 0 || s.SQLExcluded > 0 {
		fmt.Printf("Excluded rows: excel=%d sql=%d\n", s.ExcelExcluded, s.SQLExcluded)
	}

	kinds := make([]string, 0, len(s.CountsByKind))
	for kind := range s.CountsByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("  %-20s %d\n", kind, s.CountsByKind[domain.Kind(kind)])
	}

	if s.AIUnavailable {
		fmt.Println("\nAI analysis unavailable; statistical analysis used.")
	}
	if len(rep.Analysis.Patterns) > 0 {
		fmt.Println("\nPatterns:")
		for _, p := range rep.Analysis.Patterns {
			fmt.Printf("  - %s (%d)\n", p.Label, p.Count)
		}
	}
	if len(rep.Analysis.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range rep.Analysis.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}

// PrintExcludedRows lists rows dropped during ingestion.
func PrintExcludedRows(label string, excluded []domain.RowError) {
	if len(excluded) == 0 {
		return
	}
	fmt.Printf("\n%s rows excluded:\n", label)
	for _, e := range excluded {
		fmt.Printf("  - %s\n", e.Error())
	}
}
