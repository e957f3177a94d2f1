package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"gl-reconciler/internal/domain"
)

// topInvolved caps how many accounts and references surface as patterns.
const topInvolved = 5

var deltaBands = []struct {
	label string
	upper decimal.Decimal
}{
	{"amount delta at or under 0.01", decimal.NewFromFloat(0.01)},
	{"amount delta between 0.01 and 1.00", decimal.NewFromFloat(1.00)},
	{"amount delta between 1.00 and 100.00", decimal.NewFromFloat(100.00)},
}

const deltaBandTop = "amount delta over 100.00"

// StatisticalAugmenter computes aggregate statistics over the discrepancy
// set with no external calls. Its output is fully deterministic: the same
// discrepancy set always yields the same patterns in the same order.
type StatisticalAugmenter struct{}

// NewStatisticalAugmenter creates the fallback augmenter.
func NewStatisticalAugmenter() *StatisticalAugmenter {
	return &StatisticalAugmenter{}
}

// Analyze implements the Augmenter contract.
func (a *StatisticalAugmenter) Analyze(_ context.Context, discrepancies []domain.Discrepancy) (*domain.Analysis, error) {
	analysis := &domain.Analysis{
		Source: "statistical",
		AIUsed: false,
	}
	if len(discrepancies) == 0 {
		analysis.Recommendations = []string{"No discrepancies found; the extracts agree within tolerance."}
		return analysis, nil
	}

	kindCounts := make(map[domain.Kind]int)
	bandCounts := make(map[string]int)
	accountCounts := make(map[string]int)
	referenceCounts := make(map[string]int)

	for _, d := range discrepancies {
		kindCounts[d.Kind]++

		if d.Kind == domain.KindAmountMismatch || d.Kind == domain.KindRoundingDiff {
			bandCounts[deltaBand(d.AmountDelta)]++
		}
		if acct := discrepancyAccount(d); acct != "" {
			accountCounts[acct]++
		}
		if d.Reference != "" {
			referenceCounts[d.Reference]++
		}
	}

	var patterns []domain.Pattern
	for kind, count := range kindCounts {
		patterns = append(patterns, domain.Pattern{
			Label: fmt.Sprintf("%s discrepancies", kind),
			Count: count,
		})
	}
	for band, count := range bandCounts {
		patterns = append(patterns, domain.Pattern{Label: band, Count: count})
	}
	for _, top := range topCounts(accountCounts, topInvolved) {
		patterns = append(patterns, domain.Pattern{
			Label: fmt.Sprintf("account %s involved", top.key),
			Count: top.count,
		})
	}
	for _, top := range topCounts(referenceCounts, topInvolved) {
		if top.count > 1 {
			patterns = append(patterns, domain.Pattern{
				Label: fmt.Sprintf("reference %s recurs", top.key),
				Count: top.count,
			})
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Label < patterns[j].Label
	})
	analysis.Patterns = patterns
	analysis.Recommendations = recommendations(kindCounts, len(discrepancies))
	return analysis, nil
}

func deltaBand(delta decimal.Decimal) string {
	for _, band := range deltaBands {
		if delta.Cmp(band.upper) <= 0 {
			return band.label
		}
	}
	return deltaBandTop
}

func discrepancyAccount(d domain.Discrepancy) string {
	if d.Excel != nil {
		return d.Excel.Account
	}
	if d.SQL != nil {
		return d.SQL.Account
	}
	return ""
}

func recommendations(kindCounts map[domain.Kind]int, total int) []string {
	var recs []string
	if n := kindCounts[domain.KindMissingInSQL]; n > 0 {
		recs = append(recs, fmt.Sprintf("Investigate %d rows present in the Excel extract but missing from SQL; check the export job for dropped records.", n))
	}
	if n := kindCounts[domain.KindMissingInExcel]; n > 0 {
		recs = append(recs, fmt.Sprintf("Investigate %d rows present in the SQL extract but missing from Excel; check for entries posted after the Excel export.", n))
	}
	if n := kindCounts[domain.KindAmountMismatch]; n > 0 {
		recs = append(recs, fmt.Sprintf("Review %d material amount mismatches with the posting source documents.", n))
	}
	if n := kindCounts[domain.KindRoundingDiff]; n > 0 {
		recs = append(recs, fmt.Sprintf("Align rounding conventions between the two systems; %d rows differ only within the rounding band.", n))
	}
	if n := kindCounts[domain.KindDateMismatch]; n > 0 {
		recs = append(recs, fmt.Sprintf("Check posting-date cutoffs; %d rows carry different calendar dates.", n))
	}
	if n := kindCounts[domain.KindAccountMismatch]; n > 0 {
		recs = append(recs, fmt.Sprintf("Verify account mappings; %d rows landed on different accounts.", n))
	}
	if len(recs) == 0 {
		recs = append(recs, fmt.Sprintf("Review the %d reported discrepancies individually.", total))
	}
	return recs
}

type keyCount struct {
	key   string
	count int
}

func topCounts(counts map[string]int, n int) []keyCount {
	all := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		all = append(all, keyCount{key: k, count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].key < all[j].key
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
