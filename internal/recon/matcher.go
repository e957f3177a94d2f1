// Package recon implements the reconciliation core: key-based matching of
// the two ledger extracts, per-pair discrepancy classification, and the
// pipeline that ties loading, matching, classification and analysis together.
package recon

import (
	"gl-reconciler/internal/domain"
)

// MatchResult partitions the two datasets into matched pairs and the
// records left over on either side.
type MatchResult struct {
	Pairs     []domain.MatchedPair
	ExcelOnly []domain.Record
	SQLOnly   []domain.Record
}

// Match aligns the excel-side and sql-side datasets on the composite join
// key (reference + account, reference alone when the account is empty).
//
// Duplicate keys pair up in first-seen order: the nth occurrence of a key on
// the excel side pairs with the nth occurrence on the sql side. Leftover
// occurrences on either side end up unmatched. The pass is hash-grouped and
// near-linear in total row count; Match never mutates its inputs.
func Match(excel, sql *domain.Dataset) MatchResult {
	// Group sql-side record indices by key, preserving input order.
	sqlByKey := make(map[string][]int, len(sql.Records))
	for i, rec := range sql.Records {
		key := rec.Key()
		sqlByKey[key] = append(sqlByKey[key], i)
	}

	result := MatchResult{}
	consumed := make([]bool, len(sql.Records))
	cursor := make(map[string]int, len(sqlByKey))

	for _, rec := range excel.Records {
		key := rec.Key()
		candidates := sqlByKey[key]
		next := cursor[key]
		if next >= len(candidates) {
			result.ExcelOnly = append(result.ExcelOnly, rec)
			continue
		}
		cursor[key] = next + 1

		idx := candidates[next]
		consumed[idx] = true
		result.Pairs = append(result.Pairs, domain.MatchedPair{
			Excel: rec,
			SQL:   sql.Records[idx],
		})
	}

	for i, rec := range sql.Records {
		if !consumed[i] {
			result.SQLOnly = append(result.SQLOnly, rec)
		}
	}
	return result
}
