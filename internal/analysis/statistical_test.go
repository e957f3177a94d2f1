package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gl-reconciler/internal/domain"
)

func disc(kind domain.Kind, ref, account, delta string) domain.Discrepancy {
	d, err := decimal.NewFromString(delta)
	if err != nil {
		panic(err)
	}
	rec := domain.Record{
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Account:   account,
		Amount:    decimal.NewFromInt(100),
		Reference: ref,
	}
	return domain.Discrepancy{
		Kind:        kind,
		Reference:   ref,
		Excel:       &rec,
		AmountDelta: d,
	}
}

func TestStatisticalAugmenter_Analyze(t *testing.T) {
	discrepancies := []domain.Discrepancy{
		disc(domain.KindAmountMismatch, "R1", "1000", "150.00"),
		disc(domain.KindAmountMismatch, "R2", "1000", "5.50"),
		disc(domain.KindRoundingDiff, "R3", "2000", "0.01"),
		disc(domain.KindMissingInSQL, "R4", "3000", "42.00"),
		disc(domain.KindDateMismatch, "R5", "1000", "0.00"),
	}

	a := NewStatisticalAugmenter()
	got, err := a.Analyze(context.Background(), discrepancies)
	require.NoError(t, err)

	assert.Equal(t, "statistical", got.Source)
	assert.False(t, got.AIUsed)
	assert.NotEmpty(t, got.Patterns)
	assert.NotEmpty(t, got.Recommendations)

	labels := make(map[string]int)
	for _, p := range got.Patterns {
		labels[p.Label] = p.Count
	}
	assert.Equal(t, 2, labels["AMOUNT_MISMATCH discrepancies"])
	assert.Equal(t, 1, labels["MISSING_IN_SQL discrepancies"])
	assert.Equal(t, 3, labels["account 1000 involved"])
	assert.Equal(t, 1, labels["amount delta over 100.00"])
	assert.Equal(t, 1, labels["amount delta at or under 0.01"])
}

func TestStatisticalAugmenter_Deterministic(t *testing.T) {
	discrepancies := []domain.Discrepancy{
		disc(domain.KindAmountMismatch, "R1", "1000", "150.00"),
		disc(domain.KindRoundingDiff, "R2", "2000", "0.50"),
		disc(domain.KindMissingInExcel, "R3", "3000", "7.00"),
	}

	a := NewStatisticalAugmenter()
	first, err := a.Analyze(context.Background(), discrepancies)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), discrepancies)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStatisticalAugmenter_Empty(t *testing.T) {
	a := NewStatisticalAugmenter()
	got, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, got.Patterns)
	require.Len(t, got.Recommendations, 1)
	assert.Contains(t, got.Recommendations[0], "No discrepancies")
}

func TestStatisticalAugmenter_RecurringReference(t *testing.T) {
	discrepancies := []domain.Discrepancy{
		disc(domain.KindDateMismatch, "R1", "1000", "0.00"),
		disc(domain.KindAccountMismatch, "R1", "1000", "0.00"),
	}

	got, err := NewStatisticalAugmenter().Analyze(context.Background(), discrepancies)
	require.NoError(t, err)

	var found bool
	for _, p := range got.Patterns {
		if p.Label == "reference R1 recurs" {
			found = true
			assert.Equal(t, 2, p.Count)
		}
	}
	assert.True(t, found, "expected a recurring-reference pattern")
}
