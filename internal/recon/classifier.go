package recon

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"gl-reconciler/internal/domain"
)

// Tolerances controls how far two amounts may drift before they stop being
// treated as agreeing.
//
//   - |delta| <= Rounding            amounts agree
//   - Rounding < |delta| <= Mismatch ROUNDING_DIFFERENCE
//   - |delta| > Mismatch             AMOUNT_MISMATCH
//
// A delta exactly at a threshold stays in the lower band.
type Tolerances struct {
	Rounding decimal.Decimal
	Mismatch decimal.Decimal
}

// DefaultTolerances returns the standard one-cent rounding band and the
// one-currency-unit mismatch threshold.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Rounding: decimal.NewFromFloat(0.01),
		Mismatch: decimal.NewFromFloat(1.00),
	}
}

// ParseTolerances builds Tolerances from decimal strings, as carried in
// configuration.
func ParseTolerances(rounding, mismatch string) (Tolerances, error) {
	r, err := decimal.NewFromString(rounding)
	if err != nil {
		return Tolerances{}, fmt.Errorf("invalid rounding tolerance %q: %w", rounding, err)
	}
	m, err := decimal.NewFromString(mismatch)
	if err != nil {
		return Tolerances{}, fmt.Errorf("invalid amount tolerance %q: %w", mismatch, err)
	}
	if m.Cmp(r) < 0 {
		return Tolerances{}, fmt.Errorf("amount tolerance %s below rounding tolerance %s", mismatch, rounding)
	}
	return Tolerances{Rounding: r, Mismatch: m}, nil
}

// Classifier labels matched pairs and unmatched records with a single
// discrepancy kind.
type Classifier struct {
	tol Tolerances
}

// NewClassifier creates a classifier with the given tolerances.
func NewClassifier(tol Tolerances) *Classifier {
	return &Classifier{tol: tol}
}

// Classify returns exactly one Discrepancy for a matched pair, KindNone when
// every field agrees within tolerance. When several fields differ, the most
// financially material kind wins: amount over date over account, with a
// rounding-band difference reported only when nothing else is off.
func (c *Classifier) Classify(pair domain.MatchedPair) domain.Discrepancy {
	excel := pair.Excel
	sqlRec := pair.SQL

	delta := excel.Amount.Sub(sqlRec.Amount).Abs()
	amountsAgree := delta.Cmp(c.tol.Rounding) <= 0
	withinRoundingBand := !amountsAgree && delta.Cmp(c.tol.Mismatch) <= 0

	sameDate := excel.SameDate(sqlRec)
	sameAccount := excel.Account == sqlRec.Account

	d := domain.Discrepancy{
		Kind:      domain.KindNone,
		Reference: excel.Reference,
		Excel:     &excel,
		SQL:       &sqlRec,
		Diffs: []domain.FieldDiff{
			{Field: "amount", Excel: excel.Amount.StringFixed(2), SQL: sqlRec.Amount.StringFixed(2), Equal: amountsAgree},
			{Field: "date", Excel: excel.Date.Format("2006-01-02"), SQL: sqlRec.Date.Format("2006-01-02"), Equal: sameDate},
			{Field: "account", Excel: excel.Account, SQL: sqlRec.Account, Equal: sameAccount},
		},
		AmountDelta: delta,
		Severity:    domain.SeverityLow,
		Confidence:  1.0,
	}

	switch {
	case !amountsAgree && !withinRoundingBand:
		d.Kind = domain.KindAmountMismatch
		d.Severity = domain.SeverityHigh
		d.Confidence = amountConfidence(delta, c.tol.Mismatch)
		d.Detail = fmt.Sprintf("amounts differ by %s: excel=%s sql=%s",
			delta.StringFixed(2), excel.Amount.StringFixed(2), sqlRec.Amount.StringFixed(2))
	case !sameDate:
		d.Kind = domain.KindDateMismatch
		d.Severity = domain.SeverityMedium
		d.Confidence = 0.85
		d.Detail = fmt.Sprintf("dates differ: excel=%s sql=%s",
			excel.Date.Format("2006-01-02"), sqlRec.Date.Format("2006-01-02"))
	case !sameAccount:
		d.Kind = domain.KindAccountMismatch
		d.Severity = domain.SeverityMedium
		d.Confidence = 0.85
		d.Detail = fmt.Sprintf("accounts differ: excel=%s sql=%s", excel.Account, sqlRec.Account)
	case withinRoundingBand:
		d.Kind = domain.KindRoundingDiff
		d.Severity = domain.SeverityLow
		d.Confidence = 0.7
		d.Detail = fmt.Sprintf("amounts differ by %s within the rounding band: excel=%s sql=%s",
			delta.StringFixed(2), excel.Amount.StringFixed(2), sqlRec.Amount.StringFixed(2))
	}

	return d
}

// amountConfidence grows with how far the delta sits past the mismatch
// threshold: 0.85 just past it, approaching 0.99 as the gap widens by orders
// of magnitude.
func amountConfidence(delta, threshold decimal.Decimal) float64 {
	ratio, _ := delta.Div(threshold).Float64()
	if ratio <= 1 {
		return 0.85
	}
	conf := 0.85 + 0.05*math.Log10(ratio)
	if conf > 0.99 {
		conf = 0.99
	}
	return conf
}

// ClassifyMissing labels a record that has no key match on the other side.
// An excel-only record is missing from the SQL extract and vice versa. No
// field comparison happens here.
func (c *Classifier) ClassifyMissing(rec domain.Record, side domain.Source) domain.Discrepancy {
	d := domain.Discrepancy{
		Reference:   rec.Reference,
		AmountDelta: rec.Amount.Abs(),
		Severity:    domain.SeverityHigh,
		Confidence:  1.0,
	}
	switch side {
	case domain.SourceExcel:
		d.Kind = domain.KindMissingInSQL
		d.Excel = &rec
		d.Detail = fmt.Sprintf("reference %s present in the excel extract only", rec.Reference)
	case domain.SourceSQL:
		d.Kind = domain.KindMissingInExcel
		d.SQL = &rec
		d.Detail = fmt.Sprintf("reference %s present in the sql extract only", rec.Reference)
	}
	return d
}
