package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DIFF - Period-over-period comparison
// =============================================================================

// FieldDiff compares one field across two payslips. Any component may be
// absent:
//   - Delta: current - previous; current when previous is absent;
//     -previous when current is absent; absent when both are
//   - PercentChange: delta / |previous| * 100; absent when previous is absent
//     or zero, or when there is no delta
type FieldDiff struct {
	Previous      decimal.NullDecimal `json:"previous"`
	Current       decimal.NullDecimal `json:"current"`
	Delta         decimal.NullDecimal `json:"delta"`
	PercentChange decimal.NullDecimal `json:"percentChange"`
}

// Diff holds a FieldDiff for every entry of DiffFields. It is derived data:
// the payslips stay the source of truth.
type Diff map[Field]FieldDiff

// Get returns the diff for a field; fields outside DiffFields are empty.
func (d Diff) Get(f Field) FieldDiff {
	return d[f]
}

// CalculateDiff compares current against previous. previous may be nil (first
// period for this employee); current may not.
func CalculateDiff(previous, current *Payslip) (Diff, error) {
	if current == nil {
		return nil, ErrMissingCurrent
	}

	diff := make(Diff, len(DiffFields))
	for _, f := range DiffFields {
		diff[f] = diffField(previous.Value(f), current.Value(f))
	}
	return diff, nil
}

func diffField(prev, cur decimal.NullDecimal) FieldDiff {
	fd := FieldDiff{Previous: prev, Current: cur}

	switch {
	case cur.Valid && prev.Valid:
		fd.Delta = Some(cur.Decimal.Sub(prev.Decimal))
	case cur.Valid:
		fd.Delta = Some(cur.Decimal)
	case prev.Valid:
		fd.Delta = Some(prev.Decimal.Neg())
	}

	if fd.Delta.Valid && prev.Valid && !prev.Decimal.IsZero() {
		fd.PercentChange = Some(PercentOf(fd.Delta.Decimal, prev.Decimal.Abs()))
	}
	return fd
}
