/*
Package payroll provides the core rule evaluation engine.

PURPOSE:
  This package contains the country-agnostic types and algorithms of the
  anomaly engine: the payslip record, period-over-period diffs, the rule
  registry and evaluator, rule configuration, and the issue candidates the
  engine produces. Country packages (ireland/, uk/) plug their calculators
  and rules into it the same way any custom rule would.

KEY CONCEPTS IN THIS FILE (money.go):
  - All money is decimal.Decimal; sparse values are decimal.NullDecimal
  - Tolerance: the fixed 1-unit absolute tolerance used by every mismatch
  - Round2: half-away-from-zero rounding to cents

DESIGN PRINCIPLES:
  1. Purity: no I/O, no logging, no shared mutable state
  2. Precision: decimal arithmetic, never float64, for money
  3. Absence is not zero: a field that was not reported stays invalid
  4. Auditability: every issue carries the numbers that produced it

SEE ALSO:
  - payslip.go: the payslip record
  - diff.go: period-over-period comparison
  - evaluator.go: running a RuleSet
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS
// =============================================================================

var (
	// Tolerance is the absolute difference (one unit of currency) below or at
	// which two amounts are considered equal by mismatch rules.
	Tolerance = decimal.NewFromInt(1)

	hundred = decimal.NewFromInt(100)
)

// =============================================================================
// HELPERS
// =============================================================================

// Some wraps a value as present.
func Some(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: v, Valid: true}
}

// None is the absent value.
func None() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// D builds a present value from a float. Intended for tests and fixtures.
func D(v float64) decimal.NullDecimal {
	return Some(decimal.NewFromFloat(v))
}

// Round2 rounds to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ExceedsTolerance reports whether |a - b| > tol, and returns a - b.
func ExceedsTolerance(a, b, tol decimal.Decimal) (decimal.Decimal, bool) {
	diff := a.Sub(b)
	return diff, diff.Abs().GreaterThan(tol)
}

// Mismatch compares an expected (recalculated) figure with the reported one
// using the fixed Tolerance. The returned difference is actual - expected.
func Mismatch(expected, actual decimal.Decimal) (decimal.Decimal, bool) {
	return ExceedsTolerance(actual, expected, Tolerance)
}

// PercentOf returns part / whole * 100. whole must be non-zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(hundred)
}

// SumField adds up one field over many payslips, treating absent as zero.
func SumField(payslips []Payslip, f Field) decimal.Decimal {
	total := decimal.Zero
	for i := range payslips {
		if v := payslips[i].Value(f); v.Valid {
			total = total.Add(v.Decimal)
		}
	}
	return total
}
