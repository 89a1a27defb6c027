package uk

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// NATIONAL INSURANCE
// =============================================================================

// DefaultCategory is assumed when the payslip shows no readable letter.
const DefaultCategory = "A"

// NicResult is the class 1 NIC computation for one pay period.
type NicResult struct {
	Category          string          `json:"category"`
	WeeklyEarnings    decimal.Decimal `json:"weeklyEarnings"`
	EmployeeLowerRate decimal.Decimal `json:"employeeLowerRate"`
	EmployeeUpperRate decimal.Decimal `json:"employeeUpperRate"`
	EmployerRate      decimal.Decimal `json:"employerRate"`
	EmployerRelief    bool            `json:"employerRelief"`
	EmployeeCharge    decimal.Decimal `json:"employeeCharge"`
	EmployerCharge    decimal.Decimal `json:"employerCharge"`
}

// NormalizeNicCategory reads the category letter, defaulting to A. Letters
// the tax table does not know fall back to A in CalcNic.
func NormalizeNicCategory(raw string) string {
	if c, ok := payroll.NormalizeCategory(raw); ok {
		return c.String()
	}
	return DefaultCategory
}

// CalcNic computes employee and employer NIC on the weekly equivalent of
// gross and scales the result back to the pay period.
func CalcNic(gross decimal.Decimal, category string, freq payroll.PayFrequency, cfg *taxyear.UkConfig) (NicResult, error) {
	if cfg == nil {
		return NicResult{}, payroll.ErrMissingTaxTable
	}
	letter := NormalizeNicCategory(category)
	nic := cfg.Nic
	cat, ok := nic.Category(letter)
	if !ok {
		letter = DefaultCategory
		cat, _ = nic.Category(letter)
	}

	lower := orDefault(cat.EmployeeLower, nic.Rates.EmployeeLower)
	upper := orDefault(cat.EmployeeUpper, nic.Rates.EmployeeUpper)
	employerRate := orDefault(cat.Employer, nic.Rates.Employer)

	weekly := freq.ToWeekly(decimal.Max(gross, decimal.Zero))
	th := nic.Weekly

	mainBand := positive(decimal.Min(weekly, th.UpperEarningsLimit).Sub(th.Primary))
	aboveUel := positive(weekly.Sub(th.UpperEarningsLimit))
	employee := mainBand.Mul(lower).Add(aboveUel.Mul(upper))

	relief := false
	if cat.EmployerBelowUST != nil {
		ust := th.UpperEarningsLimit
		if cat.UpperSecondaryThreshold != nil {
			ust = *cat.UpperSecondaryThreshold
		}
		if weekly.LessThanOrEqual(ust) {
			employerRate = *cat.EmployerBelowUST
			relief = true
		}
	}
	employer := positive(weekly.Sub(th.Secondary)).Mul(employerRate)

	return NicResult{
		Category:          letter,
		WeeklyEarnings:    payroll.Round2(weekly),
		EmployeeLowerRate: lower,
		EmployeeUpperRate: upper,
		EmployerRate:      employerRate,
		EmployerRelief:    relief,
		EmployeeCharge:    payroll.Round2(freq.FromWeekly(employee)),
		EmployerCharge:    payroll.Round2(freq.FromWeekly(employer)),
	}, nil
}

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return def
}

func positive(d decimal.Decimal) decimal.Decimal {
	return decimal.Max(d, decimal.Zero)
}
