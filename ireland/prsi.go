package ireland

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// PRSI
// =============================================================================

// ClassA is the class that carries the tapering employee credit.
const ClassA = "A"

// PrsiResult is the PRSI computation for one pay period.
type PrsiResult struct {
	Class          string          `json:"class"`
	WeeklyEarnings decimal.Decimal `json:"weeklyEarnings"`
	Threshold      decimal.Decimal `json:"weeklyThreshold"`
	Chargeable     bool            `json:"chargeable"`
	EmployeeRate   decimal.Decimal `json:"employeeRate"`
	EmployerRate   decimal.Decimal `json:"employerRate"`
	Credit         decimal.Decimal `json:"credit"`
	EmployeeCharge decimal.Decimal `json:"employeeCharge"`
	EmployerCharge decimal.Decimal `json:"employerCharge"`
}

// PrsiOptions are the optional inputs of CalcPrsi.
type PrsiOptions struct {
	Frequency payroll.PayFrequency
	Profile   *payroll.IePrsiProfile
}

// ResolveClass picks the payslip's class, falling back to the profile's
// expected class.
func ResolveClass(p *payroll.Payslip, profile *payroll.IePrsiProfile) (payroll.Category, bool) {
	if p != nil {
		if c, ok := payroll.NormalizeCategory(p.PrsiOrNiCategory); ok {
			return c, true
		}
	}
	if profile != nil {
		return payroll.NormalizeCategory(profile.ExpectedClass)
	}
	return "", false
}

// WeeklyEarnings converts period gross to weekly earnings unless the profile
// declares them. An unknown frequency takes gross as weekly.
func WeeklyEarnings(gross decimal.Decimal, opts PrsiOptions) decimal.Decimal {
	if opts.Profile != nil && opts.Profile.WeeklyEarnings != nil {
		return *opts.Profile.WeeklyEarnings
	}
	return opts.Frequency.ToWeekly(gross)
}

// CalcPrsi computes employee and employer PRSI for a payslip. It returns nil
// when the class is missing or not in the tax table, or gross pay is absent:
// those cannot be verified.
func CalcPrsi(p *payroll.Payslip, cfg *taxyear.IeConfig, opts PrsiOptions) (*PrsiResult, error) {
	if cfg == nil {
		return nil, payroll.ErrMissingTaxTable
	}
	if p == nil || !p.GrossPay.Valid {
		return nil, nil
	}
	code, ok := ResolveClass(p, opts.Profile)
	if !ok {
		return nil, nil
	}
	class, ok := cfg.Prsi.Class(code.String())
	if !ok {
		return nil, nil
	}

	gross := p.GrossPay.Decimal
	weekly := WeeklyEarnings(gross, opts)
	res := &PrsiResult{
		Class:          code.String(),
		WeeklyEarnings: payroll.Round2(weekly),
		Threshold:      class.WeeklyThreshold,
		EmployeeRate:   class.EmployeeRate,
		EmployerRate:   class.EmployerRate,
		Credit:         decimal.Zero,
		EmployeeCharge: decimal.Zero,
		EmployerCharge: decimal.Zero,
	}
	if !weekly.GreaterThan(class.WeeklyThreshold) {
		return res, nil
	}

	res.Chargeable = true
	employee := gross.Mul(class.EmployeeRate)
	employer := gross.Mul(class.EmployerRate)

	if res.Class == ClassA {
		credit := opts.Frequency.FromWeekly(weeklyCredit(weekly, class.WeeklyThreshold, cfg.Prsi.Credit))
		res.Credit = payroll.Round2(credit)
		employee = decimal.Max(employee.Sub(credit), decimal.Zero)
	}

	res.EmployeeCharge = payroll.Round2(employee)
	res.EmployerCharge = payroll.Round2(employer)
	return res, nil
}

// weeklyCredit tapers linearly from MaxWeekly at the threshold to zero at
// the taper ceiling.
func weeklyCredit(weekly, threshold decimal.Decimal, c taxyear.PrsiCredit) decimal.Decimal {
	span := c.TaperCeiling.Sub(threshold)
	if !span.IsPositive() || !weekly.GreaterThan(threshold) || !weekly.LessThan(c.TaperCeiling) {
		return decimal.Zero
	}
	return c.MaxWeekly.Mul(c.TaperCeiling.Sub(weekly)).Div(span)
}
