/*
rules.go - Irish recalculation and class heuristics rules

PURPOSE:
  Each mismatch rule recomputes a statutory deduction with the calculators
  of this package and compares it with what the payslip reports, using the
  fixed payroll.Tolerance. A rule that lacks the data it needs (tax table,
  profile, reported figure, known class) returns nothing.

RULES:
  IE_PAYE_MISMATCH       needs IeConfig + PAYE profile
  IE_USC_MISMATCH        needs IeConfig; annualised when a frequency is known
  IE_PRSI_MISMATCH       needs IeConfig + Ireland context; per side
  IE_PRSI_CLASS_UNUSUAL  needs Ireland context; first matching reason only
*/
package ireland

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

const (
	CodePayeMismatch     = "IE_PAYE_MISMATCH"
	CodeUscMismatch      = "IE_USC_MISMATCH"
	CodePrsiMismatch     = "IE_PRSI_MISMATCH"
	CodePrsiClassUnusual = "IE_PRSI_CLASS_UNUSUAL"
)

// PensionableAge is the age from which class J is expected.
const PensionableAge = 66

const (
	classPensioner    = "J"
	classSelfEmployed = "S"
	classLowPay       = "J"

	prsiSideEmployee = "employee"
	prsiSideEmployer = "employer"
)

// Reasons reported by IE_PRSI_CLASS_UNUSUAL.
const (
	ReasonMissingClass  = "missing_class"
	ReasonExpectedClass = "expected_class_differs"
	ReasonPensioner     = "pensioner_not_class_j"
	ReasonSelfEmployed  = "self_employed_not_class_s"
	ReasonLowPay        = "low_pay_not_class_j"
)

// Rules returns the Irish rules in evaluation order.
func Rules() []payroll.RuleDefinition {
	ie := []payroll.Country{payroll.CountryIE}
	return []payroll.RuleDefinition{
		{
			Code:            CodePayeMismatch,
			Description:     "PAYE on payslip {actual} differs from recalculated {expected} by {difference}",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryTax, payroll.CategoryRecalculate},
			Countries:       ie,
			Evaluate:        payeMismatch,
		},
		{
			Code:            CodeUscMismatch,
			Description:     "USC on payslip {actual} differs from recalculated {expected} by {difference}",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryTax, payroll.CategoryRecalculate},
			Countries:       ie,
			Evaluate:        uscMismatch,
		},
		{
			Code:            CodePrsiMismatch,
			Description:     "PRSI ({side}) on payslip {actual} differs from recalculated {expected} (class {class})",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryTax, payroll.CategoryRecalculate},
			Countries:       ie,
			Evaluate:        prsiMismatch,
		},
		{
			Code:            CodePrsiClassUnusual,
			Description:     "PRSI class {class} looks unusual: {reason}",
			DefaultSeverity: payroll.SeverityInfo,
			Categories:      []string{payroll.CategoryCompliance},
			Countries:       ie,
			Evaluate:        prsiClassUnusual,
		},
	}
}

// =============================================================================
// EVALUATORS
// =============================================================================

func payeMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg := rc.Config.IeConfig
	cur := rc.Current
	if cfg == nil || rc.Ireland == nil || !cur.GrossPay.Valid || !cur.Paye.Valid {
		return nil, nil
	}
	cutoff, credits, ok := PayeInputs(rc.Ireland.Paye, rc.Ireland.PayFrequency, cfg)
	if !ok {
		return nil, nil
	}

	res, err := CalcPaye(cur.GrossPay.Decimal, cutoff, credits, cfg)
	if err != nil {
		return nil, err
	}
	diff, mismatch := payroll.Mismatch(res.TaxDue, cur.Paye.Decimal)
	if !mismatch {
		return nil, nil
	}
	return payroll.Single(payroll.Outcome{Data: payroll.IssueData{
		"expected":   res.TaxDue,
		"actual":     cur.Paye.Decimal,
		"difference": diff,
		"breakdown":  res,
	}}), nil
}

func uscMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg := rc.Config.IeConfig
	cur := rc.Current
	if cfg == nil || !cur.GrossPay.Valid || !cur.UscOrNi.Valid {
		return nil, nil
	}

	var opts UscOptions
	if rc.Ireland != nil {
		opts = UscOptions{Frequency: rc.Ireland.PayFrequency, Profile: rc.Ireland.Usc}
	}
	res, err := CalcUscWith(cur.GrossPay.Decimal, cfg, opts)
	if err != nil {
		return nil, err
	}
	diff, mismatch := payroll.Mismatch(res.TotalCharge, cur.UscOrNi.Decimal)
	if !mismatch {
		return nil, nil
	}
	return payroll.Single(payroll.Outcome{Data: payroll.IssueData{
		"expected":   res.TotalCharge,
		"actual":     cur.UscOrNi.Decimal,
		"difference": diff,
		"breakdown":  res,
	}}), nil
}

func prsiMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg := rc.Config.IeConfig
	if cfg == nil || rc.Ireland == nil {
		return nil, nil
	}
	res, err := CalcPrsi(rc.Current, cfg, PrsiOptions{Frequency: rc.Ireland.PayFrequency, Profile: rc.Ireland.Prsi})
	if err != nil || res == nil {
		return nil, err
	}

	var out []payroll.Outcome
	sides := []struct {
		name     string
		expected decimal.Decimal
		actual   decimal.NullDecimal
	}{
		{prsiSideEmployee, res.EmployeeCharge, rc.Current.NicEmployee},
		{prsiSideEmployer, res.EmployerCharge, rc.Current.NicEmployer},
	}
	for _, s := range sides {
		if !s.actual.Valid {
			continue
		}
		diff, mismatch := payroll.Mismatch(s.expected, s.actual.Decimal)
		if !mismatch {
			continue
		}
		out = append(out, payroll.Outcome{Data: payroll.IssueData{
			"side":       s.name,
			"class":      res.Class,
			"expected":   s.expected,
			"actual":     s.actual.Decimal,
			"difference": diff,
			"breakdown":  res,
		}})
	}
	return out, nil
}

func prsiClassUnusual(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	if rc.Ireland == nil {
		return nil, nil
	}
	class, ok := payroll.NormalizeCategory(rc.Current.PrsiOrNiCategory)
	if !ok {
		return unusual("none", ReasonMissingClass, nil), nil
	}

	profile := rc.Ireland.Prsi
	if profile == nil {
		return nil, nil
	}
	c := class.String()

	if expected, ok := payroll.NormalizeCategory(profile.ExpectedClass); ok && expected != class {
		return unusual(c, ReasonExpectedClass, payroll.IssueData{"expectedClass": expected.String()}), nil
	}
	if (profile.Pensioner || (profile.Age != nil && *profile.Age >= PensionableAge)) && c != classPensioner {
		return unusual(c, ReasonPensioner, nil), nil
	}
	if profile.SelfEmployed && c != classSelfEmployed {
		return unusual(c, ReasonSelfEmployed, nil), nil
	}
	if profile.LowPayRole && c != classLowPay {
		cfg := rc.Config.IeConfig
		if cfg == nil || !rc.Current.GrossPay.Valid {
			return nil, nil
		}
		classA, found := cfg.Prsi.Class(ClassA)
		if !found {
			return nil, nil
		}
		weekly := WeeklyEarnings(rc.Current.GrossPay.Decimal, PrsiOptions{Frequency: rc.Ireland.PayFrequency, Profile: profile})
		if weekly.LessThan(classA.WeeklyThreshold) {
			return unusual(c, ReasonLowPay, payroll.IssueData{
				"weeklyEarnings":  payroll.Round2(weekly),
				"weeklyThreshold": classA.WeeklyThreshold,
			}), nil
		}
	}
	return nil, nil
}

func unusual(class, reason string, extra payroll.IssueData) []payroll.Outcome {
	data := payroll.IssueData{"class": class, "reason": reason}
	for k, v := range extra {
		data[k] = v
	}
	return payroll.Single(payroll.Outcome{Data: data})
}
