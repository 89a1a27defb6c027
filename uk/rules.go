/*
rules.go - UK recalculation and category heuristics rules

PURPOSE:
  Recompute PAYE, NIC and student loan deductions with this package's
  calculators and compare them with the payslip using payroll.Tolerance.
  Every rule needs the UK tax table and the UK context; PAYE, NIC and
  student loan checks additionally need a known pay frequency.

RULES:
  UK_PAYE_MISMATCH          tax code + frequency required
  UK_NIC_MISMATCH           frequency required; employee and employer side
                            reported separately
  UK_NIC_CATEGORY_UNUSUAL   first matching reason only
  UK_STUDENT_LOAN_MISMATCH  plan and/or postgraduate flag required
*/
package uk

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

const (
	CodePayeMismatch        = "UK_PAYE_MISMATCH"
	CodeNicMismatch         = "UK_NIC_MISMATCH"
	CodeNicCategoryUnusual  = "UK_NIC_CATEGORY_UNUSUAL"
	CodeStudentLoanMismatch = "UK_STUDENT_LOAN_MISMATCH"
)

// Ages used by the category heuristics.
const (
	StatePensionAge    = 66
	UnderAgeLimit      = 21
	ApprenticeAgeLimit = 25
)

// Reasons reported by UK_NIC_CATEGORY_UNUSUAL.
const (
	ReasonMissingCategory  = "missing_category"
	ReasonExpectedCategory = "expected_category_differs"
	ReasonPensioner        = "pensioner_not_category_c"
	ReasonApprentice       = "apprentice_not_category_h"
	ReasonUnder21          = "under_21_not_category_m"
)

// Rules returns the UK rules in evaluation order.
func Rules() []payroll.RuleDefinition {
	uk := []payroll.Country{payroll.CountryUK}
	return []payroll.RuleDefinition{
		{
			Code:            CodePayeMismatch,
			Description:     "PAYE on payslip {actual} differs from recalculated {expected} for tax code {taxCode}",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryTax, payroll.CategoryRecalculate},
			Countries:       uk,
			Evaluate:        payeMismatch,
		},
		{
			Code:            CodeNicMismatch,
			Description:     "NIC ({side}) on payslip {actual} differs from recalculated {expected} (category {category})",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryTax, payroll.CategoryRecalculate},
			Countries:       uk,
			Evaluate:        nicMismatch,
		},
		{
			Code:            CodeNicCategoryUnusual,
			Description:     "NIC category {category} looks unusual: {reason}",
			DefaultSeverity: payroll.SeverityInfo,
			Categories:      []string{payroll.CategoryCompliance},
			Countries:       uk,
			Evaluate:        nicCategoryUnusual,
		},
		{
			Code:            CodeStudentLoanMismatch,
			Description:     "Student loan deductions on payslip {actual} differ from recalculated {expected}",
			DefaultSeverity: payroll.SeverityWarning,
			Categories:      []string{payroll.CategoryRecalculate},
			Countries:       uk,
			Evaluate:        studentLoanMismatch,
		},
	}
}

// =============================================================================
// EVALUATORS
// =============================================================================

func payeMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg, ctx, cur := rc.Config.UkConfig, rc.UK, rc.Current
	if cfg == nil || ctx == nil || ctx.TaxCode == "" || !ctx.PayFrequency.Known() {
		return nil, nil
	}
	if !cur.GrossPay.Valid || !cur.Paye.Valid {
		return nil, nil
	}

	res, err := CalcPaye(cur.GrossPay.Decimal, ctx.TaxCode, ctx.PayFrequency, cfg)
	if err != nil {
		return nil, err
	}
	diff, mismatch := payroll.Mismatch(res.TaxDue, cur.Paye.Decimal)
	if !mismatch {
		return nil, nil
	}
	return payroll.Single(payroll.Outcome{Data: payroll.IssueData{
		"taxCode":    ctx.TaxCode,
		"expected":   res.TaxDue,
		"actual":     cur.Paye.Decimal,
		"difference": diff,
		"breakdown":  res,
	}}), nil
}

func nicMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg, ctx, cur := rc.Config.UkConfig, rc.UK, rc.Current
	if cfg == nil || ctx == nil || !ctx.PayFrequency.Known() || !cur.GrossPay.Valid {
		return nil, nil
	}
	res, err := CalcNic(cur.GrossPay.Decimal, cur.PrsiOrNiCategory, ctx.PayFrequency, cfg)
	if err != nil {
		return nil, err
	}

	employeeActual := cur.NicEmployee
	if !employeeActual.Valid {
		employeeActual = cur.UscOrNi
	}
	sides := []struct {
		name     string
		expected decimal.Decimal
		actual   decimal.NullDecimal
	}{
		{"employee", res.EmployeeCharge, employeeActual},
		{"employer", res.EmployerCharge, cur.NicEmployer},
	}

	var out []payroll.Outcome
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
			"category":   res.Category,
			"expected":   s.expected,
			"actual":     s.actual.Decimal,
			"difference": diff,
			"breakdown":  res,
		}})
	}
	return out, nil
}

func nicCategoryUnusual(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	if rc.UK == nil {
		return nil, nil
	}
	cat, ok := payroll.NormalizeCategory(rc.Current.PrsiOrNiCategory)
	if !ok {
		return unusual("none", ReasonMissingCategory, nil), nil
	}
	profile := rc.UK.Nic
	if profile == nil {
		return nil, nil
	}
	c := cat.String()
	age := -1
	if profile.Age != nil {
		age = *profile.Age
	}

	if expected, ok := payroll.NormalizeCategory(profile.ExpectedCategory); ok && expected != cat {
		return unusual(c, ReasonExpectedCategory, payroll.IssueData{"expectedCategory": expected.String()}), nil
	}
	if (profile.Pensioner || age >= StatePensionAge) && c != "C" {
		return unusual(c, ReasonPensioner, nil), nil
	}
	if profile.Apprentice && age >= 0 && age < ApprenticeAgeLimit && c != "H" {
		return unusual(c, ReasonApprentice, nil), nil
	}
	if !profile.Apprentice && age >= 0 && age < UnderAgeLimit && c != "M" && c != "Z" {
		return unusual(c, ReasonUnder21, nil), nil
	}
	return nil, nil
}

func studentLoanMismatch(rc *payroll.RuleContext) ([]payroll.Outcome, error) {
	cfg, ctx, cur := rc.Config.UkConfig, rc.UK, rc.Current
	if cfg == nil || ctx == nil || ctx.StudentLoan == nil || !ctx.PayFrequency.Known() || !cur.GrossPay.Valid {
		return nil, nil
	}
	profile := ctx.StudentLoan
	if profile.Plan == "" && !profile.Postgraduate {
		return nil, nil
	}
	if !cur.StudentLoan.Valid && !cur.PostgradLoan.Valid {
		return nil, nil
	}

	res, err := CalcStudentLoan(cur.GrossPay.Decimal, profile.Plan, profile.Postgraduate, ctx.PayFrequency, cfg)
	if errors.Is(err, ErrUnknownPlan) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	actual := decimal.Zero
	for _, v := range []decimal.NullDecimal{cur.StudentLoan, cur.PostgradLoan} {
		if v.Valid {
			actual = actual.Add(v.Decimal)
		}
	}
	diff, mismatch := payroll.Mismatch(res.Total, actual)
	if !mismatch {
		return nil, nil
	}
	return payroll.Single(payroll.Outcome{Data: payroll.IssueData{
		"expected":   res.Total,
		"actual":     actual,
		"difference": diff,
		"breakdown":  res,
	}}), nil
}

func unusual(category, reason string, extra payroll.IssueData) []payroll.Outcome {
	data := payroll.IssueData{"category": category, "reason": reason}
	for k, v := range extra {
		data[k] = v
	}
	return payroll.Single(payroll.Outcome{Data: data})
}
