/*
core_rules.go - Country-agnostic anomaly rules

PURPOSE:
  Period-over-period checks that need nothing but the two payslips, their
  diff and the numeric thresholds of RuleConfig. They apply to every country
  and tax year.

RULES:
  NET_CHANGE_LARGE, GROSS_CHANGE_LARGE   |% change| >= threshold
  TAX_SPIKE_WITHOUT_GROSS               PAYE jumps, gross does not
  USC_SPIKE_WITHOUT_GROSS               USC/NI jumps, gross does not
  YTD_REGRESSION                        a year-to-date total went down
  PRSI_CATEGORY_CHANGE                  class/category letter changed
  PENSION_EMPLOYEE_HIGH/EMPLOYER_HIGH   contribution % of gross too high
  CONTRACT_GROSS_MISMATCH               gross differs from contract salary

SEE ALSO:
  - ireland/rules.go, uk/rules.go: recalculation rules
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// Rule codes of the core rules.
const (
	CodeNetChangeLarge        = "NET_CHANGE_LARGE"
	CodeGrossChangeLarge      = "GROSS_CHANGE_LARGE"
	CodeTaxSpikeWithoutGross  = "TAX_SPIKE_WITHOUT_GROSS"
	CodeUscSpikeWithoutGross  = "USC_SPIKE_WITHOUT_GROSS"
	CodeYtdRegression         = "YTD_REGRESSION"
	CodePrsiCategoryChange    = "PRSI_CATEGORY_CHANGE"
	CodePensionEmployeeHigh   = "PENSION_EMPLOYEE_HIGH"
	CodePensionEmployerHigh   = "PENSION_EMPLOYER_HIGH"
	CodeContractGrossMismatch = "CONTRACT_GROSS_MISMATCH"
)

// Category tags.
const (
	CategoryChange      = "change"
	CategoryTax         = "tax"
	CategoryYtd         = "ytd"
	CategoryPension     = "pension"
	CategoryCompliance  = "compliance"
	CategoryContract    = "contract"
	CategoryRecalculate = "recalculation"
)

// CoreRules returns the country-agnostic rules in evaluation order.
func CoreRules() []RuleDefinition {
	return []RuleDefinition{
		{
			Code:            CodeNetChangeLarge,
			Description:     "Net pay changed by {percentChange}% (from {previous} to {current})",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryChange},
			Evaluate:        largeChange(FieldNetPay, func(c RuleConfig) decimal.Decimal { return c.LargeNetChangePercent }),
		},
		{
			Code:            CodeGrossChangeLarge,
			Description:     "Gross pay changed by {percentChange}% (from {previous} to {current})",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryChange},
			Evaluate:        largeChange(FieldGrossPay, func(c RuleConfig) decimal.Decimal { return c.LargeGrossChangePercent }),
		},
		{
			Code:            CodeTaxSpikeWithoutGross,
			Description:     "PAYE changed by {percentChange}% while gross pay changed by {grossPercentChange}%",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryChange, CategoryTax},
			Evaluate: spikeWithoutGross(FieldPaye,
				func(c RuleConfig) decimal.Decimal { return c.PayeSpikePercent },
				func(c RuleConfig) decimal.Decimal { return c.MaxGrossDeltaPercent }),
		},
		{
			Code:            CodeUscSpikeWithoutGross,
			Description:     "USC/NI changed by {percentChange}% while gross pay changed by {grossPercentChange}%",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryChange, CategoryTax},
			Evaluate: spikeWithoutGross(FieldUscOrNi,
				func(c RuleConfig) decimal.Decimal { return c.UscSpikePercent },
				func(c RuleConfig) decimal.Decimal { return c.MaxGrossDeltaForUscPercent }),
		},
		{
			Code:            CodeYtdRegression,
			Description:     "Year-to-date {field} decreased from {previous} to {current}",
			DefaultSeverity: SeverityCritical,
			Categories:      []string{CategoryYtd},
			Evaluate:        ytdRegression,
		},
		{
			Code:            CodePrsiCategoryChange,
			Description:     "PRSI/NI category changed from {previousCategory} to {currentCategory}",
			DefaultSeverity: SeverityInfo,
			Categories:      []string{CategoryCompliance},
			Evaluate:        categoryChange,
		},
		{
			Code:            CodePensionEmployeeHigh,
			Description:     "Employee pension contribution is {percentOfGross}% of gross pay (ceiling {ceiling}%)",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryPension},
			Evaluate:        pensionHigh(FieldPensionEmployee, func(c RuleConfig) decimal.Decimal { return c.PensionEmployeePercent }),
		},
		{
			Code:            CodePensionEmployerHigh,
			Description:     "Employer pension contribution is {percentOfGross}% of gross pay (ceiling {ceiling}%)",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryPension},
			Evaluate:        pensionHigh(FieldPensionEmployer, func(c RuleConfig) decimal.Decimal { return c.PensionEmployerPercent }),
		},
		{
			Code:            CodeContractGrossMismatch,
			Description:     "Gross pay {actual} differs from contracted {expected} by {differencePercent}%",
			DefaultSeverity: SeverityWarning,
			Categories:      []string{CategoryContract},
			Evaluate:        contractGross,
		},
	}
}

// =============================================================================
// EVALUATORS
// =============================================================================

type threshold func(RuleConfig) decimal.Decimal

func largeChange(f Field, limit threshold) EvaluateFunc {
	return func(rc *RuleContext) ([]Outcome, error) {
		fd := rc.Diff.Get(f)
		if !fd.Previous.Valid || !fd.PercentChange.Valid {
			return nil, nil
		}
		if fd.PercentChange.Decimal.Abs().LessThan(limit(rc.Config)) {
			return nil, nil
		}
		return Single(Outcome{Data: IssueData{
			"field":         string(f),
			"previous":      fd.Previous.Decimal,
			"current":       fd.Current.Decimal,
			"delta":         fd.Delta.Decimal,
			"percentChange": Round2(fd.PercentChange.Decimal),
			"threshold":     limit(rc.Config),
		}}), nil
	}
}

func spikeWithoutGross(f Field, spike, maxGross threshold) EvaluateFunc {
	return func(rc *RuleContext) ([]Outcome, error) {
		fd := rc.Diff.Get(f)
		if !fd.PercentChange.Valid || fd.PercentChange.Decimal.Abs().LessThan(spike(rc.Config)) {
			return nil, nil
		}
		gross := rc.Diff.Get(FieldGrossPay)
		if gross.PercentChange.Valid && gross.PercentChange.Decimal.Abs().GreaterThan(maxGross(rc.Config)) {
			return nil, nil
		}

		data := IssueData{
			"field":              string(f),
			"previous":           fd.Previous.Decimal,
			"current":            fd.Current.Decimal,
			"delta":              fd.Delta.Decimal,
			"percentChange":      Round2(fd.PercentChange.Decimal),
			"grossPercentChange": "n/a",
		}
		if gross.PercentChange.Valid {
			data["grossPercentChange"] = Round2(gross.PercentChange.Decimal)
		}
		return Single(Outcome{Data: data}), nil
	}
}

func ytdRegression(rc *RuleContext) ([]Outcome, error) {
	if !rc.HasPrevious() {
		return nil, nil
	}
	var out []Outcome
	for _, f := range YtdFields {
		fd := rc.Diff.Get(f)
		if !fd.Previous.Valid || !fd.Current.Valid {
			continue
		}
		if fd.Current.Decimal.LessThan(fd.Previous.Decimal) {
			out = append(out, Outcome{Data: IssueData{
				"field":    string(f),
				"previous": fd.Previous.Decimal,
				"current":  fd.Current.Decimal,
				"delta":    fd.Delta.Decimal,
			}})
		}
	}
	return out, nil
}

func categoryChange(rc *RuleContext) ([]Outcome, error) {
	if !rc.HasPrevious() {
		return nil, nil
	}
	prev, okPrev := NormalizeCategory(rc.Previous.PrsiOrNiCategory)
	cur, okCur := NormalizeCategory(rc.Current.PrsiOrNiCategory)
	if !okPrev || !okCur || prev == cur {
		return nil, nil
	}
	return Single(Outcome{Data: IssueData{
		"previousCategory": string(prev),
		"currentCategory":  string(cur),
	}}), nil
}

func pensionHigh(f Field, ceiling threshold) EvaluateFunc {
	return func(rc *RuleContext) ([]Outcome, error) {
		gross := rc.Current.GrossPay
		contrib := rc.Current.Value(f)
		if !gross.Valid || !gross.Decimal.IsPositive() || !contrib.Valid {
			return nil, nil
		}
		pct := PercentOf(contrib.Decimal, gross.Decimal)
		if pct.LessThan(ceiling(rc.Config)) {
			return nil, nil
		}
		return Single(Outcome{Data: IssueData{
			"field":          string(f),
			"contribution":   contrib.Decimal,
			"grossPay":       gross.Decimal,
			"percentOfGross": Round2(pct),
			"ceiling":        ceiling(rc.Config),
		}}), nil
	}
}

func contractGross(rc *RuleContext) ([]Outcome, error) {
	c := rc.Contract
	if c == nil || c.AnnualSalary == nil || !c.PayFrequency.Known() || !rc.Current.GrossPay.Valid {
		return nil, nil
	}
	expected := c.AnnualSalary.Div(decimal.NewFromInt(int64(c.PayFrequency.PeriodsPerYear())))
	if !expected.IsPositive() {
		return nil, nil
	}
	actual := rc.Current.GrossPay.Decimal
	diffPct := PercentOf(actual.Sub(expected), expected)
	if !diffPct.Abs().GreaterThan(rc.Config.ContractGrossTolerancePercent) {
		return nil, nil
	}
	return Single(Outcome{Data: IssueData{
		"expected":          Round2(expected),
		"actual":            actual,
		"difference":        Round2(actual.Sub(expected)),
		"differencePercent": Round2(diffPct),
		"annualSalary":      *c.AnnualSalary,
		"payFrequency":      string(c.PayFrequency),
	}}), nil
}
