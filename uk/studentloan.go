package uk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// ErrUnknownPlan is returned for a student loan plan the tax year does not
// define.
var ErrUnknownPlan = errors.New("unknown student loan plan")

// StudentLoanResult is the student loan deduction for one pay period.
type StudentLoanResult struct {
	Plan              string          `json:"plan,omitempty"`
	PlanThreshold     decimal.Decimal `json:"planThreshold"`
	PlanCharge        decimal.Decimal `json:"planCharge"`
	PostgradThreshold decimal.Decimal `json:"postgradThreshold"`
	PostgradCharge    decimal.Decimal `json:"postgradCharge"`
	Total             decimal.Decimal `json:"total"`
}

// NormalizePlan maps "2", "Plan 2", "PLAN_2" to "plan_2" and "PGL" or
// "postgraduate" to the postgraduate plan.
func NormalizePlan(raw string) string {
	s := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	s = strings.ReplaceAll(s, "_", "")
	switch {
	case s == "":
		return ""
	case s == "pgl" || strings.HasPrefix(s, "postgrad"):
		return taxyear.PostgraduatePlan
	case strings.HasPrefix(s, "plan"):
		return "plan_" + strings.TrimPrefix(s, "plan")
	case len(s) == 1 && s[0] >= '0' && s[0] <= '9':
		return "plan_" + s
	}
	return s
}

// CalcStudentLoan computes the plan and postgraduate deductions. Each is
// max(0, pay - annual threshold / periods) * rate.
func CalcStudentLoan(gross decimal.Decimal, plan string, postgrad bool, freq payroll.PayFrequency, cfg *taxyear.UkConfig) (StudentLoanResult, error) {
	if cfg == nil {
		return StudentLoanResult{}, payroll.ErrMissingTaxTable
	}
	periods := decimal.NewFromInt(int64(freq.PeriodsPerYear()))
	res := StudentLoanResult{
		PlanThreshold:     decimal.Zero,
		PlanCharge:        decimal.Zero,
		PostgradThreshold: decimal.Zero,
		PostgradCharge:    decimal.Zero,
	}

	charge := func(p taxyear.StudentLoanPlan) (threshold, amount decimal.Decimal) {
		threshold = p.AnnualThreshold.Div(periods)
		amount = positive(gross.Sub(threshold)).Mul(p.Rate)
		return payroll.Round2(threshold), payroll.Round2(amount)
	}

	if id := NormalizePlan(plan); id != "" {
		p, ok := cfg.StudentLoanPlan(id)
		if !ok {
			return StudentLoanResult{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
		}
		res.Plan = id
		res.PlanThreshold, res.PlanCharge = charge(p)
	}
	if postgrad {
		p, ok := cfg.StudentLoanPlan(taxyear.PostgraduatePlan)
		if !ok {
			return StudentLoanResult{}, fmt.Errorf("%w: %q", ErrUnknownPlan, taxyear.PostgraduatePlan)
		}
		res.PostgradThreshold, res.PostgradCharge = charge(p)
	}

	res.Total = res.PlanCharge.Add(res.PostgradCharge)
	return res, nil
}
