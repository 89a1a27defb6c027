// Package rules assembles the production rule set from the core,
// Irish and UK rule definitions.
package rules

import (
	"slices"

	"github.com/warp/payroll-engine/ireland"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/uk"
)

// Definitions lists every baseline rule: core rules first, then Irish, then
// UK.
func Definitions() []payroll.RuleDefinition {
	return slices.Concat(payroll.CoreRules(), ireland.Rules(), uk.Rules())
}

// Baseline builds the baseline RuleSet.
func Baseline() *payroll.RuleSet {
	return payroll.MustRuleSet(Definitions()...)
}

// Install makes the baseline the process-wide active rule set if none is
// installed yet, and returns the active set.
func Install() *payroll.RuleSet {
	if rs := payroll.Active(); rs != nil {
		return rs
	}
	rs := Baseline()
	payroll.SetActive(rs)
	return rs
}

// Codes returns the distinct rule codes of rs in order.
func Codes(rs *payroll.RuleSet) []string {
	var out []string
	for _, d := range rs.Definitions() {
		if !slices.Contains(out, d.Code) {
			out = append(out, d.Code)
		}
	}
	return out
}
