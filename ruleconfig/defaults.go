/*
Package ruleconfig resolves the RuleConfig an evaluation runs with.

PURPOSE:
  A RuleConfig is the per-country default thresholds, plus the tax-year
  table for (country, year), plus whatever a client has overridden. This
  package owns those defaults and the resolution order.

RESOLUTION:
  1. Thresholds(country) - static per-country defaults
  2. tax-year table from the taxyear.Registry; a missing table is logged
     and left nil, so recalculation rules simply do not fire
  3. the client's stored override, merged with payroll.MergeRuleConfig

SEE ALSO:
  - payroll/config.go: RuleConfig, RuleConfigOverride, MergeRuleConfig
  - store/: override persistence
*/
package ruleconfig

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

var (
	fifteen = decimal.NewFromInt(15)
	twenty  = decimal.NewFromInt(20)
	quarter = decimal.NewFromInt(25)
	thirty  = decimal.NewFromInt(30)
	forty   = decimal.NewFromInt(40)
	ten     = decimal.NewFromInt(10)
	five    = decimal.NewFromInt(5)
)

// Thresholds returns the static default thresholds of a country, without
// any tax-year table. Ireland allows higher employee pension contributions
// (age-related relief tops out at 40% of earnings) than is typical in the UK.
func Thresholds(country payroll.Country) payroll.RuleConfig {
	cfg := payroll.RuleConfig{
		LargeNetChangePercent:         fifteen,
		LargeGrossChangePercent:       fifteen,
		PayeSpikePercent:              quarter,
		UscSpikePercent:               quarter,
		MaxGrossDeltaPercent:          ten,
		MaxGrossDeltaForUscPercent:    ten,
		PensionEmployeePercent:        twenty,
		PensionEmployerPercent:        twenty,
		ContractGrossTolerancePercent: five,
		Enrichment:                    payroll.Enrichment{ShowBreakdown: true},
	}
	if country == payroll.CountryIE {
		cfg.PensionEmployeePercent = forty
		cfg.PensionEmployerPercent = thirty
	}
	return cfg
}
