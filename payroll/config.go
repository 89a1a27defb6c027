package payroll

import (
	"fmt"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// RULE CONFIG
// =============================================================================

// Enrichment toggles how much structured data the UI renders. The engine
// always computes the full payload; these are presentation hints.
type Enrichment struct {
	ShowBreakdown bool `json:"showBreakdown" yaml:"show_breakdown"`
	ShowRates     bool `json:"showRates" yaml:"show_rates"`
}

// RuleConfig is the fully resolved configuration of one evaluation: numeric
// thresholds (all in percent), the tax-year table of the evaluated country,
// and per-rule severity overrides.
//
// Exactly one of IeConfig/UkConfig is set for a given country; ForCountry
// enforces that.
type RuleConfig struct {
	LargeNetChangePercent         decimal.Decimal `json:"largeNetChangePercent" yaml:"large_net_change_percent"`
	LargeGrossChangePercent       decimal.Decimal `json:"largeGrossChangePercent" yaml:"large_gross_change_percent"`
	PayeSpikePercent              decimal.Decimal `json:"payeSpikePercent" yaml:"paye_spike_percent"`
	UscSpikePercent               decimal.Decimal `json:"uscSpikePercent" yaml:"usc_spike_percent"`
	MaxGrossDeltaPercent          decimal.Decimal `json:"maxGrossDeltaPercent" yaml:"max_gross_delta_percent"`
	MaxGrossDeltaForUscPercent    decimal.Decimal `json:"maxGrossDeltaForUscPercent" yaml:"max_gross_delta_for_usc_percent"`
	PensionEmployeePercent        decimal.Decimal `json:"pensionEmployeePercent" yaml:"pension_employee_percent"`
	PensionEmployerPercent        decimal.Decimal `json:"pensionEmployerPercent" yaml:"pension_employer_percent"`
	ContractGrossTolerancePercent decimal.Decimal `json:"contractGrossTolerancePercent" yaml:"contract_gross_tolerance_percent"`

	IeConfig *taxyear.IeConfig `json:"ieConfig,omitempty" yaml:"-"`
	UkConfig *taxyear.UkConfig `json:"ukConfig,omitempty" yaml:"-"`

	SeverityOverrides map[string]Severity `json:"severityOverrides,omitempty" yaml:"severity_overrides,omitempty"`
	Enrichment        Enrichment          `json:"enrichment" yaml:"enrichment"`
}

// ForCountry returns a copy that keeps only the tax table of country.
func (c RuleConfig) ForCountry(country Country) RuleConfig {
	switch country {
	case CountryIE:
		c.UkConfig = nil
	case CountryUK:
		c.IeConfig = nil
	default:
		c.IeConfig, c.UkConfig = nil, nil
	}
	return c
}

// TaxYear returns the year of the tax table resolved for country, or 0 when
// none is attached.
func (c RuleConfig) TaxYear(country Country) int {
	switch {
	case country == CountryIE && c.IeConfig != nil:
		return c.IeConfig.TaxYear
	case country == CountryUK && c.UkConfig != nil:
		return c.UkConfig.TaxYear
	}
	return 0
}

// =============================================================================
// OVERRIDES
// =============================================================================

// RuleConfigOverride is a client-specific partial RuleConfig. A nil field
// means "keep the base value".
type RuleConfigOverride struct {
	LargeNetChangePercent         *decimal.Decimal `json:"largeNetChangePercent,omitempty" yaml:"large_net_change_percent,omitempty"`
	LargeGrossChangePercent       *decimal.Decimal `json:"largeGrossChangePercent,omitempty" yaml:"large_gross_change_percent,omitempty"`
	PayeSpikePercent              *decimal.Decimal `json:"payeSpikePercent,omitempty" yaml:"paye_spike_percent,omitempty"`
	UscSpikePercent               *decimal.Decimal `json:"uscSpikePercent,omitempty" yaml:"usc_spike_percent,omitempty"`
	MaxGrossDeltaPercent          *decimal.Decimal `json:"maxGrossDeltaPercent,omitempty" yaml:"max_gross_delta_percent,omitempty"`
	MaxGrossDeltaForUscPercent    *decimal.Decimal `json:"maxGrossDeltaForUscPercent,omitempty" yaml:"max_gross_delta_for_usc_percent,omitempty"`
	PensionEmployeePercent        *decimal.Decimal `json:"pensionEmployeePercent,omitempty" yaml:"pension_employee_percent,omitempty"`
	PensionEmployerPercent        *decimal.Decimal `json:"pensionEmployerPercent,omitempty" yaml:"pension_employer_percent,omitempty"`
	ContractGrossTolerancePercent *decimal.Decimal `json:"contractGrossTolerancePercent,omitempty" yaml:"contract_gross_tolerance_percent,omitempty"`

	IeConfig *taxyear.IeConfig `json:"ieConfig,omitempty" yaml:"-"`
	UkConfig *taxyear.UkConfig `json:"ukConfig,omitempty" yaml:"-"`

	SeverityOverrides map[string]Severity `json:"severityOverrides,omitempty" yaml:"severity_overrides,omitempty"`
	Enrichment        *Enrichment         `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
}

// IsEmpty reports whether the override changes nothing.
func (o *RuleConfigOverride) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.LargeNetChangePercent == nil && o.LargeGrossChangePercent == nil &&
		o.PayeSpikePercent == nil && o.UscSpikePercent == nil &&
		o.MaxGrossDeltaPercent == nil && o.MaxGrossDeltaForUscPercent == nil &&
		o.PensionEmployeePercent == nil && o.PensionEmployerPercent == nil &&
		o.ContractGrossTolerancePercent == nil &&
		o.IeConfig == nil && o.UkConfig == nil &&
		o.SeverityOverrides == nil && o.Enrichment == nil
}

// Validate rejects unknown severities.
func (o *RuleConfigOverride) Validate() error {
	if o == nil {
		return nil
	}
	for code, sev := range o.SeverityOverrides {
		if !sev.Valid() {
			return fmt.Errorf("%w: severity override for %s: %q", ErrInvalidOverride, code, sev)
		}
	}
	for _, p := range []*decimal.Decimal{
		o.LargeNetChangePercent, o.LargeGrossChangePercent, o.PayeSpikePercent,
		o.UscSpikePercent, o.MaxGrossDeltaPercent, o.MaxGrossDeltaForUscPercent,
		o.PensionEmployeePercent, o.PensionEmployerPercent, o.ContractGrossTolerancePercent,
	} {
		if p != nil && p.IsNegative() {
			return fmt.Errorf("%w: negative threshold %s", ErrInvalidOverride, p.String())
		}
	}
	return nil
}

// AsOverride turns a full config into an override that sets every key.
func (c RuleConfig) AsOverride() RuleConfigOverride {
	ptr := func(d decimal.Decimal) *decimal.Decimal { return &d }
	e := c.Enrichment
	return RuleConfigOverride{
		LargeNetChangePercent:         ptr(c.LargeNetChangePercent),
		LargeGrossChangePercent:       ptr(c.LargeGrossChangePercent),
		PayeSpikePercent:              ptr(c.PayeSpikePercent),
		UscSpikePercent:               ptr(c.UscSpikePercent),
		MaxGrossDeltaPercent:          ptr(c.MaxGrossDeltaPercent),
		MaxGrossDeltaForUscPercent:    ptr(c.MaxGrossDeltaForUscPercent),
		PensionEmployeePercent:        ptr(c.PensionEmployeePercent),
		PensionEmployerPercent:        ptr(c.PensionEmployerPercent),
		ContractGrossTolerancePercent: ptr(c.ContractGrossTolerancePercent),
		IeConfig:                      c.IeConfig,
		UkConfig:                      c.UkConfig,
		SeverityOverrides:             maps.Clone(c.SeverityOverrides),
		Enrichment:                    &e,
	}
}

// MergeRuleConfig applies override on top of base. Every key set in the
// override replaces the base value; maps are replaced wholesale, not merged.
// Merging a config with its own AsOverride returns it unchanged.
func MergeRuleConfig(base RuleConfig, override *RuleConfigOverride) RuleConfig {
	out := base
	out.SeverityOverrides = maps.Clone(base.SeverityOverrides)
	if override == nil {
		return out
	}

	set := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	set(&out.LargeNetChangePercent, override.LargeNetChangePercent)
	set(&out.LargeGrossChangePercent, override.LargeGrossChangePercent)
	set(&out.PayeSpikePercent, override.PayeSpikePercent)
	set(&out.UscSpikePercent, override.UscSpikePercent)
	set(&out.MaxGrossDeltaPercent, override.MaxGrossDeltaPercent)
	set(&out.MaxGrossDeltaForUscPercent, override.MaxGrossDeltaForUscPercent)
	set(&out.PensionEmployeePercent, override.PensionEmployeePercent)
	set(&out.PensionEmployerPercent, override.PensionEmployerPercent)
	set(&out.ContractGrossTolerancePercent, override.ContractGrossTolerancePercent)

	if override.IeConfig != nil {
		out.IeConfig = override.IeConfig
	}
	if override.UkConfig != nil {
		out.UkConfig = override.UkConfig
	}
	if override.SeverityOverrides != nil {
		out.SeverityOverrides = maps.Clone(override.SeverityOverrides)
	}
	if override.Enrichment != nil {
		out.Enrichment = *override.Enrichment
	}
	return out
}
