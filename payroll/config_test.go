package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

func baseConfig() payroll.RuleConfig {
	return payroll.RuleConfig{
		LargeNetChangePercent:         dec("15"),
		LargeGrossChangePercent:       dec("15"),
		PayeSpikePercent:              dec("25"),
		UscSpikePercent:               dec("25"),
		MaxGrossDeltaPercent:          dec("10"),
		MaxGrossDeltaForUscPercent:    dec("10"),
		PensionEmployeePercent:        dec("40"),
		PensionEmployerPercent:        dec("20"),
		ContractGrossTolerancePercent: dec("5"),
		IeConfig:                      &taxyear.IeConfig{TaxYear: 2025},
		SeverityOverrides:             map[string]payroll.Severity{"NET_CHANGE_LARGE": payroll.SeverityInfo},
	}
}

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestMergeRuleConfig_OverrideReplacesOnlySetKeys(t *testing.T) {
	base := baseConfig()
	override := &payroll.RuleConfigOverride{
		LargeNetChangePercent: ptr("30"),
		Enrichment:            &payroll.Enrichment{ShowBreakdown: true},
	}

	merged := payroll.MergeRuleConfig(base, override)

	assert.True(t, merged.LargeNetChangePercent.Equal(dec("30")))
	assert.True(t, merged.LargeGrossChangePercent.Equal(dec("15")))
	assert.True(t, merged.Enrichment.ShowBreakdown)
	assert.Same(t, base.IeConfig, merged.IeConfig)
	assert.Equal(t, base.SeverityOverrides, merged.SeverityOverrides)
}

func TestMergeRuleConfig_Idempotent(t *testing.T) {
	base := baseConfig()
	self := base.AsOverride()

	once := payroll.MergeRuleConfig(base, &self)
	twice := payroll.MergeRuleConfig(once, &self)

	assert.Equal(t, base, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, base, payroll.MergeRuleConfig(base, nil))
}

func TestMergeRuleConfig_DoesNotAliasSeverityMap(t *testing.T) {
	base := baseConfig()
	override := &payroll.RuleConfigOverride{
		SeverityOverrides: map[string]payroll.Severity{"YTD_REGRESSION": payroll.SeverityWarning},
	}

	merged := payroll.MergeRuleConfig(base, override)
	override.SeverityOverrides["YTD_REGRESSION"] = payroll.SeverityInfo

	assert.Equal(t, payroll.SeverityWarning, merged.SeverityOverrides["YTD_REGRESSION"])
	_, kept := merged.SeverityOverrides["NET_CHANGE_LARGE"]
	assert.False(t, kept, "maps are replaced wholesale")
}

func TestRuleConfig_ForCountry(t *testing.T) {
	cfg := baseConfig()
	cfg.UkConfig = &taxyear.UkConfig{TaxYear: 2025}

	ie := cfg.ForCountry(payroll.CountryIE)
	assert.NotNil(t, ie.IeConfig)
	assert.Nil(t, ie.UkConfig)

	uk := cfg.ForCountry(payroll.CountryUK)
	assert.Nil(t, uk.IeConfig)
	assert.NotNil(t, uk.UkConfig)
}

func TestRuleConfigOverride_Validate(t *testing.T) {
	assert.NoError(t, (*payroll.RuleConfigOverride)(nil).Validate())
	assert.True(t, (&payroll.RuleConfigOverride{}).IsEmpty())

	bad := &payroll.RuleConfigOverride{
		SeverityOverrides: map[string]payroll.Severity{"X": "urgent"},
	}
	require.ErrorIs(t, bad.Validate(), payroll.ErrInvalidOverride)

	negative := &payroll.RuleConfigOverride{PayeSpikePercent: ptr("-1")}
	require.ErrorIs(t, negative.Validate(), payroll.ErrInvalidOverride)
}
