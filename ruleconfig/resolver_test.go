package ruleconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

type stubStore struct {
	overrides map[string]*payroll.RuleConfigOverride
	err       error
}

func (s *stubStore) GetOverride(_ context.Context, clientID string, country payroll.Country) (*payroll.RuleConfigOverride, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overrides[clientID+"/"+string(country)], nil
}

func TestThresholds_PerCountry(t *testing.T) {
	ie := Thresholds(payroll.CountryIE)
	uk := Thresholds(payroll.CountryUK)

	assert.True(t, ie.LargeNetChangePercent.Equal(decimal.NewFromInt(15)))
	assert.True(t, ie.PensionEmployeePercent.Equal(decimal.NewFromInt(40)))
	assert.True(t, ie.PensionEmployerPercent.Equal(decimal.NewFromInt(30)))
	assert.True(t, uk.PensionEmployeePercent.Equal(decimal.NewFromInt(20)))
	assert.True(t, uk.ContractGrossTolerancePercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, uk.Enrichment.ShowBreakdown)
	assert.Nil(t, ie.IeConfig)
}

func TestResolver_Default(t *testing.T) {
	r := NewResolver(taxyear.MustDefault(), nil, nil)

	t.Run("explicit year attaches table", func(t *testing.T) {
		cfg, err := r.Default(payroll.CountryIE, 2025)
		require.NoError(t, err)
		require.NotNil(t, cfg.IeConfig)
		assert.Nil(t, cfg.UkConfig)
	})

	t.Run("zero year means latest", func(t *testing.T) {
		cfg, err := r.Default(payroll.CountryUK, 0)
		require.NoError(t, err)
		require.NotNil(t, cfg.UkConfig)
		latest, _ := r.Registry().UK(r.Registry().Latest(payroll.CountryUK))
		assert.Same(t, latest, cfg.UkConfig)
	})

	t.Run("unknown country", func(t *testing.T) {
		_, err := r.Default("FR", 2025)
		assert.ErrorIs(t, err, payroll.ErrUnknownCountry)
	})
}

func TestResolver_Default_MissingYearLogsWarning(t *testing.T) {
	// GIVEN: a logger that records entries
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewResolver(taxyear.MustDefault(), nil, zap.New(core))

	// WHEN: resolving a year with no table
	cfg, err := r.Default(payroll.CountryIE, 1999)

	// THEN: no error, no table, one warning
	require.NoError(t, err)
	assert.Nil(t, cfg.IeConfig)
	assert.True(t, cfg.LargeNetChangePercent.Equal(decimal.NewFromInt(15)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(1999), logs.All()[0].ContextMap()["tax_year"])
}

func TestResolver_Resolve(t *testing.T) {
	net := decimal.NewFromInt(30)
	store := &stubStore{overrides: map[string]*payroll.RuleConfigOverride{
		"acme/IE": {
			LargeNetChangePercent: &net,
			SeverityOverrides:     map[string]payroll.Severity{"NET_CHANGE_LARGE": payroll.SeverityCritical},
		},
	}}
	r := NewResolver(taxyear.MustDefault(), store, zap.NewNop())
	ctx := context.Background()

	t.Run("client override merged", func(t *testing.T) {
		cfg, err := r.Resolve(ctx, "acme", payroll.CountryIE, 2025)
		require.NoError(t, err)
		assert.True(t, cfg.LargeNetChangePercent.Equal(net))
		assert.True(t, cfg.LargeGrossChangePercent.Equal(decimal.NewFromInt(15)))
		assert.Equal(t, payroll.SeverityCritical, cfg.SeverityOverrides["NET_CHANGE_LARGE"])
		assert.NotNil(t, cfg.IeConfig)
	})

	t.Run("override is per country", func(t *testing.T) {
		cfg, err := r.Resolve(ctx, "acme", payroll.CountryUK, 2025)
		require.NoError(t, err)
		assert.True(t, cfg.LargeNetChangePercent.Equal(decimal.NewFromInt(15)))
	})

	t.Run("no client skips store", func(t *testing.T) {
		failing := NewResolver(taxyear.MustDefault(), &stubStore{err: errors.New("boom")}, nil)
		_, err := failing.Resolve(ctx, "", payroll.CountryIE, 2025)
		assert.NoError(t, err)
	})

	t.Run("store error surfaces", func(t *testing.T) {
		failing := NewResolver(taxyear.MustDefault(), &stubStore{err: errors.New("boom")}, nil)
		_, err := failing.Resolve(ctx, "acme", payroll.CountryIE, 2025)
		assert.ErrorContains(t, err, "boom")
	})
}

func TestParseOverride(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		o, err := ParseOverride([]byte(`
large_net_change_percent: "20"
severity_overrides:
  YTD_REGRESSION: warning
enrichment:
  show_breakdown: false
  show_rates: true
`))
		require.NoError(t, err)
		require.NotNil(t, o.LargeNetChangePercent)
		assert.True(t, o.LargeNetChangePercent.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, payroll.SeverityWarning, o.SeverityOverrides["YTD_REGRESSION"])
		require.NotNil(t, o.Enrichment)
		assert.True(t, o.Enrichment.ShowRates)
	})

	t.Run("invalid severity", func(t *testing.T) {
		_, err := ParseOverride([]byte("severity_overrides:\n  X: loud\n"))
		assert.ErrorIs(t, err, payroll.ErrInvalidOverride)
	})

	t.Run("not yaml", func(t *testing.T) {
		_, err := ParseOverride([]byte("::: ["))
		assert.ErrorIs(t, err, payroll.ErrInvalidOverride)
	})
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paye_spike_percent: \"40\"\n"), 0o600))

	o, err := LoadOverrideFile(path)
	require.NoError(t, err)
	assert.True(t, o.PayeSpikePercent.Equal(decimal.NewFromInt(40)))

	_, err = LoadOverrideFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
