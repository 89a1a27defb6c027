package ruleconfig

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// OverrideStore fetches client overrides. A client without an override
// returns (nil, nil).
type OverrideStore interface {
	GetOverride(ctx context.Context, clientID string, country payroll.Country) (*payroll.RuleConfigOverride, error)
}

// Resolver builds RuleConfigs from defaults, the tax-year registry and the
// override store. It is safe for concurrent use.
type Resolver struct {
	registry *taxyear.Registry
	store    OverrideStore
	logger   *zap.Logger
}

// NewResolver wires a resolver. store may be nil (defaults only); a nil
// logger discards logs.
func NewResolver(registry *taxyear.Registry, store OverrideStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, store: store, logger: logger.Named("ruleconfig")}
}

// Registry returns the tax-year registry in use.
func (r *Resolver) Registry() *taxyear.Registry {
	return r.registry
}

// Default returns the country's thresholds with the tax-year table for
// taxYear (0 means the latest registered year). A missing table is logged
// and leaves the country config nil.
func (r *Resolver) Default(country payroll.Country, taxYear int) (payroll.RuleConfig, error) {
	if !country.Valid() {
		return payroll.RuleConfig{}, fmt.Errorf("%w: %q", payroll.ErrUnknownCountry, country)
	}
	cfg := Thresholds(country)
	if taxYear == 0 {
		taxYear = r.registry.Latest(country)
	}

	var err error
	switch country {
	case payroll.CountryIE:
		cfg.IeConfig, err = r.registry.Ireland(taxYear)
	case payroll.CountryUK:
		cfg.UkConfig, err = r.registry.UK(taxYear)
	}
	if err != nil {
		if !errors.Is(err, taxyear.ErrTaxYearNotFound) {
			return payroll.RuleConfig{}, err
		}
		r.logger.Warn("no tax-year config, recalculation rules disabled",
			zap.String("country", string(country)),
			zap.Int("tax_year", taxYear),
			zap.Error(err))
	}
	return cfg, nil
}

// Resolve merges the client's stored override onto the default config. An
// empty clientID skips the store.
func (r *Resolver) Resolve(ctx context.Context, clientID string, country payroll.Country, taxYear int) (payroll.RuleConfig, error) {
	base, err := r.Default(country, taxYear)
	if err != nil {
		return payroll.RuleConfig{}, err
	}
	if clientID == "" || r.store == nil {
		return base, nil
	}

	override, err := r.store.GetOverride(ctx, clientID, country)
	if err != nil {
		return payroll.RuleConfig{}, fmt.Errorf("load override for client %s: %w", clientID, err)
	}
	if override.IsEmpty() {
		return base, nil
	}
	r.logger.Debug("applying client override",
		zap.String("client_id", clientID),
		zap.String("country", string(country)))
	return payroll.MergeRuleConfig(base, override), nil
}

// =============================================================================
// OVERRIDE FILES
// =============================================================================

// ParseOverride decodes a YAML override document and validates it.
func ParseOverride(data []byte) (*payroll.RuleConfigOverride, error) {
	var o payroll.RuleConfigOverride
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("%w: %v", payroll.ErrInvalidOverride, err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadOverrideFile reads an override from a YAML file.
func LoadOverrideFile(path string) (*payroll.RuleConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read override %s: %w", path, err)
	}
	return ParseOverride(data)
}
