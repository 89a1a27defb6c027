package taxyear

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML SCHEMA
// =============================================================================
//
// One file per (country, year):
//
//   country: IE
//   tax_year: 2025
//   ireland:
//     paye: {...}
//     usc:  {...}
//     prsi: {...}
//
// UK files carry a `uk:` section instead of `ireland:`.

// Table is one parsed file: exactly one of Ireland/UK is set.
type Table struct {
	Country Country   `yaml:"country"`
	TaxYear int       `yaml:"tax_year"`
	Ireland *IeConfig `yaml:"ireland"`
	UK      *UkConfig `yaml:"uk"`
}

// Parse decodes and validates a single table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tax year YAML: %w", err)
	}

	switch t.Country {
	case CountryIE:
		if t.Ireland == nil || t.UK != nil {
			return nil, &ConfigError{Country: t.Country, Year: t.TaxYear, Reason: "IE table needs an ireland section only"}
		}
		t.Ireland.TaxYear = t.TaxYear
		if err := t.Ireland.Validate(); err != nil {
			return nil, err
		}
	case CountryUK:
		if t.UK == nil || t.Ireland != nil {
			return nil, &ConfigError{Country: t.Country, Year: t.TaxYear, Reason: "UK table needs a uk section only"}
		}
		t.UK.TaxYear = t.TaxYear
		if err := t.UK.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, t.Country)
	}
	return &t, nil
}

// LoadFS parses every *.yaml / *.yml file directly under dir.
func LoadFS(fsys fs.FS, dir string) ([]*Table, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tax table dir %s: %w", dir, err)
	}

	var tables []*Table
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		t, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
