package taxyear

import (
	"embed"
	"os"
	"sort"
	"sync"
)

//go:embed tables/*.yaml
var embedded embed.FS

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps (country, year) to a validated table. It is filled at
// startup and read concurrently afterwards.
type Registry struct {
	mu sync.RWMutex
	ie map[int]*IeConfig
	uk map[int]*UkConfig
}

func NewRegistry() *Registry {
	return &Registry{
		ie: make(map[int]*IeConfig),
		uk: make(map[int]*UkConfig),
	}
}

// Default returns a registry holding the shipped tables.
func Default() (*Registry, error) {
	r := NewRegistry()
	tables, err := LoadFS(embedded, "tables")
	if err != nil {
		return nil, err
	}
	r.Register(tables...)
	return r, nil
}

// MustDefault is Default for tests and package-level fixtures.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadDir registers every table in a directory, replacing shipped tables
// for the same (country, year).
func (r *Registry) LoadDir(dir string) error {
	tables, err := LoadFS(os.DirFS(dir), ".")
	if err != nil {
		return err
	}
	r.Register(tables...)
	return nil
}

// Register adds already-validated tables.
func (r *Registry) Register(tables ...*Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tables {
		switch t.Country {
		case CountryIE:
			r.ie[t.TaxYear] = t.Ireland
		case CountryUK:
			r.uk[t.TaxYear] = t.UK
		}
	}
}

// Ireland returns the Irish table for a year.
func (r *Registry) Ireland(year int) (*IeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ie[year]
	if !ok {
		return nil, &NotFoundError{Country: CountryIE, Year: year}
	}
	return c, nil
}

// UK returns the UK table for a year (keyed by starting year).
func (r *Registry) UK(year int) (*UkConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.uk[year]
	if !ok {
		return nil, &NotFoundError{Country: CountryUK, Year: year}
	}
	return c, nil
}

// Years lists registered years for a country, ascending.
func (r *Registry) Years(country Country) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var years []int
	switch country {
	case CountryIE:
		for y := range r.ie {
			years = append(years, y)
		}
	case CountryUK:
		for y := range r.uk {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// Latest returns the most recent registered year for a country, or 0.
func (r *Registry) Latest(country Country) int {
	years := r.Years(country)
	if len(years) == 0 {
		return 0
	}
	return years[len(years)-1]
}
