package taxyear

import (
	"errors"
	"fmt"
)

var (
	// ErrTaxYearNotFound is returned when no table is registered for a
	// (country, year) pair.
	ErrTaxYearNotFound = errors.New("tax year config not found")

	// ErrMalformedConfig is returned when a table fails validation.
	ErrMalformedConfig = errors.New("malformed tax year config")

	ErrUnknownCountry = errors.New("unknown country")
)

// ConfigError carries which table failed and why.
type ConfigError struct {
	Country Country
	Year    int
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tax year config %s/%d: %s", e.Country, e.Year, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrMalformedConfig
}

// NotFoundError reports a missing (country, year) table.
type NotFoundError struct {
	Country Country
	Year    int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tax year config for %s/%d", e.Country, e.Year)
}

func (e *NotFoundError) Unwrap() error {
	return ErrTaxYearNotFound
}
