package taxyear

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Validate checks the Irish table invariants. Calculators call the narrower
// ValidateBands/ValidateRate helpers so that a malformed table surfaces as an
// error rather than a wrong number.
func (c *IeConfig) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigError{Country: CountryIE, Year: c.TaxYear, Reason: fmt.Sprintf(format, args...)}
	}

	if c.TaxYear <= 0 {
		return fail("tax_year must be positive")
	}
	if err := ValidateRate(c.Paye.StandardRate); err != nil {
		return fail("paye standard_rate: %v", err)
	}
	if err := ValidateRate(c.Paye.HigherRate); err != nil {
		return fail("paye higher_rate: %v", err)
	}
	for status, cutoff := range c.Paye.StandardRateCutoffs {
		if cutoff.IsNegative() {
			return fail("paye cutoff for %s is negative", status)
		}
	}
	if err := ValidateUscBands(c.Usc.Bands); err != nil {
		return fail("usc bands: %v", err)
	}
	if c.Usc.ReducedRates != nil {
		if err := ValidateUscBands(c.Usc.ReducedRates.Bands); err != nil {
			return fail("usc reduced_rates bands: %v", err)
		}
	}
	if c.Usc.Surcharge != nil {
		if err := ValidateRate(c.Usc.Surcharge.Rate); err != nil {
			return fail("usc surcharge rate: %v", err)
		}
	}
	for code, class := range c.Prsi.Classes {
		if len(code) != 1 {
			return fail("prsi class code %q must be a single letter", code)
		}
		if err := ValidateRate(class.EmployeeRate); err != nil {
			return fail("prsi class %s employee_rate: %v", code, err)
		}
		if err := ValidateRate(class.EmployerRate); err != nil {
			return fail("prsi class %s employer_rate: %v", code, err)
		}
		if class.WeeklyThreshold.IsNegative() {
			return fail("prsi class %s weekly_threshold is negative", code)
		}
	}
	if c.Prsi.Credit.TaperCeiling.IsPositive() {
		if a, ok := c.Prsi.Class("A"); ok && !c.Prsi.Credit.TaperCeiling.GreaterThan(a.WeeklyThreshold) {
			return fail("prsi credit taper_ceiling must exceed the class A threshold")
		}
	}
	return nil
}

// Validate checks the UK table invariants.
func (c *UkConfig) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigError{Country: CountryUK, Year: c.TaxYear, Reason: fmt.Sprintf(format, args...)}
	}

	if c.TaxYear <= 0 {
		return fail("tax_year must be positive")
	}
	if c.Paye.PersonalAllowance.IsNegative() {
		return fail("paye personal_allowance is negative")
	}
	if err := ValidatePayeBands(c.Paye.Bands); err != nil {
		return fail("paye bands: %v", err)
	}
	w := c.Nic.Weekly
	if w.Primary.IsNegative() || w.Secondary.IsNegative() {
		return fail("nic thresholds must not be negative")
	}
	if w.UpperEarningsLimit.LessThan(w.Primary) {
		return fail("nic upper_earnings_limit below primary threshold")
	}
	for _, r := range []decimal.Decimal{c.Nic.Rates.EmployeeLower, c.Nic.Rates.EmployeeUpper, c.Nic.Rates.Employer} {
		if err := ValidateRate(r); err != nil {
			return fail("nic rates: %v", err)
		}
	}
	for letter, cat := range c.Nic.Categories {
		if len(letter) != 1 {
			return fail("nic category %q must be a single letter", letter)
		}
		for _, r := range []*decimal.Decimal{cat.EmployeeLower, cat.EmployeeUpper, cat.Employer, cat.EmployerBelowUST} {
			if r == nil {
				continue
			}
			if err := ValidateRate(*r); err != nil {
				return fail("nic category %s: %v", letter, err)
			}
		}
	}
	seen := make(map[string]bool, len(c.StudentLoans))
	for _, p := range c.StudentLoans {
		if p.Plan == "" {
			return fail("student loan plan without identifier")
		}
		if seen[p.Plan] {
			return fail("duplicate student loan plan %s", p.Plan)
		}
		seen[p.Plan] = true
		if err := ValidateRate(p.Rate); err != nil {
			return fail("student loan %s: %v", p.Plan, err)
		}
	}
	return nil
}

// ValidateRate requires 0 <= r <= 1.
func ValidateRate(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(one) {
		return fmt.Errorf("rate %s outside [0, 1]", r)
	}
	return nil
}

// ValidateUscBands requires at least one band, strictly ascending upper
// bounds, and exactly one unbounded band in last position.
func ValidateUscBands(bands []UscBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("no bands")
	}
	prev := decimal.Zero
	for i, b := range bands {
		if err := ValidateRate(b.Rate); err != nil {
			return fmt.Errorf("band %d: %w", i, err)
		}
		last := i == len(bands)-1
		if b.UpTo == nil {
			if !last {
				return fmt.Errorf("band %d is unbounded but not last", i)
			}
			continue
		}
		if last {
			return fmt.Errorf("last band must be unbounded")
		}
		if !b.UpTo.GreaterThan(prev) {
			return fmt.Errorf("band %d upper bound %s not above %s", i, b.UpTo, prev)
		}
		prev = *b.UpTo
	}
	return nil
}

// ValidatePayeBands applies the same partition rules to UK PAYE bands.
func ValidatePayeBands(bands []PayeBand) error {
	usc := make([]UscBand, len(bands))
	for i, b := range bands {
		usc[i] = UscBand{UpTo: b.UpTo, Rate: b.Rate}
	}
	return ValidateUscBands(usc)
}
