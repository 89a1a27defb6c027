/*
Package taxyear holds the statutory rate tables the payroll engine checks
payslips against.

PURPOSE:
  Every calculator in the ireland/ and uk/ packages is a pure function of
  gross pay, a worker profile and ONE tax-year table. This package owns those
  tables: their typed shape, how they are loaded from YAML, how they are
  validated, and how they are looked up by (country, year).

KEY CONCEPTS IN THIS FILE (types.go):
  - Country: "IE" or "UK"
  - IeConfig: PAYE rates + standard-rate cutoffs, USC bands, PRSI classes
  - UkConfig: PAYE allowance + bands, NIC thresholds/rates/categories,
    student loan plans

TAX YEAR KEYS:
  Ireland's tax year is the calendar year. The UK tax year runs 6 April to
  5 April and is keyed by its STARTING calendar year: UK 2025 means 2025/26.

BANDS:
  Banded tables (USC, UK PAYE) list bands in ascending order of their upper
  bound. A nil upper bound means "unbounded" and is only allowed on the last
  band. Together the bands partition income from 0 to infinity.

SEE ALSO:
  - loader.go: YAML parsing and validation
  - registry.go: lookup by country and year
  - tables/*.yaml: shipped tables
*/
package taxyear

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COUNTRY
// =============================================================================

type Country string

const (
	CountryIE Country = "IE"
	CountryUK Country = "UK"
)

// Valid reports whether c is a supported jurisdiction.
func (c Country) Valid() bool {
	return c == CountryIE || c == CountryUK
}

// ParseCountry accepts any casing, and "GB" for the UK.
func ParseCountry(s string) (Country, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IE":
		return CountryIE, true
	case "UK", "GB":
		return CountryUK, true
	}
	return "", false
}

// =============================================================================
// IRELAND
// =============================================================================

// FilingStatus selects the PAYE standard-rate cutoff.
type FilingStatus string

const (
	FilingSingle            FilingStatus = "single"
	FilingSingleParent      FilingStatus = "single_parent"
	FilingMarriedOneIncome  FilingStatus = "married_one_income"
	FilingMarriedTwoIncomes FilingStatus = "married_two_incomes"
)

// IeConfig is one Irish tax year.
type IeConfig struct {
	TaxYear int    `yaml:"tax_year" json:"taxYear"`
	Paye    IePaye `yaml:"paye" json:"paye"`
	Usc     IeUsc  `yaml:"usc" json:"usc"`
	Prsi    IePrsi `yaml:"prsi" json:"prsi"`
}

// IePaye holds the two PAYE rates and the annual standard-rate cutoffs.
type IePaye struct {
	StandardRate        decimal.Decimal                  `yaml:"standard_rate" json:"standardRate"`
	HigherRate          decimal.Decimal                  `yaml:"higher_rate" json:"higherRate"`
	StandardRateCutoffs map[FilingStatus]decimal.Decimal `yaml:"standard_rate_cutoffs" json:"standardRateCutoffs"`
	PersonalCredit      decimal.Decimal                  `yaml:"personal_credit" json:"personalCredit"`
	EmployeeCredit      decimal.Decimal                  `yaml:"employee_credit" json:"employeeCredit"`
}

// AnnualCutoff returns the standard-rate cutoff for a filing status.
func (p IePaye) AnnualCutoff(status FilingStatus) (decimal.Decimal, bool) {
	v, ok := p.StandardRateCutoffs[status]
	return v, ok
}

// DefaultAnnualCredits is the personal plus employee credit a single PAYE
// worker gets without any additional reliefs.
func (p IePaye) DefaultAnnualCredits() decimal.Decimal {
	return p.PersonalCredit.Add(p.EmployeeCredit)
}

// UscBand is one USC band. UpTo is the band's upper bound on annual income;
// nil means the band is unbounded.
type UscBand struct {
	UpTo *decimal.Decimal `yaml:"up_to" json:"upTo"`
	Rate decimal.Decimal  `yaml:"rate" json:"rate"`
}

type UscSurcharge struct {
	Threshold decimal.Decimal `yaml:"threshold" json:"threshold"`
	Rate      decimal.Decimal `yaml:"rate" json:"rate"`
}

// UscReducedRates apply to medical card holders and over-70s whose income
// does not exceed IncomeCeiling.
type UscReducedRates struct {
	IncomeCeiling decimal.Decimal `yaml:"income_ceiling" json:"incomeCeiling"`
	Bands         []UscBand       `yaml:"bands" json:"bands"`
}

type IeUsc struct {
	Bands              []UscBand        `yaml:"bands" json:"bands"`
	ExemptionThreshold *decimal.Decimal `yaml:"exemption_threshold" json:"exemptionThreshold,omitempty"`
	Surcharge          *UscSurcharge    `yaml:"surcharge" json:"surcharge,omitempty"`
	ReducedRates       *UscReducedRates `yaml:"reduced_rates" json:"reducedRates,omitempty"`
}

// PrsiClass is one PRSI class. WeeklyThreshold is the weekly earnings at or
// below which no PRSI is charged.
type PrsiClass struct {
	EmployeeRate    decimal.Decimal `yaml:"employee_rate" json:"employeeRate"`
	EmployerRate    decimal.Decimal `yaml:"employer_rate" json:"employerRate"`
	WeeklyThreshold decimal.Decimal `yaml:"weekly_threshold" json:"weeklyThreshold"`
}

// PrsiCredit is the class A tapering employee credit: MaxWeekly just above
// the class threshold, falling linearly to zero at TaperCeiling.
type PrsiCredit struct {
	MaxWeekly    decimal.Decimal `yaml:"max_weekly" json:"maxWeekly"`
	TaperCeiling decimal.Decimal `yaml:"taper_ceiling" json:"taperCeiling"`
}

type IePrsi struct {
	Classes map[string]PrsiClass `yaml:"classes" json:"classes"`
	Credit  PrsiCredit           `yaml:"credit" json:"credit"`
}

// Class looks up a PRSI class by its single-letter code.
func (p IePrsi) Class(code string) (PrsiClass, bool) {
	c, ok := p.Classes[code]
	return c, ok
}

// =============================================================================
// UNITED KINGDOM
// =============================================================================

// UkConfig is one UK tax year (keyed by starting year).
type UkConfig struct {
	TaxYear      int               `yaml:"tax_year" json:"taxYear"`
	Paye         UkPaye            `yaml:"paye" json:"paye"`
	Nic          UkNic             `yaml:"nic" json:"nic"`
	StudentLoans []StudentLoanPlan `yaml:"student_loans" json:"studentLoans"`
}

// PayeBand applies Rate to annual taxable income up to UpTo (after the
// personal allowance). A nil UpTo is the unbounded top band.
type PayeBand struct {
	Label string           `yaml:"label" json:"label"`
	Rate  decimal.Decimal  `yaml:"rate" json:"rate"`
	UpTo  *decimal.Decimal `yaml:"up_to" json:"upTo"`
}

type UkPaye struct {
	PersonalAllowance decimal.Decimal `yaml:"personal_allowance" json:"personalAllowance"`
	Bands             []PayeBand      `yaml:"bands" json:"bands"`
}

// BandRate returns the rate of the first band with the given label.
func (p UkPaye) BandRate(label string) (decimal.Decimal, bool) {
	for _, b := range p.Bands {
		if b.Label == label {
			return b.Rate, true
		}
	}
	return decimal.Zero, false
}

// NicThresholds are weekly figures.
type NicThresholds struct {
	Primary            decimal.Decimal  `yaml:"primary" json:"primary"`
	Secondary          decimal.Decimal  `yaml:"secondary" json:"secondary"`
	UpperEarningsLimit decimal.Decimal  `yaml:"upper_earnings_limit" json:"upperEarningsLimit"`
	UpperSecondary     *decimal.Decimal `yaml:"upper_secondary" json:"upperSecondary,omitempty"`
	Freeport           *decimal.Decimal `yaml:"freeport" json:"freeport,omitempty"`
}

type NicRates struct {
	EmployeeLower decimal.Decimal  `yaml:"employee_lower" json:"employeeLower"`
	EmployeeUpper decimal.Decimal  `yaml:"employee_upper" json:"employeeUpper"`
	Employer      decimal.Decimal  `yaml:"employer" json:"employer"`
	Freeport      *decimal.Decimal `yaml:"freeport" json:"freeport,omitempty"`
}

// NicCategory overrides the general rates for one category letter. Nil
// fields fall back to NicRates / NicThresholds.
type NicCategory struct {
	EmployeeLower           *decimal.Decimal `yaml:"employee_lower" json:"employeeLower,omitempty"`
	EmployeeUpper           *decimal.Decimal `yaml:"employee_upper" json:"employeeUpper,omitempty"`
	Employer                *decimal.Decimal `yaml:"employer" json:"employer,omitempty"`
	EmployerBelowUST        *decimal.Decimal `yaml:"employer_below_ust" json:"employerBelowUst,omitempty"`
	UpperSecondaryThreshold *decimal.Decimal `yaml:"upper_secondary_threshold" json:"upperSecondaryThreshold,omitempty"`
}

type UkNic struct {
	Weekly     NicThresholds          `yaml:"weekly_thresholds" json:"weeklyThresholds"`
	Rates      NicRates               `yaml:"rates" json:"rates"`
	Categories map[string]NicCategory `yaml:"categories" json:"categories"`
}

// Category returns the overrides for a category letter. Letters without an
// entry use the general rates.
func (n UkNic) Category(letter string) (NicCategory, bool) {
	c, ok := n.Categories[letter]
	return c, ok
}

// PostgraduatePlan is the plan identifier of the postgraduate loan.
const PostgraduatePlan = "postgrad"

type StudentLoanPlan struct {
	Plan            string          `yaml:"plan" json:"plan"`
	AnnualThreshold decimal.Decimal `yaml:"annual_threshold" json:"annualThreshold"`
	Rate            decimal.Decimal `yaml:"rate" json:"rate"`
}

// StudentLoanPlan looks up a plan by identifier.
func (c *UkConfig) StudentLoanPlan(plan string) (StudentLoanPlan, bool) {
	for _, p := range c.StudentLoans {
		if p.Plan == plan {
			return p, true
		}
	}
	return StudentLoanPlan{}, false
}
