package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/taxyear"
)

// Country is the jurisdiction a payslip is evaluated under.
type Country = taxyear.Country

const (
	CountryIE = taxyear.CountryIE
	CountryUK = taxyear.CountryUK
)

// =============================================================================
// COUNTRY PROFILE CONTEXTS
// =============================================================================

// IePayeProfile carries an employee's PAYE inputs for the period. Cutoff and
// credits are per pay period as printed on the employer's revenue payroll
// notification. When they are absent, FilingStatus lets the calculator derive
// them from the tax year's annual figures.
type IePayeProfile struct {
	StandardRateCutoff *decimal.Decimal     `json:"standardRateCutoff,omitempty"`
	TaxCredits         *decimal.Decimal     `json:"taxCredits,omitempty"`
	FilingStatus       taxyear.FilingStatus `json:"filingStatus,omitempty"`
}

// IePrsiProfile carries what is known about an employee's PRSI situation.
type IePrsiProfile struct {
	ExpectedClass  string           `json:"expectedClass,omitempty"`
	WeeklyEarnings *decimal.Decimal `json:"weeklyEarnings,omitempty"`
	Age            *int             `json:"age,omitempty"`
	Pensioner      bool             `json:"pensioner,omitempty"`
	SelfEmployed   bool             `json:"selfEmployed,omitempty"`
	LowPayRole     bool             `json:"lowPayRole,omitempty"`
}

// IeUscProfile selects USC exemption, reduced-rate and surcharge treatment.
type IeUscProfile struct {
	MedicalCard  bool `json:"medicalCard,omitempty"`
	Over70       bool `json:"over70,omitempty"`
	SelfEmployed bool `json:"selfEmployed,omitempty"`
}

// IeContext is the optional Ireland-specific evaluation input.
type IeContext struct {
	PayFrequency PayFrequency   `json:"payFrequency,omitempty"`
	Paye         *IePayeProfile `json:"paye,omitempty"`
	Prsi         *IePrsiProfile `json:"prsi,omitempty"`
	Usc          *IeUscProfile  `json:"usc,omitempty"`
}

// UkNicProfile carries what is known about an employee's NIC situation.
type UkNicProfile struct {
	ExpectedCategory string `json:"expectedCategory,omitempty"`
	Age              *int   `json:"age,omitempty"`
	Pensioner        bool   `json:"pensioner,omitempty"`
	Apprentice       bool   `json:"apprentice,omitempty"`
}

// UkStudentLoanProfile selects the repayment plans that apply.
type UkStudentLoanProfile struct {
	Plan         string `json:"plan,omitempty"`
	Postgraduate bool   `json:"postgraduate,omitempty"`
}

// UkContext is the optional UK-specific evaluation input.
type UkContext struct {
	PayFrequency PayFrequency          `json:"payFrequency,omitempty"`
	TaxCode      string                `json:"taxCode,omitempty"`
	Nic          *UkNicProfile         `json:"nic,omitempty"`
	StudentLoan  *UkStudentLoanProfile `json:"studentLoan,omitempty"`
}

// ContractProfile is the employment contract a payslip can be checked
// against.
type ContractProfile struct {
	AnnualSalary *decimal.Decimal `json:"annualSalary,omitempty"`
	PayFrequency PayFrequency     `json:"payFrequency,omitempty"`
}

// =============================================================================
// RULE CONTEXT
// =============================================================================

// RuleContext is everything a rule may look at. It is built fresh for each
// evaluation and must not be modified by rules.
type RuleContext struct {
	Current  *Payslip
	Previous *Payslip
	Diff     Diff
	Country  Country
	TaxYear  int
	Config   RuleConfig
	Ireland  *IeContext
	UK       *UkContext
	Contract *ContractProfile
}

// HasPrevious reports whether a prior payslip is available.
func (rc *RuleContext) HasPrevious() bool {
	return rc.Previous != nil
}
