package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELDS
// =============================================================================

// Field names a numeric payslip field. The string values are the wire names
// used by the ingestion layer.
type Field string

const (
	FieldGrossPay        Field = "gross_pay"
	FieldNetPay          Field = "net_pay"
	FieldPaye            Field = "paye"
	FieldUscOrNi         Field = "usc_or_ni"
	FieldNicEmployee     Field = "nic_employee"
	FieldNicEmployer     Field = "nic_employer"
	FieldPensionEmployee Field = "pension_employee"
	FieldPensionEmployer Field = "pension_employer"
	FieldYtdGross        Field = "ytd_gross"
	FieldYtdNet          Field = "ytd_net"
	FieldYtdTax          Field = "ytd_tax"
	FieldYtdUscOrNi      Field = "ytd_usc_or_ni"
	FieldStudentLoan     Field = "student_loan"
	FieldPostgradLoan    Field = "postgrad_loan"
)

// DiffFields are the fields compared period over period, in display order.
var DiffFields = []Field{
	FieldGrossPay,
	FieldNetPay,
	FieldPaye,
	FieldUscOrNi,
	FieldPensionEmployee,
	FieldPensionEmployer,
	FieldYtdGross,
	FieldYtdNet,
	FieldYtdTax,
	FieldYtdUscOrNi,
}

// YtdFields must never decrease within a tax year.
var YtdFields = []Field{FieldYtdGross, FieldYtdNet, FieldYtdTax, FieldYtdUscOrNi}

// =============================================================================
// PAYSLIP
// =============================================================================

// Payslip is one employee's payslip for one pay period, as extracted by the
// ingestion layer. Every numeric field is optional: an invalid NullDecimal
// means "not reported", which is different from zero.
//
// The engine only reads payslips. Builders (With) return modified copies.
type Payslip struct {
	EmployeeID       string `json:"employee_id,omitempty"`
	PrsiOrNiCategory string `json:"prsi_or_ni_category,omitempty"`

	GrossPay        decimal.NullDecimal `json:"gross_pay"`
	NetPay          decimal.NullDecimal `json:"net_pay"`
	Paye            decimal.NullDecimal `json:"paye"`
	UscOrNi         decimal.NullDecimal `json:"usc_or_ni"`
	NicEmployee     decimal.NullDecimal `json:"nic_employee"`
	NicEmployer     decimal.NullDecimal `json:"nic_employer"`
	PensionEmployee decimal.NullDecimal `json:"pension_employee"`
	PensionEmployer decimal.NullDecimal `json:"pension_employer"`
	YtdGross        decimal.NullDecimal `json:"ytd_gross"`
	YtdNet          decimal.NullDecimal `json:"ytd_net"`
	YtdTax          decimal.NullDecimal `json:"ytd_tax"`
	YtdUscOrNi      decimal.NullDecimal `json:"ytd_usc_or_ni"`
	StudentLoan     decimal.NullDecimal `json:"student_loan"`
	PostgradLoan    decimal.NullDecimal `json:"postgrad_loan"`
}

func (p *Payslip) field(f Field) *decimal.NullDecimal {
	switch f {
	case FieldGrossPay:
		return &p.GrossPay
	case FieldNetPay:
		return &p.NetPay
	case FieldPaye:
		return &p.Paye
	case FieldUscOrNi:
		return &p.UscOrNi
	case FieldNicEmployee:
		return &p.NicEmployee
	case FieldNicEmployer:
		return &p.NicEmployer
	case FieldPensionEmployee:
		return &p.PensionEmployee
	case FieldPensionEmployer:
		return &p.PensionEmployer
	case FieldYtdGross:
		return &p.YtdGross
	case FieldYtdNet:
		return &p.YtdNet
	case FieldYtdTax:
		return &p.YtdTax
	case FieldYtdUscOrNi:
		return &p.YtdUscOrNi
	case FieldStudentLoan:
		return &p.StudentLoan
	case FieldPostgradLoan:
		return &p.PostgradLoan
	default:
		return nil
	}
}

// Value returns a field's value. Unknown fields read as absent.
func (p *Payslip) Value(f Field) decimal.NullDecimal {
	if p == nil {
		return None()
	}
	if v := p.field(f); v != nil {
		return *v
	}
	return None()
}

// With returns a copy with one field set.
func (p Payslip) With(f Field, v decimal.NullDecimal) Payslip {
	if ptr := p.field(f); ptr != nil {
		*ptr = v
	}
	return p
}

// NewPayslip builds a payslip from a field map. Intended for fixtures.
func NewPayslip(employeeID string, values map[Field]float64) Payslip {
	p := Payslip{EmployeeID: employeeID}
	for f, v := range values {
		p = p.With(f, D(v))
	}
	return p
}
