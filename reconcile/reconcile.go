/*
Package reconcile cross-checks a batch's payslips against the other payroll
artefacts uploaded for the same period.

PURPOSE:
  Each reconciliation compares one externally parsed record set (register
  rows, a GL posting, bank payments, a statutory submission) against the
  payslips of the batch and returns issue candidates. They are pure
  functions: they do not consult the rule registry, they never log, and a
  nil or empty artefact yields no issues.

KEY CONCEPTS:
  - Per-employee matching keys on payslip.EmployeeID; rows or payslips
    without an id are batch-level and skipped for matching
  - Every amount comparison uses payroll.Tolerance (strictly greater than
    one unit fires)
  - Differences are reported as payslip side minus artefact side

SEE ALSO:
  - payroll/issue.go: Issue, RenderDescription
  - batch/: runs reconciliation for a stored batch
*/
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// INPUT RECORDS
// =============================================================================

// RegisterEntry is one row of a payroll register. A row without an
// EmployeeID is a batch-total row.
type RegisterEntry struct {
	EmployeeID   string              `json:"employee_id,omitempty"`
	GrossPay     decimal.NullDecimal `json:"gross_pay"`
	NetPay       decimal.NullDecimal `json:"net_pay"`
	Paye         decimal.NullDecimal `json:"paye"`
	UscOrNi      decimal.NullDecimal `json:"usc_or_ni"`
	NicEmployee  decimal.NullDecimal `json:"nic_employee"`
	NicEmployer  decimal.NullDecimal `json:"nic_employer"`
	StudentLoan  decimal.NullDecimal `json:"student_loan"`
	PostgradLoan decimal.NullDecimal `json:"postgrad_loan"`
}

// GlPosting holds the payroll journal totals of a period. Optional lines
// that were not posted stay invalid and are not compared.
type GlPosting struct {
	Wages         decimal.Decimal     `json:"wages"`
	EmployerTaxes decimal.NullDecimal `json:"employer_taxes"`
	Pensions      decimal.NullDecimal `json:"pensions"`
	Other         decimal.NullDecimal `json:"other"`
	Currency      string              `json:"currency,omitempty"`
}

// PaymentRecord is one bank transfer from the payroll bank file.
type PaymentRecord struct {
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Reference  string          `json:"reference,omitempty"`
}

// SubmissionSummary is the statutory return (ROS payroll submission, RTI
// FPS) totals for the period.
type SubmissionSummary struct {
	PayeTotal     decimal.Decimal `json:"paye_total"`
	UscOrNiTotal  decimal.Decimal `json:"usc_or_ni_total"`
	EmployeeCount int             `json:"employee_count"`
	TaxYear       int             `json:"tax_year,omitempty"`
}

// =============================================================================
// CHECKS
// =============================================================================

const (
	CodeMissingRegisterEntry   = "MISSING_REGISTER_ENTRY"
	CodeRegisterTotalMismatch  = "REGISTER_PAYSPLIP_TOTAL_MISMATCH"
	CodeMissingPayslip         = "MISSING_PAYSLIP"
	CodeGlPayrollTotalMismatch = "GL_PAYROLL_TOTAL_MISMATCH"
	CodeGlEmployerTaxMismatch  = "GL_EMPLOYER_TAX_MISMATCH"
	CodeGlPensionMismatch      = "GL_PENSION_MISMATCH"
	CodePayslipWithoutPayment  = "PAYSLIP_WITHOUT_PAYMENT"
	CodeBankNetPayMismatch     = "BANK_NETPAY_MISMATCH"
	CodePaymentWithoutPayslip  = "BANK_PAYMENT_WITHOUT_PAYSLIP"
	CodeSubmissionTotal        = "SUBMISSION_TOTAL_MISMATCH"
	CodeSubmissionCount        = "SUBMISSION_EMPLOYEE_COUNT_MISMATCH"
)

// Source names the artefact a check reconciles against.
type Source string

const (
	SourceRegister   Source = "register"
	SourceGL         Source = "gl"
	SourceBank       Source = "bank"
	SourceSubmission Source = "submission"
)

// Check describes one reconciliation finding.
type Check struct {
	Code            string           `json:"code"`
	Source          Source           `json:"source"`
	DefaultSeverity payroll.Severity `json:"defaultSeverity"`
	Description     string           `json:"description"`
}

var checks = []Check{
	{CodeMissingRegisterEntry, SourceRegister, payroll.SeverityWarning,
		"Employee {employeeId} has a payslip but no register entry"},
	{CodeRegisterTotalMismatch, SourceRegister, payroll.SeverityWarning,
		"Register totals for {employeeId} differ from payslip (gross {grossDifference}, net {netDifference})"},
	{CodeMissingPayslip, SourceRegister, payroll.SeverityWarning,
		"Register entry for {employeeId} has no matching payslip"},
	{CodeGlPayrollTotalMismatch, SourceGL, payroll.SeverityCritical,
		"GL wages {glWages} differ from payslip gross total {payslipWages} by {difference}"},
	{CodeGlEmployerTaxMismatch, SourceGL, payroll.SeverityWarning,
		"GL employer taxes {glEmployerTaxes} differ from payslip employer charges {payslipEmployerTaxes} by {difference}"},
	{CodeGlPensionMismatch, SourceGL, payroll.SeverityWarning,
		"GL pensions {glPensions} differ from payslip employer pensions {payslipPensions} by {difference}"},
	{CodePayslipWithoutPayment, SourceBank, payroll.SeverityCritical,
		"No bank payment found for {employeeId} (net pay {netPay})"},
	{CodeBankNetPayMismatch, SourceBank, payroll.SeverityCritical,
		"Bank payments {paid} for {employeeId} differ from net pay {netPay} by {difference}"},
	{CodePaymentWithoutPayslip, SourceBank, payroll.SeverityWarning,
		"Bank payments {paid} to {employeeId} have no matching payslip"},
	{CodeSubmissionTotal, SourceSubmission, payroll.SeverityCritical,
		"Submission {field} total {submissionTotal} differs from payslip total {payslipTotal} by {difference}"},
	{CodeSubmissionCount, SourceSubmission, payroll.SeverityWarning,
		"Submission declares {submissionEmployeeCount} employees, payslips cover {payslipEmployeeCount}"},
}

// Checks lists every reconciliation check.
func Checks() []Check {
	return append([]Check(nil), checks...)
}

func lookup(code string) Check {
	for _, c := range checks {
		if c.Code == code {
			return c
		}
	}
	panic("reconcile: unknown check " + code)
}

// issue builds the candidate for a check.
func issue(code, employeeID string, data payroll.IssueData) payroll.Issue {
	c := lookup(code)
	return payroll.Issue{
		RuleCode:    c.Code,
		Severity:    c.DefaultSeverity,
		Description: payroll.RenderDescription(c.Description, data),
		EmployeeID:  employeeID,
		Data:        data,
	}
}

// ApplySeverityOverrides rewrites severities using the client's per-code
// overrides, the same way the rule evaluator resolves them.
func ApplySeverityOverrides(issues []payroll.Issue, overrides map[string]payroll.Severity) {
	for i := range issues {
		if sev, ok := overrides[issues[i].RuleCode]; ok && sev.Valid() {
			issues[i].Severity = sev
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// employeeOrder returns ids in first-seen order so results are
// deterministic.
type employeeOrder struct {
	ids  []string
	seen map[string]bool
}

func (o *employeeOrder) add(id string) {
	if o.seen == nil {
		o.seen = map[string]bool{}
	}
	if !o.seen[id] {
		o.seen[id] = true
		o.ids = append(o.ids, id)
	}
}

func addNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	}
	return payroll.Some(a.Decimal.Add(b.Decimal))
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return decimal.Zero
}
