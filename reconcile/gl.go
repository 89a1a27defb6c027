package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// GL reconciles the payroll journal with summed payslip figures: wages
// against gross pay, employer taxes against employer PRSI/NIC, pensions
// against employer pension contributions. A nil posting yields no issues.
func GL(payslips []payroll.Payslip, gl *GlPosting) []payroll.Issue {
	issues := []payroll.Issue{}
	if gl == nil {
		return issues
	}

	wages := payroll.SumField(payslips, payroll.FieldGrossPay)
	if diff, off := payroll.ExceedsTolerance(wages, gl.Wages, payroll.Tolerance); off {
		issues = append(issues, issue(CodeGlPayrollTotalMismatch, "", payroll.IssueData{
			"payslipWages": wages,
			"glWages":      gl.Wages,
			"difference":   diff,
			"currency":     gl.Currency,
		}))
	}

	if gl.EmployerTaxes.Valid {
		taxes := payroll.SumField(payslips, payroll.FieldNicEmployer)
		if diff, off := payroll.ExceedsTolerance(taxes, gl.EmployerTaxes.Decimal, payroll.Tolerance); off {
			issues = append(issues, issue(CodeGlEmployerTaxMismatch, "", payroll.IssueData{
				"payslipEmployerTaxes": taxes,
				"glEmployerTaxes":      gl.EmployerTaxes.Decimal,
				"difference":           diff,
				"currency":             gl.Currency,
			}))
		}
	}

	if gl.Pensions.Valid {
		pensions := payroll.SumField(payslips, payroll.FieldPensionEmployer)
		if diff, off := payroll.ExceedsTolerance(pensions, gl.Pensions.Decimal, payroll.Tolerance); off {
			issues = append(issues, issue(CodeGlPensionMismatch, "", payroll.IssueData{
				"payslipPensions": pensions,
				"glPensions":      gl.Pensions.Decimal,
				"difference":      diff,
				"currency":        gl.Currency,
			}))
		}
	}
	return issues
}

// Totals returns what the GL should carry for these payslips.
func Totals(payslips []payroll.Payslip) GlPosting {
	return GlPosting{
		Wages:         payroll.SumField(payslips, payroll.FieldGrossPay),
		EmployerTaxes: payroll.Some(payroll.SumField(payslips, payroll.FieldNicEmployer)),
		Pensions:      payroll.Some(payroll.SumField(payslips, payroll.FieldPensionEmployer)),
		Other:         payroll.Some(decimal.Zero),
	}
}
