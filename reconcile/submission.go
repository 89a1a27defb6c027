package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Submission reconciles the statutory return with the payslips: PAYE and
// USC/NI totals (one critical issue per total beyond tolerance) and the
// number of distinct employees, which must match exactly when the
// submission declares a positive count.
func Submission(payslips []payroll.Payslip, sub *SubmissionSummary) []payroll.Issue {
	issues := []payroll.Issue{}
	if sub == nil {
		return issues
	}

	totals := []struct {
		field     payroll.Field
		submitted decimal.Decimal
	}{
		{payroll.FieldPaye, sub.PayeTotal},
		{payroll.FieldUscOrNi, sub.UscOrNiTotal},
	}
	for _, t := range totals {
		sum := payroll.SumField(payslips, t.field)
		if diff, off := payroll.ExceedsTolerance(sum, t.submitted, payroll.Tolerance); off {
			issues = append(issues, issue(CodeSubmissionTotal, "", payroll.IssueData{
				"field":           string(t.field),
				"submissionTotal": t.submitted,
				"payslipTotal":    sum,
				"difference":      diff,
			}))
		}
	}

	employees := EmployeeCount(payslips)
	if sub.EmployeeCount > 0 && sub.EmployeeCount != employees {
		issues = append(issues, issue(CodeSubmissionCount, "", payroll.IssueData{
			"submissionEmployeeCount": sub.EmployeeCount,
			"payslipEmployeeCount":    employees,
		}))
	}
	return issues
}

// EmployeeCount counts distinct non-empty employee ids.
func EmployeeCount(payslips []payroll.Payslip) int {
	var order employeeOrder
	for i := range payslips {
		if id := payslips[i].EmployeeID; id != "" {
			order.add(id)
		}
	}
	return len(order.ids)
}
