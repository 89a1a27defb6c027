package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Register reconciles register rows with payslips. Rows sharing an
// employee id are summed; rows without one are batch totals and ignored.
//
// Emits MISSING_REGISTER_ENTRY for a payslip without a row,
// REGISTER_PAYSPLIP_TOTAL_MISMATCH when gross or net differ by more than
// the tolerance, and MISSING_PAYSLIP for a row without a payslip.
func Register(payslips []payroll.Payslip, entries []RegisterEntry) []payroll.Issue {
	issues := []payroll.Issue{}
	if len(entries) == 0 {
		return issues
	}

	var order employeeOrder
	rows := map[string]RegisterEntry{}
	for _, e := range entries {
		if e.EmployeeID == "" {
			continue
		}
		order.add(e.EmployeeID)
		acc := rows[e.EmployeeID]
		acc.EmployeeID = e.EmployeeID
		acc.GrossPay = addNull(acc.GrossPay, e.GrossPay)
		acc.NetPay = addNull(acc.NetPay, e.NetPay)
		rows[e.EmployeeID] = acc
	}

	matched := map[string]bool{}
	for i := range payslips {
		p := &payslips[i]
		if p.EmployeeID == "" {
			continue
		}
		row, ok := rows[p.EmployeeID]
		if !ok {
			issues = append(issues, issue(CodeMissingRegisterEntry, p.EmployeeID, payroll.IssueData{
				"employeeId": p.EmployeeID,
				"grossPay":   p.GrossPay,
				"netPay":     p.NetPay,
			}))
			continue
		}
		matched[p.EmployeeID] = true

		grossDiff, grossOff := compareNull(p.GrossPay, row.GrossPay)
		netDiff, netOff := compareNull(p.NetPay, row.NetPay)
		if !grossOff && !netOff {
			continue
		}
		issues = append(issues, issue(CodeRegisterTotalMismatch, p.EmployeeID, payroll.IssueData{
			"employeeId":      p.EmployeeID,
			"payslipGross":    p.GrossPay,
			"registerGross":   row.GrossPay,
			"grossDifference": grossDiff,
			"payslipNet":      p.NetPay,
			"registerNet":     row.NetPay,
			"netDifference":   netDiff,
		}))
	}

	for _, id := range order.ids {
		if matched[id] {
			continue
		}
		row := rows[id]
		issues = append(issues, issue(CodeMissingPayslip, id, payroll.IssueData{
			"employeeId":    id,
			"registerGross": row.GrossPay,
			"registerNet":   row.NetPay,
		}))
	}
	return issues
}

// compareNull returns payslip - register and whether it exceeds the
// tolerance. A side that was not reported cannot mismatch.
func compareNull(payslip, register decimal.NullDecimal) (decimal.NullDecimal, bool) {
	if !payslip.Valid || !register.Valid {
		return decimal.NullDecimal{}, false
	}
	diff, off := payroll.ExceedsTolerance(payslip.Decimal, register.Decimal, payroll.Tolerance)
	return payroll.Some(diff), off
}
