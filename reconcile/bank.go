package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Bank reconciles bank payments with payslip net pay. Payments are summed
// per employee. Payments without an employee id cannot be matched and are
// ignored.
func Bank(payslips []payroll.Payslip, payments []PaymentRecord) []payroll.Issue {
	issues := []payroll.Issue{}
	if len(payments) == 0 {
		return issues
	}

	var order employeeOrder
	paid := map[string]decimal.Decimal{}
	count := map[string]int{}
	for _, pm := range payments {
		if pm.EmployeeID == "" {
			continue
		}
		order.add(pm.EmployeeID)
		paid[pm.EmployeeID] = paid[pm.EmployeeID].Add(pm.Amount)
		count[pm.EmployeeID]++
	}

	withPayslip := map[string]bool{}
	for i := range payslips {
		p := &payslips[i]
		if p.EmployeeID == "" {
			continue
		}
		withPayslip[p.EmployeeID] = true

		total, ok := paid[p.EmployeeID]
		if !ok {
			issues = append(issues, issue(CodePayslipWithoutPayment, p.EmployeeID, payroll.IssueData{
				"employeeId": p.EmployeeID,
				"netPay":     p.NetPay,
			}))
			continue
		}
		net := orZero(p.NetPay)
		if diff, off := payroll.ExceedsTolerance(total, net, payroll.Tolerance); off {
			issues = append(issues, issue(CodeBankNetPayMismatch, p.EmployeeID, payroll.IssueData{
				"employeeId":   p.EmployeeID,
				"netPay":       net,
				"paid":         total,
				"paymentCount": count[p.EmployeeID],
				"difference":   diff,
			}))
		}
	}

	for _, id := range order.ids {
		if withPayslip[id] {
			continue
		}
		issues = append(issues, issue(CodePaymentWithoutPayslip, id, payroll.IssueData{
			"employeeId":   id,
			"paid":         paid[id],
			"paymentCount": count[id],
		}))
	}
	return issues
}
