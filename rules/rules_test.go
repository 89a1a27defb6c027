package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/ireland"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/taxyear"
)

// basePayslip is an IE payslip whose USC is exactly the recalculated charge.
func basePayslip(t *testing.T) payroll.Payslip {
	t.Helper()
	cfg, err := taxyear.MustDefault().Ireland(2025)
	require.NoError(t, err)
	usc, err := ireland.CalcUsc(decimal.NewFromInt(3000), cfg)
	require.NoError(t, err)

	p := payroll.NewPayslip("emp-1", map[payroll.Field]float64{
		payroll.FieldGrossPay: 3000,
		payroll.FieldNetPay:   2100,
		payroll.FieldPaye:     600,
	})
	return p.With(payroll.FieldUscOrNi, payroll.Some(usc.TotalCharge))
}

func ieOptions(t *testing.T) payroll.Options {
	t.Helper()
	cfg, err := ruleconfig.NewResolver(taxyear.MustDefault(), nil, nil).Default(payroll.CountryIE, 2025)
	require.NoError(t, err)
	return payroll.Options{Country: payroll.CountryIE, TaxYear: 2025, Config: cfg}
}

func TestBaseline_NoAnomalies(t *testing.T) {
	// GIVEN: identical previous and current payslips
	cur := basePayslip(t)
	prev := basePayslip(t)

	// WHEN: running the baseline
	issues, err := Baseline().Evaluate(&cur, &prev, ieOptions(t))

	// THEN: nothing is flagged
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestBaseline_LargeNetChange(t *testing.T) {
	// GIVEN: net pay moves from 2100 to 2600
	prev := basePayslip(t)
	cur := prev.With(payroll.FieldNetPay, payroll.D(2600))

	// WHEN
	issues, err := Baseline().Evaluate(&cur, &prev, ieOptions(t))

	// THEN: exactly one warning for the net change
	require.NoError(t, err)
	var net []payroll.Issue
	for _, is := range issues {
		if is.RuleCode == payroll.CodeNetChangeLarge {
			net = append(net, is)
		}
	}
	require.Len(t, net, 1)
	assert.Equal(t, payroll.SeverityWarning, net[0].Severity)
	assert.Equal(t, "emp-1", net[0].EmployeeID)
}

func TestDefinitions_UniqueCodes(t *testing.T) {
	defs := Definitions()
	seen := map[string]bool{}
	for _, d := range defs {
		assert.False(t, seen[d.Code], "duplicate rule code %s", d.Code)
		seen[d.Code] = true
	}
	assert.Len(t, Codes(Baseline()), len(defs))
}

func TestInstall_SwapsActiveSet(t *testing.T) {
	prev := payroll.SetActive(nil)
	t.Cleanup(func() { payroll.SetActive(prev) })

	// GIVEN: no active set, Install installs the baseline
	rs := Install()
	require.Same(t, rs, payroll.Active())

	// WHEN: a rule is removed and the smaller set swapped in
	smaller := rs.Without(payroll.CodeNetChangeLarge)
	payroll.SetActive(smaller)

	// THEN: RunRules uses the new set and Install keeps it
	before := basePayslip(t)
	cur := before.With(payroll.FieldNetPay, payroll.D(2600))
	issues, err := payroll.RunRules(&cur, &before, nil, ieOptions(t))
	require.NoError(t, err)
	for _, is := range issues {
		assert.NotEqual(t, payroll.CodeNetChangeLarge, is.RuleCode)
	}
	assert.Same(t, smaller, Install())
	assert.Equal(t, rs.Len()-1, smaller.Len())
}
