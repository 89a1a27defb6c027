package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateDiff_RequiresCurrent(t *testing.T) {
	prev := payroll.NewPayslip("emp-1", map[payroll.Field]float64{payroll.FieldGrossPay: 3000})

	_, err := payroll.CalculateDiff(&prev, nil)

	require.ErrorIs(t, err, payroll.ErrMissingCurrent)
	assert.True(t, payroll.IsClientError(err))
}

func TestCalculateDiff_CoversEveryField(t *testing.T) {
	// GIVEN: Two fully populated payslips
	// WHEN: Diffing them
	// THEN: Every diff field carries both sides unchanged (round trip)
	values := map[payroll.Field]float64{}
	for i, f := range payroll.DiffFields {
		values[f] = float64(100 * (i + 1))
	}
	prev := payroll.NewPayslip("emp-1", values)
	cur := prev.With(payroll.FieldNetPay, payroll.D(2600))

	diff, err := payroll.CalculateDiff(&prev, &cur)
	require.NoError(t, err)

	assert.Len(t, diff, len(payroll.DiffFields))
	for _, f := range payroll.DiffFields {
		fd := diff.Get(f)
		assert.Equal(t, prev.Value(f), fd.Previous, f)
		assert.Equal(t, cur.Value(f), fd.Current, f)
	}

	again, err := payroll.CalculateDiff(&prev, &cur)
	require.NoError(t, err)
	assert.Equal(t, diff, again)
}

func TestCalculateDiff_DeltaAndPercent(t *testing.T) {
	prev := payroll.NewPayslip("emp-1", map[payroll.Field]float64{
		payroll.FieldNetPay:   2000,
		payroll.FieldGrossPay: 0,
		payroll.FieldPaye:     500,
	})
	cur := payroll.NewPayslip("emp-1", map[payroll.Field]float64{
		payroll.FieldNetPay:   2500,
		payroll.FieldGrossPay: 3000,
		payroll.FieldUscOrNi:  120,
	})

	diff, err := payroll.CalculateDiff(&prev, &cur)
	require.NoError(t, err)

	t.Run("both present", func(t *testing.T) {
		fd := diff.Get(payroll.FieldNetPay)
		assert.True(t, fd.Delta.Decimal.Equal(dec("500")))
		assert.True(t, fd.PercentChange.Decimal.Equal(dec("25")))
	})

	t.Run("previous zero has no percent", func(t *testing.T) {
		fd := diff.Get(payroll.FieldGrossPay)
		assert.True(t, fd.Delta.Decimal.Equal(dec("3000")))
		assert.False(t, fd.PercentChange.Valid)
	})

	t.Run("previous absent uses current as delta", func(t *testing.T) {
		fd := diff.Get(payroll.FieldUscOrNi)
		assert.False(t, fd.Previous.Valid)
		assert.True(t, fd.Delta.Decimal.Equal(dec("120")))
		assert.False(t, fd.PercentChange.Valid)
	})

	t.Run("current absent negates previous", func(t *testing.T) {
		fd := diff.Get(payroll.FieldPaye)
		assert.True(t, fd.Delta.Decimal.Equal(dec("-500")))
		assert.True(t, fd.PercentChange.Decimal.Equal(dec("-100")))
	})

	t.Run("both absent", func(t *testing.T) {
		fd := diff.Get(payroll.FieldYtdGross)
		assert.False(t, fd.Delta.Valid)
		assert.False(t, fd.PercentChange.Valid)
	})
}

func TestCalculateDiff_NoPrevious(t *testing.T) {
	cur := payroll.NewPayslip("emp-1", map[payroll.Field]float64{payroll.FieldGrossPay: 3000})

	diff, err := payroll.CalculateDiff(nil, &cur)
	require.NoError(t, err)

	fd := diff.Get(payroll.FieldGrossPay)
	assert.False(t, fd.Previous.Valid)
	assert.True(t, fd.Delta.Decimal.Equal(dec("3000")))
}

func TestCalculateDiff_NegativePreviousUsesMagnitude(t *testing.T) {
	// Corrections can produce negative values; the percent is relative to
	// the magnitude so an increase stays positive.
	prev := payroll.NewPayslip("emp-1", map[payroll.Field]float64{payroll.FieldNetPay: -200})
	cur := payroll.NewPayslip("emp-1", map[payroll.Field]float64{payroll.FieldNetPay: -100})

	diff, err := payroll.CalculateDiff(&prev, &cur)
	require.NoError(t, err)

	assert.True(t, diff.Get(payroll.FieldNetPay).PercentChange.Decimal.Equal(dec("50")))
}

func TestPayFrequency(t *testing.T) {
	cases := []struct {
		in      string
		want    payroll.PayFrequency
		periods int
		weeks   string
	}{
		{"weekly", payroll.FrequencyWeekly, 52, "1"},
		{"Fortnightly", payroll.FrequencyBiweekly, 26, "2"},
		{"4-weekly", payroll.FrequencyFourWeekly, 13, "4"},
		{" monthly ", payroll.FrequencyMonthly, 12, "4.345"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			f, ok := payroll.ParsePayFrequency(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, f)
			assert.Equal(t, tc.periods, f.PeriodsPerYear())
			assert.True(t, f.WeeksPerPeriod().Equal(dec(tc.weeks)))
		})
	}

	_, ok := payroll.ParsePayFrequency("daily")
	assert.False(t, ok)

	var unknown payroll.PayFrequency
	assert.Equal(t, 12, unknown.PeriodsPerYear())
	assert.True(t, unknown.WeeksPerPeriod().Equal(dec("1")))
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"A1":  "A",
		" a ": "A",
		"j0":  "J",
		"AX":  "A",
	}
	for raw, want := range cases {
		got, ok := payroll.NormalizeCategory(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got.String(), raw)
	}

	for _, raw := range []string{"", "   ", "1A", "-"} {
		_, ok := payroll.NormalizeCategory(raw)
		assert.False(t, ok, raw)
	}
}
