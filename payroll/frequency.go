package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PayFrequency is how often an employee is paid.
type PayFrequency string

const (
	FrequencyWeekly     PayFrequency = "weekly"
	FrequencyBiweekly   PayFrequency = "biweekly"
	FrequencyFourWeekly PayFrequency = "four_weekly"
	FrequencyMonthly    PayFrequency = "monthly"
)

// WeeksPerMonth approximates the average number of weeks in a month.
// Golden datasets are calibrated against this exact figure.
var WeeksPerMonth = decimal.RequireFromString("4.345")

// ParsePayFrequency accepts the spellings payroll exports use.
func ParsePayFrequency(s string) (PayFrequency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week", "w":
		return FrequencyWeekly, true
	case "biweekly", "bi-weekly", "fortnightly", "2-weekly", "two_weekly":
		return FrequencyBiweekly, true
	case "four_weekly", "four-weekly", "fourweekly", "4-weekly", "4weekly", "lunar":
		return FrequencyFourWeekly, true
	case "monthly", "month", "m":
		return FrequencyMonthly, true
	default:
		return "", false
	}
}

// Known reports whether f is one of the supported frequencies.
func (f PayFrequency) Known() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyFourWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// PeriodsPerYear is 52/26/13/12. Unknown frequencies are treated as monthly.
func (f PayFrequency) PeriodsPerYear() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyFourWeekly:
		return 13
	default:
		return 12
	}
}

// WeeksPerPeriod is the divisor turning period pay into a weekly equivalent.
// Unknown frequencies are treated as weekly (pay taken as-is).
func (f PayFrequency) WeeksPerPeriod() decimal.Decimal {
	switch f {
	case FrequencyBiweekly:
		return decimal.NewFromInt(2)
	case FrequencyFourWeekly:
		return decimal.NewFromInt(4)
	case FrequencyMonthly:
		return WeeksPerMonth
	default:
		return decimal.NewFromInt(1)
	}
}

// ToWeekly converts period pay to its weekly equivalent.
func (f PayFrequency) ToWeekly(pay decimal.Decimal) decimal.Decimal {
	return pay.Div(f.WeeksPerPeriod())
}

// FromWeekly converts a weekly figure back to the pay period.
func (f PayFrequency) FromWeekly(weekly decimal.Decimal) decimal.Decimal {
	return weekly.Mul(f.WeeksPerPeriod())
}
