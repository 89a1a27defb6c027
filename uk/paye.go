package uk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// PAYE
// =============================================================================

// PayeBandUsage is one band's share of the annualised taxable pay and the
// per-period tax it produced.
type PayeBandUsage struct {
	Label        string          `json:"label"`
	Rate         decimal.Decimal `json:"rate"`
	AnnualAmount decimal.Decimal `json:"annualAmount"`
	PeriodTax    decimal.Decimal `json:"periodTax"`
}

// PayeResult is the PAYE computation for one pay period.
type PayeResult struct {
	TaxCode         string          `json:"taxCode"`
	Kind            TaxCodeKind     `json:"kind"`
	Periods         int             `json:"periods"`
	AnnualAllowance decimal.Decimal `json:"annualAllowance"`
	PeriodAllowance decimal.Decimal `json:"periodAllowance"`
	TaxablePay      decimal.Decimal `json:"taxablePay"`
	Bands           []PayeBandUsage `json:"bands"`
	TaxDue          decimal.Decimal `json:"taxDue"`
}

// CalcPaye computes the period's PAYE for gross under taxCode. The allowance
// is spread evenly over the periods of the year; taxable pay is annualised,
// banded, and brought back to the period.
func CalcPaye(gross decimal.Decimal, taxCode string, freq payroll.PayFrequency, cfg *taxyear.UkConfig) (PayeResult, error) {
	if cfg == nil {
		return PayeResult{}, payroll.ErrMissingTaxTable
	}
	tc := ParseTaxCode(taxCode)
	periods := freq.PeriodsPerYear()
	res := PayeResult{
		TaxCode:         taxCode,
		Kind:            tc.Kind,
		Periods:         periods,
		AnnualAllowance: decimal.Zero,
		PeriodAllowance: decimal.Zero,
		TaxablePay:      decimal.Max(gross, decimal.Zero),
		TaxDue:          decimal.Zero,
	}

	switch tc.Kind {
	case KindNoTax:
		return res, nil
	case KindBasicRate, KindHigherRate, KindAdditionalRate:
		band, err := flatBand(tc.Kind, cfg.Paye.Bands)
		if err != nil {
			return PayeResult{}, err
		}
		tax := payroll.Round2(res.TaxablePay.Mul(band.Rate))
		res.Bands = []PayeBandUsage{{Label: band.Label, Rate: band.Rate, AnnualAmount: res.TaxablePay, PeriodTax: tax}}
		res.TaxDue = tax
		return res, nil
	}

	annualAllowance := cfg.Paye.PersonalAllowance
	if tc.Allowance != nil {
		annualAllowance = *tc.Allowance
	}
	n := decimal.NewFromInt(int64(periods))
	periodAllowance := annualAllowance.Div(n)
	taxable := decimal.Max(gross.Sub(periodAllowance), decimal.Zero)

	res.AnnualAllowance = annualAllowance
	res.PeriodAllowance = payroll.Round2(periodAllowance)
	res.TaxablePay = payroll.Round2(taxable)

	bands, total, err := walkPayeBands(taxable.Mul(n), n, cfg.Paye.Bands)
	if err != nil {
		return PayeResult{}, err
	}
	res.Bands = bands
	res.TaxDue = payroll.Round2(total)
	return res, nil
}

func walkPayeBands(annual, periods decimal.Decimal, bands []taxyear.PayeBand) ([]PayeBandUsage, decimal.Decimal, error) {
	if err := taxyear.ValidatePayeBands(bands); err != nil {
		return nil, decimal.Zero, err
	}
	remaining := annual
	lower := decimal.Zero
	total := decimal.Zero
	usage := make([]PayeBandUsage, 0, len(bands))

	for _, b := range bands {
		amount := remaining
		if b.UpTo != nil {
			amount = decimal.Min(remaining, b.UpTo.Sub(lower))
			lower = *b.UpTo
		}
		periodTax := amount.Mul(b.Rate).Div(periods)
		usage = append(usage, PayeBandUsage{
			Label:        b.Label,
			Rate:         b.Rate,
			AnnualAmount: payroll.Round2(amount),
			PeriodTax:    payroll.Round2(periodTax),
		})
		total = total.Add(periodTax)
		remaining = remaining.Sub(amount)
	}
	return usage, total, nil
}

// flatBand picks the band a BR/D0/D1 code taxes at: by label first, then by
// position (first, second, third band).
func flatBand(kind TaxCodeKind, bands []taxyear.PayeBand) (taxyear.PayeBand, error) {
	label, idx := "basic", 0
	switch kind {
	case KindHigherRate:
		label, idx = "higher", 1
	case KindAdditionalRate:
		label, idx = "additional", 2
	}
	for _, b := range bands {
		if b.Label == label {
			return b, nil
		}
	}
	if idx < len(bands) {
		return bands[idx], nil
	}
	return taxyear.PayeBand{}, fmt.Errorf("uk: no %s band for tax code %s", label, kind)
}
