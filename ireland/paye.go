// Package ireland implements the Irish statutory calculators (PAYE, USC,
// PRSI) and the rules that check payslips against them.
package ireland

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// PAYE
// =============================================================================

// PayeResult is the PAYE computation for one pay period, with the slices and
// rates used so the UI can show the working.
type PayeResult struct {
	Gross              decimal.Decimal `json:"gross"`
	StandardRateCutoff decimal.Decimal `json:"standardRateCutoff"`
	TaxCredits         decimal.Decimal `json:"taxCredits"`
	StandardBand       decimal.Decimal `json:"standardBand"`
	HigherBand         decimal.Decimal `json:"higherBand"`
	StandardRate       decimal.Decimal `json:"standardRate"`
	HigherRate         decimal.Decimal `json:"higherRate"`
	StandardTax        decimal.Decimal `json:"standardTax"`
	HigherTax          decimal.Decimal `json:"higherTax"`
	GrossTax           decimal.Decimal `json:"grossTax"`
	TaxDue             decimal.Decimal `json:"taxDue"`
}

// CalcPaye splits gross into the standard-rate slice (up to cutoff) and the
// higher-rate remainder, taxes both, and subtracts credits. cutoff and
// credits must be for the same period as gross.
func CalcPaye(gross, cutoff, credits decimal.Decimal, cfg *taxyear.IeConfig) (PayeResult, error) {
	if cfg == nil {
		return PayeResult{}, payroll.ErrMissingTaxTable
	}
	if cutoff.IsNegative() || credits.IsNegative() {
		return PayeResult{}, fmt.Errorf("ireland: negative cutoff %s or credits %s", cutoff, credits)
	}

	taxable := decimal.Max(gross, decimal.Zero)
	standard := decimal.Min(taxable, cutoff)
	higher := taxable.Sub(standard)

	rates := cfg.Paye
	standardTax := standard.Mul(rates.StandardRate)
	higherTax := higher.Mul(rates.HigherRate)
	grossTax := standardTax.Add(higherTax)

	return PayeResult{
		Gross:              gross,
		StandardRateCutoff: cutoff,
		TaxCredits:         credits,
		StandardBand:       payroll.Round2(standard),
		HigherBand:         payroll.Round2(higher),
		StandardRate:       rates.StandardRate,
		HigherRate:         rates.HigherRate,
		StandardTax:        payroll.Round2(standardTax),
		HigherTax:          payroll.Round2(higherTax),
		GrossTax:           payroll.Round2(grossTax),
		TaxDue:             payroll.Round2(decimal.Max(grossTax.Sub(credits), decimal.Zero)),
	}, nil
}

// PayeInputs resolves the per-period cutoff and credits of a profile. Values
// printed on the profile win; otherwise they are derived from the filing
// status and the tax year's annual figures. ok is false when neither is
// available.
func PayeInputs(profile *payroll.IePayeProfile, freq payroll.PayFrequency, cfg *taxyear.IeConfig) (cutoff, credits decimal.Decimal, ok bool) {
	if profile == nil || cfg == nil {
		return decimal.Zero, decimal.Zero, false
	}
	periods := decimal.NewFromInt(int64(freq.PeriodsPerYear()))

	switch {
	case profile.StandardRateCutoff != nil:
		cutoff = *profile.StandardRateCutoff
	case profile.FilingStatus != "":
		annual, found := cfg.Paye.AnnualCutoff(profile.FilingStatus)
		if !found {
			return decimal.Zero, decimal.Zero, false
		}
		cutoff = annual.Div(periods)
	default:
		return decimal.Zero, decimal.Zero, false
	}

	if profile.TaxCredits != nil {
		credits = *profile.TaxCredits
	} else {
		credits = cfg.Paye.DefaultAnnualCredits().Div(periods)
	}
	return cutoff, credits, true
}
