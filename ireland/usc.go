package ireland

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// USC
// =============================================================================

// BandUsage is how much income one band consumed. UpTo is nil for the
// unbounded top band.
type BandUsage struct {
	From   decimal.Decimal  `json:"from"`
	UpTo   *decimal.Decimal `json:"upTo"`
	Rate   decimal.Decimal  `json:"rate"`
	Amount decimal.Decimal  `json:"amount"`
	Charge decimal.Decimal  `json:"charge"`
}

// UscResult is a USC computation. When the calculation was annualised,
// Bands are annual figures and TotalCharge is per period.
type UscResult struct {
	Gross        decimal.Decimal `json:"gross"`
	Bands        []BandUsage     `json:"bands"`
	Exempt       bool            `json:"exempt,omitempty"`
	ReducedRates bool            `json:"reducedRates,omitempty"`
	Surcharge    decimal.Decimal `json:"surcharge"`
	TotalCharge  decimal.Decimal `json:"totalCharge"`
}

// CalcUsc walks the year's USC bands over gross as given.
func CalcUsc(gross decimal.Decimal, cfg *taxyear.IeConfig) (UscResult, error) {
	if cfg == nil {
		return UscResult{}, payroll.ErrMissingTaxTable
	}
	usage, total, err := walkUscBands(gross, cfg.Usc.Bands)
	if err != nil {
		return UscResult{}, err
	}
	return UscResult{
		Gross:       gross,
		Bands:       usage,
		Surcharge:   decimal.Zero,
		TotalCharge: payroll.Round2(total),
	}, nil
}

// UscOptions turn on annualisation and the profile-dependent treatments.
type UscOptions struct {
	Frequency payroll.PayFrequency
	Profile   *payroll.IeUscProfile
}

// CalcUscWith annualises period gross, applies the exemption threshold,
// reduced rates and surcharge, and converts the charge back to the period.
// Without a known frequency it is CalcUsc.
func CalcUscWith(gross decimal.Decimal, cfg *taxyear.IeConfig, opts UscOptions) (UscResult, error) {
	if cfg == nil {
		return UscResult{}, payroll.ErrMissingTaxTable
	}
	if !opts.Frequency.Known() {
		return CalcUsc(gross, cfg)
	}

	periods := decimal.NewFromInt(int64(opts.Frequency.PeriodsPerYear()))
	annual := gross.Mul(periods)
	usc := cfg.Usc
	profile := opts.Profile
	if profile == nil {
		profile = &payroll.IeUscProfile{}
	}

	if usc.ExemptionThreshold != nil && annual.LessThanOrEqual(*usc.ExemptionThreshold) {
		return UscResult{Gross: gross, Exempt: true, Surcharge: decimal.Zero, TotalCharge: decimal.Zero}, nil
	}

	bands := usc.Bands
	reduced := false
	if rr := usc.ReducedRates; rr != nil && (profile.MedicalCard || profile.Over70) && annual.LessThanOrEqual(rr.IncomeCeiling) {
		bands = rr.Bands
		reduced = true
	}

	usage, total, err := walkUscBands(annual, bands)
	if err != nil {
		return UscResult{}, err
	}

	surcharge := decimal.Zero
	if sc := usc.Surcharge; sc != nil && profile.SelfEmployed && annual.GreaterThan(sc.Threshold) {
		surcharge = annual.Sub(sc.Threshold).Mul(sc.Rate)
	}

	return UscResult{
		Gross:        gross,
		Bands:        usage,
		ReducedRates: reduced,
		Surcharge:    payroll.Round2(surcharge.Div(periods)),
		TotalCharge:  payroll.Round2(total.Add(surcharge).Div(periods)),
	}, nil
}

// walkUscBands consumes income band by band. Every band is reported, so the
// amounts always add up to the (non-negative) income.
func walkUscBands(income decimal.Decimal, bands []taxyear.UscBand) ([]BandUsage, decimal.Decimal, error) {
	if err := taxyear.ValidateUscBands(bands); err != nil {
		return nil, decimal.Zero, err
	}

	remaining := decimal.Max(income, decimal.Zero)
	lower := decimal.Zero
	total := decimal.Zero
	usage := make([]BandUsage, 0, len(bands))

	for _, b := range bands {
		amount := remaining
		if b.UpTo != nil {
			amount = decimal.Min(remaining, b.UpTo.Sub(lower))
		}
		charge := amount.Mul(b.Rate)
		usage = append(usage, BandUsage{
			From:   lower,
			UpTo:   b.UpTo,
			Rate:   b.Rate,
			Amount: amount,
			Charge: payroll.Round2(charge),
		})
		total = total.Add(charge)
		remaining = remaining.Sub(amount)
		if b.UpTo != nil {
			lower = *b.UpTo
		}
	}
	return usage, total, nil
}
