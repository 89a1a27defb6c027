package payroll

import (
	"sync/atomic"
)

// =============================================================================
// ACTIVE RULE SET
// =============================================================================

var active atomic.Pointer[RuleSet]

// SetActive installs the process-wide rule set and returns the previous one.
// Production code installs the baseline once at start-up; tests may swap it.
func SetActive(rs *RuleSet) *RuleSet {
	return active.Swap(rs)
}

// Active returns the process-wide rule set (nil if none was installed).
func Active() *RuleSet {
	return active.Load()
}

// =============================================================================
// EVALUATION
// =============================================================================

// Options carries everything about an evaluation beyond the two payslips.
// A zero TaxYear means the year of the tax table in Config.
type Options struct {
	Country  Country
	TaxYear  int
	Config   RuleConfig
	Ireland  *IeContext
	UK       *UkContext
	Contract *ContractProfile
}

// RunRules evaluates the active rule set. See (*RuleSet).Run.
func RunRules(current, previous *Payslip, diff Diff, opts Options) ([]Issue, error) {
	return Active().Run(current, previous, diff, opts)
}

// Evaluate computes the diff and runs the rule set.
func (rs *RuleSet) Evaluate(current, previous *Payslip, opts Options) ([]Issue, error) {
	diff, err := CalculateDiff(previous, current)
	if err != nil {
		return nil, err
	}
	return rs.Run(current, previous, diff, opts)
}

// Run evaluates every applicable rule against one payslip and returns the
// issue candidates in rule order. A failing rule aborts the run with a
// *RuleError; rules that cannot verify simply produce nothing.
func (rs *RuleSet) Run(current, previous *Payslip, diff Diff, opts Options) ([]Issue, error) {
	if current == nil {
		return nil, ErrMissingCurrent
	}
	if !opts.Country.Valid() {
		return nil, ErrUnknownCountry
	}
	if diff == nil {
		d, err := CalculateDiff(previous, current)
		if err != nil {
			return nil, err
		}
		diff = d
	}

	// An unset year takes the year of the attached tax table, so year-scoped
	// rules see the table the resolver actually picked.
	taxYear := opts.TaxYear
	if taxYear == 0 {
		taxYear = opts.Config.TaxYear(opts.Country)
	}

	rc := &RuleContext{
		Current:  current,
		Previous: previous,
		Diff:     diff,
		Country:  opts.Country,
		TaxYear:  taxYear,
		Config:   opts.Config.ForCountry(opts.Country),
		Ireland:  opts.Ireland,
		UK:       opts.UK,
		Contract: opts.Contract,
	}

	issues := []Issue{}
	if rs == nil {
		return issues, nil
	}
	for _, def := range rs.defs {
		if !def.AppliesTo(rc.Country, rc.TaxYear) {
			continue
		}
		outcomes, err := def.Evaluate(rc)
		if err != nil {
			return nil, &RuleError{Code: def.Code, Err: err}
		}
		for _, out := range outcomes {
			issues = append(issues, buildIssue(rc, def, out))
		}
	}
	return issues, nil
}

func buildIssue(rc *RuleContext, def RuleDefinition, out Outcome) Issue {
	desc := out.Description
	if desc == "" {
		desc = RenderDescription(def.Description, out.Data)
	}
	return Issue{
		RuleCode:    def.Code,
		Severity:    ResolveSeverity(rc.Config, def, out),
		Description: desc,
		EmployeeID:  rc.Current.EmployeeID,
		Data:        out.Data,
	}
}
