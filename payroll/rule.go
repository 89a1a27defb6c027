/*
rule.go - Rule definitions and the rule set registry

PURPOSE:
  A rule is a named, pure check over a RuleContext. The RuleSet is the
  ordered, immutable list of rules an evaluator runs. Swapping the active
  RuleSet (tests, tenant-specific bundles) never changes how evaluation
  works: the evaluator knows nothing about individual rules.

KEY CONCEPTS:
  - RuleDefinition: code, template, default severity, applicability, Evaluate
  - Applicability: country and tax-year filters (empty means "all")
  - RuleSet: immutable ordered collection, safe for concurrent use

RULE CONTRACT:
  Evaluate must be pure. It returns no outcome (not an error) when the data it
  needs is absent: missing previous payslip, missing country context, missing
  tax table, unknown class code. An error means the inputs were malformed,
  e.g. a tax table whose bands cannot be walked.

SEE ALSO:
  - evaluator.go: running a RuleSet
  - core_rules.go: the country-agnostic rules
  - rules/baseline.go: the production rule set
*/
package payroll

import (
	"fmt"
	"slices"
)

// EvaluateFunc inspects a context and returns zero or more findings.
type EvaluateFunc func(rc *RuleContext) ([]Outcome, error)

// RuleDefinition describes one rule.
type RuleDefinition struct {
	Code            string
	Description     string // template; {key} placeholders come from outcome data
	DefaultSeverity Severity
	Categories      []string
	Countries       []Country
	TaxYears        []int
	Evaluate        EvaluateFunc
}

// AppliesTo reports whether the rule should run for the country and year.
func (d RuleDefinition) AppliesTo(country Country, taxYear int) bool {
	if len(d.Countries) > 0 && !slices.Contains(d.Countries, country) {
		return false
	}
	if len(d.TaxYears) > 0 && !slices.Contains(d.TaxYears, taxYear) {
		return false
	}
	return true
}

func (d RuleDefinition) validate() error {
	switch {
	case d.Code == "":
		return fmt.Errorf("%w: empty code", ErrInvalidRule)
	case d.Evaluate == nil:
		return fmt.Errorf("%w: %s has no evaluate function", ErrInvalidRule, d.Code)
	case !d.DefaultSeverity.Valid():
		return fmt.Errorf("%w: %s has invalid default severity %q", ErrInvalidRule, d.Code, d.DefaultSeverity)
	}
	return nil
}

// Single wraps one outcome as a result list.
func Single(out Outcome) []Outcome {
	return []Outcome{out}
}

// =============================================================================
// RULE SET
// =============================================================================

// RuleSet is an immutable ordered list of rules. Several rules may share a
// code; the evaluator does not deduplicate.
type RuleSet struct {
	defs []RuleDefinition
}

// NewRuleSet validates and captures the definitions.
func NewRuleSet(defs ...RuleDefinition) (*RuleSet, error) {
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
	}
	return &RuleSet{defs: slices.Clone(defs)}, nil
}

// MustRuleSet is NewRuleSet for static rule lists; it panics on an invalid
// definition.
func MustRuleSet(defs ...RuleDefinition) *RuleSet {
	rs, err := NewRuleSet(defs...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Definitions returns a copy of the rules in order.
func (rs *RuleSet) Definitions() []RuleDefinition {
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.defs)
}

// Len is the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.defs)
}

// Lookup returns the first rule with the code.
func (rs *RuleSet) Lookup(code string) (RuleDefinition, bool) {
	if rs == nil {
		return RuleDefinition{}, false
	}
	for _, d := range rs.defs {
		if d.Code == code {
			return d, true
		}
	}
	return RuleDefinition{}, false
}

// With returns a new set with extra rules appended.
func (rs *RuleSet) With(defs ...RuleDefinition) (*RuleSet, error) {
	return NewRuleSet(append(rs.Definitions(), defs...)...)
}

// Without returns a new set minus every rule with one of the codes.
func (rs *RuleSet) Without(codes ...string) *RuleSet {
	kept := slices.DeleteFunc(rs.Definitions(), func(d RuleDefinition) bool {
		return slices.Contains(codes, d.Code)
	})
	return &RuleSet{defs: kept}
}
