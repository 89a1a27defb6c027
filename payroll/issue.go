package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity ranks an issue for triage.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// ParseSeverity accepts any casing.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	return sev, sev.Valid()
}

// ResolveSeverity picks the final severity of an issue: a configured
// per-rule override wins, then the outcome's own severity, then the rule's
// default.
func ResolveSeverity(cfg RuleConfig, def RuleDefinition, out Outcome) Severity {
	if sev, ok := cfg.SeverityOverrides[def.Code]; ok && sev.Valid() {
		return sev
	}
	if out.Severity.Valid() {
		return out.Severity
	}
	return def.DefaultSeverity
}

// =============================================================================
// ISSUES
// =============================================================================

// IssueData is the structured payload attached to an issue for audit and
// UI display. Money values are decimal.Decimal.
type IssueData map[string]any

// Outcome is what a rule's evaluate function returns for one finding.
// Severity and Description are optional; the evaluator fills them from the
// rule definition.
type Outcome struct {
	Severity    Severity
	Description string
	Data        IssueData
}

// Issue is an issue candidate produced by the engine. The engine never
// persists or deduplicates issues.
type Issue struct {
	RuleCode    string    `json:"ruleCode"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	Data        IssueData `json:"data,omitempty"`
}

// RenderDescription fills {key} placeholders in tmpl from data. Unknown
// placeholders are left as-is.
func RenderDescription(tmpl string, data IssueData) string {
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", formatValue(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.StringFixed(2)
	case decimal.NullDecimal:
		if !x.Valid {
			return "n/a"
		}
		return x.Decimal.StringFixed(2)
	case *decimal.Decimal:
		if x == nil {
			return "n/a"
		}
		return x.StringFixed(2)
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(v)
	}
}
