// Package metrics holds the Prometheus collectors of the payroll engine
// service. All methods are safe on a nil *Metrics, so callers that do not
// care about metrics pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for rule evaluation and reconciliation.
type Metrics struct {
	// Payslips evaluated by country
	PayslipsEvaluated *prometheus.CounterVec

	// Issues raised by rule code and severity
	IssuesRaised *prometheus.CounterVec

	// Rule runs that aborted with an error, by rule code
	RuleFailures *prometheus.CounterVec

	// Per-payslip evaluation latency
	EvaluateLatency prometheus.Histogram

	// Whole-batch run latency by kind (evaluate, reconcile)
	BatchLatency *prometheus.HistogramVec

	// Reconciliation runs by source and result
	ReconciliationRuns *prometheus.CounterVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PayslipsEvaluated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_payslips_evaluated_total",
			Help: "Total payslips run through the rule set by country",
		}, []string{"country"}),

		IssuesRaised: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_issues_raised_total",
			Help: "Total issue candidates raised by rule code and severity",
		}, []string{"code", "severity"}),

		RuleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_rule_failures_total",
			Help: "Total rule evaluations that returned an error",
		}, []string{"code"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "payroll_evaluate_duration_seconds",
			Help:    "Duration of evaluating one payslip against the rule set",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),

		BatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payroll_batch_duration_seconds",
			Help:    "Duration of a whole batch run by kind",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}), // kind: "evaluate", "reconcile"

		ReconciliationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_reconciliation_runs_total",
			Help: "Total reconciliation checks by source and result",
		}, []string{"source", "result"}), // result: "clean", "issues"
	}
}

// IncrementPayslips records one evaluated payslip.
func (m *Metrics) IncrementPayslips(country string) {
	if m != nil {
		m.PayslipsEvaluated.WithLabelValues(country).Inc()
	}
}

// IncrementIssue records one raised issue.
func (m *Metrics) IncrementIssue(code, severity string) {
	if m != nil {
		m.IssuesRaised.WithLabelValues(code, severity).Inc()
	}
}

// IncrementRuleFailure records a rule that aborted an evaluation.
func (m *Metrics) IncrementRuleFailure(code string) {
	if m != nil {
		m.RuleFailures.WithLabelValues(code).Inc()
	}
}

// ObserveEvaluateLatency records the duration of one payslip evaluation.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveBatchLatency records the duration of a batch run.
func (m *Metrics) ObserveBatchLatency(kind string, d time.Duration) {
	if m != nil {
		m.BatchLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementReconciliation records one reconciliation check.
func (m *Metrics) IncrementReconciliation(source string, issues int) {
	if m == nil {
		return
	}
	result := "clean"
	if issues > 0 {
		result = "issues"
	}
	m.ReconciliationRuns.WithLabelValues(source, result).Inc()
}
