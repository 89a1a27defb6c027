package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/metrics"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reconcile"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/rules"
	"github.com/warp/payroll-engine/store"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/taxyear"
)

func slip(id string, gross, net float64) payroll.Payslip {
	return payroll.NewPayslip(id, map[payroll.Field]float64{
		payroll.FieldGrossPay: gross,
		payroll.FieldNetPay:   net,
	})
}

// netJump is an item that raises NET_CHANGE_LARGE and nothing else.
func netJump(id string) Item {
	prev := slip(id, 3000, 2100)
	return Item{Current: slip(id, 3000, 2600), Previous: &prev}
}

func newService(t *testing.T, st *memory.Store, opts ...Option) *Service {
	t.Helper()
	resolver := ruleconfig.NewResolver(taxyear.MustDefault(), st, nil)
	return NewService(rules.Baseline(), resolver, st, opts...)
}

func TestEvaluateBatch_PersistsAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	svc := newService(t, st, WithMetrics(m), WithWorkers(2))

	req := EvaluateRequest{
		Scope: Scope{BatchID: "b1", ClientID: "acme", Country: payroll.CountryIE, TaxYear: 2025},
		Items: []Item{netJump("e1"), netJump("e2"), {Current: slip("e3", 3000, 2100)}},
	}

	// WHEN: the batch is evaluated twice
	first, err := svc.EvaluateBatch(ctx, req)
	require.NoError(t, err)
	second, err := svc.EvaluateBatch(ctx, req)
	require.NoError(t, err)

	// THEN: issues keep item order and are stored once
	require.Len(t, first.Issues, 2)
	assert.Equal(t, "e1", first.Issues[0].EmployeeID)
	assert.Equal(t, "e2", first.Issues[1].EmployeeID)
	assert.Equal(t, 2, first.Run.NewIssues)
	assert.Equal(t, store.RunCompleted, first.Run.Status)
	assert.Equal(t, 0, second.Run.NewIssues)
	assert.Equal(t, 2, second.Run.Issues)

	stored, err := svc.Issues(ctx, store.IssueFilter{BatchID: "b1"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	runs, err := svc.Runs(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.PayslipsEvaluated.WithLabelValues("IE")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IssuesRaised.WithLabelValues(payroll.CodeNetChangeLarge, "warning")))
}

func TestEvaluateBatch_ClientOverrideApplies(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	high := decimal.NewFromInt(50)
	require.NoError(t, st.SaveOverride(ctx, "acme", payroll.CountryIE, &payroll.RuleConfigOverride{LargeNetChangePercent: &high}))
	svc := newService(t, st)

	res, err := svc.EvaluateBatch(ctx, EvaluateRequest{
		Scope: Scope{BatchID: "b1", ClientID: "acme", Country: payroll.CountryIE, TaxYear: 2025},
		Items: []Item{netJump("e1")},
	})

	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestEvaluateBatch_RuleFailureFailsRun(t *testing.T) {
	// GIVEN: a rule set with a rule that always fails
	boom := payroll.RuleDefinition{
		Code:            "BOOM",
		Description:     "boom",
		DefaultSeverity: payroll.SeverityInfo,
		Evaluate: func(*payroll.RuleContext) ([]payroll.Outcome, error) {
			return nil, errors.New("bad table")
		},
	}
	st := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	resolver := ruleconfig.NewResolver(taxyear.MustDefault(), nil, nil)
	svc := NewService(payroll.MustRuleSet(boom), resolver, st, WithMetrics(m))

	// WHEN
	_, err := svc.EvaluateBatch(context.Background(), EvaluateRequest{
		Scope: Scope{BatchID: "b1", Country: payroll.CountryUK},
		Items: []Item{{Current: slip("e1", 1, 1)}},
	})

	// THEN
	require.ErrorIs(t, err, payroll.ErrRuleFailed)
	runs, _ := st.ListRuns(context.Background(), "b1")
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "bad table")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFailures.WithLabelValues("BOOM")))
}

func TestEvaluateBatch_Validation(t *testing.T) {
	svc := newService(t, memory.New())

	_, err := svc.EvaluateBatch(context.Background(), EvaluateRequest{Scope: Scope{Country: payroll.CountryIE}})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = svc.EvaluateBatch(context.Background(), EvaluateRequest{
		Scope: Scope{Country: "FR"},
		Items: []Item{netJump("e1")},
	})
	assert.ErrorIs(t, err, payroll.ErrUnknownCountry)
}

func TestEvaluateOne_YearScopedRuleWithoutYear(t *testing.T) {
	// GIVEN: a rule limited to 2025, the latest shipped IE table
	scoped := payroll.RuleDefinition{
		Code:            "IE_2025_ONLY",
		Description:     "scoped rule",
		DefaultSeverity: payroll.SeverityInfo,
		TaxYears:        []int{2025},
		Evaluate: func(*payroll.RuleContext) ([]payroll.Outcome, error) {
			return payroll.Single(payroll.Outcome{}), nil
		},
	}
	st := memory.New()
	resolver := ruleconfig.NewResolver(taxyear.MustDefault(), st, nil)
	svc := NewService(payroll.MustRuleSet(scoped), resolver, st)

	// WHEN: the caller does not name a tax year
	issues, err := svc.EvaluateOne(context.Background(),
		Scope{Country: payroll.CountryIE}, Item{Current: slip("e1", 3000, 2100)})

	// THEN: the resolved latest year drives applicability
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "IE_2025_ONLY", issues[0].RuleCode)
}

func TestEvaluateOne_DoesNotPersist(t *testing.T) {
	st := memory.New()
	svc := newService(t, st)

	issues, err := svc.EvaluateOne(context.Background(), Scope{Country: payroll.CountryIE, TaxYear: 2025}, netJump("e1"))
	require.NoError(t, err)
	require.Len(t, issues, 1)

	stored, _ := st.ListIssues(context.Background(), store.IssueFilter{})
	assert.Empty(t, stored)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveOverride(ctx, "acme", payroll.CountryIE, &payroll.RuleConfigOverride{
		SeverityOverrides: map[string]payroll.Severity{reconcile.CodeSubmissionCount: payroll.SeverityCritical},
	}))
	fixed := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc := newService(t, st, WithClock(func() time.Time { return fixed }))

	// GIVEN: GL wages short by 200 and a submission declaring 3 employees
	res, err := svc.Reconcile(ctx, ReconcileRequest{
		Scope:      Scope{BatchID: "b1", ClientID: "acme", Country: payroll.CountryIE, TaxYear: 2025},
		Payslips:   []payroll.Payslip{slip("e1", 3000, 2100), slip("e2", 4000, 2800)},
		GL:         &reconcile.GlPosting{Wages: decimal.NewFromInt(6800)},
		Submission: &reconcile.SubmissionSummary{EmployeeCount: 3},
	})

	// THEN
	require.NoError(t, err)
	codes := []string{}
	for _, is := range res.Issues {
		codes = append(codes, is.RuleCode)
	}
	assert.Equal(t, []string{reconcile.CodeGlPayrollTotalMismatch, reconcile.CodeSubmissionCount}, codes)
	assert.Equal(t, payroll.SeverityCritical, res.Issues[1].Severity)
	assert.Equal(t, store.RunReconcile, res.Run.Kind)
	assert.Equal(t, fixed, res.Run.StartedAt)

	stored, err := svc.Issues(ctx, store.IssueFilter{BatchID: "b1"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
