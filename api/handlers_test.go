/*
handlers_test.go - Tests for API handlers

Tests for:
- Single and batch evaluation (validation, persistence, dedup)
- Reconciliation
- Issue filtering and resolution
- Client rule-config overrides changing evaluation
- Reference data endpoints and /metrics
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/batch"
	"github.com/warp/payroll-engine/metrics"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reconcile"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/rules"
	"github.com/warp/payroll-engine/store"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/taxyear"
)

type fixture struct {
	router http.Handler
	store  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	reg := prometheus.NewRegistry()
	resolver := ruleconfig.NewResolver(taxyear.MustDefault(), st, zap.NewNop())
	svc := batch.NewService(rules.Baseline(), resolver, st, batch.WithMetrics(metrics.New(reg)))
	h := NewHandler(svc, st, zap.NewNop())
	return &fixture{
		router: NewRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		store:  st,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// netJump is a payslip pair whose net pay rises by ~24%.
func netJump(id string) map[string]any {
	return map[string]any{
		"current":  map[string]any{"employee_id": id, "gross_pay": 3000, "net_pay": 2600},
		"previous": map[string]any{"employee_id": id, "gross_pay": 3000, "net_pay": 2100},
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestEvaluatePayslip(t *testing.T) {
	f := newFixture(t)

	// GIVEN: a payslip whose net pay jumped
	body := netJump("emp-1")
	body["country"] = "ie"
	body["tax_year"] = 2025

	// WHEN
	rec := f.do(t, http.MethodPost, "/api/evaluate", body)

	// THEN: one warning, nothing persisted
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[EvaluateResponse](t, rec)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, payroll.CodeNetChangeLarge, resp.Issues[0].RuleCode)
	assert.Equal(t, payroll.SeverityWarning, resp.Issues[0].Severity)
	assert.Equal(t, "emp-1", resp.Issues[0].EmployeeID)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	stored, err := f.store.ListIssues(t.Context(), store.IssueFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEvaluatePayslip_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"malformed json", `{"country":`, "invalid request body"},
		{"missing country", map[string]any{"current": map[string]any{"gross_pay": 1}}, "country is required"},
		{"unknown country", map[string]any{"country": "FR", "current": map[string]any{"gross_pay": 1}}, "country must be IE or UK"},
		{"missing current", map[string]any{"country": "IE"}, "current is required"},
		{"bad year", map[string]any{"country": "UK", "tax_year": 1850, "current": map[string]any{}}, "tax_year is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestEvaluateBatch_PersistsOnce(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"client_id": "acme",
		"country":   "IE",
		"items": []any{
			netJump("e1"),
			map[string]any{"current": map[string]any{"employee_id": "e2", "gross_pay": 3000, "net_pay": 2100}},
		},
	}

	// WHEN: the same batch is posted twice
	first := f.do(t, http.MethodPost, "/api/batches/b1/evaluate", body)
	second := f.do(t, http.MethodPost, "/api/batches/b1/evaluate", body)

	// THEN: the second run finds the same issue but stores nothing new
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	r1 := decodeBody[BatchResultResponse](t, first)
	r2 := decodeBody[BatchResultResponse](t, second)
	assert.Equal(t, "completed", r1.Run.Status)
	assert.Equal(t, "b1", r1.Run.BatchID)
	assert.Equal(t, 2, r1.Run.Payslips)
	assert.Equal(t, 1, r1.Run.NewIssues)
	assert.Len(t, r2.Issues, 1)
	assert.Equal(t, 0, r2.Run.NewIssues)

	issues := decodeBody[IssuesResponse](t, f.do(t, http.MethodGet, "/api/batches/b1/issues", nil))
	require.Len(t, issues.Issues, 1)
	assert.Equal(t, "acme", issues.Issues[0].ClientID)

	runs := decodeBody[RunsResponse](t, f.do(t, http.MethodGet, "/api/batches/b1/runs", nil))
	assert.Len(t, runs.Runs, 2)
}

func TestEvaluateBatch_EmptyItems(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/batches/b1/evaluate", map[string]any{"country": "IE", "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "items must have at least 1 entries", decodeBody[ErrorResponse](t, rec).Error)
}

// =============================================================================
// RECONCILIATION AND ISSUES
// =============================================================================

func TestReconcileBatch(t *testing.T) {
	f := newFixture(t)

	// GIVEN: payslips totalling 7000 gross, GL wages 6800, a short payment
	body := map[string]any{
		"payslips": []any{
			map[string]any{"employee_id": "e1", "gross_pay": 3000, "net_pay": 2100},
			map[string]any{"employee_id": "e2", "gross_pay": 4000, "net_pay": 2800},
		},
		"gl": map[string]any{"wages": "6800", "currency": "EUR"},
		"payments": []any{
			map[string]any{"employee_id": "e1", "amount": "2100"},
			map[string]any{"employee_id": "e2", "amount": "2700"},
		},
	}

	// WHEN
	rec := f.do(t, http.MethodPost, "/api/batches/b7/reconcile", body)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[BatchResultResponse](t, rec)
	codes := []string{}
	for _, is := range resp.Issues {
		codes = append(codes, is.RuleCode)
	}
	assert.Equal(t, []string{reconcile.CodeGlPayrollTotalMismatch, reconcile.CodeBankNetPayMismatch}, codes)
	assert.Equal(t, "reconcile", resp.Run.Kind)

	// AND: the issues can be filtered by code
	filtered := decodeBody[IssuesResponse](t, f.do(t, http.MethodGet,
		"/api/batches/b7/issues?code="+reconcile.CodeBankNetPayMismatch, nil))
	require.Len(t, filtered.Issues, 1)
	assert.Equal(t, "e2", filtered.Issues[0].EmployeeID)
}

func TestResolveIssue(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"country": "IE", "items": []any{netJump("e1")}}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/batches/b1/evaluate", body).Code)

	issues := decodeBody[IssuesResponse](t, f.do(t, http.MethodGet, "/api/batches/b1/issues?unresolved=true", nil))
	require.Len(t, issues.Issues, 1)
	id := issues.Issues[0].ID

	// WHEN: a reviewer resolves it
	rec := f.do(t, http.MethodPost, "/api/batches/b1/issues/"+id+"/resolve", map[string]any{"resolved_by": "alice"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// THEN: it drops out of the unresolved view
	open := decodeBody[IssuesResponse](t, f.do(t, http.MethodGet, "/api/batches/b1/issues?unresolved=true", nil))
	assert.Empty(t, open.Issues)

	t.Run("unknown issue", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/batches/b1/issues/nope/resolve", map[string]any{"resolved_by": "alice"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListIssues_BadFilters(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/batches/b1/issues?severity=loud", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/batches/b1/issues?unresolved=maybe", nil).Code)
}

// =============================================================================
// RULE CONFIG
// =============================================================================

func TestRuleConfig_OverrideChangesEvaluation(t *testing.T) {
	f := newFixture(t)

	// GIVEN: acme raises its net-change threshold to 30%
	rec := f.do(t, http.MethodPut, "/api/clients/acme/rule-config?country=IE", `{"largeNetChangePercent":"30"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg := decodeBody[RuleConfigResponse](t, rec)
	assert.Equal(t, "30", cfg.Effective.LargeNetChangePercent.String())
	assert.Equal(t, "15", cfg.Effective.LargeGrossChangePercent.String())
	require.NotNil(t, cfg.Override)
	assert.NotNil(t, cfg.Effective.IeConfig)

	// WHEN: acme's payslip with a ~24% net jump is evaluated
	body := netJump("e1")
	body["country"] = "IE"
	body["client_id"] = "acme"
	resp := decodeBody[EvaluateResponse](t, f.do(t, http.MethodPost, "/api/evaluate", body))

	// THEN: no issue
	assert.Empty(t, resp.Issues)

	// AND: other clients still get the default
	body["client_id"] = "other"
	resp = decodeBody[EvaluateResponse](t, f.do(t, http.MethodPost, "/api/evaluate", body))
	assert.Len(t, resp.Issues, 1)

	// AND: deleting the override restores the default
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/clients/acme/rule-config?country=IE", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/clients/acme/rule-config?country=IE", nil).Code)
}

func TestRuleConfig_Invalid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/clients/acme/rule-config?country=IE", `{"severityOverrides":{"NET_CHANGE_LARGE":"loud"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/clients/acme/rule-config", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "country is required", decodeBody[ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/clients/acme/rule-config?country=UK&tax_year=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestTaxYears(t *testing.T) {
	f := newFixture(t)

	years := decodeBody[TaxYearsResponse](t, f.do(t, http.MethodGet, "/api/tax-years", nil))
	assert.Contains(t, years.Years["IE"], 2025)
	assert.Contains(t, years.Years["UK"], 2025)

	rec := f.do(t, http.MethodGet, "/api/tax-years/ie/2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 2025, table["taxYear"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/tax-years/UK/1999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/tax-years/FR/2025", nil).Code)
}

func TestListRules(t *testing.T) {
	f := newFixture(t)

	resp := decodeBody[RulesResponse](t, f.do(t, http.MethodGet, "/api/rules", nil))

	assert.Len(t, resp.Rules, rules.Baseline().Len())
	assert.Len(t, resp.Checks, len(reconcile.Checks()))
	var found bool
	for _, r := range resp.Rules {
		if r.Code == payroll.CodeNetChangeLarge {
			found = true
			assert.Equal(t, "warning", r.DefaultSeverity)
		}
	}
	assert.True(t, found)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	body := netJump("e1")
	body["country"] = "IE"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/evaluate", body).Code)

	rec := f.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "payroll_payslips_evaluated_total"), rec.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tax-years", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}
