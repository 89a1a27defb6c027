package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func record(id, batch, employee, code string) store.IssueRecord {
	return store.IssueRecord{
		ID:      id,
		BatchID: batch,
		Issue: payroll.Issue{
			RuleCode:    code,
			Severity:    payroll.SeverityWarning,
			Description: code + " for " + employee,
			EmployeeID:  employee,
			Data:        payroll.IssueData{"delta": decimal.NewFromInt(500)},
		},
	}
}

func TestSQLite_Overrides(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	got, err := st.GetOverride(ctx, "acme", payroll.CountryUK)
	require.NoError(t, err)
	assert.Nil(t, got)

	// GIVEN: an override saved twice (upsert)
	first := decimal.NewFromInt(20)
	second := decimal.RequireFromString("22.5")
	require.NoError(t, st.SaveOverride(ctx, "acme", payroll.CountryUK, &payroll.RuleConfigOverride{LargeNetChangePercent: &first}))
	require.NoError(t, st.SaveOverride(ctx, "acme", payroll.CountryUK, &payroll.RuleConfigOverride{
		LargeNetChangePercent: &second,
		SeverityOverrides:     map[string]payroll.Severity{"UK_PAYE_MISMATCH": payroll.SeverityCritical},
	}))

	// WHEN
	got, err = st.GetOverride(ctx, "acme", payroll.CountryUK)

	// THEN: the latest version round-trips
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LargeNetChangePercent.Equal(second))
	assert.Equal(t, payroll.SeverityCritical, got.SeverityOverrides["UK_PAYE_MISMATCH"])
	assert.Nil(t, got.PayeSpikePercent)

	require.NoError(t, st.DeleteOverride(ctx, "acme", payroll.CountryUK))
	assert.True(t, store.IsNotFound(st.DeleteOverride(ctx, "acme", payroll.CountryUK)))
}

func TestSQLite_SaveIssuesDeduplicates(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	n, err := st.SaveIssues(ctx, []store.IssueRecord{
		record("1", "b1", "e1", "NET_CHANGE_LARGE"),
		record("2", "b1", "e2", "NET_CHANGE_LARGE"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.SaveIssues(ctx, []store.IssueRecord{
		record("3", "b1", "e1", "NET_CHANGE_LARGE"),
		record("4", "b1", "e1", "YTD_REGRESSION"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	issues, err := st.ListIssues(ctx, store.IssueFilter{BatchID: "b1"})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []string{"1", "2", "4"}, []string{issues[0].ID, issues[1].ID, issues[2].ID})
	assert.Equal(t, "e1", issues[0].EmployeeID)
	assert.Equal(t, "500", issues[0].Data["delta"])
}

func TestSQLite_FilterAndResolve(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	crit := record("c", "b1", "e1", "YTD_REGRESSION")
	crit.Severity = payroll.SeverityCritical
	_, err := st.SaveIssues(ctx, []store.IssueRecord{crit, record("w", "b1", "e2", "NET_CHANGE_LARGE")})
	require.NoError(t, err)

	only, err := st.ListIssues(ctx, store.IssueFilter{BatchID: "b1", Severity: payroll.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "c", only[0].ID)

	require.NoError(t, st.ResolveIssue(ctx, "c", "reviewer"))
	open, err := st.ListIssues(ctx, store.IssueFilter{BatchID: "b1", Unresolved: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "w", open[0].ID)

	all, err := st.ListIssues(ctx, store.IssueFilter{RuleCode: "YTD_REGRESSION"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
	assert.Equal(t, "reviewer", all[0].ResolvedBy)
	assert.NotNil(t, all[0].ResolvedAt)

	assert.True(t, store.IsNotFound(st.ResolveIssue(ctx, "missing", "x")))
}

func TestSQLite_Runs(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	run := store.Run{ID: "r1", BatchID: "b1", Kind: store.RunEvaluate, Status: store.RunRunning, StartedAt: start}
	require.NoError(t, st.SaveRun(ctx, run))

	done := start.Add(time.Second)
	run.Status, run.Issues, run.NewIssues, run.CompletedAt = store.RunCompleted, 4, 3, &done
	require.NoError(t, st.SaveRun(ctx, run))
	require.NoError(t, st.SaveRun(ctx, store.Run{ID: "r2", BatchID: "b1", Kind: store.RunReconcile, Status: store.RunFailed, Error: "boom", StartedAt: start.Add(time.Minute)}))

	runs, err := st.ListRuns(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, store.RunCompleted, runs[1].Status)
	assert.Equal(t, 3, runs[1].NewIssues)
	require.NotNil(t, runs[1].CompletedAt)
	assert.True(t, runs[1].CompletedAt.Equal(done))
}
