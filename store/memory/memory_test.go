package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

func record(id, batch, employee, code string) store.IssueRecord {
	return store.IssueRecord{
		ID:      id,
		BatchID: batch,
		Issue: payroll.Issue{
			RuleCode:    code,
			Severity:    payroll.SeverityWarning,
			Description: code + " for " + employee,
			EmployeeID:  employee,
		},
	}
}

func TestMemory_Overrides(t *testing.T) {
	ctx := context.Background()
	m := New()

	got, err := m.GetOverride(ctx, "acme", payroll.CountryIE)
	require.NoError(t, err)
	assert.Nil(t, got)

	net := decimal.NewFromInt(30)
	require.NoError(t, m.SaveOverride(ctx, "acme", payroll.CountryIE, &payroll.RuleConfigOverride{LargeNetChangePercent: &net}))

	got, err = m.GetOverride(ctx, "acme", payroll.CountryIE)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LargeNetChangePercent.Equal(net))

	other, err := m.GetOverride(ctx, "acme", payroll.CountryUK)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, m.DeleteOverride(ctx, "acme", payroll.CountryIE))
	assert.True(t, store.IsNotFound(m.DeleteOverride(ctx, "acme", payroll.CountryIE)))
	assert.ErrorIs(t, m.SaveOverride(ctx, "acme", payroll.CountryIE, nil), payroll.ErrInvalidOverride)
}

func TestMemory_SaveIssuesDeduplicates(t *testing.T) {
	ctx := context.Background()
	m := New()

	// GIVEN: a first evaluation of batch b1
	n, err := m.SaveIssues(ctx, []store.IssueRecord{
		record("1", "b1", "e1", "NET_CHANGE_LARGE"),
		record("2", "b1", "e2", "NET_CHANGE_LARGE"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// WHEN: the batch is re-run and raises one new issue
	n, err = m.SaveIssues(ctx, []store.IssueRecord{
		record("3", "b1", "e1", "NET_CHANGE_LARGE"),
		record("4", "b1", "e1", "YTD_REGRESSION"),
		record("5", "b2", "e1", "NET_CHANGE_LARGE"),
	})

	// THEN: only unseen issues are stored
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b1, err := m.ListIssues(ctx, store.IssueFilter{BatchID: "b1"})
	require.NoError(t, err)
	assert.Len(t, b1, 3)
	assert.NotEmpty(t, b1[0].DedupKey)
	assert.False(t, b1[0].CreatedAt.IsZero())
}

func TestMemory_ListAndResolve(t *testing.T) {
	ctx := context.Background()
	m := New()
	crit := record("c", "b1", "e1", "YTD_REGRESSION")
	crit.Severity = payroll.SeverityCritical
	_, err := m.SaveIssues(ctx, []store.IssueRecord{crit, record("w", "b1", "e2", "NET_CHANGE_LARGE")})
	require.NoError(t, err)

	only, err := m.ListIssues(ctx, store.IssueFilter{Severity: payroll.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "c", only[0].ID)

	require.NoError(t, m.ResolveIssue(ctx, "c", "reviewer"))
	open, err := m.ListIssues(ctx, store.IssueFilter{BatchID: "b1", Unresolved: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "w", open[0].ID)

	assert.True(t, store.IsNotFound(m.ResolveIssue(ctx, "missing", "reviewer")))
}
