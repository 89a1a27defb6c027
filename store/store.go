/*
Package store defines persistence for everything downstream of the engine.

PURPOSE:
  The engine itself is stateless. The service around it stores three
  things: client rule-config overrides, the issues raised for a batch, and
  a log of evaluation/reconciliation runs.

DEDUPLICATION:
  An issue is identified by (batch, employee, rule code, description). The
  stores keep the first copy and silently skip repeats, so re-running a
  batch never duplicates issues. DedupKey computes the key.

IMPLEMENTATIONS:
  store/memory: maps behind a RWMutex (tests, dev)
  store/sqlite: SQLite with WAL (server)

SEE ALSO:
  - ruleconfig/resolver.go: consumes OverrideStore
  - batch/service.go: writes issues and runs
*/
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// RECORDS
// =============================================================================

// IssueRecord is a persisted issue candidate.
type IssueRecord struct {
	ID       string `json:"id"`
	BatchID  string `json:"batchId"`
	ClientID string `json:"clientId,omitempty"`
	RunID    string `json:"runId,omitempty"`
	DedupKey string `json:"-"`
	payroll.Issue
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IssueFilter narrows ListIssues. Zero values match everything.
type IssueFilter struct {
	BatchID    string
	Severity   payroll.Severity
	RuleCode   string
	EmployeeID string
	Unresolved bool
}

// Match reports whether r passes the filter.
func (f IssueFilter) Match(r IssueRecord) bool {
	switch {
	case f.BatchID != "" && r.BatchID != f.BatchID:
		return false
	case f.Severity != "" && r.Severity != f.Severity:
		return false
	case f.RuleCode != "" && r.RuleCode != f.RuleCode:
		return false
	case f.EmployeeID != "" && r.EmployeeID != f.EmployeeID:
		return false
	case f.Unresolved && r.Resolved:
		return false
	}
	return true
}

// RunKind distinguishes rule evaluation from reconciliation runs.
type RunKind string

const (
	RunEvaluate  RunKind = "evaluate"
	RunReconcile RunKind = "reconcile"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one evaluation or reconciliation over a batch.
type Run struct {
	ID          string     `json:"id"`
	BatchID     string     `json:"batchId"`
	ClientID    string     `json:"clientId,omitempty"`
	Kind        RunKind    `json:"kind"`
	Status      RunStatus  `json:"status"`
	Payslips    int        `json:"payslips"`
	Issues      int        `json:"issues"`
	NewIssues   int        `json:"newIssues"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// =============================================================================
// INTERFACES
// =============================================================================

// OverrideStore persists client rule-config overrides per country.
// GetOverride returns (nil, nil) when a client has none.
type OverrideStore interface {
	GetOverride(ctx context.Context, clientID string, country payroll.Country) (*payroll.RuleConfigOverride, error)
	SaveOverride(ctx context.Context, clientID string, country payroll.Country, o *payroll.RuleConfigOverride) error
	DeleteOverride(ctx context.Context, clientID string, country payroll.Country) error
}

// IssueStore persists issues with deduplication.
type IssueStore interface {
	// SaveIssues stores records, skipping those whose DedupKey already
	// exists, and returns how many were inserted.
	SaveIssues(ctx context.Context, records []IssueRecord) (int, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]IssueRecord, error)
	ResolveIssue(ctx context.Context, id, resolvedBy string) error
}

// RunStore persists the run log.
type RunStore interface {
	SaveRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context, batchID string) ([]Run, error)
}

// Store is everything the service persists.
type Store interface {
	OverrideStore
	IssueStore
	RunStore
	Close() error
}

// =============================================================================
// HELPERS
// =============================================================================

// DedupKey identifies an issue within a batch.
func DedupKey(batchID string, is payroll.Issue) string {
	h := sha256.New()
	for _, part := range []string{batchID, is.EmployeeID, is.RuleCode, is.Description} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
