/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists client rule-config overrides, batch issues and the run log for
  the server. In production the same patterns apply to PostgreSQL with
  minor SQL dialect differences.

KEY TABLES:
  rule_config_overrides: one JSON override per (client, country)
  issues:                issue candidates per batch, deduplicated
  runs:                  evaluation/reconciliation run log

DEDUPLICATION:
  issues.dedup_key is UNIQUE; inserts use ON CONFLICT DO NOTHING so a
  re-run of the same batch inserts only issues it has not seen.

INDEXES:
  - idx_issues_batch: issue listing per batch (hot path)
  - idx_issues_batch_severity: severity filter in the review UI
  - idx_runs_batch: run history per batch

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/payroll.db")
  if err != nil {
      logger.Fatal("open store", zap.Error(err))
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: interfaces and records
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Client rule-config overrides
	CREATE TABLE IF NOT EXISTS rule_config_overrides (
		client_id TEXT NOT NULL,
		country TEXT NOT NULL,
		override_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (client_id, country)
	);

	-- Issues raised per batch
	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		client_id TEXT,
		run_id TEXT,
		dedup_key TEXT NOT NULL UNIQUE,
		rule_code TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL,
		employee_id TEXT,
		data_json TEXT,
		resolved BOOLEAN DEFAULT FALSE,
		resolved_by TEXT,
		resolved_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_issues_batch
		ON issues(batch_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_issues_batch_severity
		ON issues(batch_id, severity);

	-- Run log
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		client_id TEXT,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		payslips INTEGER DEFAULT 0,
		issues INTEGER DEFAULT 0,
		new_issues INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_batch
		ON runs(batch_id, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OVERRIDES
// =============================================================================

// GetOverride returns the client's override, or nil if none is stored.
func (s *Store) GetOverride(ctx context.Context, clientID string, country payroll.Country) (*payroll.RuleConfigOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT override_json FROM rule_config_overrides WHERE client_id = ? AND country = ?",
		clientID, string(country),
	).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load override: %w", err)
	}

	var o payroll.RuleConfigOverride
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("failed to decode override for %s/%s: %w", clientID, country, err)
	}
	return &o, nil
}

// SaveOverride upserts the client's override and bumps its version.
func (s *Store) SaveOverride(ctx context.Context, clientID string, country payroll.Country, o *payroll.RuleConfigOverride) error {
	if o == nil {
		return fmt.Errorf("%w: nil override", payroll.ErrInvalidOverride)
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode override: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rule_config_overrides (client_id, country, override_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(client_id, country) DO UPDATE SET
			override_json = excluded.override_json,
			version = rule_config_overrides.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query, clientID, string(country), string(raw), now, now)
	return err
}

// DeleteOverride removes the client's override.
func (s *Store) DeleteOverride(ctx context.Context, clientID string, country payroll.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM rule_config_overrides WHERE client_id = ? AND country = ?",
		clientID, string(country))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// =============================================================================
// ISSUES
// =============================================================================

// SaveIssues inserts records in one transaction, skipping known dedup keys.
func (s *Store) SaveIssues(ctx context.Context, records []store.IssueRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO issues
		(id, batch_id, client_id, run_id, dedup_key, rule_code, severity, description,
		 employee_id, data_json, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)
		ON CONFLICT(dedup_key) DO NOTHING
	`

	inserted := 0
	for _, r := range records {
		if r.DedupKey == "" {
			r.DedupKey = store.DedupKey(r.BatchID, r.Issue)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		dataJSON, err := json.Marshal(r.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to encode issue data for %s: %w", r.RuleCode, err)
		}

		res, err := sqlTx.ExecContext(ctx, query,
			r.ID, r.BatchID, nullString(r.ClientID), nullString(r.RunID), r.DedupKey,
			r.RuleCode, string(r.Severity), r.Description,
			nullString(r.EmployeeID), string(dataJSON),
			r.CreatedAt.Format(timeLayout),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert issue: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListIssues returns issues matching the filter in insertion order.
func (s *Store) ListIssues(ctx context.Context, filter store.IssueFilter) ([]store.IssueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	add := func(clause string, v any) {
		where = append(where, clause)
		args = append(args, v)
	}
	if filter.BatchID != "" {
		add("batch_id = ?", filter.BatchID)
	}
	if filter.Severity != "" {
		add("severity = ?", string(filter.Severity))
	}
	if filter.RuleCode != "" {
		add("rule_code = ?", filter.RuleCode)
	}
	if filter.EmployeeID != "" {
		add("employee_id = ?", filter.EmployeeID)
	}
	if filter.Unresolved {
		where = append(where, "resolved = FALSE")
	}

	query := `
		SELECT id, batch_id, client_id, run_id, dedup_key, rule_code, severity, description,
		       employee_id, data_json, resolved, resolved_by, resolved_at, created_at
		FROM issues`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	result := []store.IssueRecord{}
	for rows.Next() {
		r, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanIssue(rows *sql.Rows) (store.IssueRecord, error) {
	var r store.IssueRecord
	var clientID, runID, employeeID, dataJSON, resolvedBy, resolvedAt sql.NullString
	var severity, createdAt string

	if err := rows.Scan(
		&r.ID, &r.BatchID, &clientID, &runID, &r.DedupKey, &r.RuleCode, &severity, &r.Description,
		&employeeID, &dataJSON, &r.Resolved, &resolvedBy, &resolvedAt, &createdAt,
	); err != nil {
		return r, fmt.Errorf("failed to scan issue: %w", err)
	}

	r.ClientID = clientID.String
	r.RunID = runID.String
	r.EmployeeID = employeeID.String
	r.Severity = payroll.Severity(severity)
	r.ResolvedBy = resolvedBy.String
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if resolvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, resolvedAt.String)
		r.ResolvedAt = &t
	}
	if dataJSON.Valid && dataJSON.String != "" && dataJSON.String != "null" {
		if err := json.Unmarshal([]byte(dataJSON.String), &r.Data); err != nil {
			return r, fmt.Errorf("failed to decode issue data %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// ResolveIssue marks an issue resolved.
func (s *Store) ResolveIssue(ctx context.Context, id, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE issues SET resolved = TRUE, resolved_by = ?, resolved_at = ? WHERE id = ?",
		nullString(resolvedBy), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun upserts a run.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (id, batch_id, client_id, kind, status, payslips, issues, new_issues,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payslips = excluded.payslips,
			issues = excluded.issues,
			new_issues = excluded.new_issues,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.Format(timeLayout)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.BatchID, nullString(r.ClientID), string(r.Kind), string(r.Status),
		r.Payslips, r.Issues, r.NewIssues, nullString(r.Error),
		r.StartedAt.Format(timeLayout), completedAt,
	)
	return err
}

// ListRuns returns runs, most recent first. An empty batchID lists all.
func (s *Store) ListRuns(ctx context.Context, batchID string) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	var args []any

	if batchID != "" {
		query = `
			SELECT id, batch_id, client_id, kind, status, payslips, issues, new_issues,
				error, started_at, completed_at
			FROM runs
			WHERE batch_id = ?
			ORDER BY started_at DESC
		`
		args = []any{batchID}
	} else {
		query = `
			SELECT id, batch_id, client_id, kind, status, payslips, issues, new_issues,
				error, started_at, completed_at
			FROM runs
			ORDER BY started_at DESC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []store.Run{}
	for rows.Next() {
		var r store.Run
		var clientID, errText, completedAt sql.NullString
		var kind, status, startedAt string
		if err := rows.Scan(
			&r.ID, &r.BatchID, &clientID, &kind, &status, &r.Payslips, &r.Issues, &r.NewIssues,
			&errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.ClientID = clientID.String
		r.Kind = store.RunKind(kind)
		r.Status = store.RunStatus(status)
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(timeLayout, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
