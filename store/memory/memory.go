// Package memory provides an in-memory Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	overrides map[overrideKey]payroll.RuleConfigOverride
	issues    []store.IssueRecord
	dedup     map[string]bool
	runs      map[string]store.Run
}

type overrideKey struct {
	ClientID string
	Country  payroll.Country
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		overrides: make(map[overrideKey]payroll.RuleConfigOverride),
		dedup:     make(map[string]bool),
		runs:      make(map[string]store.Run),
	}
}

func (m *Store) Close() error { return nil }

// =============================================================================
// OVERRIDES
// =============================================================================

func (m *Store) GetOverride(_ context.Context, clientID string, country payroll.Country) (*payroll.RuleConfigOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.overrides[overrideKey{clientID, country}]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *Store) SaveOverride(_ context.Context, clientID string, country payroll.Country, o *payroll.RuleConfigOverride) error {
	if o == nil {
		return fmt.Errorf("%w: nil override", payroll.ErrInvalidOverride)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[overrideKey{clientID, country}] = *o
	return nil
}

func (m *Store) DeleteOverride(_ context.Context, clientID string, country payroll.Country) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := overrideKey{clientID, country}
	if _, ok := m.overrides[k]; !ok {
		return store.ErrNotFound
	}
	delete(m.overrides, k)
	return nil
}

// =============================================================================
// ISSUES
// =============================================================================

// SaveIssues appends records whose dedup key is new. The whole call holds
// the write lock, so a batch is inserted atomically.
func (m *Store) SaveIssues(_ context.Context, records []store.IssueRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, r := range records {
		if r.DedupKey == "" {
			r.DedupKey = store.DedupKey(r.BatchID, r.Issue)
		}
		if m.dedup[r.DedupKey] {
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		m.dedup[r.DedupKey] = true
		m.issues = append(m.issues, r)
		inserted++
	}
	return inserted, nil
}

func (m *Store) ListIssues(_ context.Context, filter store.IssueFilter) ([]store.IssueRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []store.IssueRecord{}
	for _, r := range m.issues {
		if filter.Match(r) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Store) ResolveIssue(_ context.Context, id, resolvedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.issues {
		if m.issues[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		m.issues[i].Resolved = true
		m.issues[i].ResolvedBy = resolvedBy
		m.issues[i].ResolvedAt = &now
		return nil
	}
	return store.ErrNotFound
}

// =============================================================================
// RUNS
// =============================================================================

func (m *Store) SaveRun(_ context.Context, r store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

// ListRuns returns the batch's runs, most recent first.
func (m *Store) ListRuns(_ context.Context, batchID string) ([]store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []store.Run{}
	for _, r := range m.runs {
		if batchID == "" || r.BatchID == batchID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}
