/*
Package batch runs the engine over a whole payroll batch.

PURPOSE:
  The engine evaluates one payslip at a time and reconciles one artefact at
  a time. This package is the glue around it: it resolves the client's
  RuleConfig once, evaluates every payslip of a batch concurrently (bounded
  by the configured worker count), runs the reconciliations, records
  metrics and persists the issues and the run log.

KEY CONCEPTS:
  - Run: one evaluate or reconcile pass over a batch, identified by a UUID
  - Issues keep item order regardless of which worker finished first
  - Persistence deduplicates; re-running a batch reports NewIssues == 0
    when nothing changed

SEE ALSO:
  - payroll/evaluator.go: single-payslip evaluation
  - reconcile/: the four reconciliations
  - store/: persistence
*/
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/payroll-engine/metrics"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reconcile"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/store"
)

// DefaultWorkers bounds concurrent evaluations when none is configured.
const DefaultWorkers = 8

// ErrEmptyBatch is returned when a batch carries no payslips.
var ErrEmptyBatch = errors.New("batch has no payslips")

// Persistence is what the service writes to.
type Persistence interface {
	store.IssueStore
	store.RunStore
}

// Service evaluates and reconciles batches.
type Service struct {
	rules    *payroll.RuleSet
	resolver *ruleconfig.Resolver
	store    Persistence
	metrics  *metrics.Metrics
	logger   *zap.Logger
	workers  int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithWorkers bounds concurrent payslip evaluations.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a service. A nil rule set means the process-wide active
// set at call time; a nil store disables persistence.
func NewService(rules *payroll.RuleSet, resolver *ruleconfig.Resolver, st Persistence, opts ...Option) *Service {
	s := &Service{
		rules:    rules,
		resolver: resolver,
		store:    st,
		logger:   zap.NewNop(),
		workers:  DefaultWorkers,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("batch")
	return s
}

// Rules returns the rule set evaluations run against.
func (s *Service) Rules() *payroll.RuleSet {
	if s.rules != nil {
		return s.rules
	}
	return payroll.Active()
}

// Resolver returns the rule-config resolver.
func (s *Service) Resolver() *ruleconfig.Resolver {
	return s.resolver
}

// =============================================================================
// REQUESTS AND RESULTS
// =============================================================================

// Item is one payslip to evaluate with its optional context.
type Item struct {
	Current  payroll.Payslip
	Previous *payroll.Payslip
	Ireland  *payroll.IeContext
	UK       *payroll.UkContext
	Contract *payroll.ContractProfile
}

// Scope identifies whose payslips are evaluated and under which rules.
type Scope struct {
	BatchID  string
	ClientID string
	Country  payroll.Country
	TaxYear  int
}

// EvaluateRequest is a batch evaluation.
type EvaluateRequest struct {
	Scope
	Items []Item
}

// ReconcileRequest carries the batch payslips and whichever artefacts were
// uploaded. Absent artefacts are skipped.
type ReconcileRequest struct {
	Scope
	Payslips   []payroll.Payslip
	Register   []reconcile.RegisterEntry
	GL         *reconcile.GlPosting
	Payments   []reconcile.PaymentRecord
	Submission *reconcile.SubmissionSummary
}

// Result summarises a run.
type Result struct {
	Run    store.Run
	Issues []payroll.Issue
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateOne evaluates a single payslip without persisting anything.
func (s *Service) EvaluateOne(ctx context.Context, scope Scope, item Item) ([]payroll.Issue, error) {
	cfg, err := s.resolver.Resolve(ctx, scope.ClientID, scope.Country, scope.TaxYear)
	if err != nil {
		return nil, err
	}
	return s.evaluate(scope, cfg, item)
}

func (s *Service) evaluate(scope Scope, cfg payroll.RuleConfig, item Item) ([]payroll.Issue, error) {
	start := time.Now()
	issues, err := s.Rules().Evaluate(&item.Current, item.Previous, payroll.Options{
		Country:  scope.Country,
		TaxYear:  scope.TaxYear,
		Config:   cfg,
		Ireland:  item.Ireland,
		UK:       item.UK,
		Contract: item.Contract,
	})
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	var ruleErr *payroll.RuleError
	if errors.As(err, &ruleErr) {
		s.metrics.IncrementRuleFailure(ruleErr.Code)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPayslips(string(scope.Country))
	for _, is := range issues {
		s.metrics.IncrementIssue(is.RuleCode, string(is.Severity))
	}
	return issues, nil
}

// EvaluateBatch evaluates every item concurrently and persists the issues.
// The first failing item cancels the rest and fails the run.
func (s *Service) EvaluateBatch(ctx context.Context, req EvaluateRequest) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyBatch
	}
	cfg, err := s.resolver.Resolve(ctx, req.ClientID, req.Country, req.TaxYear)
	if err != nil {
		return nil, err
	}

	run := s.startRun(ctx, req.Scope, store.RunEvaluate, len(req.Items))
	logger := s.logger.With(zap.String("batch_id", req.BatchID), zap.String("run_id", run.ID))
	start := time.Now()

	perItem := make([][]payroll.Issue, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range req.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			issues, err := s.evaluate(req.Scope, cfg, req.Items[i])
			if err != nil {
				return fmt.Errorf("payslip %d (%s): %w", i, req.Items[i].Current.EmployeeID, err)
			}
			perItem[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("batch evaluation failed", zap.Error(err))
		s.finishRun(ctx, &run, nil, 0, err)
		return nil, err
	}

	var issues []payroll.Issue
	for _, is := range perItem {
		issues = append(issues, is...)
	}
	if issues == nil {
		issues = []payroll.Issue{}
	}

	res, err := s.persist(ctx, &run, issues)
	s.metrics.ObserveBatchLatency(string(store.RunEvaluate), time.Since(start))
	if err != nil {
		return nil, err
	}
	logger.Info("batch evaluated",
		zap.Int("payslips", len(req.Items)),
		zap.Int("issues", len(issues)),
		zap.Int("new_issues", run.NewIssues))
	return res, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconcile runs every reconciliation whose artefact is present and
// persists the issues. When the scope names a country, the client's
// severity overrides apply to reconciliation issues too.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*Result, error) {
	var overrides map[string]payroll.Severity
	if req.Country != "" {
		cfg, err := s.resolver.Resolve(ctx, req.ClientID, req.Country, req.TaxYear)
		if err != nil {
			return nil, err
		}
		overrides = cfg.SeverityOverrides
	}

	run := s.startRun(ctx, req.Scope, store.RunReconcile, len(req.Payslips))
	start := time.Now()

	issues := []payroll.Issue{}
	checks := []struct {
		source  reconcile.Source
		present bool
		run     func() []payroll.Issue
	}{
		{reconcile.SourceRegister, len(req.Register) > 0, func() []payroll.Issue { return reconcile.Register(req.Payslips, req.Register) }},
		{reconcile.SourceGL, req.GL != nil, func() []payroll.Issue { return reconcile.GL(req.Payslips, req.GL) }},
		{reconcile.SourceBank, len(req.Payments) > 0, func() []payroll.Issue { return reconcile.Bank(req.Payslips, req.Payments) }},
		{reconcile.SourceSubmission, req.Submission != nil, func() []payroll.Issue { return reconcile.Submission(req.Payslips, req.Submission) }},
	}
	for _, c := range checks {
		if !c.present {
			continue
		}
		found := c.run()
		s.metrics.IncrementReconciliation(string(c.source), len(found))
		issues = append(issues, found...)
	}
	reconcile.ApplySeverityOverrides(issues, overrides)
	for _, is := range issues {
		s.metrics.IncrementIssue(is.RuleCode, string(is.Severity))
	}

	res, err := s.persist(ctx, &run, issues)
	s.metrics.ObserveBatchLatency(string(store.RunReconcile), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch reconciled",
		zap.String("batch_id", req.BatchID),
		zap.String("run_id", run.ID),
		zap.Int("issues", len(issues)))
	return res, nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Issues lists stored issues.
func (s *Service) Issues(ctx context.Context, filter store.IssueFilter) ([]store.IssueRecord, error) {
	if s.store == nil {
		return []store.IssueRecord{}, nil
	}
	return s.store.ListIssues(ctx, filter)
}

// ResolveIssue marks a stored issue as handled by a reviewer.
func (s *Service) ResolveIssue(ctx context.Context, id, resolvedBy string) error {
	if s.store == nil {
		return store.ErrNotFound
	}
	if err := s.store.ResolveIssue(ctx, id, resolvedBy); err != nil {
		return err
	}
	s.logger.Info("issue resolved", zap.String("issue_id", id), zap.String("resolved_by", resolvedBy))
	return nil
}

// Runs lists the run log of a batch.
func (s *Service) Runs(ctx context.Context, batchID string) ([]store.Run, error) {
	if s.store == nil {
		return []store.Run{}, nil
	}
	return s.store.ListRuns(ctx, batchID)
}

func (s *Service) startRun(ctx context.Context, scope Scope, kind store.RunKind, payslips int) store.Run {
	run := store.Run{
		ID:        uuid.NewString(),
		BatchID:   scope.BatchID,
		ClientID:  scope.ClientID,
		Kind:      kind,
		Status:    store.RunRunning,
		Payslips:  payslips,
		StartedAt: s.now().UTC(),
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			s.logger.Warn("failed to record run start", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	return run
}

func (s *Service) finishRun(ctx context.Context, run *store.Run, issues []payroll.Issue, inserted int, runErr error) {
	done := s.now().UTC()
	run.CompletedAt = &done
	run.Issues = len(issues)
	run.NewIssues = inserted
	run.Status = store.RunCompleted
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(ctx, *run); err != nil {
		s.logger.Warn("failed to record run end", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Service) persist(ctx context.Context, run *store.Run, issues []payroll.Issue) (*Result, error) {
	inserted := len(issues)
	if s.store != nil && run.BatchID != "" {
		records := make([]store.IssueRecord, len(issues))
		for i, is := range issues {
			records[i] = store.IssueRecord{
				ID:       uuid.NewString(),
				BatchID:  run.BatchID,
				ClientID: run.ClientID,
				RunID:    run.ID,
				DedupKey: store.DedupKey(run.BatchID, is),
				Issue:    is,
			}
		}
		n, err := s.store.SaveIssues(ctx, records)
		if err != nil {
			err = fmt.Errorf("persist issues: %w", err)
			s.finishRun(ctx, run, issues, 0, err)
			return nil, err
		}
		inserted = n
	}
	s.finishRun(ctx, run, issues, inserted, nil)
	return &Result{Run: *run, Issues: issues}, nil
}
