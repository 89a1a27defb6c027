/*
handlers.go - HTTP API handlers for the payroll anomaly engine

PURPOSE:
  Exposes rule evaluation, reconciliation, issue review and rule
  configuration via REST API. Handles HTTP request/response, JSON
  serialization and validation, and delegates to the batch service.

ENDPOINTS:
  Evaluation:
    POST   /api/evaluate                             One payslip, not persisted
    POST   /api/batches/{batchID}/evaluate           Whole batch, issues persisted
    POST   /api/batches/{batchID}/reconcile          Register/GL/bank/submission

  Issues:
    GET    /api/batches/{batchID}/issues             ?severity=&code=&employee_id=&unresolved=
    POST   /api/batches/{batchID}/issues/{id}/resolve
    GET    /api/batches/{batchID}/runs               Run log, most recent first

  Rule config:
    GET    /api/clients/{clientID}/rule-config       ?country=&tax_year=
    PUT    /api/clients/{clientID}/rule-config       ?country=  body: override
    DELETE /api/clients/{clientID}/rule-config       ?country=

  Reference data:
    GET    /api/tax-years                            Registered years per country
    GET    /api/tax-years/{country}/{year}           One table
    GET    /api/rules                                Rules and reconciliation checks

ARCHITECTURE:
  Handler struct holds all dependencies:
  - batch.Service: evaluation, reconciliation, issue and run listing
  - OverrideStore: client overrides
  - Registry: tax-year tables (via the service's resolver)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown country, invalid override, empty batch
  - 404: Unknown issue, override or tax year
  - 500: Rule failures, storage errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/batch"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reconcile"
	"github.com/warp/payroll-engine/store"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	batch     *batch.Service
	overrides store.OverrideStore
	registry  *taxyear.Registry
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *batch.Service, overrides store.OverrideStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		batch:     svc,
		overrides: overrides,
		registry:  svc.Resolver().Registry(),
		validate:  newValidator(),
		logger:    logger.Named("api"),
	}
}

// =============================================================================
// EVALUATION ENDPOINTS
// =============================================================================

// EvaluatePayslip evaluates one payslip against the client's rule config.
func (h *Handler) EvaluatePayslip(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}
	country, _ := taxyear.ParseCountry(req.Country)

	scope := batch.Scope{ClientID: req.ClientID, Country: country, TaxYear: req.TaxYear}
	issues, err := h.batch.EvaluateOne(r.Context(), scope, toItem(req.PayslipRequest))
	if err != nil {
		h.fail(w, r, "evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Issues: issues})
}

// EvaluateBatch evaluates every payslip of a batch and stores the issues.
func (h *Handler) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchEvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}
	country, _ := taxyear.ParseCountry(req.Country)

	items := make([]batch.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = toItem(it)
	}
	res, err := h.batch.EvaluateBatch(r.Context(), batch.EvaluateRequest{
		Scope: batch.Scope{
			BatchID:  chi.URLParam(r, "batchID"),
			ClientID: req.ClientID,
			Country:  country,
			TaxYear:  req.TaxYear,
		},
		Items: items,
	})
	if err != nil {
		h.fail(w, r, "batch evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResultResponse{Run: toRunDTO(res.Run), Issues: res.Issues})
}

// ReconcileBatch runs the reconciliations whose artefacts are present.
func (h *Handler) ReconcileBatch(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if !h.decode(w, r, &req) {
		return
	}
	country, _ := taxyear.ParseCountry(req.Country)

	res, err := h.batch.Reconcile(r.Context(), batch.ReconcileRequest{
		Scope: batch.Scope{
			BatchID:  chi.URLParam(r, "batchID"),
			ClientID: req.ClientID,
			Country:  country,
			TaxYear:  req.TaxYear,
		},
		Payslips:   req.Payslips,
		Register:   req.Register,
		GL:         req.GL,
		Payments:   req.Payments,
		Submission: req.Submission,
	})
	if err != nil {
		h.fail(w, r, "reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResultResponse{Run: toRunDTO(res.Run), Issues: res.Issues})
}

func toItem(p PayslipRequest) batch.Item {
	return batch.Item{
		Current:  *p.Current,
		Previous: p.Previous,
		Ireland:  p.Ireland,
		UK:       p.UK,
		Contract: p.Contract,
	}
}

// =============================================================================
// ISSUE ENDPOINTS
// =============================================================================

// ListIssues lists stored issues of a batch.
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.IssueFilter{
		BatchID:    chi.URLParam(r, "batchID"),
		RuleCode:   q.Get("code"),
		EmployeeID: q.Get("employee_id"),
	}
	if s := q.Get("severity"); s != "" {
		sev, ok := payroll.ParseSeverity(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "severity must be critical, warning or info", nil)
			return
		}
		filter.Severity = sev
	}
	if s := q.Get("unresolved"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unresolved must be a boolean", err)
			return
		}
		filter.Unresolved = b
	}

	issues, err := h.batch.Issues(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "failed to list issues", err)
		return
	}
	writeJSON(w, http.StatusOK, IssuesResponse{Issues: issues})
}

// ResolveIssue marks an issue as handled.
func (h *Handler) ResolveIssue(w http.ResponseWriter, r *http.Request) {
	var req ResolveIssueRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.batch.ResolveIssue(r.Context(), chi.URLParam(r, "issueID"), req.ResolvedBy); err != nil {
		h.fail(w, r, "failed to resolve issue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns lists the run log of a batch.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.batch.Runs(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		h.fail(w, r, "failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: dtos})
}

// =============================================================================
// RULE CONFIG ENDPOINTS
// =============================================================================

// GetRuleConfig returns the client's effective config and stored override.
func (h *Handler) GetRuleConfig(w http.ResponseWriter, r *http.Request) {
	country, ok := h.countryParam(w, r)
	if !ok {
		return
	}
	year := 0
	if s := r.URL.Query().Get("tax_year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "tax_year must be a number", err)
			return
		}
		year = y
	}
	h.writeRuleConfig(w, r, chi.URLParam(r, "clientID"), country, year, http.StatusOK)
}

// PutRuleConfig stores (replaces) the client's override for a country.
func (h *Handler) PutRuleConfig(w http.ResponseWriter, r *http.Request) {
	country, ok := h.countryParam(w, r)
	if !ok {
		return
	}
	var o payroll.RuleConfigOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := o.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid override", err)
		return
	}

	clientID := chi.URLParam(r, "clientID")
	if err := h.overrides.SaveOverride(r.Context(), clientID, country, &o); err != nil {
		h.fail(w, r, "failed to save override", err)
		return
	}
	GetLogger(r.Context(), h.logger).Info("rule config override saved",
		zap.String("client_id", clientID),
		zap.String("country", string(country)))
	h.writeRuleConfig(w, r, clientID, country, 0, http.StatusOK)
}

// DeleteRuleConfig drops the client's override, reverting to defaults.
func (h *Handler) DeleteRuleConfig(w http.ResponseWriter, r *http.Request) {
	country, ok := h.countryParam(w, r)
	if !ok {
		return
	}
	if err := h.overrides.DeleteOverride(r.Context(), chi.URLParam(r, "clientID"), country); err != nil {
		h.fail(w, r, "failed to delete override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRuleConfig(w http.ResponseWriter, r *http.Request, clientID string, country payroll.Country, year int, status int) {
	override, err := h.overrides.GetOverride(r.Context(), clientID, country)
	if err != nil {
		h.fail(w, r, "failed to load override", err)
		return
	}
	effective, err := h.batch.Resolver().Resolve(r.Context(), clientID, country, year)
	if err != nil {
		h.fail(w, r, "failed to resolve rule config", err)
		return
	}
	if year == 0 {
		year = h.registry.Latest(country)
	}
	writeJSON(w, status, RuleConfigResponse{
		ClientID:  clientID,
		Country:   string(country),
		TaxYear:   year,
		Effective: effective,
		Override:  override,
	})
}

func (h *Handler) countryParam(w http.ResponseWriter, r *http.Request) (payroll.Country, bool) {
	raw := r.URL.Query().Get("country")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "country is required", nil)
		return "", false
	}
	country, ok := taxyear.ParseCountry(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "country must be IE or UK", nil)
		return "", false
	}
	return country, true
}

// =============================================================================
// REFERENCE DATA ENDPOINTS
// =============================================================================

// ListTaxYears lists the registered tax years per country.
func (h *Handler) ListTaxYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TaxYearsResponse{Years: map[string][]int{
		string(taxyear.CountryIE): h.registry.Years(taxyear.CountryIE),
		string(taxyear.CountryUK): h.registry.Years(taxyear.CountryUK),
	}})
}

// GetTaxYear returns one tax-year table.
func (h *Handler) GetTaxYear(w http.ResponseWriter, r *http.Request) {
	country, ok := taxyear.ParseCountry(chi.URLParam(r, "country"))
	if !ok {
		writeError(w, http.StatusBadRequest, "country must be IE or UK", nil)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be a number", err)
		return
	}

	var table any
	switch country {
	case taxyear.CountryIE:
		table, err = h.registry.Ireland(year)
	default:
		table, err = h.registry.UK(year)
	}
	if err != nil {
		h.fail(w, r, "tax year not found", err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// ListRules describes the active rules and the reconciliation checks.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	resp := RulesResponse{Rules: []RuleDTO{}, Checks: []RuleDTO{}}
	if rs := h.batch.Rules(); rs != nil {
		for _, d := range rs.Definitions() {
			resp.Rules = append(resp.Rules, toRuleDTO(d))
		}
	}
	for _, c := range reconcile.Checks() {
		resp.Checks = append(resp.Checks, toCheckDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it writes the 400
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil)
		return false
	}
	return true
}

// fail maps err to a status and writes it. Server-side failures are logged
// with the request id.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		GetLogger(r.Context(), h.logger).Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case payroll.IsClientError(err), errors.Is(err, batch.ErrEmptyBatch):
		return http.StatusBadRequest
	case store.IsNotFound(err), errors.Is(err, taxyear.ErrTaxYearNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
