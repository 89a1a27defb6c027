/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Payslips, contexts
  and issues travel in their engine shape (payroll.Payslip etc. already
  carry JSON tags); the types here add the envelope around them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Evaluation:
    PayslipRequest, EvaluateRequest, BatchEvaluateRequest, EvaluateResponse

  Reconciliation:
    ReconcileRequest

  Runs and issues:
    RunDTO, BatchResultResponse, IssuesResponse, ResolveIssueRequest

  Configuration:
    RuleConfigResponse, TaxYearsResponse, RuleDTO, RulesResponse

VALIDATION:
  Request types carry validator/v10 tags. Field names in validation
  messages are the JSON names (see newValidator).

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reconcile"
	"github.com/warp/payroll-engine/store"
	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// EVALUATION
// =============================================================================

// PayslipRequest is one payslip with its optional context.
type PayslipRequest struct {
	Current  *payroll.Payslip         `json:"current" validate:"required"`
	Previous *payroll.Payslip         `json:"previous,omitempty"`
	Ireland  *payroll.IeContext       `json:"ireland,omitempty"`
	UK       *payroll.UkContext       `json:"uk,omitempty"`
	Contract *payroll.ContractProfile `json:"contract,omitempty"`
}

// EvaluateRequest evaluates a single payslip. Nothing is persisted.
type EvaluateRequest struct {
	ClientID string `json:"client_id,omitempty"`
	Country  string `json:"country" validate:"required,country"`
	TaxYear  int    `json:"tax_year,omitempty" validate:"omitempty,gte=2000,lte=2100"`
	PayslipRequest
}

// BatchEvaluateRequest evaluates every payslip of a batch.
type BatchEvaluateRequest struct {
	ClientID string           `json:"client_id,omitempty"`
	Country  string           `json:"country" validate:"required,country"`
	TaxYear  int              `json:"tax_year,omitempty" validate:"omitempty,gte=2000,lte=2100"`
	Items    []PayslipRequest `json:"items" validate:"required,min=1,dive"`
}

type EvaluateResponse struct {
	Issues []payroll.Issue `json:"issues"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileRequest carries the batch payslips and whichever artefacts were
// uploaded. Country is optional; when set, the client's severity overrides
// apply.
type ReconcileRequest struct {
	ClientID   string                       `json:"client_id,omitempty"`
	Country    string                       `json:"country,omitempty" validate:"omitempty,country"`
	TaxYear    int                          `json:"tax_year,omitempty" validate:"omitempty,gte=2000,lte=2100"`
	Payslips   []payroll.Payslip            `json:"payslips" validate:"required,min=1"`
	Register   []reconcile.RegisterEntry    `json:"register,omitempty"`
	GL         *reconcile.GlPosting         `json:"gl,omitempty"`
	Payments   []reconcile.PaymentRecord    `json:"payments,omitempty"`
	Submission *reconcile.SubmissionSummary `json:"submission,omitempty"`
}

// =============================================================================
// RUNS AND ISSUES
// =============================================================================

type RunDTO struct {
	ID          string `json:"id"`
	BatchID     string `json:"batch_id"`
	ClientID    string `json:"client_id,omitempty"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Payslips    int    `json:"payslips"`
	Issues      int    `json:"issues"`
	NewIssues   int    `json:"new_issues"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type BatchResultResponse struct {
	Run    RunDTO          `json:"run"`
	Issues []payroll.Issue `json:"issues"`
}

type IssuesResponse struct {
	Issues []store.IssueRecord `json:"issues"`
}

type RunsResponse struct {
	Runs []RunDTO `json:"runs"`
}

type ResolveIssueRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// RuleConfigResponse shows the effective config next to the stored
// override it was merged from.
type RuleConfigResponse struct {
	ClientID  string                      `json:"client_id"`
	Country   string                      `json:"country"`
	TaxYear   int                         `json:"tax_year"`
	Effective payroll.RuleConfig          `json:"effective"`
	Override  *payroll.RuleConfigOverride `json:"override,omitempty"`
}

type TaxYearsResponse struct {
	Years map[string][]int `json:"years"`
}

// RuleDTO describes a rule or a reconciliation check.
type RuleDTO struct {
	Code            string   `json:"code"`
	Description     string   `json:"description"`
	DefaultSeverity string   `json:"default_severity"`
	Categories      []string `json:"categories,omitempty"`
	Countries       []string `json:"countries,omitempty"`
	TaxYears        []int    `json:"tax_years,omitempty"`
	Source          string   `json:"source,omitempty"`
}

type RulesResponse struct {
	Rules  []RuleDTO `json:"rules"`
	Checks []RuleDTO `json:"checks"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(r store.Run) RunDTO {
	dto := RunDTO{
		ID:        r.ID,
		BatchID:   r.BatchID,
		ClientID:  r.ClientID,
		Kind:      string(r.Kind),
		Status:    string(r.Status),
		Payslips:  r.Payslips,
		Issues:    r.Issues,
		NewIssues: r.NewIssues,
		Error:     r.Error,
		StartedAt: r.StartedAt.Format(timeFormat),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(timeFormat)
	}
	return dto
}

func toRuleDTO(d payroll.RuleDefinition) RuleDTO {
	dto := RuleDTO{
		Code:            d.Code,
		Description:     d.Description,
		DefaultSeverity: string(d.DefaultSeverity),
		Categories:      d.Categories,
		TaxYears:        d.TaxYears,
	}
	for _, c := range d.Countries {
		dto.Countries = append(dto.Countries, string(c))
	}
	return dto
}

func toCheckDTO(c reconcile.Check) RuleDTO {
	return RuleDTO{
		Code:            c.Code,
		Description:     c.Description,
		DefaultSeverity: string(c.DefaultSeverity),
		Source:          string(c.Source),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

const timeFormat = "2006-01-02T15:04:05Z07:00"

// newValidator reports JSON field names and knows the "country" tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		_, ok := taxyear.ParseCountry(fl.Field().String())
		return ok
	})
	return v
}

// validationMessage turns the first field error into a client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	if field == "" {
		field = fe.StructField()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "country":
		return fmt.Sprintf("%s must be IE or UK", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
