/*
errors.go - Centralized error types for the rule engine

PURPOSE:
  All error types of the core in one place. Country packages and the
  batch/API layers wrap these with additional context.

ERROR CATEGORIES:
  1. Input contract violations - the caller passed something unusable
  2. Rule failures - a rule's evaluate function returned an error
  3. Configuration errors - live in taxyear (ConfigError, NotFoundError)

USAGE:
    if errors.Is(err, payroll.ErrMissingCurrent) {
        return http.StatusBadRequest
    }

SEE ALSO:
  - taxyear/errors.go: tax table lookup and validation errors
  - evaluator.go: wraps rule errors in RuleError
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/warp/payroll-engine/taxyear"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingCurrent is returned when a diff or evaluation is requested
	// without a current payslip.
	ErrMissingCurrent = errors.New("current payslip is required")

	// ErrUnknownCountry is returned when an evaluation names a country the
	// engine has no rules for.
	ErrUnknownCountry = taxyear.ErrUnknownCountry

	// ErrMissingTaxTable is returned by a calculator called without the
	// tax-year table it needs.
	ErrMissingTaxTable = errors.New("tax-year table is required")

	// ErrInvalidRule is returned when a rule definition cannot be registered.
	ErrInvalidRule = errors.New("invalid rule definition")

	// ErrRuleFailed is returned when a rule's evaluate function fails.
	ErrRuleFailed = errors.New("rule evaluation failed")

	// ErrInvalidOverride is returned when a client override carries an
	// unknown severity or a negative threshold.
	ErrInvalidOverride = errors.New("invalid rule config override")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleError identifies the rule whose evaluation failed.
type RuleError struct {
	Code string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Code, e.Err)
}

func (e *RuleError) Unwrap() []error {
	return []error{ErrRuleFailed, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingCurrent) ||
		errors.Is(err, ErrUnknownCountry) ||
		errors.Is(err, ErrInvalidOverride)
}
