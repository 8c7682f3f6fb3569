/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds the engine reports, in one place. Every structured error
  unwraps to a sentinel so callers can branch with errors.Is and pull the
  details with errors.As.

ERROR KINDS:
  ValidationError          -> ErrValidationFailed   (field -> message map)
  InsufficientBalanceError -> ErrInsufficientBalance (available vs requested)
  NotFoundError            -> ErrNotFound
  InvalidTransitionError   -> ErrInvalidTransition   (current vs attempted)
  InconsistentStateError   -> ErrInconsistentState

  A ValidationError whose balance rule failed also unwraps to the
  InsufficientBalanceError describing the shortfall.

USAGE:
  req, err := svc.Create(ctx, candidate)
  var ib *leave.InsufficientBalanceError
  if errors.As(err, &ib) {
      fmt.Printf("only %d days left\n", ib.Available)
  }

SEE ALSO:
  - validation.go: Builds ValidationError
  - balance.go: Returns InsufficientBalanceError / InconsistentStateError
  - request.go: Returns NotFoundError / InvalidTransitionError
*/
package leave

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidationFailed is returned when a candidate fails one or more rules.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInsufficientBalance is returned when requested days exceed availability.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when a request id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is not permitted.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInconsistentState is returned when ledger counters disagree with a
	// request. It should not occur while transitions stay single-shot.
	ErrInconsistentState = errors.New("inconsistent state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError maps field names to user-facing messages.
type ValidationError struct {
	FieldErrors map[string]string

	// Balance is set when the balance rule failed.
	Balance *InsufficientBalanceError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return ErrValidationFailed.Error()
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Balance != nil {
		return []error{ErrValidationFailed, e.Balance}
	}
	return []error{ErrValidationFailed}
}

// HasErrors reports whether any rule was violated.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

func (e *ValidationError) add(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	e.FieldErrors[field] = message
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	RequesterID string
	LeaveType   LeaveType
	Available   int
	Requested   int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d days, requested %d days",
		e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// NotFoundError names the id that was looked up.
type NotFoundError struct {
	ID RequestID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("leave request %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	ID        RequestID
	Current   Status
	Attempted Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move request %s from %s to %s", e.ID, e.Current, e.Attempted)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InconsistentStateError carries a free-form description of the mismatch.
type InconsistentStateError struct {
	Detail string
}

func (e *InconsistentStateError) Error() string {
	return "inconsistent state: " + e.Detail
}

func (e *InconsistentStateError) Unwrap() error {
	return ErrInconsistentState
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the caller can fix the input and resubmit.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error indicates a missing request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the operation clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInconsistentState)
}
