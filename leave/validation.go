package leave

import (
	"fmt"
	"strings"
)

// =============================================================================
// VALIDATION RULES - Pure checks over a candidate
// =============================================================================

// Field keys used in ValidationError.FieldErrors. They match the request
// form's field names so errors can be shown next to the offending input.
const (
	FieldRequesterID      = "requesterId"
	FieldType             = "type"
	FieldStartDate        = "startDate"
	FieldEndDate          = "endDate"
	FieldReason           = "reason"
	FieldEmergencyContact = "emergencyContact"
	FieldPriority         = "priority"
	FieldBalance          = "balance"
)

// BalanceLookup returns the days still available for a leave type.
// The requester is fixed by the caller when building the lookup.
type BalanceLookup func(leaveType LeaveType) (int, error)

// Validate runs every rule against the candidate and collects all
// violations; it never stops at the first one. On success it returns the
// normalized submission. A lookup failure is returned as-is, not as a
// field error.
func Validate(c Candidate, lookup BalanceLookup) (Submission, error) {
	n := normalize(c)
	verr := &ValidationError{}

	if n.RequesterID == "" {
		verr.add(FieldRequesterID, "Requester is required")
	}
	if n.LeaveType == "" {
		verr.add(FieldType, "Leave type is required")
	}
	if n.StartDate.IsZero() {
		verr.add(FieldStartDate, "Start date is required")
	}
	if n.EndDate.IsZero() {
		verr.add(FieldEndDate, "End date is required")
	}
	if !n.StartDate.IsZero() && !n.EndDate.IsZero() && n.EndDate.Before(n.StartDate) {
		verr.add(FieldEndDate, "End date must be after start date")
	}
	if n.Reason == "" {
		verr.add(FieldReason, "Reason is required")
	}
	if n.EmergencyContact == "" {
		verr.add(FieldEmergencyContact, "Emergency contact is required")
	}
	if !n.Priority.IsValid() {
		verr.add(FieldPriority, fmt.Sprintf("Unknown priority %q", n.Priority))
	}

	requested := InclusiveDays(n.StartDate, n.EndDate)

	// The balance rule needs a type and a well-formed range.
	if n.LeaveType != "" && requested > 0 && lookup != nil {
		available, err := lookup(n.LeaveType)
		if err != nil {
			return Submission{}, fmt.Errorf("balance lookup for %s: %w", n.LeaveType, err)
		}
		if requested > available {
			verr.add(FieldBalance, fmt.Sprintf(
				"Insufficient balance. Available: %d days, Requested: %d days", available, requested))
			verr.Balance = &InsufficientBalanceError{
				RequesterID: n.RequesterID,
				LeaveType:   n.LeaveType,
				Available:   available,
				Requested:   requested,
			}
		}
	}

	if verr.HasErrors() {
		return Submission{}, verr
	}
	return Submission{Candidate: n, RequestedDays: requested}, nil
}

// normalize trims free text and defaults the priority. The document list is
// copied so later edits to the candidate do not leak into the submission.
func normalize(c Candidate) Candidate {
	n := c
	n.RequesterID = strings.TrimSpace(c.RequesterID)
	n.RequesterName = strings.TrimSpace(c.RequesterName)
	n.Department = strings.TrimSpace(c.Department)
	n.LeaveType = LeaveType(strings.TrimSpace(string(c.LeaveType)))
	n.Reason = strings.TrimSpace(c.Reason)
	n.EmergencyContact = strings.TrimSpace(c.EmergencyContact)
	n.Priority = Priority(strings.ToUpper(strings.TrimSpace(string(c.Priority))))
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if c.Documents != nil {
		n.Documents = append([]string(nil), c.Documents...)
	}
	return n
}
