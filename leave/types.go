/*
Package leave provides the leave request domain engine.

PURPOSE:
  Everything a student leave dashboard and an administrator review dashboard
  need from the domain: validating a submission, reserving days against a
  balance, moving a request through its approval lifecycle, filtering the
  request list, and deriving analytics. There is no UI or transport here;
  the api package exposes these operations over HTTP.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: open-ended category (Sick Leave, Personal Leave, ...)
  - Status: PENDING -> APPROVED | REJECTED (both terminal)
  - Priority: LOW, NORMAL, HIGH, URGENT (independent of IsUrgent)
  - Candidate: unvalidated submission, mutable until submitted
  - LeaveRequest: the stored record, immutable except via Transition

REQUEST FLOW:
  Candidate ──Validate──▶ Submission ──Create──▶ LeaveRequest(PENDING)
                                                    │        reserve days
                                   ┌────────────────┴───────────────┐
                                   ▼                                ▼
                             APPROVED (commit)               REJECTED (release)

SEE ALSO:
  - validation.go: Field checks and balance check
  - balance.go: Balance ledger (reserve/commit/release)
  - request.go: Service orchestrating create and transition
  - filter.go: Query/filter engine
  - analytics.go: Aggregations for the admin dashboard
*/
package leave

import "time"

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType is a leave category. The set is open-ended; the constants below
// are the categories offered by the request form.
type LeaveType string

const (
	TypeSick      LeaveType = "Sick Leave"
	TypePersonal  LeaveType = "Personal Leave"
	TypeEmergency LeaveType = "Emergency Leave"
	TypeMedical   LeaveType = "Medical Leave"
	TypeFamily    LeaveType = "Family Leave"
	TypeAcademic  LeaveType = "Academic Leave"
)

// KnownTypes lists the form's leave categories in display order.
var KnownTypes = []LeaveType{TypeSick, TypePersonal, TypeEmergency, TypeMedical, TypeFamily, TypeAcademic}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// =============================================================================
// PRIORITY
// =============================================================================

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// =============================================================================
// CANDIDATE - What the request form submits
// =============================================================================

// Candidate is a submission that has not been validated or stored yet.
// Documents may be attached and removed freely until it is submitted.
type Candidate struct {
	RequesterID      string
	RequesterName    string
	Department       string
	LeaveType        LeaveType
	StartDate        Date
	EndDate          Date
	Reason           string
	EmergencyContact string
	Priority         Priority
	IsUrgent         bool
	Documents        []string
}

// AttachDocument appends a file reference.
func (c *Candidate) AttachDocument(ref string) {
	c.Documents = append(c.Documents, ref)
}

// RemoveDocument drops the reference at index i. Out of range is a no-op.
func (c *Candidate) RemoveDocument(i int) {
	if i < 0 || i >= len(c.Documents) {
		return
	}
	docs := make([]string, 0, len(c.Documents)-1)
	docs = append(docs, c.Documents[:i]...)
	docs = append(docs, c.Documents[i+1:]...)
	c.Documents = docs
}

// Submission is a Candidate that passed validation: strings are trimmed,
// the priority is defaulted and RequestedDays is computed.
type Submission struct {
	Candidate
	RequestedDays int
}

// =============================================================================
// LEAVE REQUEST - The stored record
// =============================================================================

type RequestID string

// LeaveRequest is created only by Service.Create. Status, ProcessedAt and
// AdminComments change together and only through Service.Transition.
type LeaveRequest struct {
	ID               RequestID
	RequesterID      string
	RequesterName    string
	Department       string
	LeaveType        LeaveType
	StartDate        Date
	EndDate          Date
	RequestedDays    int
	Reason           string
	EmergencyContact string
	Priority         Priority
	IsUrgent         bool
	Status           Status
	SubmittedAt      time.Time
	ProcessedAt      *time.Time
	AdminComments    string
	Documents        []string
}

// SubmittedDate is the calendar day the request was submitted.
func (r LeaveRequest) SubmittedDate() Date { return DateOf(r.SubmittedAt) }

// Clone returns a copy that shares no slices or pointers with r.
func (r LeaveRequest) Clone() LeaveRequest {
	c := r
	if r.Documents != nil {
		c.Documents = append([]string(nil), r.Documents...)
	}
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return c
}
