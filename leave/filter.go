package leave

import "strings"

// =============================================================================
// QUERY / FILTER ENGINE
// =============================================================================

// All disables a filter dimension. An empty value does the same.
const All = "ALL"

// Criteria narrows a request list. Dimensions are AND-ed together.
type Criteria struct {
	// SearchText matches, case-insensitively, a substring of the requester
	// name, the requester id or the leave type (any one is enough).
	SearchText string
	Status     Status
	Department string
	Priority   Priority
}

// IsEmpty reports whether the criteria constrain nothing.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.SearchText) == "" &&
		unconstrained(string(c.Status)) &&
		unconstrained(c.Department) &&
		unconstrained(string(c.Priority))
}

// Matches reports whether r satisfies every active dimension.
func (c Criteria) Matches(r LeaveRequest) bool {
	if q := strings.ToLower(strings.TrimSpace(c.SearchText)); q != "" {
		if !strings.Contains(strings.ToLower(r.RequesterName), q) &&
			!strings.Contains(strings.ToLower(r.RequesterID), q) &&
			!strings.Contains(strings.ToLower(string(r.LeaveType)), q) {
			return false
		}
	}
	if !unconstrained(string(c.Status)) && r.Status != c.Status {
		return false
	}
	if !unconstrained(c.Department) && r.Department != c.Department {
		return false
	}
	if !unconstrained(string(c.Priority)) && r.Priority != c.Priority {
		return false
	}
	return true
}

func unconstrained(v string) bool {
	return v == "" || v == All
}

// Filter returns the requests matching the criteria, keeping their relative
// order. Empty criteria return the input unchanged.
func Filter(requests []LeaveRequest, c Criteria) []LeaveRequest {
	if c.IsEmpty() {
		return requests
	}
	result := make([]LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if c.Matches(r) {
			result = append(result, r)
		}
	}
	return result
}

// PartitionByUrgency splits an already filtered PENDING list into urgent and
// non-urgent requests. Both halves keep the input order, so the admin view
// can render urgent ones first without re-sorting.
func PartitionByUrgency(pending []LeaveRequest) (urgent, nonUrgent []LeaveRequest) {
	urgent = make([]LeaveRequest, 0)
	nonUrgent = make([]LeaveRequest, 0, len(pending))
	for _, r := range pending {
		if r.IsUrgent {
			urgent = append(urgent, r)
		} else {
			nonUrgent = append(nonUrgent, r)
		}
	}
	return urgent, nonUrgent
}
