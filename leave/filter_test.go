package leave_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/leave"
)

func sampleRequests() []leave.LeaveRequest {
	return []leave.LeaveRequest{
		{ID: "r1", RequesterID: "STU001", RequesterName: "John Doe", Department: "CS",
			LeaveType: leave.TypeSick, Status: leave.StatusPending, Priority: leave.PriorityHigh, IsUrgent: true},
		{ID: "r2", RequesterID: "STU002", RequesterName: "Jane Smith", Department: "Math",
			LeaveType: leave.TypePersonal, Status: leave.StatusPending, Priority: leave.PriorityNormal},
		{ID: "r3", RequesterID: "STU003", RequesterName: "Mike Johnson", Department: "CS",
			LeaveType: leave.TypeMedical, Status: leave.StatusApproved, Priority: leave.PriorityNormal},
		{ID: "r4", RequesterID: "STU004", RequesterName: "Ann Lee", Department: "Physics",
			LeaveType: leave.TypeSick, Status: leave.StatusRejected, Priority: leave.PriorityLow, IsUrgent: true},
	}
}

func ids(requests []leave.LeaveRequest) []leave.RequestID {
	out := make([]leave.RequestID, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_DepartmentKeepsOrder(t *testing.T) {
	requests := []leave.LeaveRequest{
		{ID: "a", Department: "CS"},
		{ID: "b", Department: "Math"},
		{ID: "c", Department: "CS"},
	}

	got := leave.Filter(requests, leave.Criteria{Department: "CS"})

	assert.Equal(t, []leave.RequestID{"a", "c"}, ids(got))
}

func TestFilter_EmptyCriteriaIsIdentity(t *testing.T) {
	requests := sampleRequests()

	for _, c := range []leave.Criteria{
		{},
		{SearchText: "   ", Status: leave.All, Department: leave.All, Priority: leave.All},
	} {
		assert.Equal(t, requests, leave.Filter(requests, c))
	}
}

func TestFilter_SearchText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []leave.RequestID
	}{
		{"name, any case", "jOHN", []leave.RequestID{"r1", "r3"}},
		{"requester id", "stu002", []leave.RequestID{"r2"}},
		{"leave type", "sick", []leave.RequestID{"r1", "r4"}},
		{"no match", "zzz", []leave.RequestID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := leave.Filter(sampleRequests(), leave.Criteria{SearchText: tt.text})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_DimensionsCompose(t *testing.T) {
	// GIVEN: Every combination of search text, status, department and priority
	// WHEN: Filtering the sample
	// THEN: Each result satisfies every active predicate, and nothing that
	//       satisfies them all is left out
	requests := sampleRequests()
	searches := []string{"", "john", "sick", "STU00"}
	statuses := []leave.Status{leave.All, leave.StatusPending, leave.StatusApproved, leave.StatusRejected}
	departments := []string{"", "CS", "Math", "Physics", "Law"}
	priorities := []leave.Priority{"", leave.PriorityLow, leave.PriorityNormal, leave.PriorityHigh}

	searchHit := func(r leave.LeaveRequest, q string) bool {
		q = strings.ToLower(q)
		return strings.Contains(strings.ToLower(r.RequesterName), q) ||
			strings.Contains(strings.ToLower(r.RequesterID), q) ||
			strings.Contains(strings.ToLower(string(r.LeaveType)), q)
	}

	for _, q := range searches {
		for _, s := range statuses {
			for _, d := range departments {
				for _, p := range priorities {
					c := leave.Criteria{SearchText: q, Status: s, Department: d, Priority: p}
					got := leave.Filter(requests, c)

					want := []leave.RequestID{}
					for _, r := range requests {
						if (q == "" || searchHit(r, q)) &&
							(s == leave.All || r.Status == s) &&
							(d == "" || r.Department == d) &&
							(p == "" || r.Priority == p) {
							want = append(want, r.ID)
						}
					}
					assert.Equal(t, want, ids(got), "criteria %+v", c)
				}
			}
		}
	}

	// Search is OR across fields, AND with the other dimensions.
	got := leave.Filter(requests, leave.Criteria{SearchText: "sick", Department: "CS"})
	assert.Equal(t, []leave.RequestID{"r1"}, ids(got))
}

func TestPartitionByUrgency(t *testing.T) {
	pending := leave.Filter(sampleRequests(), leave.Criteria{Status: leave.StatusPending})

	urgent, normal := leave.PartitionByUrgency(pending)

	assert.Equal(t, []leave.RequestID{"r1"}, ids(urgent))
	assert.Equal(t, []leave.RequestID{"r2"}, ids(normal))

	urgent, normal = leave.PartitionByUrgency(nil)
	assert.NotNil(t, urgent)
	assert.NotNil(t, normal)
	assert.Empty(t, urgent)
}
