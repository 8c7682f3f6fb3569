/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the leave domain model from the external API contract.

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Complex response wrappers

FIELD NAMES:
  camelCase, matching the request form. Field error keys returned on 422
  use the same names (startDate, emergencyContact, ...), so a client can put
  each message next to the input that caused it.

VALIDATION:
  Request types carry `validate` tags for wire-level shape only (lengths,
  enums, non-negative counters). Business rules such as required fields,
  date order and balance sufficiency stay in leave.Validate.

SEE ALSO:
  - handlers.go: Uses these types
  - validation.go: Runs the `validate` tags
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateLeaveRequest is the body of POST /api/requests.
type CreateLeaveRequest struct {
	RequesterID      string     `json:"requesterId" validate:"max=64"`
	RequesterName    string     `json:"requesterName" validate:"max=200"`
	Department       string     `json:"department" validate:"max=200"`
	LeaveType        string     `json:"type" validate:"max=100"`
	StartDate        leave.Date `json:"startDate"`
	EndDate          leave.Date `json:"endDate"`
	Reason           string     `json:"reason" validate:"max=2000"`
	EmergencyContact string     `json:"emergencyContact" validate:"max=200"`
	Priority         string     `json:"priority" validate:"omitempty,max=16"`
	IsUrgent         bool       `json:"isUrgent"`
	Documents        []string   `json:"documents" validate:"max=10,dive,required,max=255"`
}

func (r CreateLeaveRequest) toCandidate() leave.Candidate {
	c := leave.Candidate{
		RequesterID:      r.RequesterID,
		RequesterName:    r.RequesterName,
		Department:       r.Department,
		LeaveType:        leave.LeaveType(r.LeaveType),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Reason:           r.Reason,
		EmergencyContact: r.EmergencyContact,
		Priority:         leave.Priority(r.Priority),
		IsUrgent:         r.IsUrgent,
	}
	for _, d := range r.Documents {
		c.AttachDocument(d)
	}
	return c
}

// DecisionRequest is the optional body of approve/reject.
type DecisionRequest struct {
	Comments string `json:"comments" validate:"max=1000"`
}

// TransitionRequest is the body of POST /api/requests/{id}/transition.
type TransitionRequest struct {
	Status   string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Comments string `json:"comments" validate:"max=1000"`
}

// ProvisionBalanceRequest is the body of PUT /api/balances.
type ProvisionBalanceRequest struct {
	RequesterID    string `json:"requesterId" validate:"required,max=64"`
	LeaveType      string `json:"type" validate:"required,max=100"`
	TotalAllocated int    `json:"totalAllocated" validate:"gte=0"`
	UsedDays       int    `json:"usedDays" validate:"gte=0,ltefield=TotalAllocated"`
	PendingDays    int    `json:"pendingDays" validate:"gte=0"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID               string   `json:"id"`
	RequesterID      string   `json:"requesterId"`
	RequesterName    string   `json:"requesterName"`
	Department       string   `json:"department"`
	LeaveType        string   `json:"type"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	RequestedDays    int      `json:"requestedDays"`
	Reason           string   `json:"reason"`
	EmergencyContact string   `json:"emergencyContact"`
	Priority         string   `json:"priority"`
	IsUrgent         bool     `json:"isUrgent"`
	Status           string   `json:"status"`
	SubmittedDate    string   `json:"submittedDate"`
	SubmittedAt      string   `json:"submittedAt"`
	ProcessedAt      *string  `json:"processedAt,omitempty"`
	AdminComments    string   `json:"adminComments,omitempty"`
	Documents        []string `json:"documents"`
}

func toRequestDTO(r leave.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:               string(r.ID),
		RequesterID:      r.RequesterID,
		RequesterName:    r.RequesterName,
		Department:       r.Department,
		LeaveType:        string(r.LeaveType),
		StartDate:        r.StartDate.String(),
		EndDate:          r.EndDate.String(),
		RequestedDays:    r.RequestedDays,
		Reason:           r.Reason,
		EmergencyContact: r.EmergencyContact,
		Priority:         string(r.Priority),
		IsUrgent:         r.IsUrgent,
		Status:           string(r.Status),
		SubmittedDate:    r.SubmittedDate().String(),
		SubmittedAt:      r.SubmittedAt.UTC().Format(time.RFC3339),
		AdminComments:    r.AdminComments,
		Documents:        r.Documents,
	}
	if dto.Documents == nil {
		dto.Documents = []string{}
	}
	if r.ProcessedAt != nil {
		dto.ProcessedAt = strPtr(r.ProcessedAt.UTC().Format(time.RFC3339))
	}
	return dto
}

func toRequestDTOs(requests []leave.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, 0, len(requests))
	for _, r := range requests {
		dtos = append(dtos, toRequestDTO(r))
	}
	return dtos
}

// PendingResponse splits the pending queue so urgent requests render first.
type PendingResponse struct {
	Urgent []RequestDTO `json:"urgent"`
	Normal []RequestDTO `json:"normal"`
}

// BalanceDTO represents one leave balance in API responses.
type BalanceDTO struct {
	RequesterID    string          `json:"requesterId"`
	LeaveType      string          `json:"type"`
	TotalAllocated int             `json:"totalAllocated"`
	UsedDays       int             `json:"usedDays"`
	PendingDays    int             `json:"pendingDays"`
	AvailableDays  int             `json:"availableDays"`
	UsagePercent   decimal.Decimal `json:"usagePercent"`
	Low            bool            `json:"low"`
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		RequesterID:    b.RequesterID,
		LeaveType:      string(b.LeaveType),
		TotalAllocated: b.TotalAllocated,
		UsedDays:       b.UsedDays,
		PendingDays:    b.PendingDays,
		AvailableDays:  b.AvailableDays(),
		UsagePercent:   b.UsagePercent(),
		Low:            b.IsLow(),
	}
}

func toBalanceDTOs(balances []leave.Balance) []BalanceDTO {
	dtos := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, toBalanceDTO(b))
	}
	return dtos
}

// CountsDTO holds the dashboard counters.
type CountsDTO struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	UrgentPending int `json:"urgentPending"`
}

func toCountsDTO(c leave.Counts) CountsDTO {
	return CountsDTO(c)
}

// RequesterSummaryDTO feeds the student dashboard.
type RequesterSummaryDTO struct {
	RequesterID     string       `json:"requesterId"`
	Counts          CountsDTO    `json:"counts"`
	TotalDaysTaken  int          `json:"totalDaysTaken"`
	Balances        []BalanceDTO `json:"balances"`
	LowBalanceTypes []string     `json:"lowBalanceTypes"`
}

// GroupDTO is one row of a grouped statistic.
type GroupDTO struct {
	Key          string          `json:"key"`
	Requests     int             `json:"requests"`
	Pending      int             `json:"pending"`
	Approved     int             `json:"approved"`
	Rejected     int             `json:"rejected"`
	ApprovalRate decimal.Decimal `json:"approvalRate"`
}

func toGroupDTOs(groups []leave.Group) []GroupDTO {
	dtos := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		dtos = append(dtos, GroupDTO{
			Key:          g.Key,
			Requests:     g.Count,
			Pending:      g.Pending,
			Approved:     g.Approved,
			Rejected:     g.Rejected,
			ApprovalRate: g.ApprovalRate,
		})
	}
	return dtos
}

// TrendsDTO is the "recent trends" card of the analytics dashboard.
type TrendsDTO struct {
	TotalRequests         int             `json:"totalRequests"`
	ApprovalRate          decimal.Decimal `json:"approvalRate"`
	AverageProcessingTime decimal.Decimal `json:"averageProcessingTime"`
	TrendDirection        string          `json:"trendDirection"`
}

// AnalyticsDTO is the full analytics dashboard payload.
type AnalyticsDTO struct {
	Counts          CountsDTO             `json:"counts"`
	MonthlyStats    []leave.MonthlyBucket `json:"monthlyStats"`
	DepartmentStats []GroupDTO            `json:"departmentStats"`
	LeaveTypeStats  []GroupDTO            `json:"leaveTypeStats"`
	RecentTrends    TrendsDTO             `json:"recentTrends"`
}

func toAnalyticsDTO(r leave.Report) AnalyticsDTO {
	monthly := r.Monthly
	if monthly == nil {
		monthly = []leave.MonthlyBucket{}
	}
	return AnalyticsDTO{
		Counts:          toCountsDTO(r.Counts),
		MonthlyStats:    monthly,
		DepartmentStats: toGroupDTOs(r.Departments),
		LeaveTypeStats:  toGroupDTOs(r.LeaveTypes),
		RecentTrends: TrendsDTO{
			TotalRequests:         r.Counts.Total,
			ApprovalRate:          r.ApprovalRate,
			AverageProcessingTime: r.AverageProcessingHours,
			TrendDirection:        string(r.Trend),
		},
	}
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Details     string            `json:"details,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}
