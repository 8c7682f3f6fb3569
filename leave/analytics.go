/*
analytics.go - Aggregations for the administrator dashboard

PURPOSE:
  Derives every number the dashboards show from the current request list.
  Nothing is maintained incrementally: each call recomputes from its input,
  so counters cannot drift from the store.

WHAT IS COMPUTED:
  Count:          total / pending / approved / rejected / urgent pending
  ApprovalRate:   approved / (approved + rejected) as a percentage, 0 if
                  nothing was decided yet
  GroupBy:        counts and approval rate per arbitrary key, keys in order
                  of first appearance
  MonthlyStats:   injected history merged with months derived from requests
  Summarize:      everything above plus average processing time and trend

PRECISION:
  Percentages and hours are decimal.Decimal rounded to one place, so a
  33.3% rate is exactly "33.3" on the wire.

SEE ALSO:
  - history.go: Monthly time series fed into MonthlyStats
  - report/xlsx.go: Writes a Report to a workbook
*/
package leave

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole*100 rounded to one decimal; 0 when whole is 0.
func percentOf(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1)
}

// =============================================================================
// COUNTS
// =============================================================================

type Counts struct {
	Total         int
	Pending       int
	Approved      int
	Rejected      int
	UrgentPending int
}

func Count(requests []LeaveRequest) Counts {
	var c Counts
	for _, r := range requests {
		c.Total++
		switch r.Status {
		case StatusPending:
			c.Pending++
			if r.IsUrgent {
				c.UrgentPending++
			}
		case StatusApproved:
			c.Approved++
		case StatusRejected:
			c.Rejected++
		}
	}
	return c
}

// ApprovalRate is approved/(approved+rejected) as a percentage.
// Returns zero, not an error, when no request has been decided.
func ApprovalRate(approved, rejected int) decimal.Decimal {
	return percentOf(approved, approved+rejected)
}

// =============================================================================
// GROUPING
// =============================================================================

// Group is one row of a grouped statistic.
type Group struct {
	Key          string
	Count        int
	Pending      int
	Approved     int
	Rejected     int
	ApprovalRate decimal.Decimal
}

// GroupBy buckets requests by key. Every distinct key appears exactly once,
// in the order it is first seen in the input.
func GroupBy(requests []LeaveRequest, key func(LeaveRequest) string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, r := range requests {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		g := &groups[i]
		g.Count++
		switch r.Status {
		case StatusPending:
			g.Pending++
		case StatusApproved:
			g.Approved++
		case StatusRejected:
			g.Rejected++
		}
	}

	for i := range groups {
		groups[i].ApprovalRate = ApprovalRate(groups[i].Approved, groups[i].Rejected)
	}
	return groups
}

func ByDepartment(requests []LeaveRequest) []Group {
	return GroupBy(requests, func(r LeaveRequest) string { return r.Department })
}

func ByLeaveType(requests []LeaveRequest) []Group {
	return GroupBy(requests, func(r LeaveRequest) string { return string(r.LeaveType) })
}

// ByMonth groups by the YYYY-MM the request was submitted in.
func ByMonth(requests []LeaveRequest) []Group {
	return GroupBy(requests, func(r LeaveRequest) string { return r.SubmittedDate().MonthKey() })
}

// =============================================================================
// MONTHLY TIME SERIES
// =============================================================================

// MonthlyBucket is one point of the applied/approved/rejected series.
type MonthlyBucket struct {
	Month    string `mapstructure:"month" json:"month"`
	Applied  int    `mapstructure:"applied" json:"applied"`
	Approved int    `mapstructure:"approved" json:"approved"`
	Rejected int    `mapstructure:"rejected" json:"rejected"`
}

// BucketsFromRequests derives monthly buckets by submission month.
func BucketsFromRequests(requests []LeaveRequest) []MonthlyBucket {
	groups := ByMonth(requests)
	buckets := make([]MonthlyBucket, 0, len(groups))
	for _, g := range groups {
		buckets = append(buckets, MonthlyBucket{
			Month:    g.Key,
			Applied:  g.Count,
			Approved: g.Approved,
			Rejected: g.Rejected,
		})
	}
	sortBuckets(buckets)
	return buckets
}

// MonthlyStats merges the injected history with buckets derived from the
// current requests. A month present in history is taken from history as-is;
// derived buckets only fill months history does not cover. Sorted by month.
func MonthlyStats(history []MonthlyBucket, requests []LeaveRequest) []MonthlyBucket {
	seen := make(map[string]bool, len(history))
	merged := make([]MonthlyBucket, 0, len(history))
	for _, b := range history {
		if seen[b.Month] {
			continue
		}
		seen[b.Month] = true
		merged = append(merged, b)
	}
	for _, b := range BucketsFromRequests(requests) {
		if !seen[b.Month] {
			merged = append(merged, b)
		}
	}
	sortBuckets(merged)
	return merged
}

func sortBuckets(b []MonthlyBucket) {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Month < b[j].Month })
}

// =============================================================================
// REPORT
// =============================================================================

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// Report is the full analytics payload of the admin dashboard.
type Report struct {
	Counts                 Counts
	ApprovalRate           decimal.Decimal
	AverageProcessingHours decimal.Decimal
	Trend                  TrendDirection
	Monthly                []MonthlyBucket
	Departments            []Group
	LeaveTypes             []Group
}

// Summarize computes the report over the full, unfiltered request list.
func Summarize(requests []LeaveRequest, history []MonthlyBucket) Report {
	counts := Count(requests)
	monthly := MonthlyStats(history, requests)
	return Report{
		Counts:                 counts,
		ApprovalRate:           ApprovalRate(counts.Approved, counts.Rejected),
		AverageProcessingHours: AverageProcessingHours(requests),
		Trend:                  Trend(monthly),
		Monthly:                monthly,
		Departments:            ByDepartment(requests),
		LeaveTypes:             ByLeaveType(requests),
	}
}

// AverageProcessingHours is the mean submitted-to-processed time over
// processed requests, rounded to one decimal. Zero if none were processed.
func AverageProcessingHours(requests []LeaveRequest) decimal.Decimal {
	total := decimal.Zero
	n := 0
	for _, r := range requests {
		if r.ProcessedAt == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(r.ProcessedAt.Sub(r.SubmittedAt).Hours()))
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(1)
}

// Trend compares applications in the last two months of a sorted series.
// Fewer than two points counts as up.
func Trend(monthly []MonthlyBucket) TrendDirection {
	if len(monthly) < 2 {
		return TrendUp
	}
	if monthly[len(monthly)-1].Applied < monthly[len(monthly)-2].Applied {
		return TrendDown
	}
	return TrendUp
}

// RequesterSummary holds the student dashboard counters.
type RequesterSummary struct {
	Counts    Counts
	Balances  []Balance
	LowTypes  []LeaveType
	TotalDays int
}

// SummarizeRequester combines one requester's requests and balances.
func SummarizeRequester(requests []LeaveRequest, balances []Balance) RequesterSummary {
	s := RequesterSummary{Counts: Count(requests), Balances: balances, LowTypes: make([]LeaveType, 0)}
	for _, r := range requests {
		if r.Status == StatusApproved {
			s.TotalDays += r.RequestedDays
		}
	}
	for _, b := range balances {
		if b.IsLow() {
			s.LowTypes = append(s.LowTypes, b.LeaveType)
		}
	}
	return s
}
