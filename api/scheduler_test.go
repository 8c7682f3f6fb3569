package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func newTestScheduler(t *testing.T, now time.Time) (*RollupScheduler, *Handler) {
	t.Helper()
	ts := newTestServer(t)
	require.NoError(t, ts.handler.ApplyScenario(context.Background(), "admin-sample"))

	rs := NewRollupScheduler(ts.handler.Service, ts.handler.History, nil)
	rs.now = func() time.Time { return now }
	return rs, ts.handler
}

func TestRollupScheduler_RecordsClosedMonths(t *testing.T) {
	// GIVEN: Three requests submitted in July 2024
	// WHEN: The rollup runs in August
	// THEN: July is frozen into the history exactly once
	rs, h := newTestScheduler(t, time.Date(2024, time.August, 2, 0, 0, 0, 0, time.UTC))

	recorded := rs.RunNow(context.Background())
	assert.Equal(t, []string{"2024-07"}, recorded)
	assert.Equal(t, []leave.MonthlyBucket{
		{Month: "2024-07", Applied: 3, Approved: 1},
	}, h.History.Buckets())

	assert.Empty(t, rs.RunNow(context.Background()))
	assert.Len(t, h.History.Buckets(), 1)
}

func TestRollupScheduler_SkipsCurrentMonth(t *testing.T) {
	rs, h := newTestScheduler(t, time.Date(2024, time.July, 31, 23, 0, 0, 0, time.UTC))

	assert.Empty(t, rs.RunNow(context.Background()))
	assert.False(t, h.History.Has("2024-07"))
}

func TestRollupScheduler_HistoryWins(t *testing.T) {
	rs, h := newTestScheduler(t, time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, h.History.Record(leave.MonthlyBucket{Month: "2024-07", Applied: 40, Approved: 30, Rejected: 10}))

	assert.Empty(t, rs.RunNow(context.Background()))
	assert.Equal(t, 40, h.History.Buckets()[0].Applied)
}

func TestRollupScheduler_StartStop(t *testing.T) {
	rs, h := newTestScheduler(t, time.Date(2024, time.August, 2, 0, 0, 0, 0, time.UTC))
	rs.CheckInterval = time.Hour

	rs.Start()
	rs.Start() // second start is a no-op
	rs.Stop()

	// The first check runs as soon as the loop starts.
	assert.True(t, h.History.Has("2024-07"))

	// Stopped schedulers can be started again.
	rs.Start()
	rs.Stop()
	rs.Stop()
}

func TestRollupScheduler_Disabled(t *testing.T) {
	rs, h := newTestScheduler(t, time.Date(2024, time.August, 2, 0, 0, 0, 0, time.UTC))
	rs.Enabled = false

	rs.Start()
	rs.Stop()

	assert.False(t, h.History.Has("2024-07"))
	assert.Equal(t, time.Date(2024, time.August, 2, 1, 0, 0, 0, time.UTC), rs.GetNextRunTime())
}

func TestRollupScheduler_FrozenMonthIgnoresLaterDecisions(t *testing.T) {
	// GIVEN: July recorded with one approval and two pending requests
	// WHEN: A July request is approved afterwards
	// THEN: The monthly series keeps the recorded July counts
	ctx := context.Background()
	rs, h := newTestScheduler(t, time.Date(2024, time.August, 2, 0, 0, 0, 0, time.UTC))
	require.Equal(t, []string{"2024-07"}, rs.RunNow(ctx))

	requests, err := h.Service.List(ctx)
	require.NoError(t, err)
	pending := leave.Filter(requests, leave.Criteria{Status: leave.StatusPending})
	require.NotEmpty(t, pending)
	_, err = h.Service.Approve(ctx, pending[0].ID, "late")
	require.NoError(t, err)

	requests, err = h.Service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, leave.Count(requests).Approved)
	assert.Equal(t, []leave.MonthlyBucket{
		{Month: "2024-07", Applied: 3, Approved: 1},
	}, leave.MonthlyStats(h.History.Buckets(), requests))
}
