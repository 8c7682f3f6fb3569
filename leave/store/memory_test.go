package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func request(id string) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:          leave.RequestID(id),
		RequesterID: "S1",
		LeaveType:   leave.TypeSick,
		StartDate:   leave.MustParseDate("2024-07-15"),
		EndDate:     leave.MustParseDate("2024-07-15"),
		Status:      leave.StatusPending,
		SubmittedAt: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		Documents:   []string{"a.pdf"},
	}
}

func TestMemory_InsertRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.InsertRequest(ctx, request("r1")))
	assert.Error(t, m.InsertRequest(ctx, request("r1")))
}

func TestMemory_UpdateOnlyTouchesTransitionFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertRequest(ctx, request("r1")))

	now := time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC)
	changed := request("r1")
	changed.Status = leave.StatusApproved
	changed.ProcessedAt = &now
	changed.AdminComments = "ok"
	changed.Reason = "rewritten"
	require.NoError(t, m.UpdateRequest(ctx, changed))

	got, err := m.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, "ok", got.AdminComments)
	assert.Equal(t, now, *got.ProcessedAt)
	assert.Empty(t, got.Reason)

	err = m.UpdateRequest(ctx, request("missing"))
	assert.True(t, leave.IsNotFound(err))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertRequest(ctx, request("r1")))

	got, err := m.GetRequest(ctx, "r1")
	require.NoError(t, err)
	got.Documents[0] = "changed"

	again, err := m.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, again.Documents)

	missing, err := m.GetRequest(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A stored request and balance
	// WHEN: A transaction writes both and then fails
	// THEN: Neither write survives
	ctx := context.Background()
	tm := NewTxMemory()
	require.NoError(t, tm.InsertRequest(ctx, request("r1")))
	require.NoError(t, tm.SaveBalance(ctx, leave.Balance{RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 5}))

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(tx leave.Store) error {
		require.NoError(t, tx.InsertRequest(ctx, request("r2")))
		require.NoError(t, tx.SaveBalance(ctx, leave.Balance{
			RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 5, PendingDays: 1,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := tm.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, leave.RequestID("r1"), all[0].ID)

	b, err := tm.GetBalance(ctx, "S1", leave.TypeSick)
	require.NoError(t, err)
	assert.Equal(t, 0, b.PendingDays)
}

func TestTxMemory_CommitAndOrder(t *testing.T) {
	ctx := context.Background()
	tm := NewTxMemory()

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, tm.WithTx(ctx, func(tx leave.Store) error {
			return tx.InsertRequest(ctx, request(id))
		}))
	}

	all, err := tm.ListRequests(ctx)
	require.NoError(t, err)
	got := make([]leave.RequestID, 0, len(all))
	for _, r := range all {
		got = append(got, r.ID)
	}
	assert.Equal(t, []leave.RequestID{"r3", "r2", "r1"}, got)

	require.NoError(t, tm.Reset(ctx))
	all, err = tm.ListRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
