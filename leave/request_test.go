package leave_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var submittedAt = time.Date(2024, time.July, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *store.TxMemory
	svc   *leave.Service
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: store.NewTxMemory(), clock: submittedAt}
	seq := 0
	f.svc = leave.NewService(f.store,
		leave.WithClock(func() time.Time { return f.clock }),
		leave.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("req-%d", seq)
		}),
	)
	return f
}

func (f *fixture) provision(t *testing.T, b leave.Balance) {
	t.Helper()
	require.NoError(t, f.svc.Ledger().Provision(f.ctx, b))
}

func (f *fixture) balance(t *testing.T, requester string, lt leave.LeaveType) leave.Balance {
	t.Helper()
	b, err := f.svc.Ledger().Balance(f.ctx, requester, lt)
	require.NoError(t, err)
	return b
}

func sickCandidate(start, end string) leave.Candidate {
	return leave.Candidate{
		RequesterID:      "S1",
		RequesterName:    "John Doe",
		Department:       "CS",
		LeaveType:        leave.TypeSick,
		StartDate:        leave.MustParseDate(start),
		EndDate:          leave.MustParseDate(end),
		Reason:           "x",
		EmergencyContact: "y",
	}
}

// S1 holds 12 sick days, 3 already used.
func sickBalance() leave.Balance {
	return leave.Balance{RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 12, UsedDays: 3}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_ReservesRequestedDays(t *testing.T) {
	// GIVEN: S1 with 9 sick days available
	// WHEN: Requesting Jul 15-17
	// THEN: 3 days are reserved and the request is PENDING
	f := newFixture(t)
	f.provision(t, sickBalance())

	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)

	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, 3, req.RequestedDays)
	assert.Equal(t, leave.PriorityNormal, req.Priority)
	assert.Equal(t, submittedAt, req.SubmittedAt)
	assert.Nil(t, req.ProcessedAt)
	assert.Empty(t, req.AdminComments)

	b := f.balance(t, "S1", leave.TypeSick)
	assert.Equal(t, 6, b.AvailableDays())
	assert.Equal(t, 3, b.PendingDays)
	assert.Equal(t, 3, b.UsedDays)
}

func TestCreate_InsufficientBalanceLeavesBalanceUntouched(t *testing.T) {
	// GIVEN: S1 with 9 sick days available
	// WHEN: Requesting 16 days (Jul 15-30)
	// THEN: InsufficientBalance(9, 16) and no change
	f := newFixture(t)
	f.provision(t, sickBalance())

	_, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-30"))
	require.Error(t, err)

	var ib *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, 9, ib.Available)
	assert.Equal(t, 16, ib.Requested)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	assert.True(t, leave.IsClientError(err))

	assert.Equal(t, sickBalance(), f.balance(t, "S1", leave.TypeSick))

	all, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_ValidationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.provision(t, sickBalance())

	c := sickCandidate("2024-07-17", "2024-07-15")
	c.Reason = "   "

	_, err := f.svc.Create(f.ctx, c)

	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldErrors, leave.FieldEndDate)
	assert.Contains(t, verr.FieldErrors, leave.FieldReason)

	all, _ := f.svc.List(f.ctx)
	assert.Empty(t, all)
	assert.Equal(t, sickBalance(), f.balance(t, "S1", leave.TypeSick))
}

func TestCreate_UnprovisionedTypeHasNothingAvailable(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-15"))

	var ib *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, 0, ib.Available)
	assert.Equal(t, 1, ib.Requested)
}

func TestCreate_IDsAreUniqueWithDefaultGenerator(t *testing.T) {
	svc := leave.NewService(store.NewTxMemory())
	ctx := context.Background()
	require.NoError(t, svc.Ledger().Provision(ctx, leave.Balance{
		RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 30,
	}))

	seen := make(map[leave.RequestID]bool)
	for i := 0; i < 10; i++ {
		req, err := svc.Create(ctx, sickCandidate("2024-07-01", "2024-07-01"))
		require.NoError(t, err)
		assert.False(t, seen[req.ID], "duplicate id %s", req.ID)
		seen[req.ID] = true
	}
}

func TestCreate_DocumentsAreCopied(t *testing.T) {
	f := newFixture(t)
	f.provision(t, sickBalance())

	c := sickCandidate("2024-07-15", "2024-07-15")
	c.AttachDocument("note.pdf")
	c.AttachDocument("scan.png")

	req, err := f.svc.Create(f.ctx, c)
	require.NoError(t, err)

	// Editing the candidate or the returned record must not reach the store.
	c.Documents[0] = "changed.pdf"
	req.Documents[1] = "changed.png"

	stored, err := f.svc.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"note.pdf", "scan.png"}, stored.Documents)
}

// =============================================================================
// TRANSITION
// =============================================================================

func TestTransition_ApproveCommitsDays(t *testing.T) {
	// GIVEN: The 3-day request from the create test
	// WHEN: Approving with a comment
	// THEN: used=6, pending=0, available=6, processedAt set
	f := newFixture(t)
	f.provision(t, sickBalance())
	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)

	f.clock = submittedAt.Add(5 * time.Hour)
	approved, err := f.svc.Transition(f.ctx, req.ID, leave.StatusApproved, "ok")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, f.clock, *approved.ProcessedAt)
	assert.Equal(t, "ok", approved.AdminComments)

	b := f.balance(t, "S1", leave.TypeSick)
	assert.Equal(t, 6, b.UsedDays)
	assert.Equal(t, 0, b.PendingDays)
	assert.Equal(t, 6, b.AvailableDays())
}

func TestTransition_RejectReleasesDays(t *testing.T) {
	f := newFixture(t)
	f.provision(t, sickBalance())
	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)

	rejected, err := f.svc.Reject(f.ctx, req.ID, "exam week")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusRejected, rejected.Status)
	assert.Equal(t, "exam week", rejected.AdminComments)
	assert.Equal(t, sickBalance(), f.balance(t, "S1", leave.TypeSick))
}

func TestTransition_SecondTransitionFailsWithoutSideEffects(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: Trying to reject it afterwards
	// THEN: InvalidTransition, and request + balance equal the post-approval state
	f := newFixture(t)
	f.provision(t, sickBalance())
	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, req.ID, "ok")
	require.NoError(t, err)

	afterFirst, err := f.svc.Get(f.ctx, req.ID)
	require.NoError(t, err)
	balanceAfterFirst := f.balance(t, "S1", leave.TypeSick)

	f.clock = submittedAt.Add(48 * time.Hour)
	_, err = f.svc.Transition(f.ctx, req.ID, leave.StatusRejected, "changed my mind")

	var ite *leave.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, leave.StatusApproved, ite.Current)
	assert.Equal(t, leave.StatusRejected, ite.Attempted)
	assert.True(t, leave.IsConflict(err))

	afterSecond, err := f.svc.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, balanceAfterFirst, f.balance(t, "S1", leave.TypeSick))
}

func TestTransition_RejectsNonTerminalTarget(t *testing.T) {
	f := newFixture(t)
	f.provision(t, sickBalance())
	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-15"))
	require.NoError(t, err)

	_, err = f.svc.Transition(f.ctx, req.ID, leave.StatusPending, "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	_, err = f.svc.Transition(f.ctx, req.ID, leave.Status("CANCELLED"), "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	still, err := f.svc.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, still.Status)
}

func TestTransition_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Approve(f.ctx, "nope", "")

	var nf *leave.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, leave.RequestID("nope"), nf.ID)
	assert.True(t, leave.IsNotFound(err))
}

func TestTransition_InconsistentLedgerRollsBack(t *testing.T) {
	// GIVEN: A pending request whose balance was re-provisioned without the
	//        pending days (simulates an out-of-band edit)
	// WHEN: Approving
	// THEN: InconsistentState and the request stays PENDING
	f := newFixture(t)
	f.provision(t, sickBalance())
	req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)
	f.provision(t, sickBalance())

	_, err = f.svc.Approve(f.ctx, req.ID, "ok")
	assert.ErrorIs(t, err, leave.ErrInconsistentState)

	still, err := f.svc.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, still.Status)
	assert.Nil(t, still.ProcessedAt)
	assert.Equal(t, sickBalance(), f.balance(t, "S1", leave.TypeSick))
}

// =============================================================================
// QUERIES
// =============================================================================

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	f.provision(t, leave.Balance{RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 20})

	var ids []leave.RequestID
	for i := 0; i < 3; i++ {
		req, err := f.svc.Create(f.ctx, sickCandidate("2024-07-01", "2024-07-01"))
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	all, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)
	assert.Equal(t, ids[0], all[2].ID)
}

func TestListByRequester(t *testing.T) {
	f := newFixture(t)
	f.provision(t, sickBalance())
	f.provision(t, leave.Balance{RequesterID: "S2", LeaveType: leave.TypeSick, TotalAllocated: 5})

	_, err := f.svc.Create(f.ctx, sickCandidate("2024-07-01", "2024-07-01"))
	require.NoError(t, err)
	other := sickCandidate("2024-07-02", "2024-07-02")
	other.RequesterID = "S2"
	_, err = f.svc.Create(f.ctx, other)
	require.NoError(t, err)

	mine, err := f.svc.ListByRequester(f.ctx, "S2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "S2", mine[0].RequesterID)

	none, err := f.svc.ListByRequester(f.ctx, "S9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestBalanceConservation_AcrossMixedOperations(t *testing.T) {
	// GIVEN: Two requesters with several leave types
	// WHEN: Running a mixed sequence of creates, approvals and rejections,
	//       some of which fail
	// THEN: After every step total == used + pending + available and no
	//       counter is negative
	f := newFixture(t)
	types := []leave.LeaveType{leave.TypeSick, leave.TypePersonal}
	requesters := []string{"S1", "S2"}
	for _, r := range requesters {
		for _, lt := range types {
			f.provision(t, leave.Balance{RequesterID: r, LeaveType: lt, TotalAllocated: 7})
		}
	}

	check := func(step string) {
		for _, r := range requesters {
			for _, lt := range types {
				b := f.balance(t, r, lt)
				assert.Equal(t, b.TotalAllocated, b.UsedDays+b.PendingDays+b.AvailableDays(), step)
				assert.GreaterOrEqual(t, b.UsedDays, 0, step)
				assert.GreaterOrEqual(t, b.PendingDays, 0, step)
				assert.GreaterOrEqual(t, b.AvailableDays(), 0, step)
			}
		}
	}

	start := leave.NewDate(2024, time.September, 2)
	var created []leave.RequestID
	for i := 0; i < 12; i++ {
		c := leave.Candidate{
			RequesterID:      requesters[i%2],
			LeaveType:        types[(i/2)%2],
			StartDate:        start.AddDays(i),
			EndDate:          start.AddDays(i + i%3),
			Reason:           "r",
			EmergencyContact: "c",
		}
		req, err := f.svc.Create(f.ctx, c)
		if err == nil {
			created = append(created, req.ID)
		} else {
			assert.True(t, errors.Is(err, leave.ErrInsufficientBalance), "unexpected error %v", err)
		}
		check(fmt.Sprintf("create %d", i))

		if i%3 == 2 && len(created) > 0 {
			id := created[0]
			created = created[1:]
			if i%2 == 0 {
				_, err = f.svc.Approve(f.ctx, id, "")
			} else {
				_, err = f.svc.Reject(f.ctx, id, "")
			}
			require.NoError(t, err)
			check(fmt.Sprintf("transition %d", i))

			_, err = f.svc.Approve(f.ctx, id, "")
			assert.ErrorIs(t, err, leave.ErrInvalidTransition)
			check(fmt.Sprintf("repeat transition %d", i))
		}
	}
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestCreate_ConcurrentSubmissionsCannotOverbook(t *testing.T) {
	// GIVEN: 10 sick days and 50 concurrent 2-day submissions
	// WHEN: All of them race through Create
	// THEN: Exactly 5 succeed, the rest fail on balance, nothing is overbooked
	ctx := context.Background()
	svc := leave.NewService(store.NewTxMemory())
	require.NoError(t, svc.Ledger().Provision(ctx, leave.Balance{
		RequesterID: "S1", LeaveType: leave.TypeSick, TotalAllocated: 10,
	}))

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, sickCandidate("2024-07-15", "2024-07-16"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, leave.ErrInsufficientBalance) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, attempts-5, refused)

	b, err := svc.Ledger().Balance(ctx, "S1", leave.TypeSick)
	require.NoError(t, err)
	assert.Equal(t, 10, b.PendingDays)
	assert.Equal(t, 0, b.AvailableDays())

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTransition_ConcurrentApprovalsSucceedOnce(t *testing.T) {
	// GIVEN: One pending 3-day request
	// WHEN: Several approvals race on it
	// THEN: One wins, the others see an invalid transition, days move once
	f := newFixture(t)
	f.provision(t, sickBalance())
	created, err := f.svc.Create(f.ctx, sickCandidate("2024-07-15", "2024-07-17"))
	require.NoError(t, err)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		conflict int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Approve(f.ctx, created.ID, "ok")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				approved++
			} else if errors.Is(err, leave.ErrInvalidTransition) {
				conflict++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, attempts-1, conflict)

	b := f.balance(t, "S1", leave.TypeSick)
	assert.Equal(t, 6, b.UsedDays)
	assert.Equal(t, 0, b.PendingDays)
}
