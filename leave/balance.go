/*
balance.go - Balance ledger: allocated, used, pending and available days

PURPOSE:
  Answers "how many days can this student still request?" and keeps the
  counters honest while requests move through their lifecycle.

BALANCE COMPONENTS:
  TotalAllocated: Days granted for the term (provisioned externally)
  UsedDays:       Days of approved requests
  PendingDays:    Days held by requests awaiting a decision
  AvailableDays:  TotalAllocated - UsedDays - PendingDays (derived, never stored)

LIFECYCLE:
  create   -> Reserve: pending += days
  approve  -> Commit:  pending -= days, used += days
  reject   -> Release: pending -= days

MISSING BALANCES:
  A (requester, leave type) pair that was never provisioned behaves as a
  zero balance: nothing available, so any reservation fails with
  InsufficientBalanceError. Commit and Release on such a pair report
  InconsistentStateError because nothing can be pending there.

SEE ALSO:
  - store.go: BalanceStore interface
  - request.go: Calls Reserve/Commit/Release inside a transaction
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// LowBalanceThreshold marks balances the dashboard flags as running low.
const LowBalanceThreshold = 2

// =============================================================================
// BALANCE
// =============================================================================

// Balance holds the counters for one requester and leave type.
type Balance struct {
	RequesterID    string
	LeaveType      LeaveType
	TotalAllocated int
	UsedDays       int
	PendingDays    int
}

// AvailableDays is what can still be requested.
func (b Balance) AvailableDays() int {
	return b.TotalAllocated - b.UsedDays - b.PendingDays
}

// UsagePercent is used/allocated as a percentage with one decimal place.
// Zero allocation yields zero.
func (b Balance) UsagePercent() decimal.Decimal {
	return percentOf(b.UsedDays, b.TotalAllocated)
}

// IsLow reports whether the balance should be flagged on the dashboard.
func (b Balance) IsLow() bool {
	return b.AvailableDays() <= LowBalanceThreshold
}

func (b Balance) check() error {
	if b.TotalAllocated < 0 || b.UsedDays < 0 || b.PendingDays < 0 {
		return &InconsistentStateError{Detail: fmt.Sprintf(
			"negative counter for %s/%s: total=%d used=%d pending=%d",
			b.RequesterID, b.LeaveType, b.TotalAllocated, b.UsedDays, b.PendingDays)}
	}
	if b.AvailableDays() < 0 {
		return &InconsistentStateError{Detail: fmt.Sprintf(
			"used+pending exceeds allocation for %s/%s", b.RequesterID, b.LeaveType)}
	}
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies the balance rules on top of a BalanceStore.
type Ledger struct {
	store BalanceStore
}

func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

// Balance returns the counters for a pair; a missing pair is all zeros.
func (l *Ledger) Balance(ctx context.Context, requesterID string, leaveType LeaveType) (Balance, error) {
	b, err := l.store.GetBalance(ctx, requesterID, leaveType)
	if err != nil {
		return Balance{}, err
	}
	if b == nil {
		return Balance{RequesterID: requesterID, LeaveType: leaveType}, nil
	}
	return *b, nil
}

// Balances lists every provisioned balance of a requester.
func (l *Ledger) Balances(ctx context.Context, requesterID string) ([]Balance, error) {
	return l.store.ListBalances(ctx, requesterID)
}

func (l *Ledger) AvailableDays(ctx context.Context, requesterID string, leaveType LeaveType) (int, error) {
	b, err := l.Balance(ctx, requesterID, leaveType)
	if err != nil {
		return 0, err
	}
	return b.AvailableDays(), nil
}

// Lookup binds the ledger to one requester for Validate.
func (l *Ledger) Lookup(ctx context.Context, requesterID string) BalanceLookup {
	return func(leaveType LeaveType) (int, error) {
		return l.AvailableDays(ctx, requesterID, leaveType)
	}
}

// Provision installs externally allocated counters (e.g. at term start).
func (l *Ledger) Provision(ctx context.Context, b Balance) error {
	if b.RequesterID == "" || b.LeaveType == "" {
		return fmt.Errorf("provision balance: requester and leave type are required")
	}
	if err := b.check(); err != nil {
		return err
	}
	return l.store.SaveBalance(ctx, b)
}

// Reserve holds days for a pending request.
func (l *Ledger) Reserve(ctx context.Context, requesterID string, leaveType LeaveType, days int) error {
	if days < 0 {
		return &InconsistentStateError{Detail: fmt.Sprintf("cannot reserve %d days", days)}
	}
	b, err := l.Balance(ctx, requesterID, leaveType)
	if err != nil {
		return err
	}
	if days > b.AvailableDays() {
		return &InsufficientBalanceError{
			RequesterID: requesterID,
			LeaveType:   leaveType,
			Available:   b.AvailableDays(),
			Requested:   days,
		}
	}
	b.PendingDays += days
	return l.store.SaveBalance(ctx, b)
}

// Commit converts held days into used days.
func (l *Ledger) Commit(ctx context.Context, requesterID string, leaveType LeaveType, days int) error {
	b, err := l.pendingAtLeast(ctx, requesterID, leaveType, days)
	if err != nil {
		return err
	}
	b.PendingDays -= days
	b.UsedDays += days
	return l.store.SaveBalance(ctx, b)
}

// Release returns held days to the available pool.
func (l *Ledger) Release(ctx context.Context, requesterID string, leaveType LeaveType, days int) error {
	b, err := l.pendingAtLeast(ctx, requesterID, leaveType, days)
	if err != nil {
		return err
	}
	b.PendingDays -= days
	return l.store.SaveBalance(ctx, b)
}

func (l *Ledger) pendingAtLeast(ctx context.Context, requesterID string, leaveType LeaveType, days int) (Balance, error) {
	if days < 0 {
		return Balance{}, &InconsistentStateError{Detail: fmt.Sprintf("cannot settle %d days", days)}
	}
	b, err := l.store.GetBalance(ctx, requesterID, leaveType)
	if err != nil {
		return Balance{}, err
	}
	if b == nil {
		return Balance{}, &InconsistentStateError{Detail: fmt.Sprintf(
			"no balance for %s/%s", requesterID, leaveType)}
	}
	if b.PendingDays < days {
		return Balance{}, &InconsistentStateError{Detail: fmt.Sprintf(
			"%s/%s has %d pending days, cannot settle %d", requesterID, leaveType, b.PendingDays, days)}
	}
	return *b, nil
}
