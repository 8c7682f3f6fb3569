// Package store provides in-memory leave.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	requests map[leave.RequestID]leave.LeaveRequest
	order    []leave.RequestID // insertion order
	balances map[key]leave.Balance
}

type key struct {
	RequesterID string
	LeaveType   leave.LeaveType
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[leave.RequestID]leave.LeaveRequest),
		balances: make(map[key]leave.Balance),
	}
}

func (m *Memory) InsertRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(r)
}

func (m *Memory) insertLocked(r leave.LeaveRequest) error {
	if _, exists := m.requests[r.ID]; exists {
		return fmt.Errorf("duplicate request id %s", r.ID)
	}
	m.requests[r.ID] = r.Clone()
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Memory) UpdateRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(r)
}

func (m *Memory) updateLocked(r leave.LeaveRequest) error {
	existing, ok := m.requests[r.ID]
	if !ok {
		return &leave.NotFoundError{ID: r.ID}
	}
	// Only the transition fields are writable.
	existing.Status = r.Status
	existing.AdminComments = r.AdminComments
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		existing.ProcessedAt = &t
	}
	m.requests[r.ID] = existing
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Memory) getLocked(id leave.RequestID) *leave.LeaveRequest {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	c := r.Clone()
	return &c
}

// ListRequests returns requests newest first.
func (m *Memory) ListRequests(_ context.Context) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(), nil
}

func (m *Memory) listLocked() []leave.LeaveRequest {
	result := make([]leave.LeaveRequest, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, m.requests[m.order[i]].Clone())
	}
	return result
}

func (m *Memory) GetBalance(_ context.Context, requesterID string, leaveType leave.LeaveType) (*leave.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBalanceLocked(requesterID, leaveType), nil
}

func (m *Memory) getBalanceLocked(requesterID string, leaveType leave.LeaveType) *leave.Balance {
	b, ok := m.balances[key{RequesterID: requesterID, LeaveType: leaveType}]
	if !ok {
		return nil
	}
	return &b
}

func (m *Memory) SaveBalance(_ context.Context, b leave.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveBalanceLocked(b)
	return nil
}

func (m *Memory) saveBalanceLocked(b leave.Balance) {
	m.balances[key{RequesterID: b.RequesterID, LeaveType: b.LeaveType}] = b
}

func (m *Memory) ListBalances(_ context.Context, requesterID string) ([]leave.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBalancesLocked(requesterID), nil
}

func (m *Memory) listBalancesLocked(requesterID string) []leave.Balance {
	result := make([]leave.Balance, 0)
	for k, b := range m.balances {
		if k.RequesterID == requesterID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LeaveType < result[j].LeaveType })
	return result
}

// Reset drops all requests and balances.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[leave.RequestID]leave.LeaveRequest)
	m.order = nil
	m.balances = make(map[key]leave.Balance)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole of fn, so transactions are serial.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests map[leave.RequestID]leave.LeaveRequest
	order    []leave.RequestID
	balances map[key]leave.Balance
}

func (tm *TxMemory) snapshot() memorySnapshot {
	reqs := make(map[leave.RequestID]leave.LeaveRequest, len(tm.requests))
	for k, v := range tm.requests {
		reqs[k] = v.Clone()
	}
	bals := make(map[key]leave.Balance, len(tm.balances))
	for k, v := range tm.balances {
		bals[k] = v
	}
	return memorySnapshot{
		requests: reqs,
		order:    append([]leave.RequestID(nil), tm.order...),
		balances: bals,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.requests = s.requests
	tm.order = s.order
	tm.balances = s.balances
}

// txMemoryView runs against the parent's maps without locking; the parent
// already holds the write lock for the duration of the transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) InsertRequest(_ context.Context, r leave.LeaveRequest) error {
	return tv.parent.insertLocked(r)
}

func (tv *txMemoryView) UpdateRequest(_ context.Context, r leave.LeaveRequest) error {
	return tv.parent.updateLocked(r)
}

func (tv *txMemoryView) GetRequest(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	return tv.parent.getLocked(id), nil
}

func (tv *txMemoryView) ListRequests(_ context.Context) ([]leave.LeaveRequest, error) {
	return tv.parent.listLocked(), nil
}

func (tv *txMemoryView) GetBalance(_ context.Context, requesterID string, leaveType leave.LeaveType) (*leave.Balance, error) {
	return tv.parent.getBalanceLocked(requesterID, leaveType), nil
}

func (tv *txMemoryView) SaveBalance(_ context.Context, b leave.Balance) error {
	tv.parent.saveBalanceLocked(b)
	return nil
}

func (tv *txMemoryView) ListBalances(_ context.Context, requesterID string) ([]leave.Balance, error) {
	return tv.parent.listBalancesLocked(requesterID), nil
}

var (
	_ leave.TxStore  = (*TxMemory)(nil)
	_ leave.Resetter = (*TxMemory)(nil)
)
