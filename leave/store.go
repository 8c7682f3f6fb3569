/*
store.go - Persistence interface for requests and balances

PURPOSE:
  Defines the boundary between the engine and wherever requests and
  balances live. The engine only ever talks to these interfaces; the
  in-memory store (leave/store) and the SQLite store (store/sqlite) are
  interchangeable.

KEY INTERFACES:
  RequestStore: insert, update status fields, get, list
  BalanceStore: read and write per (requester, leave type) counters
  TxStore:      both of the above plus WithTx for all-or-nothing writes

ATOMICITY:
  Create touches a request and a balance; Transition touches a request and
  a balance. Both run inside WithTx so a failure halfway leaves nothing
  behind. WithTx implementations also serialize writers, which is what
  keeps reserve/commit/release read-modify-write cycles from interleaving.

NOT FOUND CONVENTION:
  GetRequest and GetBalance return (nil, nil) when the record does not
  exist. The service decides whether that is an error.

SEE ALSO:
  - leave/store/memory.go: In-memory implementation
  - store/sqlite/sqlite.go: SQLite implementation
*/
package leave

import "context"

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RequestStore persists leave requests.
type RequestStore interface {
	// InsertRequest adds a new request. Fails if the id already exists.
	InsertRequest(ctx context.Context, r LeaveRequest) error

	// UpdateRequest overwrites status, processed time and admin comments.
	// Other fields are immutable and ignored.
	UpdateRequest(ctx context.Context, r LeaveRequest) error

	// GetRequest returns (nil, nil) when id is unknown.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// ListRequests returns every request, most recently created first.
	ListRequests(ctx context.Context) ([]LeaveRequest, error)
}

// BalanceStore persists balance counters.
type BalanceStore interface {
	// GetBalance returns (nil, nil) when no balance was provisioned.
	GetBalance(ctx context.Context, requesterID string, leaveType LeaveType) (*Balance, error)

	// SaveBalance inserts or replaces the counters for the pair.
	SaveBalance(ctx context.Context, b Balance) error

	// ListBalances returns all balances for a requester ordered by leave type.
	ListBalances(ctx context.Context, requesterID string) ([]Balance, error)
}

// Store is the full persistence surface.
type Store interface {
	RequestStore
	BalanceStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Store passed to fn
	// is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Resetter is implemented by stores that can be wiped (demo scenarios).
type Resetter interface {
	Reset(ctx context.Context) error
}
