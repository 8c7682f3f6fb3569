/*
Package sqlite provides a SQLite-backed implementation of the leave storage
interfaces.

PURPOSE:
  Implements leave.TxStore (requests + balances) on SQLite so that requests
  and ledger counters survive restarts. The in-memory store in leave/store
  has the same behavior and is what the tests use by default.

INTERFACES IMPLEMENTED:
  leave.RequestStore: Request records
  leave.BalanceStore: Per (requester, leave type) counters
  leave.TxStore:      Both, plus WithTx
  leave.Resetter:     Drops all rows (for demo scenarios)

KEY TABLES:
  leave_requests: One row per request. seq keeps insertion order, so
                  "newest first" is ORDER BY seq DESC.
  leave_balances: One row per (requester_id, leave_type). A CHECK constraint
                  refuses negative counters and used+pending > allocated.

WRITABLE COLUMNS:
  After insert only status, processed_at and admin_comments are ever
  updated. Every other column is fixed at submission.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single pooled connection so an
  in-memory database is shared by every query. WithTx holds the write lock
  for the whole transaction; every read inside it goes through the *sql.Tx.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store)

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/leave-engine/leave"
)

// Store implements the leave storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_requests (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		requester_id TEXT NOT NULL,
		requester_name TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		requested_days INTEGER NOT NULL,
		reason TEXT NOT NULL,
		emergency_contact TEXT NOT NULL,
		priority TEXT NOT NULL,
		is_urgent BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		processed_at TEXT,
		admin_comments TEXT NOT NULL DEFAULT '',
		documents_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_requester
		ON leave_requests(requester_id);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS leave_balances (
		requester_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		total_allocated INTEGER NOT NULL,
		used_days INTEGER NOT NULL DEFAULT 0,
		pending_days INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (requester_id, leave_type),
		CHECK (total_allocated >= 0 AND used_days >= 0 AND pending_days >= 0),
		CHECK (used_days + pending_days <= total_allocated)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

const requestColumns = `
	id, requester_id, requester_name, department, leave_type, start_date, end_date,
	requested_days, reason, emergency_contact, priority, is_urgent, status,
	submitted_at, processed_at, admin_comments, documents_json`

// InsertRequest stores a new request.
func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, r)
}

func insertRequest(ctx context.Context, db querier, r leave.LeaveRequest) error {
	var docs sql.NullString
	if r.Documents != nil {
		b, err := json.Marshal(r.Documents)
		if err != nil {
			return fmt.Errorf("failed to encode documents: %w", err)
		}
		docs = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO leave_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, query,
		string(r.ID), r.RequesterID, r.RequesterName, r.Department, string(r.LeaveType),
		r.StartDate.String(), r.EndDate.String(), r.RequestedDays,
		r.Reason, r.EmergencyContact, string(r.Priority), r.IsUrgent, string(r.Status),
		r.SubmittedAt.UTC().Format(time.RFC3339Nano), formatTime(r.ProcessedAt),
		r.AdminComments, docs,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("duplicate request id %s", r.ID)
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// UpdateRequest writes the transition fields of an existing request.
func (s *Store) UpdateRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequest(ctx, s.db, r)
}

func updateRequest(ctx context.Context, db querier, r leave.LeaveRequest) error {
	res, err := db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, processed_at = COALESCE(?, processed_at), admin_comments = ?
		WHERE id = ?`,
		string(r.Status), formatTime(r.ProcessedAt), r.AdminComments, string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{ID: r.ID}
	}
	return nil
}

// GetRequest retrieves a request by ID. Returns nil, nil if it does not exist.
func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, db querier, id leave.RequestID) (*leave.LeaveRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRequest(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRequests returns all requests, newest first.
func (s *Store) ListRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db)
}

func listRequests(ctx context.Context, db querier) ([]leave.LeaveRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]leave.LeaveRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRequest(rows *sql.Rows) (leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var id, leaveType, priority, status string
	var startDate, endDate, submittedAt string
	var processedAt, docs sql.NullString

	err := rows.Scan(
		&id, &r.RequesterID, &r.RequesterName, &r.Department, &leaveType,
		&startDate, &endDate, &r.RequestedDays, &r.Reason, &r.EmergencyContact,
		&priority, &r.IsUrgent, &status, &submittedAt, &processedAt,
		&r.AdminComments, &docs,
	)
	if err != nil {
		return r, err
	}

	r.ID = leave.RequestID(id)
	r.LeaveType = leave.LeaveType(leaveType)
	r.Priority = leave.Priority(priority)
	r.Status = leave.Status(status)

	if r.StartDate, err = parseDate(startDate); err != nil {
		return r, err
	}
	if r.EndDate, err = parseDate(endDate); err != nil {
		return r, err
	}
	if r.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
		return r, fmt.Errorf("bad submitted_at %q: %w", submittedAt, err)
	}
	if processedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, processedAt.String)
		if err != nil {
			return r, fmt.Errorf("bad processed_at %q: %w", processedAt.String, err)
		}
		r.ProcessedAt = &t
	}
	if docs.Valid {
		if err := json.Unmarshal([]byte(docs.String), &r.Documents); err != nil {
			return r, fmt.Errorf("bad documents_json: %w", err)
		}
	}
	return r, nil
}

// =============================================================================
// BALANCE STORE (leave.BalanceStore interface)
// =============================================================================

// GetBalance returns the counters of one pair, or nil, nil if never saved.
func (s *Store) GetBalance(ctx context.Context, requesterID string, leaveType leave.LeaveType) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, requesterID, leaveType)
}

func getBalance(ctx context.Context, db querier, requesterID string, leaveType leave.LeaveType) (*leave.Balance, error) {
	b := leave.Balance{RequesterID: requesterID, LeaveType: leaveType}
	err := db.QueryRowContext(ctx, `
		SELECT total_allocated, used_days, pending_days
		FROM leave_balances WHERE requester_id = ? AND leave_type = ?`,
		requesterID, string(leaveType),
	).Scan(&b.TotalAllocated, &b.UsedDays, &b.PendingDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBalance upserts the counters of one pair.
func (s *Store) SaveBalance(ctx context.Context, b leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBalance(ctx, s.db, b)
}

func saveBalance(ctx context.Context, db querier, b leave.Balance) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO leave_balances
			(requester_id, leave_type, total_allocated, used_days, pending_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(requester_id, leave_type) DO UPDATE SET
			total_allocated = excluded.total_allocated,
			used_days = excluded.used_days,
			pending_days = excluded.pending_days,
			updated_at = excluded.updated_at`,
		b.RequesterID, string(b.LeaveType), b.TotalAllocated, b.UsedDays, b.PendingDays,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err) {
			return &leave.InconsistentStateError{Detail: fmt.Sprintf(
				"balance %s/%s rejected by store: %v", b.RequesterID, b.LeaveType, err)}
		}
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// ListBalances returns every balance of a requester ordered by leave type.
func (s *Store) ListBalances(ctx context.Context, requesterID string) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalances(ctx, s.db, requesterID)
}

func listBalances(ctx context.Context, db querier, requesterID string) ([]leave.Balance, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT leave_type, total_allocated, used_days, pending_days
		FROM leave_balances WHERE requester_id = ? ORDER BY leave_type`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]leave.Balance, 0)
	for rows.Next() {
		b := leave.Balance{RequesterID: requesterID}
		var lt string
		if err := rows.Scan(&lt, &b.TotalAllocated, &b.UsedDays, &b.PendingDays); err != nil {
			return nil, err
		}
		b.LeaveType = leave.LeaveType(lt)
		result = append(result, b)
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	return insertRequest(ctx, ts.tx, r)
}

func (ts *txStore) UpdateRequest(ctx context.Context, r leave.LeaveRequest) error {
	return updateRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) ListRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	return listRequests(ctx, ts.tx)
}

func (ts *txStore) GetBalance(ctx context.Context, requesterID string, leaveType leave.LeaveType) (*leave.Balance, error) {
	return getBalance(ctx, ts.tx, requesterID, leaveType)
}

func (ts *txStore) SaveBalance(ctx context.Context, b leave.Balance) error {
	return saveBalance(ctx, ts.tx, b)
}

func (ts *txStore) ListBalances(ctx context.Context, requesterID string) ([]leave.Balance, error) {
	return listBalances(ctx, ts.tx, requesterID)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"leave_requests", "leave_balances"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ leave.TxStore  = (*Store)(nil)
	_ leave.Resetter = (*Store)(nil)
)

// Helper functions

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseDate(s string) (leave.Date, error) {
	if s == "" {
		return leave.Date{}, nil
	}
	t, err := time.Parse(leave.DateLayout, s)
	if err != nil {
		return leave.Date{}, fmt.Errorf("stored date %q: %w", s, err)
	}
	return leave.DateOf(t), nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
