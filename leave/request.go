/*
request.go - Leave request lifecycle

PURPOSE:
  The Service is the only way a leave request enters the store or changes
  status. It ties validation, the balance ledger and the store together
  and guarantees each operation is all-or-nothing.

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  Candidate ──▶ Validate ──▶ Reserve days ──▶ Insert (PENDING)    │
  │                                                   │              │
  │                               ┌───────────────────┴──────┐       │
  │                               ▼                          ▼       │
  │                        ┌──────────┐               ┌──────────┐   │
  │                        │ APPROVED │──▶ Commit     │ REJECTED │──▶ Release
  │                        └──────────┘               └──────────┘   │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

STATE MACHINE:
  PENDING --approve--> APPROVED (terminal)
  PENDING --reject---> REJECTED (terminal)
  Anything else fails with InvalidTransitionError and changes nothing.

INJECTED COLLABORATORS:
  now():   time source for SubmittedAt/ProcessedAt (default time.Now)
  newID(): id generator (default random UUID)
  logger:  zap logger (default no-op)

EXAMPLE:
  svc := leave.NewService(store.NewTxMemory(), leave.WithLogger(logger))
  req, err := svc.Create(ctx, candidate)
  req, err = svc.Approve(ctx, req.ID, "enjoy")

SEE ALSO:
  - validation.go: Validate
  - balance.go: Ledger
  - store.go: TxStore
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  TxStore
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the request id generator. Ids must be unique.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns a ledger over the service's store, for read paths and
// balance provisioning.
func (s *Service) Ledger() *Ledger {
	return NewLedger(s.store)
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates the candidate, reserves its days and stores it as
// PENDING. Validation and reservation see the same balance snapshot because
// both run inside one transaction.
func (s *Service) Create(ctx context.Context, c Candidate) (*LeaveRequest, error) {
	var created LeaveRequest

	err := s.store.WithTx(ctx, func(tx Store) error {
		ledger := NewLedger(tx)

		sub, err := Validate(c, ledger.Lookup(ctx, strings.TrimSpace(c.RequesterID)))
		if err != nil {
			return err
		}

		if err := ledger.Reserve(ctx, sub.RequesterID, sub.LeaveType, sub.RequestedDays); err != nil {
			return err
		}

		created = LeaveRequest{
			ID:               RequestID(s.newID()),
			RequesterID:      sub.RequesterID,
			RequesterName:    sub.RequesterName,
			Department:       sub.Department,
			LeaveType:        sub.LeaveType,
			StartDate:        sub.StartDate,
			EndDate:          sub.EndDate,
			RequestedDays:    sub.RequestedDays,
			Reason:           sub.Reason,
			EmergencyContact: sub.EmergencyContact,
			Priority:         sub.Priority,
			IsUrgent:         sub.IsUrgent,
			Status:           StatusPending,
			SubmittedAt:      s.now(),
			Documents:        sub.Documents,
		}
		if err := tx.InsertRequest(ctx, created); err != nil {
			return fmt.Errorf("failed to store request: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Info("leave request rejected at submission",
			zap.String("requester_id", c.RequesterID),
			zap.String("leave_type", string(c.LeaveType)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("leave request created",
		zap.String("request_id", string(created.ID)),
		zap.String("requester_id", created.RequesterID),
		zap.String("leave_type", string(created.LeaveType)),
		zap.Int("days", created.RequestedDays),
		zap.Bool("urgent", created.IsUrgent))

	out := created.Clone()
	return &out, nil
}

// =============================================================================
// TRANSITION
// =============================================================================

// Transition moves a PENDING request to APPROVED or REJECTED, stamps the
// processing time and comments, and settles the reserved days.
func (s *Service) Transition(ctx context.Context, id RequestID, to Status, comments string) (*LeaveRequest, error) {
	var updated LeaveRequest

	err := s.store.WithTx(ctx, func(tx Store) error {
		current, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return &NotFoundError{ID: id}
		}
		if current.Status != StatusPending || !to.IsTerminal() {
			return &InvalidTransitionError{ID: id, Current: current.Status, Attempted: to}
		}

		ledger := NewLedger(tx)
		switch to {
		case StatusApproved:
			err = ledger.Commit(ctx, current.RequesterID, current.LeaveType, current.RequestedDays)
		case StatusRejected:
			err = ledger.Release(ctx, current.RequesterID, current.LeaveType, current.RequestedDays)
		}
		if err != nil {
			return err
		}

		at := s.now()
		updated = current.Clone()
		updated.Status = to
		updated.ProcessedAt = &at
		updated.AdminComments = comments

		if err := tx.UpdateRequest(ctx, updated); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("leave request transition failed",
			zap.String("request_id", string(id)),
			zap.String("to", string(to)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("leave request processed",
		zap.String("request_id", string(updated.ID)),
		zap.String("status", string(updated.Status)),
		zap.Int("days", updated.RequestedDays))

	out := updated.Clone()
	return &out, nil
}

func (s *Service) Approve(ctx context.Context, id RequestID, comments string) (*LeaveRequest, error) {
	return s.Transition(ctx, id, StatusApproved, comments)
}

func (s *Service) Reject(ctx context.Context, id RequestID, comments string) (*LeaveRequest, error) {
	return s.Transition(ctx, id, StatusRejected, comments)
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Get(ctx context.Context, id RequestID) (*LeaveRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &NotFoundError{ID: id}
	}
	out := r.Clone()
	return &out, nil
}

// List returns all requests, newest first.
func (s *Service) List(ctx context.Context) ([]LeaveRequest, error) {
	return s.store.ListRequests(ctx)
}

// ListByRequester returns one requester's requests, newest first.
func (s *Service) ListByRequester(ctx context.Context, requesterID string) ([]LeaveRequest, error) {
	all, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]LeaveRequest, 0)
	for _, r := range all {
		if r.RequesterID == requesterID {
			result = append(result, r)
		}
	}
	return result, nil
}
