/*
handlers.go - HTTP API handlers for the leave request engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the leave package.

ENDPOINTS:
  Requests:
    GET    /api/requests                     List (filter: search, status, department, priority)
    POST   /api/requests                     Submit a leave request
    GET    /api/requests/pending             Pending queue split into urgent / normal
    GET    /api/requests/{id}                Request details
    POST   /api/requests/{id}/approve        Approve (body: {"comments": ...}, optional)
    POST   /api/requests/{id}/reject         Reject (same body)
    POST   /api/requests/{id}/transition     Generic transition ({"status", "comments"})

  Requesters:
    GET    /api/requesters/{id}/requests     One requester's requests
    GET    /api/requesters/{id}/balances     One requester's balances
    GET    /api/requesters/{id}/summary      Student dashboard counters

  Balances:
    PUT    /api/balances                     Provision a balance

  Analytics:
    GET    /api/analytics                    Dashboard report
    GET    /api/analytics/export             Same report as an xlsx workbook

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: leave.Service (create / transition / queries)
  - Store:   the same store, for scenario resets
  - History: monthly series for the analytics dashboard

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, unknown scenario
  - 404: Request not found
  - 409: Invalid transition, inconsistent ledger state
  - 422: Validation failures and insufficient balance, with field_errors
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.Service
	Store   leave.TxStore
	History *leave.History
	Logger  *zap.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the given store. Service options are
// passed through, e.g. a fixed clock in tests.
func NewHandler(store leave.TxStore, history *leave.History, logger *zap.Logger, opts ...leave.Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if history == nil {
		history = leave.NewHistory(nil)
	}
	opts = append([]leave.Option{leave.WithLogger(logger)}, opts...)
	return &Handler{
		Service:  leave.NewService(store, opts...),
		Store:    store,
		History:  history,
		Logger:   logger,
		validate: newValidator(),
	}
}

// =============================================================================
// REQUEST ENDPOINTS
// =============================================================================

// ListRequests returns all requests matching the filter, newest first.
// GET /api/requests?search=&status=&department=&priority=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.List(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list requests", err)
		return
	}

	filtered := leave.Filter(requests, ParseCriteria(r.URL.Query()))
	writeJSON(w, http.StatusOK, map[string]any{"requests": toRequestDTOs(filtered)})
}

// CreateRequest validates and submits a leave request.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := h.checkDTO(req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	created, err := h.Service.Create(r.Context(), req.toCandidate())
	if err != nil {
		h.respondError(w, "Failed to create request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// ListPendingRequests returns the pending queue, urgent first.
// GET /api/requests/pending?search=&department=&priority=
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.List(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list requests", err)
		return
	}

	criteria := ParseCriteria(r.URL.Query())
	criteria.Status = leave.StatusPending
	urgent, normal := leave.PartitionByUrgency(leave.Filter(requests, criteria))

	writeJSON(w, http.StatusOK, PendingResponse{
		Urgent: toRequestDTOs(urgent),
		Normal: toRequestDTOs(normal),
	})
}

// GetRequest returns one request.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	req, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "Failed to get request", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// ApproveRequest approves a pending request.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StatusApproved)
}

// RejectRequest rejects a pending request.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StatusRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, to leave.Status) {
	var req DecisionRequest
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := h.checkDTO(req); fields != nil {
		writeValidationError(w, fields)
		return
	}
	h.transition(w, r, to, req.Comments)
}

// TransitionRequest moves a pending request to the status in the body.
// POST /api/requests/{id}/transition
func (h *Handler) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if fields := h.checkDTO(req); fields != nil {
		writeValidationError(w, fields)
		return
	}
	h.transition(w, r, leave.Status(req.Status), req.Comments)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to leave.Status, comments string) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	updated, err := h.Service.Transition(r.Context(), id, to, comments)
	if err != nil {
		h.respondError(w, "Failed to update request", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// REQUESTER ENDPOINTS
// =============================================================================

// ListRequesterRequests returns one requester's requests, newest first.
// GET /api/requesters/{id}/requests
func (h *Handler) ListRequesterRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.ListByRequester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "Failed to list requests", err)
		return
	}

	filtered := leave.Filter(requests, ParseCriteria(r.URL.Query()))
	writeJSON(w, http.StatusOK, map[string]any{"requests": toRequestDTOs(filtered)})
}

// GetRequesterBalances returns every provisioned balance of a requester.
// GET /api/requesters/{id}/balances
func (h *Handler) GetRequesterBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Service.Ledger().Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "Failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balances": toBalanceDTOs(balances)})
}

// GetRequesterSummary returns the student dashboard counters.
// GET /api/requesters/{id}/summary
func (h *Handler) GetRequesterSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requesterID := chi.URLParam(r, "id")

	requests, err := h.Service.ListByRequester(ctx, requesterID)
	if err != nil {
		h.respondError(w, "Failed to list requests", err)
		return
	}
	balances, err := h.Service.Ledger().Balances(ctx, requesterID)
	if err != nil {
		h.respondError(w, "Failed to get balances", err)
		return
	}

	s := leave.SummarizeRequester(requests, balances)
	low := make([]string, 0, len(s.LowTypes))
	for _, lt := range s.LowTypes {
		low = append(low, string(lt))
	}

	writeJSON(w, http.StatusOK, RequesterSummaryDTO{
		RequesterID:     requesterID,
		Counts:          toCountsDTO(s.Counts),
		TotalDaysTaken:  s.TotalDays,
		Balances:        toBalanceDTOs(s.Balances),
		LowBalanceTypes: low,
	})
}

// =============================================================================
// BALANCE ENDPOINTS
// =============================================================================

// ProvisionBalance installs allocated/used/pending counters for a pair.
// PUT /api/balances
func (h *Handler) ProvisionBalance(w http.ResponseWriter, r *http.Request) {
	var req ProvisionBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := h.checkDTO(req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	b := leave.Balance{
		RequesterID:    strings.TrimSpace(req.RequesterID),
		LeaveType:      leave.LeaveType(strings.TrimSpace(req.LeaveType)),
		TotalAllocated: req.TotalAllocated,
		UsedDays:       req.UsedDays,
		PendingDays:    req.PendingDays,
	}
	if err := h.Service.Ledger().Provision(r.Context(), b); err != nil {
		if errors.Is(err, leave.ErrInconsistentState) {
			writeValidationError(w, map[string]string{
				"pendingDays": "Used and pending days cannot exceed the allocation",
			})
			return
		}
		h.respondError(w, "Failed to provision balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// =============================================================================
// ANALYTICS ENDPOINTS
// =============================================================================

// GetAnalytics returns the analytics dashboard report over all requests.
// GET /api/analytics
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r)
	if err != nil {
		h.respondError(w, "Failed to build analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalyticsDTO(rep))
}

// ExportAnalytics streams the analytics report as an xlsx workbook.
// GET /api/analytics/export
func (h *Handler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r)
	if err != nil {
		h.respondError(w, "Failed to build analytics", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, rep); err != nil {
		h.respondError(w, "Failed to export analytics", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leave-analytics.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) report(r *http.Request) (leave.Report, error) {
	requests, err := h.Service.List(r.Context())
	if err != nil {
		return leave.Report{}, err
	}
	return leave.Summarize(requests, h.History.Buckets()), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseCriteria reads the filter query parameters. Missing parameters and
// "ALL" leave their dimension unconstrained.
func ParseCriteria(q url.Values) leave.Criteria {
	return leave.Criteria{
		SearchText: q.Get("search"),
		Status:     leave.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Department: strings.TrimSpace(q.Get("department")),
		Priority:   leave.Priority(strings.ToUpper(strings.TrimSpace(q.Get("priority")))),
	}
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// respondError maps leave errors to HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	var verr *leave.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:       "Validation failed",
			Details:     err.Error(),
			FieldErrors: verr.FieldErrors,
		})
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Request not found", err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:       "Validation failed",
		FieldErrors: fields,
	})
}

func strPtr(s string) *string {
	return &s
}
