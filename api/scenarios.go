/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with the sample
	records the dashboards were designed around. Each scenario provisions
	balances and submits requests through leave.Service, so every record
	went through validation and the ledger like a real submission.

AVAILABLE SCENARIOS:

	admin-sample:   Three students, two pending requests and one approved
	student-sample: One student with all six leave balances and a history

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Provision balances via Ledger.Provision
 3. Submit requests via Service.Create with a clock pinned to the
    recorded submission time
 4. Approve or reject some of them via Service.Transition

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "admin-sample"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a scenarioScript to 'scripts' under the same ID

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
  - cmd/server/main.go: seed.scenario loads one at startup
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// ErrUnknownScenario is returned for a scenario id that is not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "admin-sample",
		Name:        "Admin Sample",
		Description: "Three students: two pending requests (one urgent) and one approved medical leave",
		Category:    "admin",
	},
	{
		ID:          "student-sample",
		Name:        "Student Sample",
		Description: "One student with balances for every leave type, one approved and one pending request",
		Category:    "student",
	},
}

// seedRequest is one submission of a scenario, optionally decided later.
type seedRequest struct {
	candidate   leave.Candidate
	submittedAt time.Time

	decision    leave.Status // empty: stays PENDING
	processedAt time.Time
	comments    string
}

type scenarioScript struct {
	balances []leave.Balance
	requests []seedRequest // in submission order
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

var scripts = map[string]scenarioScript{
	"admin-sample": {
		balances: []leave.Balance{
			{RequesterID: "STU001", LeaveType: leave.TypeSick, TotalAllocated: 12, UsedDays: 3},
			{RequesterID: "STU002", LeaveType: leave.TypePersonal, TotalAllocated: 5},
			{RequesterID: "STU003", LeaveType: leave.TypeMedical, TotalAllocated: 10},
		},
		requests: []seedRequest{
			{
				candidate: leave.Candidate{
					RequesterID:      "STU003",
					RequesterName:    "Mike Johnson",
					Department:       "Physics",
					LeaveType:        leave.TypeMedical,
					StartDate:        leave.NewDate(2024, time.July, 8),
					EndDate:          leave.NewDate(2024, time.July, 10),
					Reason:           "Surgery recovery",
					EmergencyContact: "+1-555-0103",
					Documents:        []string{"surgery_report.pdf"},
				},
				submittedAt: at(2024, time.July, 5, 9),
				decision:    leave.StatusApproved,
				processedAt: at(2024, time.July, 5, 15),
				comments:    "Approved with medical documentation",
			},
			{
				candidate: leave.Candidate{
					RequesterID:      "STU001",
					RequesterName:    "John Doe",
					Department:       "Computer Science",
					LeaveType:        leave.TypeSick,
					StartDate:        leave.NewDate(2024, time.July, 15),
					EndDate:          leave.NewDate(2024, time.July, 17),
					Reason:           "Medical appointment and recovery",
					EmergencyContact: "+1-555-0101",
					Priority:         leave.PriorityHigh,
					IsUrgent:         true,
				},
				submittedAt: at(2024, time.July, 10, 10),
			},
			{
				candidate: leave.Candidate{
					RequesterID:      "STU002",
					RequesterName:    "Jane Smith",
					Department:       "Mathematics",
					LeaveType:        leave.TypePersonal,
					StartDate:        leave.NewDate(2024, time.July, 20),
					EndDate:          leave.NewDate(2024, time.July, 20),
					Reason:           "Family emergency",
					EmergencyContact: "+1-555-0102",
				},
				submittedAt: at(2024, time.July, 12, 11),
			},
		},
	},
	"student-sample": {
		balances: []leave.Balance{
			{RequesterID: "STU001", LeaveType: leave.TypeSick, TotalAllocated: 12},
			{RequesterID: "STU001", LeaveType: leave.TypePersonal, TotalAllocated: 5, UsedDays: 1},
			{RequesterID: "STU001", LeaveType: leave.TypeEmergency, TotalAllocated: 3},
			{RequesterID: "STU001", LeaveType: leave.TypeMedical, TotalAllocated: 10, UsedDays: 2},
			{RequesterID: "STU001", LeaveType: leave.TypeFamily, TotalAllocated: 5, UsedDays: 3},
			{RequesterID: "STU001", LeaveType: leave.TypeAcademic, TotalAllocated: 7},
		},
		requests: []seedRequest{
			{
				candidate: leave.Candidate{
					RequesterID:      "STU001",
					RequesterName:    "John Doe",
					Department:       "Computer Science",
					LeaveType:        leave.TypeSick,
					StartDate:        leave.NewDate(2024, time.July, 15),
					EndDate:          leave.NewDate(2024, time.July, 17),
					Reason:           "Medical appointment and recovery",
					EmergencyContact: "+1-555-0101",
				},
				submittedAt: at(2024, time.July, 10, 9),
				decision:    leave.StatusApproved,
				processedAt: at(2024, time.July, 11, 9),
				comments:    "Get well soon",
			},
			{
				candidate: leave.Candidate{
					RequesterID:      "STU001",
					RequesterName:    "John Doe",
					Department:       "Computer Science",
					LeaveType:        leave.TypePersonal,
					StartDate:        leave.NewDate(2024, time.July, 20),
					EndDate:          leave.NewDate(2024, time.July, 20),
					Reason:           "Family emergency",
					EmergencyContact: "+1-555-0101",
				},
				submittedAt: at(2024, time.July, 12, 14),
			},
		},
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := h.checkDTO(req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.respondError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all requests and balances.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		h.respondError(w, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// ApplyScenario resets the store and loads the named scenario.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	script, ok := scripts[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	if err := h.reset(ctx); err != nil {
		return err
	}

	var clock time.Time
	svc := leave.NewService(h.Store,
		leave.WithClock(func() time.Time { return clock }),
		leave.WithLogger(h.Logger))

	for _, b := range script.balances {
		if err := svc.Ledger().Provision(ctx, b); err != nil {
			return fmt.Errorf("provision %s/%s: %w", b.RequesterID, b.LeaveType, err)
		}
	}

	for _, s := range script.requests {
		clock = s.submittedAt
		created, err := svc.Create(ctx, s.candidate)
		if err != nil {
			return fmt.Errorf("submit %s request for %s: %w", s.candidate.LeaveType, s.candidate.RequesterID, err)
		}
		if s.decision == "" {
			continue
		}
		clock = s.processedAt
		if _, err := svc.Transition(ctx, created.ID, s.decision, s.comments); err != nil {
			return fmt.Errorf("decide request %s: %w", created.ID, err)
		}
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.Logger.Info("scenario loaded",
		zap.String("scenario", id),
		zap.Int("balances", len(script.balances)),
		zap.Int("requests", len(script.requests)))
	return nil
}

func (h *Handler) reset(ctx context.Context) error {
	resetter, ok := h.Store.(leave.Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}
