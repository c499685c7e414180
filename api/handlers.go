/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave calculator via REST. Handlers load facts from the
  store, run the pure calculator, and serialize the result - the balance
  endpoints never write anything back.

ENDPOINTS:
  Policy:
    GET  /api/companies/leave-policy          Current policy config
    PUT  /api/companies/leave-policy          Replace policy config

  Employees:
    GET  /api/employees                       List employees
    POST /api/employees                       Create employee
    GET  /api/employees/{id}                  Employee details
    GET  /api/employees/{id}/balance          Derived balance view
    GET  /api/employees/{id}/entries          Leave ledger history

  Adjustments / Backfill:
    POST /api/companies/employees/{id}/leave-adjust  Manual adjustment
    POST /api/leaves/backfill                 Bulk rows (JSON)
    POST /api/leaves/backfill/import          Bulk rows (CSV body)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee or policy not found
  - 422: Backfill batch with invalid rows (nothing inserted)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Logger *slog.Logger

	// Now is the clock for "as of" month derivation; tests pin it.
	Now func() time.Time

	// Cached parsed policy, invalidated on update.
	mu      sync.RWMutex
	policy  *leave.Policy
	policyV int
}

// NewHandler creates a handler with the given store.
func NewHandler(store *sqlite.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Logger: logger, Now: time.Now}
}

// currentPolicy returns the cached parsed policy, loading it on miss.
func (h *Handler) currentPolicy(r *http.Request) (leave.Policy, int, error) {
	h.mu.RLock()
	if h.policy != nil {
		p, v := *h.policy, h.policyV
		h.mu.RUnlock()
		return p, v, nil
	}
	h.mu.RUnlock()

	rec, err := h.Store.GetPolicy(r.Context())
	if err != nil {
		return leave.Policy{}, 0, err
	}
	p, err := factory.ParsePolicy(rec.ConfigJSON)
	if err != nil {
		return leave.Policy{}, 0, err
	}

	h.mu.Lock()
	h.policy = &p
	h.policyV = rec.Version
	h.mu.Unlock()
	return p, rec.Version, nil
}

func (h *Handler) invalidatePolicy() {
	h.mu.Lock()
	h.policy = nil
	h.mu.Unlock()
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetPolicy returns the current company leave policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPolicy(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load policy", err)
		return
	}
	p, err := factory.ParsePolicy(rec.ConfigJSON)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Stored policy config is unreadable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, PolicyDTO{
		Config:    factory.ToJSON(p),
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	})
}

// UpdatePolicy replaces the company leave policy.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req UpdatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := factory.FromJSON(req.Config)
	encoded, err := factory.Encode(p)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to encode policy", err)
		return
	}
	if err := h.Store.SavePolicy(r.Context(), encoded); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}
	h.invalidatePolicy()

	rec, err := h.Store.GetPolicy(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to reload policy", err)
		return
	}
	h.writeJSON(w, http.StatusOK, PolicyDTO{
		Config:    factory.ToJSON(p),
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "name and email are required", nil)
		return
	}
	if req.JoiningDate != "" && leave.ParseMonth(req.JoiningDate) == nil {
		h.writeError(w, http.StatusBadRequest, "joining_date must be YYYY-MM-DD", nil)
		return
	}

	emp := sqlite.Employee{
		ID:          req.ID,
		Name:        req.Name,
		Email:       req.Email,
		JoiningDate: req.JoiningDate,
		Status:      string(leave.ParseEmploymentStatus(req.Status)),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	saved, err := h.Store.GetEmployeeByEmail(r.Context(), emp.Email)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to reload employee", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toEmployeeDTO(*saved))
}

// =============================================================================
// BALANCE HANDLER - The read-time derivation
// =============================================================================

// GetBalance derives and returns the display balance for one employee.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	policy, _, err := h.currentPolicy(r)
	if err != nil {
		h.writeDomainError(w, "Failed to load policy", err)
		return
	}
	used, err := h.Store.UsedByType(ctx, emp.ID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to aggregate leave usage", err)
		return
	}

	asOf := leave.MonthOf(h.Now())
	disp := h.deriveDisplay(policy, *emp, used, asOf)
	h.writeJSON(w, http.StatusOK, toBalanceDTO(emp.ID, asOf, disp))
}

// deriveDisplay assembles calculator inputs from stored records and runs
// the pure derivation. Shared with the snapshot scheduler.
func (h *Handler) deriveDisplay(policy leave.Policy, emp sqlite.Employee, used leave.Usage, asOf leave.Month) leave.Display {
	facts := leave.EmployeeFacts{
		JoiningDate:    leave.ParseMonth(emp.JoiningDate),
		Status:         leave.ParseEmploymentStatus(emp.Status),
		Balances:       leave.RemainingFromUsage(policy.Caps, used),
		TotalAvailable: leave.RawTotal(policy.TotalAnnual, used),
	}
	prorated := policy.ProratedAnnualFor(facts.JoiningDate)
	return leave.ComputeDisplay(policy, facts, prorated, asOf)
}

// =============================================================================
// ADJUSTMENT HANDLER
// =============================================================================

// AdjustLeave records a manual adjustment entry for an employee.
func (h *Handler) AdjustLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	leaveType, ok := leave.ParseLeaveType(req.Type)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Unknown leave type", nil)
		return
	}
	days := leave.FromFloat(req.Days)
	if days.IsZero() {
		h.writeError(w, http.StatusBadRequest, "days must be a non-zero finite number", nil)
		return
	}

	entry := sqlite.Entry{
		EmployeeID: emp.ID,
		LeaveType:  leaveType,
		Days:       days,
		Reason:     req.Reason,
		Source:     sqlite.SourceAdjustment,
	}
	if err := h.Store.AppendEntry(ctx, entry); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to record adjustment", err)
		return
	}

	h.Logger.Info("leave adjusted",
		slog.String("employee_id", emp.ID),
		slog.String("type", string(leaveType)),
		slog.Float64("days", req.Days))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BACKFILL HANDLERS
// =============================================================================

// SubmitBackfill accepts a JSON batch of historical leave rows. The batch
// is all-or-nothing: any invalid row rejects the whole submission.
func (h *Handler) SubmitBackfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rows := make([]leave.BackfillRow, len(req.Rows))
	for i, dto := range req.Rows {
		rows[i] = toBackfillRow(dto)
	}
	h.processBackfill(w, r, rows)
}

// ImportBackfillCSV accepts a raw CSV body and runs the same batch flow.
func (h *Handler) ImportBackfillCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := leave.ParseBackfillCSV(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to parse CSV", err)
		return
	}
	h.processBackfill(w, r, rows)
}

func (h *Handler) processBackfill(w http.ResponseWriter, r *http.Request, rows []leave.BackfillRow) {
	ctx := r.Context()
	if len(rows) == 0 {
		h.writeError(w, http.StatusBadRequest, "No rows to import", nil)
		return
	}

	policy, _, err := h.currentPolicy(r)
	if err != nil {
		h.writeDomainError(w, "Failed to load policy", err)
		return
	}

	entries, err := h.buildBackfillEntries(ctx, rows, policy.AllowedTypes())
	if err != nil {
		var batchErr *leave.BatchValidationError
		if errors.As(err, &batchErr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, BackfillResultDTO{RowErrors: batchErr.RowErrors})
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to resolve backfill batch", err)
		return
	}

	if err := h.Store.AppendEntries(ctx, entries); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to insert backfill entries", err)
		return
	}

	h.Logger.Info("backfill imported", slog.Int("rows", len(entries)))
	h.writeJSON(w, http.StatusCreated, BackfillResultDTO{Inserted: len(entries)})
}

// buildBackfillEntries validates every row and resolves employees by email.
// Any invalid or unresolvable row rejects the whole batch: the returned
// *leave.BatchValidationError carries every failing row.
func (h *Handler) buildBackfillEntries(ctx context.Context, rows []leave.BackfillRow, allowed leave.TypeSet) ([]sqlite.Entry, error) {
	rowErrs := leave.ValidateBackfillRows(rows, allowed)
	failed := make(map[int]bool, len(rowErrs))
	for _, re := range rowErrs {
		failed[re.Row] = true
	}

	entries := make([]sqlite.Entry, 0, len(rows))
	for i, row := range rows {
		if failed[i] {
			continue
		}
		emp, err := h.Store.GetEmployeeByEmail(ctx, row.Email)
		if err != nil {
			if leave.IsNotFound(err) {
				rowErrs = append(rowErrs, leave.RowError{Row: i, Message: "no employee with this email"})
				continue
			}
			return nil, err
		}
		leaveType, _ := leave.ParseLeaveType(row.Type)
		entries = append(entries, sqlite.Entry{
			EmployeeID: emp.ID,
			LeaveType:  leaveType,
			StartDate:  row.StartDate,
			EndDate:    row.EndDate,
			Days:       leave.FromFloat(float64(row.Days())),
			Reason:     row.Reason,
			Source:     sqlite.SourceBackfill,
		})
	}

	if len(rowErrs) > 0 {
		return nil, &leave.BatchValidationError{RowErrors: rowErrs}
	}
	return entries, nil
}

// =============================================================================
// ENTRY HISTORY HANDLER
// =============================================================================

// ListEntries returns an employee's leave ledger.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	entries, err := h.Store.EntriesByEmployee(ctx, emp.ID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("encoding response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(msg, slog.Any("error", err))
	}
	h.writeJSON(w, status, resp)
}

// writeDomainError maps sentinel errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case leave.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: msg, Code: "not_found", Details: err.Error()})
	case leave.IsClientError(err):
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: msg, Code: "invalid_batch", Details: err.Error()})
	default:
		h.writeError(w, http.StatusInternalServerError, msg, err)
	}
}
