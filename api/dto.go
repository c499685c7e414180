/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal decimal-based domain model from the external contract. Decimals
  become float64 exactly once, at this boundary, after Round2 has already
  run inside the calculator.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - ../factory/policy.go: PolicyJSON embedded in policy responses
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// POLICY
// =============================================================================

// PolicyDTO wraps the policy config with its storage version.
type PolicyDTO struct {
	Config    factory.PolicyJSON `json:"config"`
	Version   int                `json:"version"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

// UpdatePolicyRequest replaces the company policy.
type UpdatePolicyRequest struct {
	Config factory.PolicyJSON `json:"config"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	JoiningDate string `json:"joining_date,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type CreateEmployeeRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	JoiningDate string `json:"joining_date,omitempty"`
	Status      string `json:"status,omitempty"`
}

// =============================================================================
// BALANCE
// =============================================================================

// TypeAmountsDTO carries one number per leave type.
type TypeAmountsDTO struct {
	Paid   float64 `json:"paid"`
	Casual float64 `json:"casual"`
	Sick   float64 `json:"sick"`
	Unpaid float64 `json:"unpaid,omitempty"`
}

// BalanceDTO is the full display state for one employee's balance view.
type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	AsOf       string `json:"as_of"`

	// Prorated annual entitlement; absent when no proration data exists.
	Entitlement *float64 `json:"entitlement,omitempty"`

	Caps     TypeAmountsDTO `json:"caps"`
	Balances TypeAmountsDTO `json:"balances"`
	Used     TypeAmountsDTO `json:"used"`

	// Clamped aggregate for the balance tile.
	TotalAvailable float64 `json:"total_available"`

	// Unclamped raw aggregate plus the overuse warning it drives.
	RawTotalAvailable float64 `json:"raw_total_available"`
	Overused          bool    `json:"overused"`

	AccruedToDate float64 `json:"accrued_to_date"`
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustRequest posts a manual balance adjustment. Positive days consume
// balance, negative days restore it.
type AdjustRequest struct {
	Type   string  `json:"type"`
	Days   float64 `json:"days"`
	Reason string  `json:"reason,omitempty"`
}

// =============================================================================
// BACKFILL
// =============================================================================

type BackfillRowDTO struct {
	Email        string `json:"email"`
	Type         string `json:"type"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	FallbackType string `json:"fallback_type,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type BackfillRequest struct {
	Rows []BackfillRowDTO `json:"rows"`
}

// BackfillResultDTO reports a backfill submission. A batch with any
// invalid row inserts nothing and returns the per-row errors.
type BackfillResultDTO struct {
	Inserted  int              `json:"inserted"`
	RowErrors []leave.RowError `json:"row_errors,omitempty"`
}

// =============================================================================
// ENTRIES
// =============================================================================

type EntryDTO struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
	Days      float64 `json:"days"`
	Reason    string  `json:"reason,omitempty"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func toEmployeeDTO(emp sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          emp.ID,
		Name:        emp.Name,
		Email:       emp.Email,
		JoiningDate: emp.JoiningDate,
		Status:      emp.Status,
	}
	if !emp.CreatedAt.IsZero() {
		dto.CreatedAt = emp.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBalanceDTO(employeeID string, asOf leave.Month, disp leave.Display) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID: employeeID,
		AsOf:       asOf.String(),
		Caps: TypeAmountsDTO{
			Paid:   f64(disp.Caps.Paid),
			Casual: f64(disp.Caps.Casual),
			Sick:   f64(disp.Caps.Sick),
		},
		Balances: TypeAmountsDTO{
			Paid:   f64(disp.Balances.Paid),
			Casual: f64(disp.Balances.Casual),
			Sick:   f64(disp.Balances.Sick),
			Unpaid: f64(disp.Balances.Unpaid),
		},
		Used: TypeAmountsDTO{
			Paid:   f64(disp.Used.Paid),
			Casual: f64(disp.Used.Casual),
			Sick:   f64(disp.Used.Sick),
			Unpaid: f64(disp.Used.Unpaid),
		},
		TotalAvailable:    f64(disp.TotalAvailable),
		RawTotalAvailable: f64(disp.RawTotal),
		Overused:          disp.Overused,
		AccruedToDate:     f64(disp.AccruedToDate),
	}
	if disp.Entitlement != nil {
		v := f64(*disp.Entitlement)
		dto.Entitlement = &v
	}
	return dto
}

func toEntryDTO(e sqlite.Entry) EntryDTO {
	dto := EntryDTO{
		ID:        e.ID,
		Type:      string(e.LeaveType),
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Days:      f64(e.Days),
		Reason:    e.Reason,
		Source:    string(e.Source),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBackfillRow(dto BackfillRowDTO) leave.BackfillRow {
	return leave.BackfillRow{
		Email:        dto.Email,
		Type:         dto.Type,
		StartDate:    dto.StartDate,
		EndDate:      dto.EndDate,
		FallbackType: dto.FallbackType,
		Reason:       dto.Reason,
	}
}
