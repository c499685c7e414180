/*
Package leave implements the core leave balance and accrual calculator.

PURPOSE:
  This package contains the pure, read-time arithmetic behind an HR leave
  dashboard: prorated annual entitlement, display-scaled per-type caps,
  remaining balances, and backfill-row validation. Nothing here performs
  I/O or mutates stored state - callers feed in policy + employee facts
  and get plain data back.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: Named leave categories (paid, casual, sick, unpaid)
  - TypeSet: The set of types the current policy has enabled
  - Balances/Usage: Per-type remaining and consumed counters
  - EmployeeFacts: The employee-side inputs to the calculator

DESIGN PRINCIPLES:
  1. Never throw: malformed input degrades to a safe fallback, never panics
  2. Precision: decimal.Decimal everywhere, float64 only at the JSON edge
  3. Idempotence: every output is rounded exactly once via Round2

SEE ALSO:
  - policy.go: Company-wide leave policy
  - proration.go: Annual entitlement proration
  - display.go: Display-scaled caps and balances
  - backfill.go: Bulk historical import validation
*/
package leave

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveType string

const (
	TypePaid   LeaveType = "paid"
	TypeCasual LeaveType = "casual"
	TypeSick   LeaveType = "sick"

	// TypeUnpaid tracks usage only - it has no cap and no balance.
	TypeUnpaid LeaveType = "unpaid"
)

// CappedTypes are the leave types drawn from the annual allocation,
// in display order.
var CappedTypes = []LeaveType{TypePaid, TypeCasual, TypeSick}

// ParseLeaveType normalizes a user-supplied type name ("PAID", "Sick", ...).
func ParseLeaveType(s string) (LeaveType, bool) {
	switch LeaveType(strings.ToLower(strings.TrimSpace(s))) {
	case TypePaid:
		return TypePaid, true
	case TypeCasual:
		return TypeCasual, true
	case TypeSick:
		return TypeSick, true
	case TypeUnpaid:
		return TypeUnpaid, true
	}
	return "", false
}

// TypeSet is the set of leave types enabled by the current policy.
type TypeSet map[LeaveType]bool

func (ts TypeSet) Contains(t LeaveType) bool { return ts[t] }

// Names returns the enabled type names in display order.
func (ts TypeSet) Names() []string {
	var names []string
	for _, t := range append(append([]LeaveType{}, CappedTypes...), TypeUnpaid) {
		if ts[t] {
			names = append(names, string(t))
		}
	}
	return names
}

// =============================================================================
// EMPLOYMENT STATUS
// =============================================================================

type EmploymentStatus string

const (
	StatusPermanent EmploymentStatus = "PERMANENT"
	StatusProbation EmploymentStatus = "PROBATION"
)

// ParseEmploymentStatus defaults to PERMANENT for unknown values - status
// only selects the accrual rate, and the permanent rate is the safe default.
func ParseEmploymentStatus(s string) EmploymentStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusProbation)) {
		return StatusProbation
	}
	return StatusPermanent
}

// =============================================================================
// PER-TYPE COUNTERS
// =============================================================================

// Balances holds the raw remaining counters reported by the backend.
// Unpaid is a usage counter, not a balance - it only ever grows.
type Balances struct {
	Paid   decimal.Decimal
	Casual decimal.Decimal
	Sick   decimal.Decimal
	Unpaid decimal.Decimal
}

func (b Balances) Get(t LeaveType) decimal.Decimal {
	switch t {
	case TypePaid:
		return b.Paid
	case TypeCasual:
		return b.Casual
	case TypeSick:
		return b.Sick
	case TypeUnpaid:
		return b.Unpaid
	}
	return decimal.Zero
}

// Usage holds days consumed per type. Adjustment entries may drive a raw
// ledger sum negative; the calculator clamps where the contract requires it.
type Usage struct {
	Paid   decimal.Decimal
	Casual decimal.Decimal
	Sick   decimal.Decimal
	Unpaid decimal.Decimal
}

func (u Usage) Get(t LeaveType) decimal.Decimal {
	switch t {
	case TypePaid:
		return u.Paid
	case TypeCasual:
		return u.Casual
	case TypeSick:
		return u.Sick
	case TypeUnpaid:
		return u.Unpaid
	}
	return decimal.Zero
}

// CappedTotal sums usage across the capped types (unpaid excluded).
func (u Usage) CappedTotal() decimal.Decimal {
	return u.Paid.Add(u.Casual).Add(u.Sick)
}

// =============================================================================
// EMPLOYEE FACTS - The employee-side calculator input
// =============================================================================

// EmployeeFacts bundles everything the calculator needs to know about one
// employee. JoiningDate is nil when the record has no (parsable) joining
// date; the calculator then falls back to the full annual entitlement.
type EmployeeFacts struct {
	JoiningDate *Month
	Status      EmploymentStatus

	// Raw remaining counters as reported by the backend.
	Balances Balances

	// Raw aggregate remaining balance as reported by the backend.
	// Deliberately unclamped: a negative value is the overuse signal.
	TotalAvailable decimal.Decimal
}

// RemainingFromUsage derives the raw per-type remaining counters the backend
// reports: configured cap minus consumed days. May be negative - the display
// layer clamps, the raw value is kept for the overuse warning.
func RemainingFromUsage(caps TypeCaps, used Usage) Balances {
	return Balances{
		Paid:   caps.Paid.Sub(used.Paid),
		Casual: caps.Casual.Sub(used.Casual),
		Sick:   caps.Sick.Sub(used.Sick),
		Unpaid: used.Unpaid,
	}
}

// RawTotal derives the unclamped aggregate remaining balance: total annual
// allocation minus all capped-type usage.
func RawTotal(totalAnnual decimal.Decimal, used Usage) decimal.Decimal {
	return totalAnnual.Sub(used.CappedTotal())
}
