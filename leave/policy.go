/*
policy.go - Company-wide leave policy

PURPOSE:
  Defines the single, admin-mutable policy the whole company runs on: total
  annual allocation, monthly accrual rates for permanent and probation
  staff, the accrual strategy, the month the policy takes effect (which
  anchors the fiscal year for proration), and the per-type sub-allocation
  of the annual total.

TYPE CAPS:
  The paid/casual/sick caps partition totalAnnual. Their sum is expected to
  stay at or below the total; when an admin over-allocates, the caps are
  scaled down proportionally at display time rather than rejected - the
  calculator feeds a dashboard, not a transaction.

SEE ALSO:
  - proration.go: Uses ApplicableFrom as the fiscal-year start
  - display.go: Cap scaling
  - ../factory/policy.go: JSON configuration parsing
*/
package leave

import "github.com/shopspring/decimal"

// =============================================================================
// ACCRUAL STRATEGY
// =============================================================================

// Strategy selects between granting leave incrementally per month and
// granting the full annual allocation up front.
type Strategy string

const (
	StrategyAccrual Strategy = "ACCRUAL"
	StrategyLumpSum Strategy = "LUMP_SUM"
)

// ParseStrategy defaults to ACCRUAL for unknown values.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategyLumpSum {
		return StrategyLumpSum
	}
	return StrategyAccrual
}

// =============================================================================
// TYPE CAPS
// =============================================================================

// TypeCaps sub-allocates the annual total into named leave types. Any
// remainder above the cap sum has no type and is only reachable through
// the aggregate total.
type TypeCaps struct {
	Paid   decimal.Decimal
	Casual decimal.Decimal
	Sick   decimal.Decimal
}

func (c TypeCaps) Get(t LeaveType) decimal.Decimal {
	switch t {
	case TypePaid:
		return c.Paid
	case TypeCasual:
		return c.Casual
	case TypeSick:
		return c.Sick
	}
	return decimal.Zero
}

func (c TypeCaps) Sum() decimal.Decimal {
	return c.Paid.Add(c.Casual).Add(c.Sick)
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is the company-wide leave policy.
type Policy struct {
	// Total leave days granted per policy year.
	TotalAnnual decimal.Decimal

	// Monthly accrual rate for permanent employees. Also the proration
	// rate: entitlement for a mid-year joiner is rate x remaining months.
	RatePerMonth decimal.Decimal

	// Monthly accrual rate while on probation.
	ProbationRatePerMonth decimal.Decimal

	Strategy Strategy

	// First month the policy applies; anchors the 12-month fiscal cycle.
	// Nil when no start month is configured (flat grants, no proration).
	ApplicableFrom *Month

	Caps TypeCaps
}

// AllowedTypes returns the leave types an employee may book under this
// policy: every capped type with a positive cap, plus unpaid always.
func (p Policy) AllowedTypes() TypeSet {
	ts := TypeSet{TypeUnpaid: true}
	for _, t := range CappedTypes {
		if p.Caps.Get(t).IsPositive() {
			ts[t] = true
		}
	}
	return ts
}

// RateFor returns the monthly accrual rate for the given employment status.
func (p Policy) RateFor(status EmploymentStatus) decimal.Decimal {
	if status == StatusProbation {
		return p.ProbationRatePerMonth
	}
	return p.RatePerMonth
}

// FiscalYearEnd returns the last month of the 12-month cycle anchored at
// ApplicableFrom, or nil when no start month is configured.
func (p Policy) FiscalYearEnd() *Month {
	if p.ApplicableFrom == nil {
		return nil
	}
	end := p.ApplicableFrom.AddMonths(11)
	return &end
}
