/*
display.go - Display-scaled caps, balances, and totals

PURPOSE:
  Derives what the balance tiles actually show. Configured type caps are a
  full-year partition; a mid-year joiner's entitlement may be smaller than
  the cap sum, so caps are scaled down proportionally before remaining
  balances are computed against them.

TWO TOTALS, ON PURPOSE:
  TotalAvailable  - clamped at zero, prorated when proration data exists.
                    This is the number on the tile.
  RawTotal        - the unscaled, unclamped server aggregate. A negative
                    raw total is the overuse warning; it is surfaced via
                    Overused instead of being clamped away.

ACCRUED TO DATE:
  Under the ACCRUAL strategy an employee has only earned the months that
  have elapsed; under LUMP_SUM the full entitlement is available up front.
  AccruedToDate carries that distinction so clients can render "available
  now" separately from "will have by year end".

SEE ALSO:
  - proration.go: The entitlement fed into cap scaling
  - accrual.go: The schedule behind AccruedToDate
*/
package leave

import "github.com/shopspring/decimal"

// =============================================================================
// DISPLAY - Everything the balance view renders
// =============================================================================

type Display struct {
	// Prorated annual entitlement, nil when no proration context exists.
	Entitlement *decimal.Decimal

	// Type caps after proportional scaling, rounded.
	Caps TypeCaps

	// Remaining per type, clamped at zero. Unpaid passes through unchanged.
	Balances Balances

	// Days consumed per capped type (never negative).
	Used Usage

	// Aggregate remaining balance, clamped at zero for display.
	TotalAvailable decimal.Decimal

	// Unscaled, unclamped server aggregate - kept for the overuse warning.
	RawTotal decimal.Decimal

	// True when the raw aggregate has gone negative.
	Overused bool

	// What has actually been earned so far (strategy-dependent).
	AccruedToDate decimal.Decimal
}

// =============================================================================
// USED-BY-TYPE - Raw caps minus raw remaining, floored at zero
// =============================================================================

// UsedByType derives per-type consumption from the raw remaining counters
// the backend reports. Unpaid is already a usage counter and passes through.
func UsedByType(caps TypeCaps, balances Balances) Usage {
	return Usage{
		Paid:   ClampZero(caps.Paid.Sub(balances.Paid)),
		Casual: ClampZero(caps.Casual.Sub(balances.Casual)),
		Sick:   ClampZero(caps.Sick.Sub(balances.Sick)),
		Unpaid: balances.Unpaid,
	}
}

// =============================================================================
// DISPLAY COMPUTATION
// =============================================================================

// ComputeDisplay derives the full display state for one employee. Pure and
// idempotent: identical inputs produce byte-identical rounded outputs.
//
// asOf bounds the accrued-to-date figure; pass the current month.
func ComputeDisplay(p Policy, facts EmployeeFacts, prorated *decimal.Decimal, asOf Month) Display {
	used := UsedByType(p.Caps, facts.Balances)

	capSum := p.Caps.Sum()
	capScale := one
	if prorated != nil && capSum.IsPositive() {
		scale := prorated.Div(capSum)
		if scale.LessThan(one) {
			capScale = scale
		}
	}

	caps := TypeCaps{
		Paid:   Round2(ClampZero(p.Caps.Paid.Mul(capScale))),
		Casual: Round2(ClampZero(p.Caps.Casual.Mul(capScale))),
		Sick:   Round2(ClampZero(p.Caps.Sick.Mul(capScale))),
	}

	balances := Balances{
		Paid:   Round2(ClampZero(caps.Paid.Sub(used.Paid))),
		Casual: Round2(ClampZero(caps.Casual.Sub(used.Casual))),
		Sick:   Round2(ClampZero(caps.Sick.Sub(used.Sick))),
		Unpaid: facts.Balances.Unpaid,
	}

	usedTotal := used.CappedTotal()
	var total decimal.Decimal
	if prorated != nil {
		total = Round2(ClampZero(prorated.Sub(usedTotal)))
	} else {
		total = facts.TotalAvailable
	}

	return Display{
		Entitlement:    prorated,
		Caps:           caps,
		Balances:       balances,
		Used:           used,
		TotalAvailable: total,
		RawTotal:       facts.TotalAvailable,
		Overused:       facts.TotalAvailable.IsNegative(),
		AccruedToDate:  accruedToDate(p, facts, prorated, asOf),
	}
}

// accruedToDate computes what the employee has actually earned by asOf.
//
// LUMP_SUM grants the entitlement up front. ACCRUAL earns the status rate
// per elapsed month, counted from the later of joining and policy start,
// and never exceeds the entitlement.
func accruedToDate(p Policy, facts EmployeeFacts, prorated *decimal.Decimal, asOf Month) decimal.Decimal {
	entitled := p.TotalAnnual
	if prorated != nil {
		entitled = *prorated
	}
	entitled = ClampZero(entitled)

	if p.Strategy != StrategyAccrual {
		return Round2(entitled)
	}

	rate := p.RateFor(facts.Status)
	if !rate.IsPositive() {
		return Round2(entitled)
	}

	start := p.ApplicableFrom
	if facts.JoiningDate != nil && (start == nil || facts.JoiningDate.After(*start)) {
		start = facts.JoiningDate
	}
	if start == nil {
		return Round2(entitled)
	}

	months := MonthsBetweenInclusive(*start, asOf)
	earned := rate.Mul(decimal.NewFromInt(int64(months)))
	if earned.GreaterThan(entitled) {
		earned = entitled
	}
	return Round2(ClampZero(earned))
}
