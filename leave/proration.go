/*
proration.go - Annual entitlement proration

PURPOSE:
  Answers "how much of the annual allocation is this employee entitled to
  this policy year?". A joiner present for the whole cycle gets the full
  total; a mid-year joiner gets rate x remaining months, capped at the
  total; a joiner from a future cycle gets nothing yet.

FALLBACK POLICY (never throw):
  Missing joining date, missing policy start, or a non-positive monthly
  rate all mean "no proration data" - the full annual total is returned
  unchanged. A non-positive annual total means there is nothing to prorate
  and the result is nil.

EXAMPLE:
  Policy start 2025-04, 24 days/year, 2 days/month:
    joined 2025-04-15 -> 24   (present for the whole cycle)
    joined 2025-10-10 -> 12   (Oct..Mar inclusive = 6 months x 2)
    joined 2026-05-01 -> 0    (past the Mar 2026 fiscal-year end)
*/
package leave

import "github.com/shopspring/decimal"

// ProratedAnnual computes the prorated annual entitlement for an employee.
//
// Inputs follow the "best-effort display" contract: every degenerate input
// has a defined fallback instead of an error. The result is rounded to 2
// places exactly once; nil means no entitlement exists at all.
func ProratedAnnual(joining, policyStart *Month, totalAnnual, ratePerMonth decimal.Decimal) *decimal.Decimal {
	if !totalAnnual.IsPositive() {
		return nil
	}

	full := Round2(totalAnnual)

	// No proration data: flat allocation.
	if joining == nil || policyStart == nil || !ratePerMonth.IsPositive() {
		return &full
	}

	join := *joining
	start := *policyStart

	// Present for the whole cycle.
	if !join.After(start) {
		return &full
	}

	// Joined in a future cycle not yet covered.
	fiscalEnd := start.AddMonths(11)
	if join.After(fiscalEnd) {
		zero := Round2(decimal.Zero)
		return &zero
	}

	months := MonthsBetweenInclusive(join, fiscalEnd)
	entitled := ratePerMonth.Mul(decimal.NewFromInt(int64(months)))
	if entitled.GreaterThan(totalAnnual) {
		entitled = totalAnnual
	}
	entitled = Round2(ClampZero(entitled))
	return &entitled
}

// ProratedAnnualFor is the policy-level convenience wrapper.
func (p Policy) ProratedAnnualFor(joining *Month) *decimal.Decimal {
	return ProratedAnnual(joining, p.ApplicableFrom, p.TotalAnnual, p.RatePerMonth)
}
