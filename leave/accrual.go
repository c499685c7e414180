/*
accrual.go - Monthly grant schedule

PURPOSE:
  Generates the grant events the accrual job would post for one employee
  over a time window. Two shapes:

  LUMP_SUM: one grant of the (prorated) annual entitlement, on the later
            of the window start and the joining month.
  ACCRUAL:  the status-appropriate monthly rate on the first of each month,
            with the running sum capped at the entitlement.

  The balance view never depends on these events - balances are derived at
  read time - but the snapshot job and the "accrued to date" figure share
  this schedule so the two can never disagree.
*/
package leave

import "github.com/shopspring/decimal"

// GrantEvent is a single scheduled leave grant.
type GrantEvent struct {
	At     Month
	Amount decimal.Decimal
	Reason string
}

// Schedule generates grant events for one employee under one policy.
type Schedule struct {
	Policy  Policy
	Status  EmploymentStatus
	Joining *Month
}

// Grants returns the grant events in [from, to], in chronological order.
// The window is month-granular; an empty or inverted window yields nil.
func (s Schedule) Grants(from, to Month) []GrantEvent {
	if from.After(to) {
		return nil
	}

	entitled := s.Policy.ProratedAnnualFor(s.Joining)
	if entitled == nil {
		return nil
	}

	start := from
	if s.Joining != nil && s.Joining.After(start) {
		start = *s.Joining
	}
	if start.After(to) {
		return nil
	}

	if s.Policy.Strategy == StrategyLumpSum {
		return []GrantEvent{{
			At:     start,
			Amount: *entitled,
			Reason: "annual grant",
		}}
	}

	rate := s.Policy.RateFor(s.Status)
	if !rate.IsPositive() {
		// No meaningful monthly rate: degrade to a single flat grant.
		return []GrantEvent{{
			At:     start,
			Amount: *entitled,
			Reason: "annual grant",
		}}
	}

	var events []GrantEvent
	granted := decimal.Zero
	for current := start; !current.After(to); current = current.AddMonths(1) {
		remaining := entitled.Sub(granted)
		if !remaining.IsPositive() {
			break
		}
		amount := rate
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		amount = Round2(amount)
		events = append(events, GrantEvent{
			At:     current,
			Amount: amount,
			Reason: "monthly accrual",
		})
		granted = granted.Add(amount)
	}
	return events
}

// Total sums the grants in [from, to].
func (s Schedule) Total(from, to Month) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Grants(from, to) {
		total = total.Add(e.Amount)
	}
	return Round2(total)
}
