/*
month.go - Calendar month arithmetic

PURPOSE:
  All proration is month-granular: joining dates and the policy start are
  normalized to the first calendar day of their month, in UTC, before any
  comparison. That removes timezone drift across day boundaries and makes
  "same month as the policy start" a plain equality check.
*/
package leave

import "time"

// Month is a year-month instant, always the first calendar day at midnight UTC.
type Month struct {
	Time time.Time
}

func NewMonth(year int, month time.Month) Month {
	return Month{Time: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// MonthOf normalizes an arbitrary instant to its month.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return NewMonth(u.Year(), u.Month())
}

// ParseMonth parses "2006-01" or "2006-01-02" strings. Returns nil for
// anything unparsable - missing proration data is a fallback, not an error.
func ParseMonth(s string) *Month {
	for _, layout := range []string{"2006-01", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			m := MonthOf(t)
			return &m
		}
	}
	return nil
}

// Comparison
func (m Month) Before(other Month) bool { return m.Time.Before(other.Time) }
func (m Month) After(other Month) bool  { return m.Time.After(other.Time) }
func (m Month) Equal(other Month) bool  { return m.Time.Equal(other.Time) }
func (m Month) IsZero() bool            { return m.Time.IsZero() }

// AddMonths returns the month n months later (negative n goes back).
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.Time.AddDate(0, n, 0))
}

func (m Month) Year() int         { return m.Time.Year() }
func (m Month) Month() time.Month { return m.Time.Month() }

func (m Month) String() string { return m.Time.Format("2006-01") }

// MonthsBetweenInclusive counts months from 'from' through 'to', both
// endpoints included. Zero when 'from' is after 'to'.
func MonthsBetweenInclusive(from, to Month) int {
	if from.After(to) {
		return 0
	}
	years := to.Year() - from.Year()
	months := int(to.Month()) - int(from.Month())
	return years*12 + months + 1
}
