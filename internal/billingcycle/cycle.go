// Package billingcycle resolves the calendar-month window an invoice covers.
package billingcycle

import "time"

// Cycle is the ephemeral billing window, half-open [Start, End).
// It is recomputed each run and never persisted.
type Cycle struct {
	Start time.Time
	End   time.Time
	Label string
}

// Resolve returns the calendar month preceding now, in UTC.
// The label ("July 2024") is used only in invoice descriptions.
func Resolve(now time.Time) Cycle {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Cycle{
		Start: start,
		End:   start.AddDate(0, 1, 0),
		Label: start.Format("January 2006"),
	}
}

// Contains reports whether t falls inside the window.
func (c Cycle) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(c.Start) && t.Before(c.End)
}

// Key is the YYYYMM form used in deterministic invoice numbers.
func (c Cycle) Key() string { return c.Start.Format("200601") }
