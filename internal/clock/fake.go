package clock

import "time"

// FakeClock pins Now to a fixed instant so billing-cycle resolution is
// deterministic in tests. Like the system clock, it reports UTC.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward, e.g. across a cycle boundary.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
