package clock

import "time"

// FakeClock reports a fixed instant, movable by tests.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Set pins the clock to an exact instant.
func (c *FakeClock) Set(t time.Time) {
	c.now = t.UTC()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
