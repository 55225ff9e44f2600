package session

import "time"

// Clock supplies the current time. The engine itself never reads a clock;
// injecting one here keeps session behavior testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// startOfDay returns local midnight for t, the boundary the new-card daily
// cap resets on.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
