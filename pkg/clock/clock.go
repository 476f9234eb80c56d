package clock

import "time"

// Clock abstracts time for components that make expiry decisions, so tests
// can advance time without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
