package redis

import (
	"time"

	"github.com/atlas-aero/rt-embedded-redis/internal/coarsetime"
)

// Clock supplies the current time for deadline arithmetic. A nil clock
// disables timeouts entirely: connect and wait loops then poll until
// completion or a fatal error.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads time.Now directly.
var SystemClock Clock = systemClock{}

type coarseClock struct{}

func (coarseClock) Now() time.Time { return coarsetime.Now() }

// CoarseClock reads a cached wall clock updated every 50ms. Deadline
// checks in tight wait loops are much cheaper at the cost of coarser
// timeout resolution.
var CoarseClock Clock = coarseClock{}

// deadlineFor computes the absolute deadline for one operation. The zero
// time means no deadline.
func deadlineFor(clock Clock, timeout time.Duration) time.Time {
	if clock == nil || timeout <= 0 {
		return time.Time{}
	}
	return clock.Now().Add(timeout)
}

func expired(clock Clock, deadline time.Time) bool {
	if clock == nil || deadline.IsZero() {
		return false
	}
	return clock.Now().After(deadline)
}
