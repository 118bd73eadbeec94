// Package coarsetime caches the wall clock and refreshes it on a fixed
// interval, trading timestamp resolution for much cheaper reads. Poll
// and wait loops check deadlines on every pass; reading an atomic is an
// order of magnitude cheaper than calling time.Now each time.
package coarsetime

import (
	"sync/atomic"
	"time"
)

const refreshInterval = 50 * time.Millisecond

var current atomic.Value

func init() {
	current.Store(time.Now())

	ticker := time.NewTicker(refreshInterval)
	go func() {
		for range ticker.C {
			current.Store(time.Now())
		}
	}()
}

// Now returns the cached time, at most refreshInterval behind the wall
// clock.
func Now() time.Time {
	return current.Load().(time.Time)
}
