package sim

import "time"

// WallClock tells time as seconds elapsed since it was created. It stands in
// for an engine when tracing runs against real hardware.
type WallClock struct {
	start time.Time
}

// NewWallClock starts a WallClock.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// CurrentTime returns the seconds elapsed since the clock started.
func (c *WallClock) CurrentTime() VTimeInSec {
	return VTimeInSec(time.Since(c.start).Seconds())
}
