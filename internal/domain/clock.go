package domain

import "time"

// Clock supplies the logical timestamp for time-gated operations. The
// service shell samples it exactly once per operation so every check
// inside that operation sees the same value.
type Clock interface {
	Now() Timestamp
}

// WallClock is the production Clock: Unix seconds.
type WallClock struct{}

func (WallClock) Now() Timestamp { return uint64(time.Now().Unix()) }

// ManualClock is a test Clock advanced explicitly.
type ManualClock struct {
	T Timestamp
}

func (c *ManualClock) Now() Timestamp { return c.T }

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) { c.T += d }
