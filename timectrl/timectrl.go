// Package timectrl provides a schedule.Clock and schedule.Sleeper that scale
// wall-clock time by a fixed factor, so an engine can be driven faster or
// slower than real time without any change to the engine itself.
package timectrl

import (
	"sync"
	"time"

	"github.com/Niraka/nebula/schedule"
)

// Mode names a Controller's time-scaling behaviour.
type Mode int

const (
	// RealTime advances in lockstep with wall-clock time. Scale is ignored.
	RealTime Mode = iota
	// Accelerated advances faster (scale > 1) or slower (0 < scale < 1) than
	// wall-clock time.
	Accelerated
)

// Controller is a schedule.Clock and schedule.Sleeper backed by wall-clock
// time scaled by a fixed factor. A scale of 1.0 behaves identically to the
// engine's default clock; a scale of 10.0 makes ten simulated seconds pass
// for every real second, which is useful for running a demo scenario to
// completion without waiting on it in real time, or for slow-motion
// debugging with a scale below 1.0.
type Controller struct {
	mu    sync.Mutex
	mode  Mode
	scale float64

	wallBase time.Time
	simBase  time.Time
}

// New constructs a Controller anchored to the current wall-clock time. scale
// is ignored in RealTime mode; a non-positive scale in Accelerated mode is
// coerced to 1.0.
func New(mode Mode, scale float64) *Controller {
	if mode == RealTime || scale <= 0 {
		scale = 1.0
	}
	now := time.Now()
	return &Controller{mode: mode, scale: scale, wallBase: now, simBase: now}
}

// Now implements schedule.Clock, returning the current simulated time.
func (c *Controller) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == RealTime {
		return time.Now()
	}
	elapsed := time.Since(c.wallBase)
	return c.simBase.Add(time.Duration(float64(elapsed) * c.scale))
}

// Rebase resets the controller so Now() returns t on the next call, without
// otherwise disturbing its scale. Intended for tests and for seeding a demo
// run at a specific simulated instant.
func (c *Controller) Rebase(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallBase = time.Now()
	c.simBase = t
}

// Sleep implements schedule.Sleeper. It blocks for the wall-clock duration
// corresponding to d simulated nanoseconds at the controller's scale, so a
// requested delay elapses in the same proportion the clock itself runs fast
// or slow.
func (c *Controller) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	scale := c.scale
	c.mu.Unlock()
	time.Sleep(time.Duration(float64(d) / scale))
}

var (
	_ schedule.Clock   = (*Controller)(nil)
	_ schedule.Sleeper = (*Controller)(nil)
)
