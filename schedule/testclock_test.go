package schedule

import "time"

// stepClock is a deterministic Clock: each call to Now returns base plus a
// fixed multiple of step, then advances the internal counter. It lets a test
// reason exactly about how many times the engine samples the clock in a
// single pass, which is what the lag-cooldown scenarios need.
type stepClock struct {
	base time.Time
	step time.Duration
	n    int
}

func (c *stepClock) Now() time.Time {
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// manualClock only changes when explicitly advanced, either by a test or by
// a cooperating fake Sleeper. It lets a test simulate a specific elapsed
// duration (a stall, a sleep) without any relation to wall-clock time.
type manualClock struct {
	t time.Time
}

func (c *manualClock) Now() time.Time { return c.t }

func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// noopSleeper never blocks; used whenever a test doesn't care about sleep
// timing, only about counts.
type noopSleeper struct{}

func (noopSleeper) Sleep(time.Duration) {}
