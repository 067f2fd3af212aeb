package schedule

import (
	"encoding/json"
	"time"
)

// Interval names the unit a Rate's count is expressed in.
type Interval int

const (
	PerHour Interval = iota
	PerMinute
	PerSecond
	PerMillisecond
)

// Preset lists the human-readable scheduler rates callers reach for most
// often. Anything outside this closed set should go through FromCount.
type Preset int

const (
	Preset30PerSecond Preset = iota
	Preset60PerSecond
	Preset90PerSecond
	Preset120PerSecond
	PresetUnlimited
)

// Rate describes an update frequency as a nanosecond timestep, or the
// "unlimited" sentinel meaning "fire every frame". FromCount and FromPreset
// only return a strictly positive timestep or Unlimited. The zero value
// Rate{} is the exception: it is not Unlimited and has a zero timestep.
type Rate struct {
	step      time.Duration
	unlimited bool
}

// Unlimited is the sentinel rate: items scheduled at this rate fire on
// every frame regardless of the master rate.
var Unlimited = Rate{unlimited: true}

// defaultRate is 60 updates per second, matching the source scheduler's
// default and SchedulerConfig's default master rate.
var defaultRate = Rate{step: time.Second / 60}

// FromCount builds a Rate from a count and the interval it applies to. A
// non-positive count is coerced to the default 60-per-second rate, mirroring
// the source scheduler's tolerance of programmer error rather than a panic
// or error return. A count larger than the interval's length in nanoseconds
// yields the smallest positive timestep, one nanosecond.
func FromCount(count int, interval Interval) Rate {
	if count <= 0 {
		return defaultRate
	}

	var unit time.Duration
	switch interval {
	case PerHour:
		unit = time.Hour
	case PerMinute:
		unit = time.Minute
	case PerMillisecond:
		unit = time.Millisecond
	case PerSecond:
		fallthrough
	default:
		unit = time.Second
	}

	step := unit / time.Duration(count)
	if step < 1 {
		step = 1
	}
	return Rate{step: step}
}

// FromPreset builds a Rate from one of the closed set of named presets.
func FromPreset(preset Preset) Rate {
	switch preset {
	case Preset30PerSecond:
		return Rate{step: time.Second / 30}
	case Preset60PerSecond:
		return Rate{step: time.Second / 60}
	case Preset90PerSecond:
		return Rate{step: time.Second / 90}
	case Preset120PerSecond:
		return Rate{step: time.Second / 120}
	case PresetUnlimited:
		return Unlimited
	default:
		return defaultRate
	}
}

// Timestep returns the nanosecond period of the rate and whether it is the
// unlimited sentinel. When unlimited is true, step is meaningless and
// callers must not use it to compute deadlines.
func (r Rate) Timestep() (step time.Duration, unlimited bool) {
	return r.step, r.unlimited
}

// MarshalJSON renders the rate as "unlimited" or its timestep's Duration
// string (e.g. "16.666667ms"), for use in stats and diagnostics endpoints.
func (r Rate) MarshalJSON() ([]byte, error) {
	if r.unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(r.step.String())
}

// String renders the rate the same way MarshalJSON does, for use in log
// fields and trace attributes where a human-readable value is wanted.
func (r Rate) String() string {
	if r.unlimited {
		return "unlimited"
	}
	return r.step.String()
}
