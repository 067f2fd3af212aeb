package schedule

// Config holds a scheduler's tuning. A Config is only ever adopted as the
// active configuration at the top of Start; setting it mid-run only updates
// what will take effect on the next Start.
type Config struct {
	// MasterRate bounds the loop's own iteration frequency. No item can be
	// updated faster than this rate, regardless of its own timestep.
	MasterRate Rate

	// InterpolationCap clamps the interpolation value reported to items.
	// Values below 1.0 disable capping entirely (stored internally as the
	// largest representable finite value).
	InterpolationCap float64

	// LagThreshold is the interpolation above which a frame is counted as
	// delayed. Sanitized to a minimum of 1.01.
	LagThreshold float64

	// LagWarningIntervalSeconds is the minimum number of seconds between
	// successive FALLING_BEHIND events. Zero disables the event.
	LagWarningIntervalSeconds uint32

	// RefuseStopRequests, when true, counts but never honors an item's
	// stop request.
	RefuseStopRequests bool
}

// DefaultConfig returns the scheduler's default tuning: 60/s master rate,
// interpolation cap 1.1, lag threshold 1.025, a 10 second lag-warning
// cadence, and stop requests refused.
func DefaultConfig() Config {
	return Config{
		MasterRate:                FromPreset(Preset60PerSecond),
		InterpolationCap:          1.1,
		LagThreshold:              1.025,
		LagWarningIntervalSeconds: 10,
		RefuseStopRequests:        true,
	}
}

// maxFiniteInterpolation stands in for "capping disabled": every real
// interpolation value will be less than it, so min(interp, cap) always
// picks interp.
const maxFiniteInterpolation = 1.7976931348623157e+308 // math.MaxFloat64

// sanitize applies the same coercions the source SchedulerConfig::setConfig
// performs: an interpolation cap below 1.0 disables capping, and a lag
// threshold at or below 1.0 is raised to 1.01 so that a normally-running
// scheduler doesn't mark every frame delayed.
func sanitize(c Config) Config {
	if c.InterpolationCap < 1.0 {
		c.InterpolationCap = maxFiniteInterpolation
	}
	if c.LagThreshold <= 1.0 {
		c.LagThreshold = 1.01
	}
	return c
}
