package schedule

import "time"

// TimeInfo is passed to items and describes the current point in the
// scheduler's timeline. Epoch, SinceEpoch, and FrameStart are constant
// across every item visited within a single frame; Now, SinceLastUpdate,
// and Interpolation are recomputed per item.
type TimeInfo struct {
	// Epoch is the time the scheduler began executing.
	Epoch time.Time
	// SinceEpoch is the elapsed time since Epoch.
	SinceEpoch time.Duration
	// FrameStart is the time at which the current frame began.
	FrameStart time.Time
	// Now is the current time, sampled fresh for this item.
	Now time.Time
	// SinceLastUpdate is the elapsed time since this item's last update.
	SinceLastUpdate time.Duration
	// Interpolation is the ratio of actual to expected elapsed time for
	// this item; 1.0 is on-time, >1.0 is late.
	Interpolation float64
}

// ExecutionData holds monotonic counters describing a scheduler run. All
// fields are reset to zero at the top of Start.
type ExecutionData struct {
	// FramesExecuted is the number of frames the loop has completed.
	FramesExecuted uint64
	// FramesDelayedTotal is the number of frames delayed for any reason.
	FramesDelayedTotal uint64
	// FramesDelayedThreadWake is the number of frames delayed specifically
	// because the sleeping thread woke up later than intended.
	FramesDelayedThreadWake uint64
	// SkippedUpdateCalls counts individual item updates skipped at the
	// item's own request, not frames.
	SkippedUpdateCalls uint64
	// RefusedStopRequests counts item stop requests that were refused
	// because the active config has RefuseStopRequests set.
	RefusedStopRequests uint64
}
