// Package schedule implements a fixed-timestep cooperative scheduler: a
// single-threaded, interpolation-aware, lag-detecting periodic dispatcher
// that drives a heterogeneous population of Items at configurable per-item
// rates, bounded by a master frame rate, and reports lifecycle and health
// Events to Listeners.
//
// The Engine is not thread-safe. Every method — including Stop — must be
// called from the goroutine that called Start, whether directly or from
// within an Item or Listener callback invoked by that goroutine.
package schedule

import (
	"context"
	"time"

	"github.com/Niraka/nebula/internal/logging"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the engine's time source. Intended for tests that
// need deterministic or fast-forwarding time.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithSleeper overrides the engine's sleep primitive. Intended for tests
// that want to observe or skip real sleeps.
func WithSleeper(sleeper Sleeper) Option {
	return func(e *Engine) { e.sleeper = sleeper }
}

// WithLogger attaches a structured logger. Defaults to logging.Noop().
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithFrameObserver registers a callback invoked with a snapshot of
// ExecutionData at the end of every frame, from the loop's own goroutine.
// It is a supplemental hook for observability bridges (metrics, frame
// history) and has no effect on scheduling semantics.
func WithFrameObserver(observer func(ExecutionData)) Option {
	return func(e *Engine) { e.frameObserver = observer }
}

// Engine is the scheduler's run loop, item registry, and listener registry
// combined, matching the source Scheduler class's single-object surface.
type Engine struct {
	activeConfig  Config
	pendingConfig Config
	executionData ExecutionData

	items     itemRegistry
	listeners listenerRegistry

	running bool

	clock   Clock
	sleeper Sleeper
	log     logging.Logger

	lastLagWarning     time.Time
	lagWarningInterval time.Duration

	frameObserver func(ExecutionData)
}

// New constructs an Engine. The given config is sanitized immediately, so
// an Engine is always internally consistent even before the first Start —
// unlike the source's parameterized constructor, which stored a config
// verbatim and relied on the caller to route it through SetConfig first.
func New(config Config, opts ...Option) *Engine {
	cfg := sanitize(config)
	e := &Engine{
		activeConfig:  cfg,
		pendingConfig: cfg,
		clock:         systemClock{},
		sleeper:       systemSleeper{},
		log:           logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lastLagWarning = e.clock.Now()
	return e
}

// SetConfig sanitizes and stores config as the pending configuration. It
// takes effect the next time Start is called; the currently running (or
// most recently run) loop is unaffected.
func (e *Engine) SetConfig(config Config) {
	e.pendingConfig = sanitize(config)
}

// ActiveConfig returns the configuration currently (or most recently) in
// effect for the run loop.
func (e *Engine) ActiveConfig() Config { return e.activeConfig }

// PendingConfig returns the configuration that will take effect on the
// next call to Start.
func (e *Engine) PendingConfig() Config { return e.pendingConfig }

// ExecutionData returns a snapshot of the current run's counters.
func (e *Engine) ExecutionData() ExecutionData { return e.executionData }

// AddItem registers item to be updated at the given rate. If the loop is
// currently running, the item is picked up no later than the next frame.
// Adding the same item more than once is legal and creates independent
// entries, matching the source's tolerance of duplicate registration.
func (e *Engine) AddItem(item Item, rate Rate) {
	e.items.add(item, rate, e.clock.Now(), e.running)
}

// RemoveItem removes the first registered entry equal to item. Removing an
// item that was never added, or was already removed, is a silent no-op.
func (e *Engine) RemoveItem(item Item) bool {
	return e.items.remove(item)
}

// HasItem reports whether item is currently registered.
func (e *Engine) HasItem(item Item) bool {
	return e.items.exists(item)
}

// ItemCount returns the number of currently registered item entries,
// counting duplicate registrations of the same item separately.
func (e *Engine) ItemCount() int {
	return len(e.items.entries)
}

// AddListener registers a listener to receive lifecycle and health events.
func (e *Engine) AddListener(listener Listener) {
	e.listeners.add(listener)
}

// RemoveListener removes the first registered entry equal to listener.
func (e *Engine) RemoveListener(listener Listener) bool {
	return e.listeners.remove(listener)
}

// HasListener reports whether listener is currently registered.
func (e *Engine) HasListener(listener Listener) bool {
	return e.listeners.exists(listener)
}

// Stop asks the run loop to exit once the current frame's item pass
// concludes. It is not safe to call from a different goroutine than the one
// running Start; the intended callers are Items and Listeners reacting to
// their own callbacks. Stop has no effect if the loop is not running.
func (e *Engine) Stop() {
	e.running = false
}

// resetExecutionData zeroes every counter, called at the top of Start.
func (e *Engine) resetExecutionData() {
	e.executionData = ExecutionData{}
}

// Start applies the pending configuration and runs the scheduler's main
// loop until Stop is called (by an item, a listener, or the caller from
// within a callback) or an item's stop request is honored. Start does
// not return until the loop exits. It is not re-entrant: calling Start
// while already running is a programmer error and panics.
func (e *Engine) Start() {
	if e.running {
		panic("schedule: Engine.Start called while already running")
	}

	e.running = true
	e.resetExecutionData()
	e.activeConfig = e.pendingConfig
	e.lagWarningInterval = time.Duration(e.activeConfig.LagWarningIntervalSeconds) * time.Second

	masterStep, unlimited := e.activeConfig.MasterRate.Timestep()
	var sleepSkipThreshold time.Duration
	if !unlimited {
		sleepSkipThreshold = time.Duration(float64(masterStep) * 0.025)
	}

	now := e.clock.Now()
	info := TimeInfo{
		Epoch:           now,
		SinceEpoch:      0,
		FrameStart:      now,
		Now:             now,
		SinceLastUpdate: 0,
		Interpolation:   1.0,
	}

	e.listeners.broadcast(Event{Kind: StartedEvent})

	startEntries := e.items.snapshot()
	for _, entry := range startEntries {
		entry.item.OnSchedulerStart(info)
	}

	frameStart := e.clock.Now()
	for _, entry := range startEntries {
		entry.state.lastUpdate = frameStart.Add(-entry.state.step)
	}

	for e.running {
		frameStart = e.clock.Now()
		var frameEnd time.Time
		if !unlimited {
			frameEnd = frameStart.Add(masterStep)
		}
		info.FrameStart = frameStart

		for _, entry := range e.items.snapshot() {
			item := entry.item
			state := &entry.state

			if item.IsRequestingStop() {
				if e.activeConfig.RefuseStopRequests {
					e.executionData.RefusedStopRequests++
				} else {
					item.ResetFlags()
					e.running = false
					break
				}
			}

			if item.IsRequestingSkip() {
				e.executionData.SkippedUpdateCalls++
				item.ResetFlags()
				continue
			}

			info.Now = e.clock.Now()
			info.SinceEpoch = saturatingSub(info.Now, info.Epoch)
			info.SinceLastUpdate = saturatingSub(info.Now, state.lastUpdate)

			if state.unlimited {
				info.Interpolation = 1.0
			} else {
				info.Interpolation = float64(info.SinceLastUpdate) / float64(state.step)
				if info.Interpolation > e.activeConfig.InterpolationCap {
					info.Interpolation = e.activeConfig.InterpolationCap
				}
			}

			if frameStart.After(state.nextFrameTime) || state.unlimited {
				item.OnUpdate(info)
				state.nextFrameTime = frameStart.Add(state.step)
				state.lastUpdate = frameStart
			}
		}

		if !unlimited {
			remaining := frameEnd.Sub(e.clock.Now())
			if remaining > 0 {
				if remaining > sleepSkipThreshold {
					e.sleeper.Sleep(remaining - sleepSkipThreshold)
				}

				frameInterpolation := float64(e.clock.Now().Sub(frameStart)) / float64(masterStep)
				if frameInterpolation > e.activeConfig.InterpolationCap {
					frameInterpolation = e.activeConfig.InterpolationCap
				}
				if frameInterpolation > e.activeConfig.LagThreshold {
					e.executionData.FramesDelayedTotal++
					e.executionData.FramesDelayedThreadWake++
				}
			} else {
				frameInterpolation := float64(e.clock.Now().Sub(frameStart)) / float64(masterStep)
				if frameInterpolation > e.activeConfig.InterpolationCap {
					frameInterpolation = e.activeConfig.InterpolationCap
				}
				if frameInterpolation > e.activeConfig.LagThreshold {
					e.executionData.FramesDelayedTotal++

					if e.activeConfig.LagWarningIntervalSeconds > 0 {
						warningNow := e.clock.Now()
						if warningNow.Sub(e.lastLagWarning) > e.lagWarningInterval {
							e.listeners.broadcast(Event{Kind: FallingBehindEvent})
							e.lastLagWarning = e.clock.Now()
							e.log.Warn(context.Background(), "scheduler falling behind",
								logging.Any("interpolation", frameInterpolation))
						}
					}
				}
			}
		}

		e.executionData.FramesExecuted++

		if e.frameObserver != nil {
			e.frameObserver(e.executionData)
		}
	}

	info.Now = e.clock.Now()
	info.SinceEpoch = saturatingSub(info.Now, info.Epoch)
	info.Interpolation = 1.0

	for _, entry := range e.items.snapshot() {
		entry.item.OnSchedulerStop(info)
	}

	e.listeners.broadcast(Event{Kind: StoppedEvent})
}
