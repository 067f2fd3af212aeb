package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Niraka/nebula/schedule"
)

// SchedulerCollector exposes the scheduler's ExecutionData as Prometheus
// metrics, plus a histogram of per-item interpolation values that
// ExecutionData itself doesn't carry.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	FramesExecutedTotal          prometheus.Counter
	FramesDelayedTotal           prometheus.Counter
	FramesDelayedThreadWakeTotal prometheus.Counter
	SkippedUpdateCallsTotal      prometheus.Counter
	RefusedStopRequestsTotal     prometheus.Counter
	FrameInterpolation           prometheus.Histogram
	RegisteredItems              prometheus.Gauge

	last schedule.ExecutionData
}

// NewSchedulerCollector registers scheduler metrics against the provided
// registerer, defaulting to the global registry when reg is nil.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	framesExecuted, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nebula_scheduler_frames_executed_total",
		Help: "Cumulative number of frames the scheduler's run loop has completed.",
	}), "nebula_scheduler_frames_executed_total")
	if err != nil {
		return nil, err
	}

	framesDelayed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nebula_scheduler_frames_delayed_total",
		Help: "Cumulative number of frames whose interpolation exceeded the configured lag threshold.",
	}), "nebula_scheduler_frames_delayed_total")
	if err != nil {
		return nil, err
	}

	framesDelayedThreadWake, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nebula_scheduler_frames_delayed_thread_wake_total",
		Help: "Cumulative number of frames delayed specifically by a late sleep wakeup.",
	}), "nebula_scheduler_frames_delayed_thread_wake_total")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nebula_scheduler_skipped_update_calls_total",
		Help: "Cumulative number of item updates skipped at the item's own request.",
	}), "nebula_scheduler_skipped_update_calls_total")
	if err != nil {
		return nil, err
	}

	refused, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nebula_scheduler_refused_stop_requests_total",
		Help: "Cumulative number of item stop requests refused by the active configuration.",
	}), "nebula_scheduler_refused_stop_requests_total")
	if err != nil {
		return nil, err
	}

	interpolation, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nebula_scheduler_frame_interpolation",
		Help:    "Interpolation values reported to items; 1.0 is on-time, higher is late.",
		Buckets: []float64{0.9, 1.0, 1.025, 1.05, 1.1, 1.25, 1.5, 2, 5, 10},
	}), "nebula_scheduler_frame_interpolation")
	if err != nil {
		return nil, err
	}

	registeredItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nebula_scheduler_registered_items",
		Help: "Number of items currently registered with the scheduler.",
	})
	registeredItems, err = registerGauge(reg, registeredItems, "nebula_scheduler_registered_items")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:                     gatherer,
		FramesExecutedTotal:          framesExecuted,
		FramesDelayedTotal:           framesDelayed,
		FramesDelayedThreadWakeTotal: framesDelayedThreadWake,
		SkippedUpdateCallsTotal:      skipped,
		RefusedStopRequestsTotal:     refused,
		FrameInterpolation:           interpolation,
		RegisteredItems:              registeredItems,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveExecutionData advances every counter by the delta since the last
// observed snapshot. It is meant to be passed as a schedule.WithFrameObserver
// callback, which always hands over a monotonic, cumulative snapshot.
func (c *SchedulerCollector) ObserveExecutionData(data schedule.ExecutionData) {
	if c == nil {
		return
	}
	c.FramesExecutedTotal.Add(float64(data.FramesExecuted - c.last.FramesExecuted))
	c.FramesDelayedTotal.Add(float64(data.FramesDelayedTotal - c.last.FramesDelayedTotal))
	c.FramesDelayedThreadWakeTotal.Add(float64(data.FramesDelayedThreadWake - c.last.FramesDelayedThreadWake))
	c.SkippedUpdateCallsTotal.Add(float64(data.SkippedUpdateCalls - c.last.SkippedUpdateCalls))
	c.RefusedStopRequestsTotal.Add(float64(data.RefusedStopRequests - c.last.RefusedStopRequests))
	c.last = data
}

// ObserveInterpolation records a single item's reported interpolation value.
func (c *SchedulerCollector) ObserveInterpolation(v float64) {
	if c == nil || c.FrameInterpolation == nil {
		return
	}
	c.FrameInterpolation.Observe(v)
}

// SetRegisteredItems updates the registered-item count gauge.
func (c *SchedulerCollector) SetRegisteredItems(count int) {
	if c == nil || c.RegisteredItems == nil {
		return
	}
	c.RegisteredItems.Set(float64(count))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
