package observability

import "github.com/Niraka/nebula/schedule"

// MetricsBridge connects a SchedulerCollector to a running engine: it keeps
// the registered-item gauge in sync as a schedule.Listener, and decorates
// individual items so their reported interpolation reaches the
// nebula_scheduler_frame_interpolation histogram. Per-item interpolation
// isn't part of any Event, so it can only be observed by wrapping the item
// itself, the same approach schedule/framehistory takes; the Listener side
// only covers what Events actually carry (lifecycle transitions).
type MetricsBridge struct {
	collector *SchedulerCollector
	engine    *schedule.Engine
}

// NewMetricsBridge builds a bridge between collector and engine.
func NewMetricsBridge(collector *SchedulerCollector, engine *schedule.Engine) *MetricsBridge {
	return &MetricsBridge{collector: collector, engine: engine}
}

// OnEvent implements schedule.Listener. It refreshes the registered-item
// gauge on start and stop, the two points at which the item population is
// guaranteed stable for the whole broadcast.
func (b *MetricsBridge) OnEvent(event schedule.Event) {
	switch event.Kind {
	case schedule.StartedEvent, schedule.StoppedEvent:
		b.Refresh()
	}
}

// Refresh sets the registered-item gauge to the engine's current item count.
// Callers that add or remove items while the engine is running should call
// this afterward to keep the gauge accurate between start/stop events.
func (b *MetricsBridge) Refresh() {
	b.collector.SetRegisteredItems(b.engine.ItemCount())
}

// Observe wraps item so every OnUpdate call reports its interpolation to the
// collector's histogram before forwarding to item unchanged.
func (b *MetricsBridge) Observe(item schedule.Item) schedule.Item {
	return &observedItem{item: item, collector: b.collector}
}

type observedItem struct {
	item      schedule.Item
	collector *SchedulerCollector
}

func (o *observedItem) OnUpdate(info schedule.TimeInfo) {
	o.collector.ObserveInterpolation(info.Interpolation)
	o.item.OnUpdate(info)
}

func (o *observedItem) OnSchedulerStart(info schedule.TimeInfo) { o.item.OnSchedulerStart(info) }
func (o *observedItem) OnSchedulerStop(info schedule.TimeInfo)  { o.item.OnSchedulerStop(info) }
func (o *observedItem) IsRequestingStop() bool                  { return o.item.IsRequestingStop() }
func (o *observedItem) IsRequestingSkip() bool                  { return o.item.IsRequestingSkip() }
func (o *observedItem) ResetFlags()                             { o.item.ResetFlags() }
