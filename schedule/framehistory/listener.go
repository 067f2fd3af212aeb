package framehistory

import (
	"time"

	"github.com/Niraka/nebula/schedule"
)

// Observer wraps another Item, recording every interpolation it is handed
// before forwarding the call unchanged. Wrapping is transparent: the
// history sees exactly what the wrapped item sees, on the same frames, in
// the same order. This is how a History gets fed without engine.go itself
// needing to know framehistory exists.
type Observer struct {
	item    schedule.Item
	history *History
	now     func() time.Time
}

// Observe wraps item so every OnUpdate call it receives is also recorded
// into history.
func Observe(item schedule.Item, history *History) *Observer {
	return &Observer{item: item, history: history, now: time.Now}
}

// OnUpdate implements schedule.Item.
func (o *Observer) OnUpdate(info schedule.TimeInfo) {
	o.history.Record(Sample{At: o.now(), Interpolation: info.Interpolation})
	o.item.OnUpdate(info)
}

// OnSchedulerStart implements schedule.Item.
func (o *Observer) OnSchedulerStart(info schedule.TimeInfo) { o.item.OnSchedulerStart(info) }

// OnSchedulerStop implements schedule.Item.
func (o *Observer) OnSchedulerStop(info schedule.TimeInfo) { o.item.OnSchedulerStop(info) }

// IsRequestingStop implements schedule.Item.
func (o *Observer) IsRequestingStop() bool { return o.item.IsRequestingStop() }

// IsRequestingSkip implements schedule.Item.
func (o *Observer) IsRequestingSkip() bool { return o.item.IsRequestingSkip() }

// ResetFlags implements schedule.Item.
func (o *Observer) ResetFlags() { o.item.ResetFlags() }
