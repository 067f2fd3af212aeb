package schedule

// Item is anything that can be registered with an Engine for periodic
// updates. Implementations are not owned by the Engine: callers are
// responsible for keeping an Item alive until it is removed.
type Item interface {
	// OnUpdate is called as close to the item's configured rate as the
	// master rate allows.
	OnUpdate(info TimeInfo)
	// OnSchedulerStart is called once, for every item registered at the
	// moment Start is called, before any OnUpdate call.
	OnSchedulerStart(info TimeInfo)
	// OnSchedulerStop is called once, in insertion order, after the loop
	// has stopped and no further OnUpdate calls will occur.
	OnSchedulerStop(info TimeInfo)

	// IsRequestingStop reports whether the item is asking the scheduler to
	// stop. A stop request that is honored ends the current frame's item
	// pass at this item: items after it receive no update that frame.
	IsRequestingStop() bool
	// IsRequestingSkip reports whether the item is asking the scheduler to
	// skip its next update call.
	IsRequestingSkip() bool
	// ResetFlags clears both the stop and skip request flags.
	ResetFlags()
}

// BaseItem provides the flag bookkeeping and no-op lifecycle hooks that
// every Item needs, so concrete items only have to implement OnUpdate. This
// mirrors the source engine's ScheduledItem base class.
type BaseItem struct {
	stopRequested bool
	skipRequested bool
}

// RequestStop asks the scheduler to stop once the current frame's item pass
// reaches a point where stop requests are honored.
func (b *BaseItem) RequestStop() { b.stopRequested = true }

// RequestSkip asks the scheduler to skip this item's next update call.
func (b *BaseItem) RequestSkip() { b.skipRequested = true }

// IsRequestingStop implements Item.
func (b *BaseItem) IsRequestingStop() bool { return b.stopRequested }

// IsRequestingSkip implements Item.
func (b *BaseItem) IsRequestingSkip() bool { return b.skipRequested }

// ResetFlags implements Item.
func (b *BaseItem) ResetFlags() {
	b.stopRequested = false
	b.skipRequested = false
}

// OnSchedulerStart is a no-op default, matching the source's
// ScheduledItem::onSchedulerStart.
func (b *BaseItem) OnSchedulerStart(TimeInfo) {}

// OnSchedulerStop is a no-op default, matching the source's
// ScheduledItem::onSchedulerStop.
func (b *BaseItem) OnSchedulerStop(TimeInfo) {}
