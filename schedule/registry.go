package schedule

import (
	"reflect"
	"time"
)

// itemState tracks the timing bookkeeping the engine needs for one
// registered item. It is internal: callers only ever see TimeInfo.
type itemState struct {
	step          time.Duration
	unlimited     bool
	nextFrameTime time.Time
	lastUpdate    time.Time
}

type itemEntry struct {
	item  Item
	state itemState
}

// itemRegistry is an insertion-ordered, duplicate-tolerant list of
// scheduled items. Registering the same Item twice produces two entries,
// matching the source Vector-backed schedule list; removing drops only the
// first match.
type itemRegistry struct {
	entries []*itemEntry
}

// add appends a new entry for item at the given rate. lastUpdate is set to
// now when the loop is currently running, or left zero otherwise, so that a
// not-yet-started scheduler doesn't fabricate a bogus last-update time.
func (r *itemRegistry) add(item Item, rate Rate, now time.Time, running bool) {
	step, unlimited := rate.Timestep()
	state := itemState{
		step:      step,
		unlimited: unlimited,
	}
	if running {
		state.lastUpdate = now
	}
	r.entries = append(r.entries, &itemEntry{item: item, state: state})
}

// remove drops the first entry whose item equals the given item. Items
// backed by a non-comparable concrete type (a struct holding a slice, map,
// or func field, used by value rather than by pointer) can never match an
// equality check; such an item is reported as not found rather than left to
// panic the underlying interface comparison. Items should be registered as
// pointers, as BaseItem's pointer-receiver methods already encourage.
func (r *itemRegistry) remove(item Item) bool {
	if !comparableItem(item) {
		return false
	}
	for i, entry := range r.entries {
		if entry.item == item {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *itemRegistry) exists(item Item) bool {
	if !comparableItem(item) {
		return false
	}
	for _, entry := range r.entries {
		if entry.item == item {
			return true
		}
	}
	return false
}

func comparableItem(item Item) bool {
	if item == nil {
		return false
	}
	return reflect.TypeOf(item).Comparable()
}

// snapshot returns a copy of the current entry list. The engine takes a
// fresh snapshot at the start of every iteration pass (announce-start,
// per-frame item pass, announce-stop) so that an add or remove triggered
// from within a callback never perturbs the pass already in progress; it
// only becomes visible on the next pass.
func (r *itemRegistry) snapshot() []*itemEntry {
	out := make([]*itemEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
