package schedule

import (
	"testing"
	"time"
)

type stubItem struct{ BaseItem }

func (s *stubItem) OnUpdate(TimeInfo) {}

func TestItemRegistryToleratesDuplicateRegistration(t *testing.T) {
	var r itemRegistry
	item := &stubItem{}
	now := time.Now()

	r.add(item, FromPreset(Preset60PerSecond), now, false)
	r.add(item, FromPreset(Preset30PerSecond), now, false)

	if len(r.entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 independent entries", len(r.entries))
	}
	if !r.exists(item) {
		t.Fatal("exists reports false for a registered item")
	}
}

func TestItemRegistryRemoveDropsOnlyFirstMatch(t *testing.T) {
	var r itemRegistry
	item := &stubItem{}
	now := time.Now()

	r.add(item, FromPreset(Preset60PerSecond), now, false)
	r.add(item, FromPreset(Preset30PerSecond), now, false)

	if !r.remove(item) {
		t.Fatal("remove reported false for a present item")
	}
	if len(r.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 remaining entry", len(r.entries))
	}
	if !r.exists(item) {
		t.Fatal("second entry should still be registered")
	}
}

func TestItemRegistryRemoveAbsentIsNoop(t *testing.T) {
	var r itemRegistry
	if r.remove(&stubItem{}) {
		t.Fatal("remove reported true for an item that was never added")
	}
}

func TestItemRegistryAddSetsLastUpdateOnlyWhenRunning(t *testing.T) {
	var r itemRegistry
	now := time.Now()

	r.add(&stubItem{}, FromPreset(Preset60PerSecond), now, false)
	if !r.entries[0].state.lastUpdate.IsZero() {
		t.Fatal("lastUpdate should be zero when the loop is not running")
	}

	r.add(&stubItem{}, FromPreset(Preset60PerSecond), now, true)
	if !r.entries[1].state.lastUpdate.Equal(now) {
		t.Fatal("lastUpdate should be seeded with now when the loop is running")
	}
}

func TestItemRegistrySnapshotIsIndependentOfLiveMutation(t *testing.T) {
	var r itemRegistry
	a, b := &stubItem{}, &stubItem{}
	now := time.Now()
	r.add(a, FromPreset(Preset60PerSecond), now, false)

	snap := r.snapshot()
	r.add(b, FromPreset(Preset60PerSecond), now, false)
	r.remove(a)

	if len(snap) != 1 || snap[0].item != a {
		t.Fatalf("snapshot mutated by later registry changes: %+v", snap)
	}
}

type countingListener struct {
	order  *[]int
	marker int
}

func (c *countingListener) OnEvent(Event) { *c.order = append(*c.order, c.marker) }

func TestListenerRegistryBroadcastOrderAndRemoval(t *testing.T) {
	var r listenerRegistry
	var order []int

	l1 := &countingListener{order: &order, marker: 1}
	l2 := &countingListener{order: &order, marker: 2}
	l3 := &countingListener{order: &order, marker: 3}
	r.add(l1)
	r.add(l2)
	r.add(l3)

	r.broadcast(Event{Kind: StartedEvent})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("broadcast order = %v, want insertion order", order)
	}

	if !r.remove(l2) {
		t.Fatal("remove reported false for a registered listener")
	}
	if r.exists(l2) {
		t.Fatal("listener still reports as existing after removal")
	}

	order = nil
	r.broadcast(Event{Kind: StoppedEvent})
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("broadcast order after removal = %v, want [1 3]", order)
	}
}

// ListenerFunc values are never removable: function values only compare
// equal to nil in Go, so RemoveListener can't identify one by value. The
// registry reports this as "not found" rather than panicking.
func TestListenerRegistryListenerFuncIsNeverRemovable(t *testing.T) {
	var r listenerRegistry
	fired := false
	f := ListenerFunc(func(Event) { fired = true })
	r.add(f)

	if r.remove(f) {
		t.Fatal("remove reported true for a ListenerFunc, which can never match by value")
	}
	if r.exists(f) {
		t.Fatal("exists reported true for a ListenerFunc, which can never match by value")
	}

	r.broadcast(Event{Kind: StartedEvent})
	if !fired {
		t.Fatal("broadcast should still invoke a ListenerFunc that can't be removed by value")
	}
}

// removingListener removes another listener from the registry as a side
// effect of its own OnEvent, simulating a listener that reacts to an event
// by detaching a peer.
type removingListener struct {
	registry *listenerRegistry
	target   Listener
	order    *[]int
	marker   int
}

func (r *removingListener) OnEvent(Event) {
	*r.order = append(*r.order, r.marker)
	r.registry.remove(r.target)
}

func TestListenerRegistryBroadcastToleratesMidBroadcastRemoval(t *testing.T) {
	var r listenerRegistry
	var order []int

	l3 := &countingListener{order: &order, marker: 3}
	l1 := &removingListener{registry: &r, target: l3, order: &order, marker: 1}
	l2 := &countingListener{order: &order, marker: 2}
	r.add(l1)
	r.add(l2)
	r.add(l3)

	r.broadcast(Event{Kind: StartedEvent})

	// l1 removes l3 as a side effect of its own OnEvent, but broadcast
	// iterates a snapshot taken before that removal, so every listener
	// present at the start of the broadcast is still invoked exactly once.
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("broadcast order = %v, want [1 2 3] despite mid-broadcast removal", order)
	}
	if r.exists(l3) {
		t.Fatal("l3 should have been removed by l1's OnEvent")
	}

	order = nil
	r.broadcast(Event{Kind: StoppedEvent})
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("broadcast order after removal = %v, want [1 2]", order)
	}
}
