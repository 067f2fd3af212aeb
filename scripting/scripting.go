// Package scripting lets a scheduler item be authored as a small piece of
// JavaScript instead of Go, evaluated in an embedded goja.Runtime. This is
// the data-driven generalization of the original engine's expectation that
// gameplay code subclasses a scheduled item type: here the "subclass" is a
// source string supplied at runtime.
package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/Niraka/nebula/schedule"
)

// ScriptItem implements schedule.Item by calling into a JavaScript function
// for each lifecycle hook. onUpdate is required; onSchedulerStart and
// onSchedulerStop are optional: a script that only defines onUpdate is
// valid, and the missing hooks behave as no-ops.
//
// The script runs in its own goja.Runtime, created by New, so two
// ScriptItems never share global state. New offers no way to inject other
// values into the runtime besides requestStop and requestSkip.
type ScriptItem struct {
	schedule.BaseItem

	vm *goja.Runtime

	onUpdate         goja.Callable
	onSchedulerStart goja.Callable
	onSchedulerStop  goja.Callable
}

// timeInfoView is the JSON-friendly shape a TimeInfo is exposed as inside
// the script; goja converts it to a plain JS object on Set/RunProgram calls
// via reflection, and Go time.Duration/time.Time values don't have a
// meaningful JS representation, so everything crosses the boundary as
// numbers (seconds, for durations; unix nanoseconds, for instants).
type timeInfoView struct {
	EpochUnixNano      int64
	SinceEpochSeconds  float64
	FrameStartUnixNano int64
	NowUnixNano        int64
	SinceLastUpdateSec float64
	Interpolation      float64
}

func newTimeInfoView(info schedule.TimeInfo) timeInfoView {
	return timeInfoView{
		EpochUnixNano:      info.Epoch.UnixNano(),
		SinceEpochSeconds:  info.SinceEpoch.Seconds(),
		FrameStartUnixNano: info.FrameStart.UnixNano(),
		NowUnixNano:        info.Now.UnixNano(),
		SinceLastUpdateSec: info.SinceLastUpdate.Seconds(),
		Interpolation:      info.Interpolation,
	}
}

// New compiles source and returns a ScriptItem backed by it. source must
// define at least an onUpdate function; onSchedulerStart and
// onSchedulerStop are optional. requestStop() and requestSkip() are
// injected into the script's global scope so it can drive its own
// lifecycle, matching the flags a native BaseItem-derived Item can set on
// itself.
func New(source string) (*ScriptItem, error) {
	vm := goja.New()
	item := &ScriptItem{vm: vm}

	if err := vm.Set("requestStop", func() { item.RequestStop() }); err != nil {
		return nil, fmt.Errorf("scripting: inject requestStop: %w", err)
	}
	if err := vm.Set("requestSkip", func() { item.RequestSkip() }); err != nil {
		return nil, fmt.Errorf("scripting: inject requestSkip: %w", err)
	}

	if _, err := vm.RunString(source); err != nil {
		return nil, fmt.Errorf("scripting: compile: %w", err)
	}

	item.onUpdate = lookupCallable(vm, "onUpdate")
	if item.onUpdate == nil {
		return nil, fmt.Errorf("scripting: source must define an onUpdate function")
	}
	item.onSchedulerStart = lookupCallable(vm, "onSchedulerStart")
	item.onSchedulerStop = lookupCallable(vm, "onSchedulerStop")

	return item, nil
}

// lookupCallable looks up name in the runtime's global scope, returning nil
// if it is missing or not a function.
func lookupCallable(vm *goja.Runtime, name string) goja.Callable {
	val := vm.Get(name)
	if val == nil || val == goja.Undefined() {
		return nil
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil
	}
	return fn
}

// OnUpdate implements schedule.Item by calling the script's onUpdate.
func (s *ScriptItem) OnUpdate(info schedule.TimeInfo) {
	s.call(s.onUpdate, info)
}

// OnSchedulerStart implements schedule.Item.
func (s *ScriptItem) OnSchedulerStart(info schedule.TimeInfo) {
	s.BaseItem.OnSchedulerStart(info)
	s.call(s.onSchedulerStart, info)
}

// OnSchedulerStop implements schedule.Item.
func (s *ScriptItem) OnSchedulerStop(info schedule.TimeInfo) {
	s.BaseItem.OnSchedulerStop(info)
	s.call(s.onSchedulerStop, info)
}

func (s *ScriptItem) call(fn goja.Callable, info schedule.TimeInfo) {
	if fn == nil {
		return
	}
	view := s.vm.ToValue(newTimeInfoView(info))
	if _, err := fn(goja.Undefined(), view); err != nil {
		panic(fmt.Errorf("scripting: script error: %w", err))
	}
}
