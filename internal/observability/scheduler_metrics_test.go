package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Niraka/nebula/schedule"
)

func TestNewSchedulerCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("NewSchedulerCollector() error = %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"nebula_scheduler_frames_executed_total":            false,
		"nebula_scheduler_frames_delayed_total":              false,
		"nebula_scheduler_frames_delayed_thread_wake_total":  false,
		"nebula_scheduler_skipped_update_calls_total":        false,
		"nebula_scheduler_refused_stop_requests_total":       false,
		"nebula_scheduler_frame_interpolation":               false,
		"nebula_scheduler_registered_items":                  false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s was not registered", name)
		}
	}

	if collector.Gatherer() != prometheus.Gatherer(reg) {
		t.Fatal("Gatherer() did not return the registry it was built with")
	}
}

func TestNewSchedulerCollectorToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("first NewSchedulerCollector() error = %v", err)
	}
	second, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("second NewSchedulerCollector() error = %v", err)
	}

	first.FramesExecutedTotal.Add(3)
	if got := testutil.ToFloat64(second.FramesExecutedTotal); got != 3 {
		t.Fatalf("second collector's counter = %v, want 3 (should share the already-registered collector)", got)
	}
}

func TestObserveExecutionDataAddsDeltasNotAbsolutes(t *testing.T) {
	collector, err := NewSchedulerCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSchedulerCollector() error = %v", err)
	}

	collector.ObserveExecutionData(schedule.ExecutionData{
		FramesExecuted:          10,
		FramesDelayedTotal:      2,
		FramesDelayedThreadWake: 1,
		SkippedUpdateCalls:      0,
		RefusedStopRequests:     0,
	})
	collector.ObserveExecutionData(schedule.ExecutionData{
		FramesExecuted:          25,
		FramesDelayedTotal:      5,
		FramesDelayedThreadWake: 1,
		SkippedUpdateCalls:      3,
		RefusedStopRequests:     1,
	})

	if got := testutil.ToFloat64(collector.FramesExecutedTotal); got != 25 {
		t.Fatalf("FramesExecutedTotal = %v, want 25 (cumulative across both snapshots)", got)
	}
	if got := testutil.ToFloat64(collector.FramesDelayedTotal); got != 5 {
		t.Fatalf("FramesDelayedTotal = %v, want 5", got)
	}
	if got := testutil.ToFloat64(collector.FramesDelayedThreadWakeTotal); got != 1 {
		t.Fatalf("FramesDelayedThreadWakeTotal = %v, want 1 (no growth in second snapshot)", got)
	}
	if got := testutil.ToFloat64(collector.SkippedUpdateCallsTotal); got != 3 {
		t.Fatalf("SkippedUpdateCallsTotal = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.RefusedStopRequestsTotal); got != 1 {
		t.Fatalf("RefusedStopRequestsTotal = %v, want 1", got)
	}
}

func TestObserveInterpolationRecordsIntoHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("NewSchedulerCollector() error = %v", err)
	}

	collector.ObserveInterpolation(1.0)
	collector.ObserveInterpolation(1.2)

	if got := testutil.CollectAndCount(collector.FrameInterpolation); got != 1 {
		t.Fatalf("CollectAndCount() = %d, want 1 metric family", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sampleCount uint64
	for _, f := range families {
		if f.GetName() != "nebula_scheduler_frame_interpolation" {
			continue
		}
		for _, m := range f.GetMetric() {
			sampleCount += m.GetHistogram().GetSampleCount()
		}
	}
	if sampleCount != 2 {
		t.Fatalf("histogram sample count = %d, want 2", sampleCount)
	}
}

func TestSetRegisteredItemsSetsGaugeValue(t *testing.T) {
	collector, err := NewSchedulerCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSchedulerCollector() error = %v", err)
	}

	collector.SetRegisteredItems(7)
	if got := testutil.ToFloat64(collector.RegisteredItems); got != 7 {
		t.Fatalf("RegisteredItems = %v, want 7", got)
	}

	collector.SetRegisteredItems(2)
	if got := testutil.ToFloat64(collector.RegisteredItems); got != 2 {
		t.Fatalf("RegisteredItems = %v, want 2 after a second Set", got)
	}
}

func TestNilCollectorMethodsAreNoops(t *testing.T) {
	var collector *SchedulerCollector
	collector.ObserveExecutionData(schedule.ExecutionData{FramesExecuted: 5})
	collector.ObserveInterpolation(1.5)
	collector.SetRegisteredItems(3)
	if collector.Gatherer() != nil {
		t.Fatal("Gatherer() on a nil collector should return nil")
	}
}
