// Package framehistory keeps a bounded, in-memory trail of recent frame
// interpolation samples, so a running scheduler can answer "what did the
// last few seconds look like" without a metrics backend. It holds no
// state across process restarts.
package framehistory

import (
	"time"

	"github.com/eapache/queue"
)

// Sample is one recorded frame's interpolation reading.
type Sample struct {
	At            time.Time
	Interpolation float64
}

// History is a fixed-capacity FIFO of the most recent samples. It is not
// safe for concurrent use; callers observing a schedule.Engine from its own
// goroutine (via WithFrameObserver or a Listener) never need to synchronize
// it themselves.
type History struct {
	capacity int
	q        *queue.Queue
}

// New creates a History that retains at most capacity samples, evicting the
// oldest sample once full. A non-positive capacity is coerced to 1.
func New(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity, q: queue.New()}
}

// Record appends a sample, evicting the oldest one if the history is full.
func (h *History) Record(s Sample) {
	h.q.Add(s)
	for h.q.Length() > h.capacity {
		h.q.Remove()
	}
}

// Len returns the number of samples currently retained.
func (h *History) Len() int {
	return h.q.Length()
}

// Snapshot returns every retained sample, oldest first.
func (h *History) Snapshot() []Sample {
	out := make([]Sample, h.q.Length())
	for i := range out {
		out[i] = h.q.Get(i).(Sample)
	}
	return out
}

// Average returns the mean interpolation across every retained sample, or 0
// if the history is empty.
func (h *History) Average() float64 {
	n := h.q.Length()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += h.q.Get(i).(Sample).Interpolation
	}
	return sum / float64(n)
}

// Max returns the largest interpolation across every retained sample, or 0
// if the history is empty.
func (h *History) Max() float64 {
	n := h.q.Length()
	var max float64
	for i := 0; i < n; i++ {
		if v := h.q.Get(i).(Sample).Interpolation; v > max {
			max = v
		}
	}
	return max
}
