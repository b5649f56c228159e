// Package observability provides lightweight, dependency-free counters
// for kernel-level events (node calls, revisions stamped, terminal
// statuses), in the same Counter/Gauge shape the engine's wider metrics
// package uses, scaled down to what a single-process run needs.
package observability

import "sync/atomic"

// Counter is a monotonically increasing, concurrency-safe counter.
type Counter struct {
	name  string
	value int64
}

// NewCounter creates a named counter starting at zero.
func NewCounter(name string) *Counter { return &Counter{name: name} }

// Name returns the counter's name.
func (c *Counter) Name() string { return c.name }

// Inc increments the counter by 1.
func (c *Counter) Inc() { atomic.AddInt64(&c.value, 1) }

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) { atomic.AddInt64(&c.value, delta) }

// Value returns the counter's current value.
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.value) }

// KernelMetrics tracks the handful of counters worth surfacing for a
// single pipeline run: total node invocations, revisions stamped, and one
// counter per terminal-ish status transition.
type KernelMetrics struct {
	NodeCalls        *Counter
	RevisionsStamped *Counter
	PauseEvents      *Counter
	LimitEvents      *Counter
	FatalEvents      *Counter
}

// NewKernelMetrics builds a fresh, zeroed KernelMetrics.
func NewKernelMetrics() *KernelMetrics {
	return &KernelMetrics{
		NodeCalls:        NewCounter("node_calls_total"),
		RevisionsStamped: NewCounter("revisions_stamped_total"),
		PauseEvents:      NewCounter("pause_events_total"),
		LimitEvents:      NewCounter("limit_events_total"),
		FatalEvents:      NewCounter("fatal_events_total"),
	}
}

// Snapshot is a point-in-time, immutable copy of KernelMetrics suitable
// for logging or JSON encoding.
type Snapshot struct {
	NodeCalls        int64 `json:"node_calls_total"`
	RevisionsStamped int64 `json:"revisions_stamped_total"`
	PauseEvents      int64 `json:"pause_events_total"`
	LimitEvents      int64 `json:"limit_events_total"`
	FatalEvents      int64 `json:"fatal_events_total"`
}

// Snapshot captures the current counter values.
func (m *KernelMetrics) Snapshot() Snapshot {
	return Snapshot{
		NodeCalls:        m.NodeCalls.Value(),
		RevisionsStamped: m.RevisionsStamped.Value(),
		PauseEvents:      m.PauseEvents.Value(),
		LimitEvents:      m.LimitEvents.Value(),
		FatalEvents:      m.FatalEvents.Value(),
	}
}
