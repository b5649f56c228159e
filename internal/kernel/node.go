package kernel

import (
	"log/slog"
	"maps"

	"github.com/linkflow/nodeflow/internal/observability"
)

// CallCounter is implemented by node implementations that are themselves
// structural containers (a nested pipeline or loop) wrapping further node
// calls. Instance.NodeCalls sums a node's own call count with its wrapped
// implementation's subtree total when the implementation satisfies this,
// giving a structural node's read_node_calls()-equivalent: self + subtree.
type CallCounter interface {
	NodeCalls() int
}

// Node is the contract every executable unit implements. Run performs the
// node's actual work; the kernel's Execute wraps it with call counting,
// parameter freezing, limit enforcement, status transitions, and output
// revision stamping.
type Node interface {
	// Run performs one invocation of the node's work. inputs is the
	// resolved set of bound input values; params is the frozen (read-only)
	// parameter map. A returned *PauseSignal or *LimitSignal is translated
	// to the corresponding status by Execute; any other error is fatal.
	Run(inputs, params map[string]any) (map[string]any, error)
}

// LimitChecker is implemented by nodes that need to inspect the frozen
// params before (pre) or after (post) a Run call to decide whether a
// resource ceiling has been reached. Both hooks are optional; a node that
// doesn't implement LimitChecker is never limited by the kernel itself.
type LimitChecker interface {
	CheckLimitPre(params map[string]any) bool
	CheckLimitPost(params map[string]any, runSucceeded bool) bool
}

// Base is embedded by concrete node implementations to get the standard
// status/call-count bookkeeping and the Execute wrapper. It does not embed
// Node itself — the concrete type provides Run and is passed explicitly to
// Execute.
type Base struct {
	Logger *slog.Logger
	// Metrics, if non-nil, receives per-call counters as Execute runs.
	// A nil Metrics is the common case (e.g. in unit tests) and simply
	// disables counting.
	Metrics *observability.KernelMetrics

	status  Status
	calls   int
	lastErr error
}

// NewBase constructs a Base in the ready state.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{Logger: logger, status: StatusReady}
}

// WithMetrics attaches m so subsequent Execute calls report into it, and
// returns b for chaining.
func (b *Base) WithMetrics(m *observability.KernelMetrics) *Base {
	b.Metrics = m
	return b
}

// Status returns the node's current lifecycle status.
func (b *Base) Status() Status { return b.status }

// Calls returns the number of times Execute has been called (including
// calls that were limited, paused, or failed, and calls that a pre-limit
// hook stopped before reaching Run).
func (b *Base) Calls() int { return b.calls }

// Err returns the fatal error recorded by the most recent Execute call, if
// any.
func (b *Base) Err() error { return b.lastErr }

// Executable reports whether the node's own status permits scheduling,
// per the executability oracle: ready or done.
func (b *Base) Executable() bool {
	return b.status == StatusReady || b.status == StatusDone
}

// Execute runs the node-kernel contract around n.Run: increments the call
// counter, freezes params, transitions through executing, applies any
// LimitChecker pre-hook, invokes Run, classifies the outcome into
// pause/limit/fatal/done, and — on a successful dict result — stamps
// output revisions before the optional post-hook gets a final say.
func (b *Base) Execute(n Node, inputs, params map[string]any) map[string]any {
	b.calls++
	if b.Metrics != nil {
		b.Metrics.NodeCalls.Inc()
	}
	frozen := freeze(params)
	b.status = StatusExecuting

	if lc, ok := n.(LimitChecker); ok {
		if lc.CheckLimitPre(frozen) {
			b.status = StatusLimit
			if b.Metrics != nil {
				b.Metrics.LimitEvents.Inc()
			}
			return map[string]any{}
		}
	}

	result, err := n.Run(inputs, frozen)
	if err != nil {
		if p, ok := asPause(err); ok {
			b.status = StatusPause
			if b.Metrics != nil {
				b.Metrics.PauseEvents.Inc()
			}
			b.Logger.Debug("node paused", "reason", p.Reason)
			return map[string]any{}
		}
		if l, ok := asLimit(err); ok {
			b.status = StatusLimit
			if b.Metrics != nil {
				b.Metrics.LimitEvents.Inc()
			}
			b.Logger.Debug("node limited", "reason", l.Reason)
			return map[string]any{}
		}
		b.status = StatusFatal
		b.lastErr = err
		if b.Metrics != nil {
			b.Metrics.FatalEvents.Inc()
		}
		b.Logger.Error("node fatal", "error", err)
		return map[string]any{}
	}

	if result == nil {
		result = map[string]any{}
	}

	if err := StampRevisions(result); err != nil {
		b.status = StatusFatal
		b.lastErr = err
		if b.Metrics != nil {
			b.Metrics.FatalEvents.Inc()
		}
		return map[string]any{}
	}
	if b.Metrics != nil && len(result) > 0 {
		b.Metrics.RevisionsStamped.Add(int64(len(result)))
	}

	if lc, ok := n.(LimitChecker); ok {
		if lc.CheckLimitPost(frozen, true) {
			b.status = StatusLimit
			if b.Metrics != nil {
				b.Metrics.LimitEvents.Inc()
			}
			return result
		}
	}

	if b.status == StatusExecuting {
		b.status = StatusDone
	}
	return result
}

// Resume clears a paused node back to ready so it becomes executable
// again on the next scheduler pass.
func (b *Base) Resume() {
	if b.status == StatusPause {
		b.status = StatusReady
	}
}

// freeze returns a shallow copy of params. It is not a deep/recursive
// freeze: nested maps and slices remain mutable by reference, matching
// the reference semantics where only the top-level binding is protected
// from replacement during a run.
func freeze(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(params))
	maps.Copy(out, params)
	return out
}
