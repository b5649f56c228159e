package kernel

import "errors"

// PauseSignal, returned by a node's Run, suspends the node without error.
// The scheduler never selects a paused node; it stays paused until Resume
// (called through its containing pipeline's Resume) sets it back to ready.
type PauseSignal struct {
	Reason string
}

func (e *PauseSignal) Error() string {
	if e.Reason == "" {
		return "node paused"
	}
	return "node paused: " + e.Reason
}

// LimitSignal, returned by a node's Run (or raised by a pre/post limit
// check), marks the node as having hit a resource ceiling.
type LimitSignal struct {
	Reason string
}

func (e *LimitSignal) Error() string {
	if e.Reason == "" {
		return "node limit exceeded"
	}
	return "node limit exceeded: " + e.Reason
}

// ErrNotAMap names the non-map run result case. Run's map[string]any
// return type rules that case out, so Execute never returns this error; a
// nil result map is treated as an empty output.
var ErrNotAMap = errors.New("kernel: run result is not a map")

func asPause(err error) (*PauseSignal, bool) {
	var p *PauseSignal
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

func asLimit(err error) (*LimitSignal, bool) {
	var l *LimitSignal
	if errors.As(err, &l) {
		return l, true
	}
	return nil, false
}
