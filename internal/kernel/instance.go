package kernel

import "log/slog"

// Instance binds a concrete Node implementation to a Base, giving callers
// a single handle that exposes both lifecycle state and the Execute
// entrypoint without requiring every node implementation to embed Base
// itself and thread n through its own calls.
type Instance struct {
	*Base
	impl Node
}

// NewInstance wraps impl in a fresh, ready Instance.
func NewInstance(impl Node, logger *slog.Logger) *Instance {
	return &Instance{Base: NewBase(logger), impl: impl}
}

// Run satisfies Node by delegating to the wrapped implementation.
func (i *Instance) Run(inputs, params map[string]any) (map[string]any, error) {
	return i.impl.Run(inputs, params)
}

// Execute runs the node-kernel contract for this instance.
func (i *Instance) Execute(inputs, params map[string]any) map[string]any {
	return i.Base.Execute(i, inputs, params)
}

// CheckLimitPre forwards to the wrapped implementation's LimitChecker, if
// it has one, so Instance always satisfies LimitChecker regardless of
// whether impl does.
func (i *Instance) CheckLimitPre(params map[string]any) bool {
	if lc, ok := i.impl.(LimitChecker); ok {
		return lc.CheckLimitPre(params)
	}
	return false
}

// CheckLimitPost forwards to the wrapped implementation's LimitChecker, if
// it has one.
func (i *Instance) CheckLimitPost(params map[string]any, runSucceeded bool) bool {
	if lc, ok := i.impl.(LimitChecker); ok {
		return lc.CheckLimitPost(params, runSucceeded)
	}
	return false
}

// Impl returns the wrapped node implementation.
func (i *Instance) Impl() Node { return i.impl }

// NodeCalls returns this instance's own call count plus, if the wrapped
// implementation is itself a structural container (CallCounter), that
// container's subtree total — the self-plus-subtree sum a nested
// pipeline/loop node reports up to its containing scheduler.
func (i *Instance) NodeCalls() int {
	total := i.Base.Calls()
	if cc, ok := i.impl.(CallCounter); ok {
		total += cc.NodeCalls()
	}
	return total
}
