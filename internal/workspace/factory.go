package workspace

import (
	"fmt"
	"sync"

	"github.com/linkflow/nodeflow/internal/kernel"
)

// NodeFactory produces a fresh node instance for a declared node type.
// The engine does not prescribe how a factory locates or loads the
// user's implementation; this package ships two adapters (Registry, an
// in-process constructor lookup, and internal/sandboxrt's subprocess
// runtime) over the same interface.
type NodeFactory interface {
	New(nodeType string) (kernel.Node, error)
}

// Constructor builds a fresh kernel.Node instance, typically capturing
// per-workspace configuration in a closure.
type Constructor func() kernel.Node

// Registry is an in-process NodeFactory backed by a map of node type to
// Constructor, registered at process startup — the simplest possible
// adapter, for node types implemented as ordinary Go packages compiled
// into the binary.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor for nodeType, replacing any existing one.
func (r *Registry) Register(nodeType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[nodeType] = ctor
}

// MustRegister registers ctor for nodeType and panics if nodeType is
// already registered — for use in package init() blocks where a
// collision is a programming error, not a runtime condition.
func (r *Registry) MustRegister(nodeType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[nodeType]; exists {
		panic(fmt.Sprintf("workspace: node type %q already registered", nodeType))
	}
	r.ctors[nodeType] = ctor
}

// New implements NodeFactory.
func (r *Registry) New(nodeType string) (kernel.Node, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workspace: no node type registered for %q", nodeType)
	}
	return ctor(), nil
}

// NodeTypes returns every registered node type name.
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	return out
}

// ChainFactory tries each factory in order, returning the first
// successful New call — used to layer the in-process Registry ahead of
// the subprocess sandboxrt adapter, so compiled-in node types never pay
// the subprocess cost.
type ChainFactory []NodeFactory

// New implements NodeFactory.
func (c ChainFactory) New(nodeType string) (kernel.Node, error) {
	var lastErr error
	for _, f := range c {
		n, err := f.New(nodeType)
		if err == nil {
			return n, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("workspace: no factory configured")
	}
	return nil, lastErr
}
