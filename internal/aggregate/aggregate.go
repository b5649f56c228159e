// Package aggregate implements the pure status- and error-aggregation
// rules that structural nodes (pipeline, loop) apply to their children.
package aggregate

import "github.com/linkflow/nodeflow/internal/kernel"

// Status folds a set of child statuses into a single aggregate status,
// using the severity order fatal > limit > pause > executing > done >
// ready: the most severe status present wins. An empty set aggregates to
// ready.
func Status(children []kernel.Status) kernel.Status {
	if len(children) == 0 {
		return kernel.StatusReady
	}
	best := children[0]
	for _, s := range children[1:] {
		if kernel.Rank(s) < kernel.Rank(best) {
			best = s
		}
	}
	return best
}

// ChildErrors is the uniform shape error aggregation walks: a leaf
// reports its own error (nil if not fatal); a structural node reports its
// children's aggregated errors plus its own if it is itself fatal.
type ChildErrors interface {
	OwnStatus() kernel.Status
	OwnError() error
	Children() []ChildErrors
}

// Errors aggregates a node's errors per the error-aggregation rule: leaves
// return a single-element slice with their own error (or nil if the leaf
// isn't fatal), and structural nodes concatenate their children's
// aggregated errors with their own error appended last if they are
// themselves fatal. The returned slice never contains nil entries.
func Errors(n ChildErrors) []error {
	var out []error
	for _, child := range n.Children() {
		out = append(out, Errors(child)...)
	}
	if n.OwnStatus() == kernel.StatusFatal {
		if err := n.OwnError(); err != nil {
			out = append(out, err)
		}
	}
	return out
}
