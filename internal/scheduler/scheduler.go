// Package scheduler implements the single-step execution primitive: scan
// nodes in declared order, run the first executable one, record its
// output. It is deliberately synchronous and single-threaded — there is
// no implicit suspension and no concurrent node execution, matching the
// cooperative scheduling model the rest of the engine assumes.
package scheduler

import (
	"log/slog"

	"github.com/linkflow/nodeflow/internal/graph"
	"github.com/linkflow/nodeflow/internal/kernel"
	"github.com/linkflow/nodeflow/internal/resolve"
)

// Entry binds one graph node's descriptor to its live kernel instance and
// its set of required input ports (ports whose binding must resolve for
// the node to be executable).
type Entry struct {
	Descriptor     graph.NodeDescriptor
	Instance       *kernel.Instance
	RequiredInputs []string
}

// Runner holds the live node set for one graph, in declared order, and
// drives step() over it.
type Runner struct {
	entries []*Entry
	logger  *slog.Logger

	pipelineInputs map[string]any
	pipelineParams map[string]any
	extra          resolve.ExtraSource

	latestOutputs map[string]map[string]any
}

// New builds a Runner over entries (which must be in the graph's declared
// node order — the order step() scans in).
func New(entries []*Entry, pipelineInputs, pipelineParams map[string]any, extra resolve.ExtraSource, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		entries:        entries,
		logger:         logger,
		pipelineInputs: pipelineInputs,
		pipelineParams: pipelineParams,
		extra:          extra,
		latestOutputs:  make(map[string]map[string]any),
	}
}

// LatestOutput returns the most recent output saved for a node id, or nil
// if the node has not yet produced a non-empty output.
func (r *Runner) LatestOutput(id string) map[string]any {
	return r.latestOutputs[id]
}

// SetPipelineInputs replaces the pipeline-level inputs this runner
// resolves "${inputs.*}" references against. Used when a Pipeline is
// itself nested as a structural node and re-invoked with fresh inputs on
// each containing Execute call.
func (r *Runner) SetPipelineInputs(inputs map[string]any) { r.pipelineInputs = inputs }

// SetPipelineParams replaces the pipeline-level params this runner
// resolves "${params.*}" references against.
func (r *Runner) SetPipelineParams(params map[string]any) { r.pipelineParams = params }

// Entries exposes the runner's node entries in declared order, for status
// and error aggregation by a containing pipeline.
func (r *Runner) Entries() []*Entry { return r.entries }

// sources builds the resolver Sources for the current state of this
// runner's latest outputs.
func (r *Runner) sources() resolve.Sources {
	return resolve.Sources{
		Inputs:        r.pipelineInputs,
		Params:        r.pipelineParams,
		LatestOutputs: r.latestOutputs,
		Extra:         r.extra,
	}
}

// executable reports whether e's own status and resolved required inputs
// both permit scheduling: the executability oracle of spec §4.3.
func (r *Runner) executable(e *Entry) bool {
	if !e.Instance.Executable() {
		return false
	}
	resolvedInputs := resolve.ResolveInputs(e.Descriptor.Inputs, r.sources())
	return resolve.RequiredInputsResolved(resolvedInputs, e.RequiredInputs)
}

// Step scans entries in declared order for the first executable node,
// runs it exactly once, and — if it produced a non-empty output — saves
// that output as the node's latest. It returns true if a node was run
// (progress was made), false if no node was executable.
func (r *Runner) Step() bool {
	for _, e := range r.entries {
		if !r.executable(e) {
			continue
		}
		src := r.sources()
		inputs := resolve.ResolveInputs(e.Descriptor.Inputs, src)
		params := resolve.ResolveParams(e.Descriptor.Params, src)

		out := e.Instance.Execute(inputs, params)
		if len(out) > 0 {
			r.latestOutputs[e.Descriptor.ID] = out
		}
		r.logger.Debug("stepped node", "id", e.Descriptor.ID, "status", e.Instance.Status())
		return true
	}
	return false
}

// Statuses returns the current status of every entry, in declared order.
func (r *Runner) Statuses() []kernel.Status {
	out := make([]kernel.Status, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Instance.Status()
	}
	return out
}
