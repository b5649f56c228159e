package pipeline

import (
	"github.com/linkflow/nodeflow/internal/aggregate"
	"github.com/linkflow/nodeflow/internal/kernel"
)

// leafErrors adapts a single kernel.Instance to aggregate.ChildErrors.
type leafErrors struct {
	inst *kernel.Instance
}

func (l leafErrors) OwnStatus() kernel.Status        { return l.inst.Status() }
func (l leafErrors) OwnError() error                 { return l.inst.Err() }
func (l leafErrors) Children() []aggregate.ChildErrors { return nil }

// OwnStatus implements aggregate.ChildErrors for a Pipeline acting as a
// structural node within a containing Loop: its own status is its
// aggregate status, and its own error is its idle/limit-ceiling error (if
// any). Errors does not collect that error, because those conditions
// leave the pipeline in status limit and only fatal errors are aggregated.
func (p *Pipeline) OwnStatus() kernel.Status { return p.Status() }

// OwnError implements aggregate.ChildErrors.
func (p *Pipeline) OwnError() error { return p.limitErr }

// Children implements aggregate.ChildErrors, exposing every leaf node in
// declared order.
func (p *Pipeline) Children() []aggregate.ChildErrors {
	out := make([]aggregate.ChildErrors, 0, len(p.runner.Entries()))
	for _, e := range p.runner.Entries() {
		out = append(out, leafErrors{inst: e.Instance})
	}
	return out
}
