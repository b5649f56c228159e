// Package pipeline implements the pipeline container: it drives a
// scheduler.Runner to quiescence, applying pipeline-level limits and
// detecting a stalled (idle) run, then reports an aggregate status and
// error set.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkflow/nodeflow/internal/aggregate"
	"github.com/linkflow/nodeflow/internal/kernel"
	"github.com/linkflow/nodeflow/internal/limiter"
	"github.com/linkflow/nodeflow/internal/scheduler"
)

// Pipeline drives one graph's Runner from its current state to
// quiescence: repeatedly calling Step() until the final node is done, a
// node reaches fatal/limit/pause, or no node is executable, enforcing a
// total-call ceiling and an idle timeout along the way.
type Pipeline struct {
	runner   *scheduler.Runner
	finalID  string
	governor *limiter.Governor
	maxIdle  time.Duration
	logger   *slog.Logger

	// limitErr records why the pipeline terminated with status limit: a
	// max_total_node_calls ceiling breach or an idle timeout, per spec.md
	// §4.6 steps (d)/(e) — both are limit conditions, not fatal ones.
	limitErr  error
	idleSince time.Time
	idling    bool
}

// New builds a Pipeline over runner. finalID names the node whose own
// status decides pipeline success. maxIdle is the wall-clock duration of
// zero progress after which the pipeline is declared limit (zero means no
// idle timeout). governor may be nil to run without rate limiting or a
// call ceiling.
func New(runner *scheduler.Runner, finalID string, maxIdle time.Duration, governor *limiter.Governor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if governor == nil {
		governor = limiter.NewGovernor(0, 0, 0)
	}
	return &Pipeline{runner: runner, finalID: finalID, maxIdle: maxIdle, governor: governor, logger: logger}
}

// Run drives the pipeline one quiescence pass, checking the termination
// conditions of spec §4.6 steps 3a-3g after every single step(): a
// ceiling breach or an aggregated fatal/limit/pause status ends the run
// immediately, and success is declared the instant the final node's own
// status reaches done — a pipeline never keeps re-stepping an
// already-reachable final node just because some other, still-executable
// node (done and re-selectable) happens to precede it in declared order.
//
// When no idle timeout is configured (maxIdle == 0), an unproductive step
// is still checked against the success/failure conditions below before
// Run gives up and returns — but if neither holds, Run returns rather
// than spinning forever waiting for a timer that was never configured to
// elapse. That one substitution (return instead of an unbounded busy
// loop) is the only place this implementation departs from idle-timeout
// semantics as written; see DESIGN.md.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.governor.WaitStep(ctx); err != nil {
			return err
		}

		progressed := p.runner.Step()
		blockedForever := false

		if progressed {
			p.idling = false
			if p.governor.RecordCall(1) {
				p.limitErr = fmt.Errorf("pipeline: max_total_node_calls exceeded (%d calls)", p.governor.Calls())
				p.logger.Warn("pipeline call ceiling exceeded", "calls", p.governor.Calls())
				return nil
			}
		} else {
			if !p.idling {
				p.idling = true
				p.idleSince = time.Now()
			}
			if p.maxIdle > 0 && time.Since(p.idleSince) > p.maxIdle {
				p.limitErr = fmt.Errorf("pipeline: idle timeout exceeded (%s)", p.maxIdle)
				return nil
			}
			blockedForever = p.maxIdle <= 0
		}

		agg := aggregate.Status(p.runner.Statuses())
		switch agg {
		case kernel.StatusFatal, kernel.StatusLimit, kernel.StatusPause:
			return nil
		case kernel.StatusDone:
			if p.finalNodeStatus() == kernel.StatusDone {
				return nil
			}
		}

		if blockedForever {
			return nil
		}
	}
}

func (p *Pipeline) finalNodeStatus() kernel.Status {
	for _, e := range p.runner.Entries() {
		if e.Descriptor.ID == p.finalID {
			return e.Instance.Status()
		}
	}
	return kernel.StatusReady
}

// Status returns the aggregate status across every node in the pipeline.
func (p *Pipeline) Status() kernel.Status {
	if p.limitErr != nil {
		return kernel.StatusLimit
	}
	return aggregate.Status(p.runner.Statuses())
}

// Succeeded reports whether the pipeline completed successfully: the
// final node specifically (not merely the aggregate) reached status
// done. This guards against an aggregate of "done" that only holds
// because every node that happened to run finished, while the actual
// final/output node never became executable at all.
func (p *Pipeline) Succeeded() bool {
	if p.limitErr != nil {
		return false
	}
	return p.finalNodeStatus() == kernel.StatusDone
}

// FinalOutput returns the final node's latest saved output, or nil if it
// hasn't produced one.
func (p *Pipeline) FinalOutput() map[string]any {
	return p.runner.LatestOutput(p.finalID)
}

// LatestOutput returns the latest saved output for an arbitrary node id.
func (p *Pipeline) LatestOutput(id string) map[string]any {
	return p.runner.LatestOutput(id)
}

// Errors aggregates every fatal child error across the pipeline, in
// declared node order, per the error-aggregation rule.
func (p *Pipeline) Errors() []error {
	return aggregate.Errors(p)
}

// Resume clears every paused node in the pipeline back to ready, so a
// subsequent Run call can make progress again. It is invalid to call
// Resume while the pipeline is in any state other than pause.
func (p *Pipeline) Resume() error {
	if p.Status() != kernel.StatusPause {
		return fmt.Errorf("pipeline: resume called while status is %s, not pause", p.Status())
	}
	for _, e := range p.runner.Entries() {
		if e.Instance.Status() == kernel.StatusPause {
			e.Instance.Resume()
		}
	}
	return nil
}

// NodeCalls implements kernel.CallCounter: the subtree total across every
// node this pipeline directly holds, each already including its own
// nested subtree (Instance.NodeCalls is itself recursive). This is what
// lets a pipeline nested as a structural node inside a containing graph
// report its full call count up through that graph's own NodeCalls.
func (p *Pipeline) NodeCalls() int {
	total := 0
	for _, e := range p.runner.Entries() {
		total += e.Instance.NodeCalls()
	}
	return total
}

// SetInputs replaces the pipeline-level inputs nodes resolve
// "${inputs.*}" references against. Used by AsNode to rebind this
// pipeline's inputs each time it is invoked as a nested structural node.
func (p *Pipeline) SetInputs(inputs map[string]any) { p.runner.SetPipelineInputs(inputs) }

// SetParams replaces the pipeline-level params nodes resolve
// "${params.*}" references against.
func (p *Pipeline) SetParams(params map[string]any) { p.runner.SetPipelineParams(params) }

// AsNode adapts a *Pipeline to kernel.Node so it can be nested as a single
// node within a containing graph — a pipeline-as-node. Go does not allow
// two methods named Run with different signatures on the same type, so
// this wraps rather than extends Pipeline: Pipeline.Run(ctx) is its own
// top-level driver, AsNode.Run(inputs, params) is the kernel.Node
// contract a containing scheduler calls instead.
type AsNode struct {
	P *Pipeline
}

// Run implements kernel.Node: rebinds the wrapped pipeline's inputs and
// params, drives it to quiescence, and returns its final node's output.
// A fatal or unresolved-condition pipeline outcome is reported as a
// regular Go error, a limit outcome as a *kernel.LimitSignal, and a pause
// outcome as a *kernel.PauseSignal, so the containing scheduler's own
// Execute sees the same status classification it would for a leaf node.
func (a AsNode) Run(inputs, params map[string]any) (map[string]any, error) {
	a.P.SetInputs(inputs)
	a.P.SetParams(params)

	if err := a.P.Run(context.Background()); err != nil {
		return nil, err
	}

	switch a.P.Status() {
	case kernel.StatusPause:
		return nil, &kernel.PauseSignal{Reason: "nested pipeline paused"}
	case kernel.StatusLimit:
		return nil, &kernel.LimitSignal{Reason: "nested pipeline hit a limit"}
	case kernel.StatusFatal:
		errs := a.P.Errors()
		if len(errs) > 0 {
			return nil, errs[0]
		}
		return nil, fmt.Errorf("pipeline: nested pipeline failed")
	default:
		if !a.P.Succeeded() {
			return nil, fmt.Errorf("pipeline: nested pipeline stopped before its final node was done (status %s)", a.P.Status())
		}
		return a.P.FinalOutput(), nil
	}
}

// NodeCalls implements kernel.CallCounter, forwarding to the wrapped
// pipeline's own subtree total.
func (a AsNode) NodeCalls() int { return a.P.NodeCalls() }
