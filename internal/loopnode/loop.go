// Package loopnode implements the loop container: it re-drives a wrapped
// pipeline to quiescence repeatedly, evaluating a condition against the
// pipeline's final output after each quiescent pass, until the condition
// holds or max_iterations is exceeded.
package loopnode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkflow/nodeflow/internal/aggregate"
	"github.com/linkflow/nodeflow/internal/graph"
	"github.com/linkflow/nodeflow/internal/kernel"
	"github.com/linkflow/nodeflow/internal/pipeline"
)

// Loop wraps a pipeline.Pipeline with an exit condition and an iteration
// ceiling.
type Loop struct {
	inner         *pipeline.Pipeline
	cond          graph.Condition
	maxIterations int
	logger        *slog.Logger

	iterations int
	status     kernel.Status
	condErr    error
	limitErr   error
}

// ErrNoOperator is returned by New when cond sets none of
// equals/not_equals/less_than/greater_than: per spec §4.7, a loop
// container fails fast at construction rather than at its first
// evaluation.
var ErrNoOperator = fmt.Errorf("loopnode: condition has no comparison operator set")

// New builds a Loop around inner. cond is evaluated against inner's final
// output after each quiescent pass; maxIterations of zero means
// unlimited. New fails fast if cond has no operator set.
func New(inner *pipeline.Pipeline, cond graph.Condition, maxIterations int, logger *slog.Logger) (*Loop, error) {
	if operatorName(cond) == "none" {
		return nil, ErrNoOperator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{inner: inner, cond: cond, maxIterations: maxIterations, logger: logger, status: kernel.StatusReady}, nil
}

// Run drives the wrapped pipeline through successive quiescent passes
// until the condition holds, the pipeline reaches fatal/pause/limit, a
// condition evaluation error occurs, or max_iterations is exceeded.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.iterations++
		if l.maxIterations > 0 && l.iterations > l.maxIterations {
			l.limitErr = fmt.Errorf("loopnode: max_iterations=%d exceeded", l.maxIterations)
			l.status = kernel.StatusLimit
			return nil
		}

		if err := l.inner.Run(ctx); err != nil {
			return err
		}

		switch l.inner.Status() {
		case kernel.StatusFatal:
			l.status = kernel.StatusFatal
			return nil
		case kernel.StatusPause:
			l.status = kernel.StatusPause
			return nil
		case kernel.StatusLimit:
			l.status = kernel.StatusLimit
			return nil
		case kernel.StatusDone:
			// fall through to condition evaluation below
		default:
			// Quiescent but not done (e.g. the final node never became
			// executable): keep iterating, bounded by max_iterations.
			l.logger.Debug("loop iteration quiescent but not done", "status", l.inner.Status())
			continue
		}

		final := l.inner.FinalOutput()
		ok, err := Evaluate(final, l.cond)
		if err != nil {
			l.condErr = err
			l.status = kernel.StatusFatal
			return nil
		}
		if ok {
			l.status = kernel.StatusDone
			return nil
		}
		l.logger.Debug("loop condition not yet satisfied", "iteration", l.iterations)
	}
}

// Status returns the loop's own terminal status.
func (l *Loop) Status() kernel.Status { return l.status }

// Succeeded reports whether the loop exited because its condition held.
func (l *Loop) Succeeded() bool { return l.status == kernel.StatusDone }

// Iterations returns how many passes the wrapped pipeline was driven
// through.
func (l *Loop) Iterations() int { return l.iterations }

// FinalOutput returns the wrapped pipeline's final node output as of the
// loop's last completed pass.
func (l *Loop) FinalOutput() map[string]any { return l.inner.FinalOutput() }

// OwnStatus implements aggregate.ChildErrors.
func (l *Loop) OwnStatus() kernel.Status { return l.status }

// OwnError implements aggregate.ChildErrors: the loop's own error is
// whichever of its condition-evaluation or max_iterations failure fired,
// if any.
func (l *Loop) OwnError() error {
	if l.condErr != nil {
		return l.condErr
	}
	return l.limitErr
}

// Children implements aggregate.ChildErrors, exposing the wrapped
// pipeline as the loop's single structural child.
func (l *Loop) Children() []aggregate.ChildErrors {
	return []aggregate.ChildErrors{l.inner}
}

// Errors aggregates the wrapped pipeline's errors with the loop's own
// condition-evaluation error appended when the loop is fatal, per the
// error-aggregation rule. A max_iterations breach leaves the loop in
// status limit, so its error is not included.
func (l *Loop) Errors() []error {
	return aggregate.Errors(l)
}

// NodeCalls implements kernel.CallCounter. Run re-invokes the same
// wrapped pipeline (and therefore the same underlying kernel.Instances)
// on every iteration, so the wrapped pipeline's own NodeCalls already
// accumulates the full across-all-iterations total by the time the loop
// terminates — no separate per-iteration bookkeeping is needed here.
func (l *Loop) NodeCalls() int { return l.inner.NodeCalls() }

// AsNode adapts a *Loop to kernel.Node so it can be nested as a single
// node within a containing graph — a loop-as-node — mirroring
// pipeline.AsNode for the same Go method-signature reason: Loop.Run(ctx)
// is the loop's own top-level driver, AsNode.Run(inputs, params) is the
// kernel.Node contract a containing scheduler calls instead.
type AsNode struct {
	L *Loop
}

// Run implements kernel.Node: rebinds the wrapped loop's inner pipeline
// inputs and params, drives the loop to its terminal condition or limit,
// and returns the wrapped pipeline's final output.
func (a AsNode) Run(inputs, params map[string]any) (map[string]any, error) {
	a.L.inner.SetInputs(inputs)
	a.L.inner.SetParams(params)

	if err := a.L.Run(context.Background()); err != nil {
		return nil, err
	}

	switch a.L.Status() {
	case kernel.StatusPause:
		return nil, &kernel.PauseSignal{Reason: "nested loop paused"}
	case kernel.StatusLimit:
		return nil, &kernel.LimitSignal{Reason: "nested loop hit a limit"}
	case kernel.StatusFatal:
		errs := a.L.Errors()
		if len(errs) > 0 {
			return nil, errs[0]
		}
		return nil, fmt.Errorf("loopnode: nested loop failed")
	default:
		return a.L.FinalOutput(), nil
	}
}

// NodeCalls implements kernel.CallCounter, forwarding to the wrapped
// loop's own subtree total.
func (a AsNode) NodeCalls() int { return a.L.NodeCalls() }
