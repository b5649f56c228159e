// Package limiter bounds scheduler step cadence and total per-pipeline
// node invocations.
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Governor throttles how fast the scheduler is allowed to call step() and
// tracks the running total of node invocations against a pipeline-level
// ceiling.
type Governor struct {
	limiter  *rate.Limiter
	maxCalls int
	calls    int
}

// NewGovernor builds a Governor. rps/burst configure the step-rate
// limiter (zero rps means unlimited); maxCalls is the pipeline's
// max_total_node_calls ceiling (zero means unlimited).
func NewGovernor(rps float64, burst int, maxCalls int) *Governor {
	var rl *rate.Limiter
	if rps > 0 {
		rl = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Governor{limiter: rl, maxCalls: maxCalls}
}

// WaitStep blocks until the next step() is permitted by the rate limit.
// It is a no-op when no rate limit was configured.
func (g *Governor) WaitStep(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// RecordCall increments the running call count by n and reports whether
// the pipeline-level ceiling has now been exceeded.
func (g *Governor) RecordCall(n int) (exceeded bool) {
	g.calls += n
	if g.maxCalls <= 0 {
		return false
	}
	return g.calls > g.maxCalls
}

// Calls returns the running total recorded so far.
func (g *Governor) Calls() int { return g.calls }
