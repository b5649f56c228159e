package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/linkflow/nodeflow/internal/graph"
	"github.com/linkflow/nodeflow/internal/kernel"
	"github.com/linkflow/nodeflow/internal/limiter"
	"github.com/linkflow/nodeflow/internal/scheduler"
)

type okNode struct{ out map[string]any }

func (n *okNode) Run(inputs, params map[string]any) (map[string]any, error) {
	return n.out, nil
}

type fatalNode struct{}

func (fatalNode) Run(inputs, params map[string]any) (map[string]any, error) {
	return nil, context.DeadlineExceeded
}

func newRunner(entries []*scheduler.Entry) *scheduler.Runner {
	return scheduler.New(entries, nil, nil, nil, nil)
}

func TestPipeline_SucceedsWhenFinalNodeDone(t *testing.T) {
	a := &okNode{out: map[string]any{"v": map[string]any{"data": 1}}}
	entries := []*scheduler.Entry{
		{Descriptor: graph.NodeDescriptor{ID: "a"}, Instance: kernel.NewInstance(a, nil)},
	}
	p := New(newRunner(entries), "a", 0, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.Succeeded() {
		t.Fatalf("expected success, status=%s", p.Status())
	}
	if p.Status() != kernel.StatusDone {
		t.Fatalf("status = %s, want done", p.Status())
	}
}

func TestPipeline_FatalNodeFailsPipeline(t *testing.T) {
	entries := []*scheduler.Entry{
		{Descriptor: graph.NodeDescriptor{ID: "a"}, Instance: kernel.NewInstance(fatalNode{}, nil)},
	}
	p := New(newRunner(entries), "a", 0, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Succeeded() {
		t.Fatal("expected failure")
	}
	if p.Status() != kernel.StatusFatal {
		t.Fatalf("status = %s, want fatal", p.Status())
	}
	if len(p.Errors()) != 1 {
		t.Fatalf("expected exactly one aggregated error, got %d", len(p.Errors()))
	}
}

func TestPipeline_NoIdleTimeoutReturnsOnUnresolvableDependency(t *testing.T) {
	entries := []*scheduler.Entry{
		{
			Descriptor:     graph.NodeDescriptor{ID: "a", Inputs: map[string]any{"x": "${missing.key}"}},
			Instance:       kernel.NewInstance(&okNode{out: map[string]any{}}, nil),
			RequiredInputs: []string{"x"},
		},
	}
	p := New(newRunner(entries), "a", 0, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// With no idle timeout configured and no node ever executable, Run
	// returns on the first unproductive step rather than spinning forever.
	if p.Status() != kernel.StatusReady {
		t.Fatalf("status = %s, want ready", p.Status())
	}
	if p.Succeeded() {
		t.Fatal("expected not succeeded")
	}
}

func TestPipeline_IdleTimeoutExceededIsLimitNotFatal(t *testing.T) {
	entries := []*scheduler.Entry{
		{
			Descriptor:     graph.NodeDescriptor{ID: "a", Inputs: map[string]any{"x": "${missing.key}"}},
			Instance:       kernel.NewInstance(&okNode{out: map[string]any{}}, nil),
			RequiredInputs: []string{"x"},
		},
	}
	p := New(newRunner(entries), "a", 10*time.Millisecond, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Status() != kernel.StatusLimit {
		t.Fatalf("status = %s, want limit", p.Status())
	}
	if p.Succeeded() {
		t.Fatal("expected not succeeded")
	}
}

func TestPipeline_MaxTotalNodeCallsExceededIsLimitNotFatal(t *testing.T) {
	// "b" is declared final but never added as an entry, so finalNodeStatus
	// can never observe it as done: the runner keeps re-stepping "a" (ready
	// or done are both executable) until the call ceiling breaches.
	entries := []*scheduler.Entry{
		{Descriptor: graph.NodeDescriptor{ID: "a"}, Instance: kernel.NewInstance(&okNode{out: map[string]any{"v": map[string]any{"data": 1}}}, nil)},
	}
	governor := limiter.NewGovernor(0, 0, 1)
	p := New(newRunner(entries), "b", 0, governor, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Status() != kernel.StatusLimit {
		t.Fatalf("status = %s, want limit", p.Status())
	}
	if p.Succeeded() {
		t.Fatal("expected not succeeded")
	}
}

type pauseOnceNode struct{ calls int }

func (n *pauseOnceNode) Run(inputs, params map[string]any) (map[string]any, error) {
	n.calls++
	if n.calls == 1 {
		return nil, &kernel.PauseSignal{Reason: "waiting for external event"}
	}
	return map[string]any{"v": map[string]any{"data": 1}}, nil
}

func TestPipeline_PauseThenResumeSucceeds(t *testing.T) {
	entries := []*scheduler.Entry{
		{Descriptor: graph.NodeDescriptor{ID: "a"}, Instance: kernel.NewInstance(&pauseOnceNode{}, nil)},
	}
	p := New(newRunner(entries), "a", 0, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Status() != kernel.StatusPause {
		t.Fatalf("status = %s, want pause", p.Status())
	}

	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.Succeeded() {
		t.Fatalf("expected success after resume, status=%s", p.Status())
	}
}

func TestPipeline_ResumeRejectedWhenNotPaused(t *testing.T) {
	entries := []*scheduler.Entry{
		{Descriptor: graph.NodeDescriptor{ID: "a"}, Instance: kernel.NewInstance(&okNode{out: map[string]any{"v": map[string]any{"data": 1}}}, nil)},
	}
	p := New(newRunner(entries), "a", 0, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Resume(); err == nil {
		t.Fatal("expected Resume to reject a non-paused pipeline")
	}
}

type echoNode struct{}

func (echoNode) Run(inputs, params map[string]any) (map[string]any, error) {
	return map[string]any{"out": map[string]any{"data": inputs["x"]}}, nil
}

// TestPipeline_AsNodeNestsInsideContainingPipeline exercises
// pipeline-as-node: an inner pipeline wrapped in AsNode is scheduled as
// an ordinary node of an outer pipeline, and the outer graph's own
// NodeCalls includes the inner pipeline's subtree total.
func TestPipeline_AsNodeNestsInsideContainingPipeline(t *testing.T) {
	innerEntries := []*scheduler.Entry{
		{
			Descriptor:     graph.NodeDescriptor{ID: "inner", Inputs: map[string]any{"x": "${inputs.x}"}},
			Instance:       kernel.NewInstance(echoNode{}, nil),
			RequiredInputs: []string{"x"},
		},
	}
	inner := New(newRunner(innerEntries), "inner", 0, nil, nil)

	outerEntries := []*scheduler.Entry{
		{
			Descriptor:     graph.NodeDescriptor{ID: "nested", Inputs: map[string]any{"x": "${inputs.y}"}},
			Instance:       kernel.NewInstance(AsNode{P: inner}, nil),
			RequiredInputs: []string{"x"},
		},
	}
	outerRunner := scheduler.New(outerEntries, map[string]any{"y": 42}, nil, nil, nil)
	outer := New(outerRunner, "nested", 0, nil, nil)

	if err := outer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !outer.Succeeded() {
		t.Fatalf("expected success, status=%s", outer.Status())
	}

	got := outer.FinalOutput()["out"].(map[string]any)["data"]
	if got != 42 {
		t.Fatalf("nested pipeline output = %#v, want 42", got)
	}
	if outer.NodeCalls() != 2 {
		t.Fatalf("NodeCalls() = %d, want 2 (1 outer node + 1 inner node)", outer.NodeCalls())
	}
}
