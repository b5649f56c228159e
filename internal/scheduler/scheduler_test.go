package scheduler

import (
	"testing"

	"github.com/linkflow/nodeflow/internal/graph"
	"github.com/linkflow/nodeflow/internal/kernel"
)

type constNode struct {
	out map[string]any
}

func (c *constNode) Run(inputs, params map[string]any) (map[string]any, error) {
	return c.out, nil
}

func TestStep_DeclaredOrderAndDependency(t *testing.T) {
	a := &constNode{out: map[string]any{"value": map[string]any{"data": 1}}}
	b := &constNode{out: map[string]any{"value": map[string]any{"data": 2}}}

	entries := []*Entry{
		{
			Descriptor: graph.NodeDescriptor{ID: "b", Inputs: map[string]any{"in": "${a.value}"}},
			Instance:   kernel.NewInstance(b, nil),
			RequiredInputs: []string{"in"},
		},
		{
			Descriptor: graph.NodeDescriptor{ID: "a"},
			Instance:   kernel.NewInstance(a, nil),
		},
	}

	r := New(entries, nil, nil, nil, nil)

	// b is declared first but depends on a's output, so the first step
	// must run a even though b is scanned first.
	if !r.Step() {
		t.Fatal("expected progress on first step")
	}
	if r.LatestOutput("a") == nil {
		t.Fatal("expected a to have run first since b's input is unresolved")
	}
	if r.LatestOutput("b") != nil {
		t.Fatal("b should not have run yet")
	}

	if !r.Step() {
		t.Fatal("expected progress on second step")
	}
	if r.LatestOutput("b") == nil {
		t.Fatal("expected b to run once a's output was available")
	}

	if !r.Step() {
		t.Fatal("expected b, declared first and done, to be re-selected: done nodes stay executable")
	}
}

func TestStep_NoExecutableNodes(t *testing.T) {
	r := New(nil, nil, nil, nil, nil)
	if r.Step() {
		t.Fatal("expected false with no entries")
	}
}
