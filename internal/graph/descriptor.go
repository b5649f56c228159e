// Package graph defines the declarative shape of a pipeline: its nodes,
// their input bindings and parameters, and which node's output is the
// pipeline's own output.
package graph

// NodeDescriptor declares one node within a graph: its id, its type
// (resolved to an implementation via a NodeFactory), its input bindings
// (reference strings bound to named input ports), and its raw parameter
// map (which may itself contain reference strings, resolved best-effort).
type NodeDescriptor struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Inputs map[string]any `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// GraphDescriptor is the declared node set and final (output) node of a
// single pipeline. It carries no edges: dependencies are implied entirely
// by the reference strings in each node's Inputs, resolved at
// executability-check time rather than precomputed.
type GraphDescriptor struct {
	Nodes []NodeDescriptor `yaml:"nodes" json:"nodes"`
	Final string           `yaml:"final" json:"final"`
}

// NodeByID returns the descriptor for id, in declared order, and whether
// it was found.
func (g GraphDescriptor) NodeByID(id string) (NodeDescriptor, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeDescriptor{}, false
}

// Limits bounds pipeline-level resource usage, per the pipeline kick
// contract: a ceiling on total node invocations across the whole run and
// an idle-timeout past which a non-progressing pipeline ends in status
// limit. MaxIterations applies only to loop containers.
type Limits struct {
	MaxTotalNodeCalls int     `yaml:"max_total_node_calls,omitempty" json:"max_total_node_calls,omitempty"`
	MaxIdleSeconds    float64 `yaml:"max_idle_sec,omitempty" json:"max_idle_sec,omitempty"`
	MaxIterations     int     `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
}

// Condition is a single JSON-path-lite comparison evaluated against a
// loop's final node output, per loop-container semantics. Exactly one of
// Equals, NotEquals, LessThan, GreaterThan should be set; evaluation order
// when more than one is present follows that precedence.
type Condition struct {
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	Equals      any    `yaml:"equals,omitempty" json:"equals,omitempty"`
	NotEquals   any    `yaml:"not_equals,omitempty" json:"not_equals,omitempty"`
	LessThan    any    `yaml:"less_than,omitempty" json:"less_than,omitempty"`
	GreaterThan any    `yaml:"greater_than,omitempty" json:"greater_than,omitempty"`
}

// PipelineDescriptor is the top-level, version-stamped document describing
// a runnable pipeline (optionally wrapped in a loop). Params is the
// pipeline-level parameter map addressed by node bindings as
// "${params.k}"; Limits is declared as its own top-level block here
// (rather than nested inside Params, as the normative YAML shape in
// spec §6 shows) purely for document clarity — see DESIGN.md.
type PipelineDescriptor struct {
	Version string          `yaml:"version" json:"version"`
	Graph   GraphDescriptor `yaml:"graph" json:"graph"`
	Params  map[string]any  `yaml:"params,omitempty" json:"params,omitempty"`
	Limits  Limits          `yaml:"limits,omitempty" json:"limits,omitempty"`

	// Loop, when non-nil, wraps Graph in a loop container that re-runs
	// the pipeline to quiescence and evaluates Condition against the
	// final node's latest output after each quiescent pass.
	Loop *Condition `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// SupportedVersion is the only pipeline descriptor version this engine
// accepts.
const SupportedVersion = "1.2"
