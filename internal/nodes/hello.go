// Package nodes provides a small set of built-in node implementations
// used by the CLI demo workspace and the test suite: hello, transform,
// and condition. Each is a plain kernel.Node (Run(inputs, params) -> dict)
// meant to be wrapped in a kernel.Instance by its NodeFactory, and is
// registered under its type name with a workspace.Registry.
package nodes

// defaultHelloMessage is the DEFAULT_CONFIG the original hello node
// shipped, carried forward unchanged.
const defaultHelloMessage = "Hello, World!"

// Hello is the canonical smoke-test node: it echoes params["message"]
// (or the default greeting) under a single "message" output port.
type Hello struct{}

// NewHello constructs a fresh Hello node instance.
func NewHello() *Hello { return &Hello{} }

// Run implements kernel.Node.
func (h *Hello) Run(inputs, params map[string]any) (map[string]any, error) {
	message := defaultHelloMessage
	if m, ok := params["message"].(string); ok && m != "" {
		message = m
	}
	return map[string]any{
		"message": map[string]any{"data": message},
	}, nil
}
