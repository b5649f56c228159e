package nodes

import (
	"fmt"

	"github.com/linkflow/nodeflow/internal/expression"
)

// Transform maps its inputs into a new output dict by evaluating a
// params["mapping"] of output-field -> expression against the input set,
// using the JSONPath-lite expression language internal/expression
// implements ("$.inputs.foo", "$.params.bar[0]", ...).
type Transform struct {
	engine *expression.Engine
}

// NewTransform constructs a Transform node with a fresh expression
// engine.
func NewTransform() *Transform {
	return &Transform{engine: expression.NewEngine()}
}

// Run implements kernel.Node. params["mapping"] must be a
// map[string]any of output field name to expression string (e.g.
// "$.inputs.a.b") or a literal operand; params["output_port"] names the
// single output port the mapped fields are collected under (default
// "out").
func (t *Transform) Run(inputs, params map[string]any) (map[string]any, error) {
	mapping, _ := params["mapping"].(map[string]any)
	port, _ := params["output_port"].(string)
	if port == "" {
		port = "out"
	}

	data := map[string]any{"inputs": inputs, "params": params}
	fields := make(map[string]any, len(mapping))
	for field, rawExpr := range mapping {
		expr, ok := rawExpr.(string)
		if !ok {
			fields[field] = rawExpr
			continue
		}
		v, err := t.engine.Evaluate(expr, data)
		if err != nil {
			return nil, fmt.Errorf("nodes: transform field %q: %w", field, err)
		}
		fields[field] = v
	}

	return map[string]any{port: fields}, nil
}
