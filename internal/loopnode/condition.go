package loopnode

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/linkflow/nodeflow/internal/graph"
)

// valueAtPath resolves a "$" or "$.a.b.c" JSON-path-lite expression
// against a nested map. found is false if any segment is missing or the
// traversal hits a non-map value before the path is exhausted — callers
// must treat that as a missing-key condition error, not a present null.
func valueAtPath(obj map[string]any, path string) (value any, found bool) {
	if path == "" || path == "$" {
		return mapToAny(obj), true
	}
	path = strings.TrimPrefix(path, "$.")

	var cur any = mapToAny(obj)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func mapToAny(m map[string]any) any { return m }

// Evaluate evaluates cond against output, per operator precedence
// equals, not_equals, less_than, greater_than (the first operator
// populated in cond wins). A condition with no operator set never
// matches. Numeric comparisons require both the observed value and the
// comparison reference to be numeric; a type mismatch is reported as an
// error rather than silently evaluating false.
func Evaluate(output map[string]any, cond graph.Condition) (bool, error) {
	path := cond.Path
	if path == "" {
		path = "$"
	}
	value, found := valueAtPath(output, path)
	if !found && path != "$" {
		return false, fmt.Errorf(
			"loopnode: condition path=%q op=%s: value %v (type %s) not found",
			path, operatorName(cond), nil, "missing",
		)
	}

	switch {
	case cond.Equals != nil:
		return valuesEqual(value, cond.Equals), nil
	case cond.NotEquals != nil:
		return !valuesEqual(value, cond.NotEquals), nil
	case cond.LessThan != nil:
		return numericCompare(path, "less_than", value, cond.LessThan, func(a, b float64) bool { return a < b })
	case cond.GreaterThan != nil:
		return numericCompare(path, "greater_than", value, cond.GreaterThan, func(a, b float64) bool { return a > b })
	default:
		return false, nil
	}
}

// operatorName reports which operator cond will evaluate with, following
// the equals -> not_equals -> less_than -> greater_than precedence, for
// use in a missing-key error message raised before the operator switch
// below runs.
func operatorName(cond graph.Condition) string {
	switch {
	case cond.Equals != nil:
		return "equals"
	case cond.NotEquals != nil:
		return "not_equals"
	case cond.LessThan != nil:
		return "less_than"
	case cond.GreaterThan != nil:
		return "greater_than"
	default:
		return "none"
	}
}

// valuesEqual is the structural equality used by equals/not_equals:
// numbers compare by value whatever their int/float representation, and
// everything else by deep equality.
func valuesEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func numericCompare(path, op string, value, ref any, cmp func(a, b float64) bool) (bool, error) {
	v, ok := asFloat(value)
	if !ok {
		return false, fmt.Errorf(
			"loopnode: condition path=%q op=%s: value %v (type %T) is not numeric",
			path, op, value, value,
		)
	}
	r, ok := asFloat(ref)
	if !ok {
		return false, fmt.Errorf(
			"loopnode: condition path=%q op=%s: reference %v (type %T) is not numeric",
			path, op, ref, ref,
		)
	}
	return cmp(v, r), nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
