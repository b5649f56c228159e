package nodes

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Condition is a built-in branching node: it walks params["conditions"]
// (an ordered list of {field, operator, value, output}) against its
// inputs and reports the first match's output label, or "else" if none
// match. It never fails the way a fatal node would for a bad field path
// — a missing field simply evaluates to nil and most operators treat
// that as "no match".
type Condition struct{}

// NewCondition constructs a fresh Condition node instance.
func NewCondition() *Condition { return &Condition{} }

// conditionRule is one entry of params["conditions"].
type conditionRule struct {
	field    string
	operator string
	value    any
	output   string
}

// Run implements kernel.Node.
func (c *Condition) Run(inputs, params map[string]any) (map[string]any, error) {
	rules, err := parseConditionRules(params["conditions"])
	if err != nil {
		return nil, err
	}

	for i, rule := range rules {
		fieldValue := fieldAt(inputs, rule.field)
		matched := evaluateOperator(fieldValue, rule.operator, rule.value)
		if matched {
			return map[string]any{
				"result": map[string]any{
					"matched":      true,
					"matched_rule": i,
					"output":       rule.output,
				},
			}, nil
		}
	}

	return map[string]any{
		"result": map[string]any{
			"matched":      false,
			"matched_rule": -1,
			"output":       "else",
		},
	}, nil
}

func parseConditionRules(raw any) ([]conditionRule, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]conditionRule, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("nodes: condition rule must be an object, got %T", item)
		}
		field, _ := m["field"].(string)
		operator, _ := m["operator"].(string)
		output, _ := m["output"].(string)
		out = append(out, conditionRule{field: field, operator: operator, value: m["value"], output: output})
	}
	return out, nil
}

// fieldAt resolves dot-separated field paths against a nested map, as
// worker/executor's condition evaluator does for its "if" mode.
func fieldAt(data map[string]any, field string) any {
	if field == "" {
		return data
	}
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func evaluateOperator(fieldValue any, operator string, compareValue any) bool {
	switch operator {
	case "eq", "==", "equals", "":
		return compareEqual(fieldValue, compareValue)
	case "ne", "!=", "not_equals":
		return !compareEqual(fieldValue, compareValue)
	case "gt", ">":
		return compareNumeric(fieldValue, compareValue) > 0
	case "gte", ">=":
		return compareNumeric(fieldValue, compareValue) >= 0
	case "lt", "<":
		return compareNumeric(fieldValue, compareValue) < 0
	case "lte", "<=":
		return compareNumeric(fieldValue, compareValue) <= 0
	case "contains":
		return strings.Contains(toStr(fieldValue), toStr(compareValue))
	case "empty", "is_empty":
		return isEmpty(fieldValue)
	case "not_empty", "is_not_empty":
		return !isEmpty(fieldValue)
	case "exists":
		return fieldValue != nil
	case "not_exists":
		return fieldValue == nil
	default:
		return false
	}
}

func compareEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b) || toStr(a) == toStr(b)
}

func compareNumeric(a, b any) int {
	af, bf := toFloat(a), toFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func toStr(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
