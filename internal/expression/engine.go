// Package expression evaluates the small JSONPath-lite language the
// transform node uses to pull values out of its input/param data: a
// "$."-prefixed dotted/bracketed path, resolved against nested
// maps and slices.
package expression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidExpression is returned for an empty expression.
	ErrInvalidExpression = errors.New("expression: invalid expression")
	// ErrPathNotFound is returned when a path segment has no match in data.
	ErrPathNotFound = errors.New("expression: path not found")
)

// Engine evaluates JSONPath-lite expressions. It carries no state.
type Engine struct{}

// NewEngine constructs an Engine.
func NewEngine() *Engine { return &Engine{} }

// Evaluate evaluates expr against data. A "$"-prefixed expr is resolved as
// a JSONPath-lite path; any other string passes through unchanged as a
// literal.
func (e *Engine) Evaluate(expr string, data interface{}) (interface{}, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrInvalidExpression
	}
	if strings.HasPrefix(expr, "$") {
		return e.resolvePath(strings.TrimPrefix(expr, "$"), data)
	}
	return expr, nil
}

func (e *Engine) resolvePath(path string, data interface{}) (interface{}, error) {
	if path == "" || path == "." {
		return data, nil
	}

	current := data
	for _, part := range parsePath(path) {
		if part == "" {
			continue
		}
		var err error
		current, err = resolvePathPart(current, part)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func resolvePathPart(data interface{}, part string) (interface{}, error) {
	if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") {
		indexStr := part[1 : len(part)-1]
		index, err := strconv.Atoi(indexStr)
		if err != nil {
			return nil, fmt.Errorf("expression: invalid index %q", indexStr)
		}
		arr, ok := data.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expression: cannot index into %T", data)
		}
		if index < 0 {
			index = len(arr) + index
		}
		if index < 0 || index >= len(arr) {
			return nil, ErrPathNotFound
		}
		return arr[index], nil
	}

	m, ok := data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expression: cannot access field %q on %T", part, data)
	}
	val, exists := m[part]
	if !exists {
		return nil, ErrPathNotFound
	}
	return val, nil
}

// parsePath splits a JSONPath-lite path into its dot/bracket segments.
func parsePath(path string) []string {
	var parts []string
	var current strings.Builder
	inBracket := 0

	for _, ch := range path {
		switch ch {
		case '.':
			if inBracket == 0 {
				if current.Len() > 0 {
					parts = append(parts, current.String())
					current.Reset()
				}
				continue
			}
		case '[':
			if inBracket == 0 && current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			inBracket++
		case ']':
			inBracket--
			if inBracket == 0 {
				current.WriteRune(ch)
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
