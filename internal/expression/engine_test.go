package expression

import "testing"

func TestEvaluate_ResolvesNestedMapPath(t *testing.T) {
	data := map[string]interface{}{
		"inputs": map[string]interface{}{"name": "ada"},
	}
	got, err := NewEngine().Evaluate("$.inputs.name", data)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ada" {
		t.Fatalf("got %v, want ada", got)
	}
}

func TestEvaluate_ResolvesArrayIndex(t *testing.T) {
	data := map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	}
	got, err := NewEngine().Evaluate("$.items[1]", data)
	if err != nil {
		t.Fatal(err)
	}
	if got != "b" {
		t.Fatalf("got %v, want b", got)
	}
}

func TestEvaluate_MissingPathErrors(t *testing.T) {
	data := map[string]interface{}{"inputs": map[string]interface{}{}}
	_, err := NewEngine().Evaluate("$.inputs.missing", data)
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestEvaluate_NonPathExpressionIsLiteral(t *testing.T) {
	got, err := NewEngine().Evaluate("plain-literal", map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain-literal" {
		t.Fatalf("got %v, want literal passthrough", got)
	}
}
