package nodes

import "testing"

func TestHello_DefaultMessage(t *testing.T) {
	out, err := NewHello().Run(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	msg := out["message"].(map[string]any)["data"]
	if msg != defaultHelloMessage {
		t.Fatalf("message = %v, want %v", msg, defaultHelloMessage)
	}
}

func TestHello_CustomMessage(t *testing.T) {
	out, err := NewHello().Run(nil, map[string]any{"message": "hi there"})
	if err != nil {
		t.Fatal(err)
	}
	msg := out["message"].(map[string]any)["data"]
	if msg != "hi there" {
		t.Fatalf("message = %v, want %q", msg, "hi there")
	}
}

func TestCondition_FirstMatchWins(t *testing.T) {
	params := map[string]any{
		"conditions": []any{
			map[string]any{"field": "status", "operator": "eq", "value": "ok", "output": "pass"},
			map[string]any{"field": "status", "operator": "eq", "value": "bad", "output": "fail"},
		},
	}
	inputs := map[string]any{"status": "bad"}

	out, err := NewCondition().Run(inputs, params)
	if err != nil {
		t.Fatal(err)
	}
	result := out["result"].(map[string]any)
	if result["matched_rule"] != 1 {
		t.Fatalf("expected status=bad to miss the first rule and match the second, got matched_rule=%v", result["matched_rule"])
	}
}

func TestCondition_NoRuleMatchesFallsToElse(t *testing.T) {
	params := map[string]any{
		"conditions": []any{
			map[string]any{"field": "status", "operator": "eq", "value": "ok", "output": "pass"},
		},
	}
	out, err := NewCondition().Run(map[string]any{"status": "unknown"}, params)
	if err != nil {
		t.Fatal(err)
	}
	result := out["result"].(map[string]any)
	if result["output"] != "else" {
		t.Fatalf("output = %v, want else", result["output"])
	}
}

func TestTransform_MapsFieldsViaExpression(t *testing.T) {
	tr := NewTransform()
	inputs := map[string]any{"name": "ada"}
	params := map[string]any{
		"mapping": map[string]any{
			"greeting": "$.inputs.name",
		},
	}
	out, err := tr.Run(inputs, params)
	if err != nil {
		t.Fatal(err)
	}
	fields := out["out"].(map[string]any)
	if fields["greeting"] != "ada" {
		t.Fatalf("greeting = %v, want ada", fields["greeting"])
	}
}
