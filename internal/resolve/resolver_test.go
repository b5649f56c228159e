package resolve

import "testing"

func TestResolveInputs(t *testing.T) {
	src := Sources{
		Inputs: map[string]any{"x": 1},
		LatestOutputs: map[string]map[string]any{
			"a": {"message": "hi"},
		},
	}

	cases := []struct {
		name    string
		binding any
		want    any
	}{
		{"literal passthrough", 42, 42},
		{"non-ref string passthrough", "plain", "plain"},
		{"inputs hit", "${inputs.x}", 1},
		{"node hit", "${a.message}", "hi"},
		{"inputs miss", "${inputs.missing}", Unresolved},
		{"unknown node", "${nope.key}", Unresolved},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := ResolveInputs(map[string]any{"p": c.binding}, src)
			if out["p"] != c.want {
				t.Fatalf("got %#v, want %#v", out["p"], c.want)
			}
		})
	}
}

func TestResolveParams_BestEffortFallback(t *testing.T) {
	src := Sources{Params: map[string]any{"known": "value"}}
	out := ResolveParams(map[string]any{
		"a": "${params.known}",
		"b": "${params.missing}",
		"c": "literal",
	}, src)

	if out["a"] != "value" {
		t.Fatalf("a = %#v, want value", out["a"])
	}
	if out["b"] != "${params.missing}" {
		t.Fatalf("b = %#v, want literal fallback", out["b"])
	}
	if out["c"] != "literal" {
		t.Fatalf("c = %#v, want literal", out["c"])
	}
}

func TestResolveParams_Nested(t *testing.T) {
	src := Sources{Params: map[string]any{"k": "v"}}
	out := ResolveParams(map[string]any{
		"outer": map[string]any{"inner": "${params.k}"},
	}, src)
	inner := out["outer"].(map[string]any)["inner"]
	if inner != "v" {
		t.Fatalf("inner = %#v, want v", inner)
	}
}

func TestExtraSourceOnlyForParams(t *testing.T) {
	extra := extraFunc(func(source, key string) (any, bool) {
		if source == "secrets" && key == "api_key" {
			return "s3cr3t", true
		}
		return nil, false
	})
	src := Sources{Extra: extra}

	params := ResolveParams(map[string]any{"token": "${secrets.api_key}"}, src)
	if params["token"] != "s3cr3t" {
		t.Fatalf("params token = %#v, want s3cr3t", params["token"])
	}
}

func TestExtraSourceNeverUsedForInputs(t *testing.T) {
	extra := extraFunc(func(source, key string) (any, bool) {
		if source == "secrets" && key == "api_key" {
			return "s3cr3t", true
		}
		return nil, false
	})
	src := Sources{Extra: extra}

	inputs := ResolveInputs(map[string]any{"token": "${secrets.api_key}"}, src)
	if !IsUnresolved(inputs["token"]) {
		t.Fatalf("inputs token = %#v, want Unresolved (Extra must never back strict input resolution)", inputs["token"])
	}
}

func TestRequiredInputsResolved(t *testing.T) {
	resolved := map[string]any{"a": 1, "b": Unresolved}
	if RequiredInputsResolved(resolved, []string{"a", "b"}) {
		t.Fatal("expected false when a required port is unresolved")
	}
	if !RequiredInputsResolved(resolved, []string{"a"}) {
		t.Fatal("expected true when only resolved ports are required")
	}
}

type extraFunc func(source, key string) (any, bool)

func (f extraFunc) ResolveExtra(source, key string) (any, bool) { return f(source, key) }
