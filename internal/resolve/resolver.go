// Package resolve implements the reference resolver: it turns "${src.key}"
// binding strings into concrete values drawn from pipeline inputs,
// pipeline params, or another node's latest output.
package resolve

import (
	"regexp"
	"strings"
)

// refPattern matches a full "${source.key}" reference string. It must
// match the entire (trimmed) binding value — partial matches are not
// references and are treated as literals.
var refPattern = regexp.MustCompile(`^\$\{([^}.]+)\.([^}]+)\}$`)

// unresolvedSentinel is a distinguished type so Unresolved can be detected
// with a type assertion rather than by comparing against some ordinary
// value that might collide with real data.
type unresolvedSentinel struct{}

// Unresolved is the value substituted for an input binding whose reference
// could not be satisfied (unknown source node, missing key, or a
// not-yet-produced output). It is never equal to any other value,
// including another instance obtained independently.
var Unresolved = &unresolvedSentinel{}

// IsUnresolved reports whether v is the Unresolved sentinel.
func IsUnresolved(v any) bool {
	_, ok := v.(*unresolvedSentinel)
	return ok
}

// Sources holds everything a reference string can be resolved against.
type Sources struct {
	// Inputs is the pipeline's own inputs, addressed as "${inputs.key}".
	Inputs map[string]any
	// Params is the pipeline's own params, addressed as "${params.key}".
	Params map[string]any
	// LatestOutputs maps producer node id to that node's most recent
	// output map, addressed as "${<node-id>.key}".
	LatestOutputs map[string]map[string]any
	// Extra, if non-nil, is consulted for source prefixes not covered
	// above (e.g. "secrets", "vars") — see ExtraSource. It only ever
	// participates in best-effort (params) resolution, never in strict
	// (inputs) resolution.
	Extra ExtraSource
}

// ExtraSource resolves a reference whose source prefix isn't one of
// "inputs", "params", or a known node id. It returns ok=false if the
// prefix is not one it handles, letting the resolver fall through to
// Unresolved.
type ExtraSource interface {
	ResolveExtra(source, key string) (value any, ok bool)
}

// parseRef reports whether s (after trimming) is a full reference string,
// and if so its source and key.
func parseRef(s string) (source, key string, ok bool) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// lookup resolves a single source.key pair against src, returning
// Unresolved if the source is unknown or the key is absent.
func lookup(src Sources, source, key string) any {
	switch source {
	case "inputs":
		if v, ok := src.Inputs[key]; ok {
			return v
		}
		return Unresolved
	case "params":
		if v, ok := src.Params[key]; ok {
			return v
		}
		return Unresolved
	default:
		if out, ok := src.LatestOutputs[source]; ok {
			if v, ok := out[key]; ok {
				return v
			}
		}
		if src.Extra != nil {
			if v, ok := src.Extra.ResolveExtra(source, key); ok {
				return v
			}
		}
		return Unresolved
	}
}

// ResolveInputs resolves a node's declared input bindings strictly: every
// binding that is a reference string is looked up, and any lookup that
// misses yields Unresolved for that key (never silently dropped, and
// never falls back to the literal binding string). Extra is never
// consulted here, regardless of what src.Extra carries — "secrets"/"vars"
// and other enrichment sources only ever participate in best-effort
// (params) resolution, per their doc comment on Sources.Extra.
func ResolveInputs(bindings map[string]any, src Sources) map[string]any {
	src.Extra = nil
	out := make(map[string]any, len(bindings))
	for port, binding := range bindings {
		s, ok := binding.(string)
		if !ok {
			out[port] = binding
			continue
		}
		source, key, isRef := parseRef(s)
		if !isRef {
			out[port] = binding
			continue
		}
		out[port] = lookup(src, source, key)
	}
	return out
}

// ResolveParams resolves a node's declared params best-effort: reference
// strings that resolve successfully are replaced with their looked-up
// value; reference strings that fail to resolve fall back to the literal
// binding string itself (not Unresolved), since params are never required
// for executability. Nested maps are resolved recursively; all other
// value types (including slices) pass through unchanged.
func ResolveParams(def map[string]any, src Sources) map[string]any {
	out := make(map[string]any, len(def))
	for k, v := range def {
		out[k] = resolveParamValue(v, src)
	}
	return out
}

func resolveParamValue(v any, src Sources) any {
	switch t := v.(type) {
	case string:
		source, key, isRef := parseRef(t)
		if !isRef {
			return t
		}
		resolved := lookup(src, source, key)
		if IsUnresolved(resolved) {
			return t
		}
		return resolved
	case map[string]any:
		nested := make(map[string]any, len(t))
		for k, vv := range t {
			nested[k] = resolveParamValue(vv, src)
		}
		return nested
	default:
		return v
	}
}
