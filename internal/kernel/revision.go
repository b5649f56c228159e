package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// metaKey is the reserved output key carrying revision metadata.
const metaKey = "_meta"

// hashSkipKey, when present and true under "hash_skip" in a value's own
// _meta (before stripping), requests a fresh random identifier instead of
// a content hash.
const hashSkipKey = "hash_skip"

// ErrPortNotAMap is returned when an output port's value is not itself a
// JSON object — spec §3 requires every output port value to be a dict so
// it has somewhere to carry "_meta.revision".
var ErrPortNotAMap = fmt.Errorf("kernel: output port value is not a map")

// StampRevisions walks every entry of a node's output and sets its
// "_meta.revision" field to a content hash of that entry (with any
// existing "_meta" stripped before hashing), or to a fresh UUID if the
// entry's own "_meta.hash_skip" was true. An entry that already carries a
// "_meta.revision" is left untouched — it is caller-supplied and the
// kernel never overwrites it. Every port value must itself be a
// map[string]any; one that isn't is a fatal error, not a skip.
func StampRevisions(output map[string]any) error {
	for key, val := range output {
		entry, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("kernel: port %q: %w", key, ErrPortNotAMap)
		}
		if meta, ok := entry[metaKey].(map[string]any); ok {
			if _, present := meta["revision"]; present {
				continue
			}
		}
		rev, err := computeRevision(entry)
		if err != nil {
			return fmt.Errorf("kernel: stamping revision for %q: %w", key, err)
		}
		meta, _ := entry[metaKey].(map[string]any)
		if meta == nil {
			meta = map[string]any{}
		}
		meta["revision"] = rev
		entry[metaKey] = meta
	}
	return nil
}

func computeRevision(entry map[string]any) (string, error) {
	skip := false
	if meta, ok := entry[metaKey].(map[string]any); ok {
		if v, ok := meta[hashSkipKey].(bool); ok {
			skip = v
		}
	}
	if skip {
		return uuid.NewString(), nil
	}

	stripped := stripMeta(entry)
	canonical, err := canonicalJSON(stripped)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// stripMeta returns a deep copy of v with every "_meta" key removed at
// every level of nesting, so revision hashes never depend on
// previously-stamped metadata.
func stripMeta(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if k == metaKey {
				continue
			}
			out[k] = stripMeta(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = stripMeta(vv)
		}
		return out
	default:
		return v
	}
}

// canonicalJSON serializes v using a JCS-subset canonicalization: object
// keys sorted lexicographically at every nesting level, no insignificant
// whitespace, UTF-8 throughout. This mirrors the fallback path the
// reference implementation uses when a full RFC 8785 encoder isn't
// available, and is sufficient here because our values only ever
// originate from JSON-decoded or plain Go literal data (maps, slices,
// strings, float64/int, bool, nil) — never arbitrary structs.
func canonicalJSON(v any) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		writeCanonicalString(b, t)
	case float64:
		b.WriteString(formatCanonicalNumber(t))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalString(b, k)
			b.WriteByte(':')
			if err := writeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("kernel: value of type %T is not JSON-canonicalizable", v)
	}
	return nil
}

func writeCanonicalString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// formatCanonicalNumber renders a float64 the way encoding/json would for
// an integral value decoded from JSON (no trailing ".0"), and with Go's
// shortest round-trippable representation otherwise.
func formatCanonicalNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
