// Package entity defines the JSON-compatible value union the triple
// store operates on and the materialization of an entity's current
// attribute map from its non-retracted triples (component C3 of the
// design: the Entity Materializer).
package entity

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Value is a JSON-compatible scalar, list, or object. It is stored as
// Go's native decoding of encoding/json (nil, bool, float64, string,
// []any, map[string]any) rather than a hand-rolled tagged union —
// encoding/json already gives us that union, and re-wrapping it would
// just be indirection the rest of the engine has to unwrap again.
type Value = any

// TypeAttribute is the reserved attribute name storing an entity's type
// as a JSON-encoded string (spec §3, §6).
const TypeAttribute = "__type"

// IDField is the implicit field every materialized entity carries,
// equal to its entityId.
const IDField = "id"

// Map is the materialized view of an entity: attribute name to current
// value, always including "id".
type Map map[string]Value

// Type returns the entity's __type attribute, or "" if absent.
func (m Map) Type() string {
	if v, ok := m[TypeAttribute]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ID returns the entity's id field.
func (m Map) ID() string {
	if v, ok := m[IDField]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of m, safe to mutate without affecting
// the original (used before merge-diffing so callers can compare old vs
// new without aliasing issues).
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether two values are structurally equal. Used by the
// merge operation (spec §4.2, invariant 4) to decide which attributes
// actually changed.
func Equal(a, b Value) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	// Marshal twice through a canonical round-trip so that key order and
	// numeric representation (1 vs 1.0) don't cause false inequality.
	var av, bv any
	if err := json.Unmarshal(ab, &av); err != nil {
		return string(ab) == string(bb)
	}
	if err := json.Unmarshal(bb, &bv); err != nil {
		return string(ab) == string(bb)
	}
	ca, _ := json.Marshal(canonicalize(av))
	cb, _ := json.Marshal(canonicalize(bv))
	return string(ca) == string(cb)
}

// canonicalize rebuilds maps and lists recursively. encoding/json writes
// map keys in sorted order, so two structurally-equal values marshal to
// byte-identical JSON regardless of original order, and a map never
// marshals to the same bytes as a list.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonicalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return t
	}
}

// DeepMerge merges src into dst, recursing into nested objects and
// replacing (not concatenating) lists and scalars. Used by the `merge`
// operation (spec §3 Operation variants).
func DeepMerge(dst, src map[string]Value) map[string]Value {
	out := make(map[string]Value, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, sv := range src {
		if dv, ok := out[k]; ok {
			dm, dok := dv.(map[string]any)
			sm, sok := sv.(map[string]any)
			if dok && sok {
				out[k] = DeepMerge(dm, sm)
				continue
			}
		}
		out[k] = sv
	}
	return out
}

// Fprint renders a Map as stable, indented JSON for diagnostics/CLI
// output.
func Fprint(m Map) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]Value, len(m))
	for _, k := range keys {
		ordered[k] = m[k]
	}
	b, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unprintable entity: %v>", err)
	}
	return string(b)
}
