package txn

import (
	"fmt"

	"github.com/localfirst/tripledb/internal/triplelog"
)

// asLookupRef recognizes a LookupRef wherever it appears as an operation
// data value, whether constructed directly (Go builder API) or decoded
// from JSON as {"$lookup": {"entityType","attribute","value"}}.
func asLookupRef(v any) (LookupRef, bool) {
	switch t := v.(type) {
	case LookupRef:
		return t, true
	case map[string]any:
		raw, ok := t["$lookup"]
		if !ok {
			return LookupRef{}, false
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return LookupRef{}, false
		}
		entityType, _ := m["entityType"].(string)
		attribute, _ := m["attribute"].(string)
		if entityType == "" || attribute == "" {
			return LookupRef{}, false
		}
		return LookupRef{EntityType: entityType, Attribute: attribute, Value: m["value"]}, true
	}
	return LookupRef{}, false
}

// resolveLookupRefs scans every operation's data fields for LookupRefs
// and rewrites them to literal entity ids (spec §4.2 step 2). It returns
// a new operation slice; the input is left untouched. Any unresolved
// reference aborts the whole transaction before any write occurs.
func resolveLookupRefs(ex triplelog.Execer, ops []Operation) ([]Operation, error) {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		if len(op.Data) == 0 {
			out[i] = op
			continue
		}
		resolved := make(map[string]any, len(op.Data))
		for k, v := range op.Data {
			ref, ok := asLookupRef(v)
			if !ok {
				resolved[k] = v
				continue
			}
			id, found, err := triplelog.LookupEntityID(ex, ref.EntityType, ref.Attribute, ref.Value)
			if err != nil {
				return nil, fmt.Errorf("resolve lookup %s.%s: %w", ref.EntityType, ref.Attribute, err)
			}
			if !found {
				return nil, fmt.Errorf("lookup %s.%s=%v matched zero or multiple entities: %w",
					ref.EntityType, ref.Attribute, ref.Value, ErrLookupFailed)
			}
			resolved[k] = id
		}
		op.Data = resolved
		out[i] = op
	}
	return out, nil
}
