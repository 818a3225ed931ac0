package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/localfirst/tripledb/internal/entity"
)

type orderKey struct {
	field string
	desc  bool
}

// parseOrderBy normalizes the three accepted orderBy shapes (spec
// §4.4): a single field name with optional trailing " asc"/" desc", a
// single {field: direction} map, or a list of such maps (multi-key,
// left-major).
func parseOrderBy(orderBy any) ([]orderKey, error) {
	switch t := orderBy.(type) {
	case nil:
		return nil, nil
	case string:
		return []orderKey{parseFieldDirection(t)}, nil
	case map[string]any:
		return orderKeysFromMap(t)
	case []any:
		var keys []orderKey
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid_input: orderBy list entries must be maps")
			}
			sub, err := orderKeysFromMap(m)
			if err != nil {
				return nil, err
			}
			keys = append(keys, sub...)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("invalid_input: unsupported orderBy shape")
	}
}

func orderKeysFromMap(m map[string]any) ([]orderKey, error) {
	var keys []orderKey
	for field, dir := range m {
		dirStr, _ := dir.(string)
		keys = append(keys, orderKey{field: field, desc: strings.EqualFold(dirStr, "desc")})
	}
	return keys, nil
}

func parseFieldDirection(s string) orderKey {
	parts := strings.Fields(s)
	if len(parts) == 2 && strings.EqualFold(parts[1], "desc") {
		return orderKey{field: parts[0], desc: true}
	}
	return orderKey{field: parts[0]}
}

// sortEntities sorts in place by keys, left-major, using a stable sort
// so later keys act as tie-breakers (spec §4.4, testable property 5).
func sortEntities(entities []entity.Map, keys []orderKey) {
	sort.SliceStable(entities, func(i, j int) bool {
		for _, k := range keys {
			c := compareValues(entities[i][k.field], entities[j][k.field])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders nulls before non-null values, falls back to
// string comparison for incomparable kinds (spec §4.4).
func compareValues(a, b any) int {
	aNull, bNull := a == nil, b == nil
	if aNull && bNull {
		return 0
	}
	if aNull {
		return -1
	}
	if bNull {
		return 1
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return cmpFloat(af, bf)
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return strings.Compare(toString(a), toString(b))
}
