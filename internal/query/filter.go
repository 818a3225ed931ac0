package query

import (
	"fmt"
	"strings"

	"github.com/localfirst/tripledb/internal/entity"
)

// matches evaluates a where-clause map against one materialized entity
// (spec §4.4). Top-level entries are combined with implicit AND.
func matches(e entity.Map, where map[string]any) (bool, error) {
	for key, cond := range where {
		switch key {
		case "$or":
			ok, err := matchesAny(e, cond)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		case "$and":
			ok, err := matchesAll(e, cond)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		case "$not":
			ok, err := matchesAll(e, cond) // $not negates its sub-map(s) matching (spec §4.4)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		default:
			ok, err := matchesField(e, key, cond)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// matchesAll requires every sub-map in cond (a single map or a list of
// maps) to match.
func matchesAll(e entity.Map, cond any) (bool, error) {
	subs, err := asSubMaps(cond)
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		ok, err := matches(e, sub)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchesAny requires at least one sub-map in cond to match.
func matchesAny(e entity.Map, cond any) (bool, error) {
	subs, err := asSubMaps(cond)
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		ok, err := matches(e, sub)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func asSubMaps(cond any) ([]map[string]any, error) {
	switch t := cond.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid_input: logical operator operand must be a map or list of maps")
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid_input: logical operator operand must be a map or list of maps")
	}
}

// matchesField evaluates one where-clause entry against entity field
// named key. cond is either a literal (equality) or a map of operator to
// operand (spec §4.4 operator table).
func matchesField(e entity.Map, field string, cond any) (bool, error) {
	opMap, isOpMap := cond.(map[string]any)
	if !isOpMap {
		return matchesOperator(e, field, "$eq", cond)
	}
	for op, operand := range opMap {
		ok, err := matchesOperator(e, field, op, operand)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// normalizeOp maps the plain-symbol spellings onto their $-prefixed
// canonical form (spec §4.4 table: "both forms are equivalent").
func normalizeOp(op string) string {
	switch op {
	case ">":
		return "$gt"
	case ">=":
		return "$gte"
	case "<":
		return "$lt"
	case "<=":
		return "$lte"
	case "!=":
		return "$ne"
	case "in":
		return "$in"
	case "not_in":
		return "$nin"
	default:
		return op
	}
}

func matchesOperator(e entity.Map, field, op string, operand any) (bool, error) {
	op = normalizeOp(op)
	val, present := e[field]

	switch op {
	case "$isNull":
		want, _ := operand.(bool)
		return (!present || val == nil) == want, nil
	case "$exists":
		want, _ := operand.(bool)
		return (present && val != nil) == want, nil
	case "$not":
		sub, ok := operand.(map[string]any)
		if !ok {
			// $not against a literal negates plain equality.
			eq, err := matchesOperator(e, field, "$eq", operand)
			if err != nil {
				return false, err
			}
			return !eq, nil
		}
		for subOp, subOperand := range sub {
			ok, err := matchesOperator(e, field, subOp, subOperand)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	}

	// An entity missing the field fails the predicate for everything
	// else except the null-related operators handled above.
	if !present {
		return false, nil
	}

	switch op {
	case "$eq":
		return entity.Equal(val, operand), nil
	case "$ne":
		return !entity.Equal(val, operand), nil
	case "$gt", "$gte", "$lt", "$lte":
		return compareOp(val, operand, op)
	case "$in":
		list, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("invalid_input: %s requires a list operand", op)
		}
		for _, item := range list {
			if entity.Equal(val, item) {
				return true, nil
			}
		}
		return false, nil
	case "$nin":
		list, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("invalid_input: %s requires a list operand", op)
		}
		for _, item := range list {
			if entity.Equal(val, item) {
				return false, nil
			}
		}
		return true, nil
	case "$like":
		return globMatch(toString(val), toString(operand), false), nil
	case "$ilike":
		return globMatch(toString(val), toString(operand), true), nil
	case "$contains":
		return containsOp(val, operand), nil
	case "$size":
		return sizeOp(val, operand), nil
	default:
		return false, fmt.Errorf("invalid_input: unknown operator %q", op)
	}
}

// compareOp implements the ordered comparisons. Spec: "both sides must
// be comparable and same kind else false."
func compareOp(a, b any, op string) (bool, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return applyOrdering(cmpFloat(af, bf), op), nil
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return applyOrdering(strings.Compare(as, bs), op), nil
	}
	return false, nil
}

func applyOrdering(cmp int, op string) bool {
	switch op {
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	case "$lt":
		return cmp < 0
	case "$lte":
		return cmp <= 0
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsOp(val, operand any) bool {
	switch v := val.(type) {
	case []any:
		for _, item := range v {
			if entity.Equal(item, operand) {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(v, toString(operand))
	default:
		return false
	}
}

func sizeOp(val, operand any) bool {
	want, ok := asFloat(operand)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case []any:
		return float64(len(v)) == want
	case string:
		return float64(len(v)) == want
	default:
		return false
	}
}

// globMatch implements $like/$ilike: a glob where % matches any run of
// characters, anchored to the full string.
func globMatch(s, pattern string, insensitive bool) bool {
	if insensitive {
		s = strings.ToLower(s)
		pattern = strings.ToLower(pattern)
	}
	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return s == pattern
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(s, last)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
