package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/localfirst/tripledb/internal/entity"
)

// AggregateRow is one row of an aggregated result: the group-key fields
// (empty map when ungrouped) plus the computed aggregate values.
type AggregateRow struct {
	Group  map[string]any
	Values map[string]any
}

// aggregate computes spec §4.4 aggregation, optionally partitioned by
// groupBy. Pagination is not applied to the result (spec: "when
// aggregating, pagination is not applied to groups").
func aggregate(entities []entity.Map, aggSpec map[string]string, groupBy []string) []AggregateRow {
	groups := partitionByGroup(entities, groupBy)

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]AggregateRow, 0, len(groups))
	for _, k := range keys {
		g := groups[k]
		var sample entity.Map
		if len(g.entities) > 0 {
			sample = g.entities[0]
		}
		row := AggregateRow{
			Group:  groupFields(sample, groupBy),
			Values: computeAggregates(g.entities, aggSpec),
		}
		rows = append(rows, row)
	}
	return rows
}

type group struct {
	entities []entity.Map
}

// partitionByGroup splits entities by the concatenation of their
// groupBy field string forms (separator "|"); an empty groupBy is one
// implicit group holding everything.
func partitionByGroup(entities []entity.Map, groupBy []string) map[string]*group {
	groups := make(map[string]*group)
	if len(groupBy) == 0 {
		g := &group{entities: entities}
		groups[""] = g
		return groups
	}
	for _, e := range entities {
		parts := make([]string, len(groupBy))
		for i, f := range groupBy {
			parts[i] = toString(e[f])
		}
		key := strings.Join(parts, "|")
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.entities = append(g.entities, e)
	}
	return groups
}

// groupFields reproduces each groupBy field's value on the output row,
// with best-effort reparsing (int -> double -> bool -> string) since the
// grouping itself collapsed values to their string form.
func groupFields(sample entity.Map, groupBy []string) map[string]any {
	out := make(map[string]any, len(groupBy))
	for _, f := range groupBy {
		out[f] = reparse(toString(sample[f]))
	}
	return out
}

func reparse(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func computeAggregates(entities []entity.Map, aggSpec map[string]string) map[string]any {
	out := make(map[string]any, len(aggSpec))
	for fn, field := range aggSpec {
		switch fn {
		case "count":
			out["count"] = len(entities)
		case "sum":
			out["sum"] = sumField(entities, field)
		case "avg":
			out["avg"] = avgField(entities, field)
		case "min":
			if v, ok := minMaxField(entities, field, true); ok {
				out["min"] = v
			}
		case "max":
			if v, ok := minMaxField(entities, field, false); ok {
				out["max"] = v
			}
		}
	}
	return out
}

func numericValues(entities []entity.Map, field string) []float64 {
	var out []float64
	for _, e := range entities {
		if f, ok := asFloat(e[field]); ok {
			out = append(out, f)
		}
	}
	return out
}

func sumField(entities []entity.Map, field string) float64 {
	var total float64
	for _, v := range numericValues(entities, field) {
		total += v
	}
	return total
}

func avgField(entities []entity.Map, field string) float64 {
	vals := numericValues(entities, field)
	if len(vals) == 0 {
		return 0
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

func minMaxField(entities []entity.Map, field string, min bool) (float64, bool) {
	vals := numericValues(entities, field)
	if len(vals) == 0 {
		return 0, false
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if (min && v < best) || (!min && v > best) {
			best = v
		}
	}
	return best, true
}
