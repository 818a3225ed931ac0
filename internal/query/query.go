// Package query implements the declarative query engine (component C4):
// candidate-set selection, where-clause filtering, ordering, pagination,
// and aggregation over materialized entities (spec §4.4).
package query

// Query is the map-shaped query the engine evaluates.
type Query struct {
	EntityType string
	EntityID   string
	Where      map[string]any
	OrderBy    any // string, map[string]any, or []any of map[string]any
	Limit      int
	Offset     int
	Aggregate  map[string]string // e.g. {"count": "*", "sum": "points"}
	GroupBy    []string
}

// HasLimit reports whether a positive Limit was set. A Limit of 0 (or
// less) means no limit; a request for zero results cannot be expressed.
func (q Query) HasLimit() bool { return q.Limit > 0 }
