package entity

import "github.com/localfirst/tripledb/internal/triplelog"

// Materialize folds a set of live (non-retracted) triples into one Map
// per distinct entityId (spec §3, component C3). Triples for retracted
// entities should already be excluded by the caller's query; this
// function does not re-check the Retracted flag.
func Materialize(triples []triplelog.Triple) map[string]Map {
	out := make(map[string]Map)
	for _, t := range triples {
		m, ok := out[t.EntityID]
		if !ok {
			m = Map{IDField: t.EntityID}
			out[t.EntityID] = m
		}
		m[t.Attribute] = t.Value
	}
	return out
}

// MaterializeOne folds the live triples of a single entity into a Map,
// or returns (nil, false) if triples is empty (the entity does not
// exist or has been fully retracted).
func MaterializeOne(entityID string, triples []triplelog.Triple) (Map, bool) {
	if len(triples) == 0 {
		return nil, false
	}
	m := Map{IDField: entityID}
	for _, t := range triples {
		m[t.Attribute] = t.Value
	}
	return m, true
}
