package query

import "github.com/localfirst/tripledb/internal/triplelog"

// candidateEntityIDs implements the priority order of spec §4.4: an
// explicit entityId wins outright, then entityType narrows to a single
// index lookup, and only a fully unscoped query falls back to a full
// scan of every entity id in the log.
func candidateEntityIDs(ex triplelog.Execer, q Query) ([]string, error) {
	if q.EntityID != "" {
		return []string{q.EntityID}, nil
	}
	if q.EntityType != "" {
		return triplelog.EntityIDsForType(ex, q.EntityType)
	}
	triples, err := triplelog.LiveTriplesForAll(ex)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, t := range triples {
		if !seen[t.EntityID] {
			seen[t.EntityID] = true
			ids = append(ids, t.EntityID)
		}
	}
	return ids, nil
}
