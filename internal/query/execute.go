package query

import (
	"fmt"

	"github.com/localfirst/tripledb/internal/entity"
	"github.com/localfirst/tripledb/internal/triplelog"
)

// Result is the outcome of evaluating a Query: either a plain list of
// entities, or (when Aggregate was set) a list of aggregate rows.
type Result struct {
	Entities   []entity.Map
	Aggregates []AggregateRow
}

// Execute evaluates q against ex (spec §4.4): select the candidate
// entity set, materialize, filter, order, paginate, and optionally
// aggregate.
func Execute(ex triplelog.Execer, q Query) (Result, error) {
	ids, err := candidateEntityIDs(ex, q)
	if err != nil {
		return Result{}, fmt.Errorf("storage_error: select candidates: %w", err)
	}
	if len(ids) == 0 {
		if q.Aggregate != nil {
			return Result{Aggregates: aggregate(nil, q.Aggregate, q.GroupBy)}, nil
		}
		return Result{Entities: []entity.Map{}}, nil
	}

	triples, err := triplelog.LiveTriplesForEntities(ex, ids)
	if err != nil {
		return Result{}, fmt.Errorf("storage_error: materialize candidates: %w", err)
	}
	materialized := entity.Materialize(triples)

	entities := make([]entity.Map, 0, len(ids))
	for _, id := range ids {
		if e, ok := materialized[id]; ok {
			entities = append(entities, e)
		}
	}

	if q.Where != nil {
		filtered := entities[:0:0]
		for _, e := range entities {
			ok, err := matches(e, q.Where)
			if err != nil {
				return Result{}, fmt.Errorf("invalid_input: %w", err)
			}
			if ok {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	keys, err := parseOrderBy(q.OrderBy)
	if err != nil {
		return Result{}, err
	}
	if len(keys) > 0 {
		sortEntities(entities, keys)
	}

	if q.Aggregate != nil {
		return Result{Aggregates: aggregate(entities, q.Aggregate, q.GroupBy)}, nil
	}

	// offset applied before limit (spec §4.4, testable property 6).
	if q.Offset > 0 {
		if q.Offset >= len(entities) {
			entities = []entity.Map{}
		} else {
			entities = entities[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(entities) {
		entities = entities[:q.Limit]
	}

	return Result{Entities: entities}, nil
}
