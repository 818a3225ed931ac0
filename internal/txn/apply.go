package txn

import (
	"fmt"

	"github.com/localfirst/tripledb/internal/entity"
	"github.com/localfirst/tripledb/internal/idgen"
	"github.com/localfirst/tripledb/internal/triplelog"
)

const typeAttribute = entity.TypeAttribute

// assignEntityIDs fills in a fresh entity id for any add operation that
// did not supply one, so later steps (the recorded operation list used
// for sync replay, event stamping) have a concrete id to work with.
func assignEntityIDs(ops []Operation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		if op.Kind == OpAdd && op.EntityID == "" {
			op.EntityID = idgen.NewEntityID()
		}
		out[i] = op
	}
	return out
}

// applyOperation applies one operation within tx and returns the change
// events it produced, in production order.
func applyOperation(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	switch op.Kind {
	case OpAdd:
		return applyAdd(ex, op, txID)
	case OpUpdate:
		return applyUpdate(ex, op, txID)
	case OpMerge:
		return applyMerge(ex, op, txID)
	case OpDelete:
		return applyDelete(ex, op, txID)
	case OpLink:
		return applyLink(ex, op, txID)
	case OpUnlink, OpRetract:
		return applyUnlink(ex, op, txID)
	default:
		return nil, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func applyAdd(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	var events []ChangeEvent

	// Always inject __type, even if the caller already set it in data
	// (spec §4.2: "add always injects __type = entityType").
	if err := triplelog.InsertTriple(ex, triplelog.Triple{
		EntityID: op.EntityID, Attribute: typeAttribute, Value: op.EntityType, TxID: txID,
	}); err != nil {
		return nil, err
	}
	events = append(events, ChangeEvent{
		Kind: ChangeAdd, EntityID: op.EntityID, EntityType: op.EntityType,
		Attribute: typeAttribute, Value: op.EntityType, TxID: txID,
	})

	for attr, val := range op.Data {
		if attr == typeAttribute {
			continue // already written above; avoid a duplicate event
		}
		if err := triplelog.InsertTriple(ex, triplelog.Triple{
			EntityID: op.EntityID, Attribute: attr, Value: val, TxID: txID,
		}); err != nil {
			return nil, err
		}
		events = append(events, ChangeEvent{
			Kind: ChangeAdd, EntityID: op.EntityID, EntityType: op.EntityType,
			Attribute: attr, Value: val, TxID: txID,
		})
	}
	return events, nil
}

func applyUpdate(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	var events []ChangeEvent
	entityType := resolveEntityType(ex, op.EntityID, op.EntityType)

	for attr, val := range op.Data {
		prior, err := triplelog.LiveTriplesForEntityAttribute(ex, op.EntityID, attr)
		if err != nil {
			return nil, err
		}
		// Retraction and insertion happen within the same durable
		// transaction the caller already opened, so readers never
		// observe a (attr, neither value) gap (spec §4.2).
		if len(prior) > 0 {
			if err := triplelog.RetractAttribute(ex, op.EntityID, attr); err != nil {
				return nil, err
			}
			for _, p := range prior {
				events = append(events, ChangeEvent{
					Kind: ChangeRetract, EntityID: op.EntityID, EntityType: entityType,
					Attribute: attr, Value: p.Value, TxID: txID,
				})
			}
		}
		if err := triplelog.InsertTriple(ex, triplelog.Triple{
			EntityID: op.EntityID, Attribute: attr, Value: val, TxID: txID,
		}); err != nil {
			return nil, err
		}
		events = append(events, ChangeEvent{
			Kind: ChangeAdd, EntityID: op.EntityID, EntityType: entityType,
			Attribute: attr, Value: val, TxID: txID,
		})
	}
	return events, nil
}

func applyMerge(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	current, err := triplelog.LiveTriplesForEntity(ex, op.EntityID)
	if err != nil {
		return nil, err
	}
	entityType := resolveEntityType(ex, op.EntityID, op.EntityType)

	curMap := make(map[string]any, len(current))
	for _, t := range current {
		curMap[t.Attribute] = t.Value
	}
	merged := entity.DeepMerge(curMap, op.Data)

	var events []ChangeEvent
	for attr := range op.Data {
		newVal := merged[attr]
		oldVal, had := curMap[attr]
		if had && entity.Equal(oldVal, newVal) {
			continue // merge minimality (spec §4.2, testable property 4)
		}
		if had {
			if err := triplelog.RetractAttribute(ex, op.EntityID, attr); err != nil {
				return nil, err
			}
			events = append(events, ChangeEvent{
				Kind: ChangeRetract, EntityID: op.EntityID, EntityType: entityType,
				Attribute: attr, Value: oldVal, TxID: txID,
			})
		}
		if err := triplelog.InsertTriple(ex, triplelog.Triple{
			EntityID: op.EntityID, Attribute: attr, Value: newVal, TxID: txID,
		}); err != nil {
			return nil, err
		}
		events = append(events, ChangeEvent{
			Kind: ChangeAdd, EntityID: op.EntityID, EntityType: entityType,
			Attribute: attr, Value: newVal, TxID: txID,
		})
	}
	return events, nil
}

func applyDelete(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	current, err := triplelog.LiveTriplesForEntity(ex, op.EntityID)
	if err != nil {
		return nil, err
	}
	entityType := resolveEntityType(ex, op.EntityID, op.EntityType)

	if err := triplelog.RetractEntity(ex, op.EntityID); err != nil {
		return nil, err
	}

	events := make([]ChangeEvent, 0, len(current))
	for _, t := range current {
		events = append(events, ChangeEvent{
			Kind: ChangeRetract, EntityID: op.EntityID, EntityType: entityType,
			Attribute: t.Attribute, Value: t.Value, TxID: txID,
		})
	}
	return events, nil
}

// applyLink inserts a triple per linked id without retracting any prior
// value, since a link attribute may hold several live triples at once
// (spec §3: link/unlink value is "a foreign entity id or list of ids").
func applyLink(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	var events []ChangeEvent
	entityType := resolveEntityType(ex, op.EntityID, op.EntityType)

	for attr, val := range op.Data {
		for _, v := range asValueList(val) {
			if err := triplelog.InsertTriple(ex, triplelog.Triple{
				EntityID: op.EntityID, Attribute: attr, Value: v, TxID: txID,
			}); err != nil {
				return nil, err
			}
			events = append(events, ChangeEvent{
				Kind: ChangeAdd, EntityID: op.EntityID, EntityType: entityType,
				Attribute: attr, Value: v, TxID: txID,
			})
		}
	}
	return events, nil
}

// applyUnlink retracts the exact (attribute, value) triples named in
// data, leaving any other live value for that attribute untouched. Also
// used for the legacy `retract` operation, which has the same per-value
// retraction semantics (spec §3).
func applyUnlink(ex triplelog.Execer, op Operation, txID string) ([]ChangeEvent, error) {
	var events []ChangeEvent
	entityType := resolveEntityType(ex, op.EntityID, op.EntityType)

	for attr, val := range op.Data {
		for _, v := range asValueList(val) {
			if err := triplelog.RetractValue(ex, op.EntityID, attr, v); err != nil {
				return nil, err
			}
			events = append(events, ChangeEvent{
				Kind: ChangeRetract, EntityID: op.EntityID, EntityType: entityType,
				Attribute: attr, Value: v, TxID: txID,
			})
		}
	}
	return events, nil
}

// asValueList normalizes a link/unlink data value into a slice: a bare
// scalar becomes a one-element slice, a list is passed through as-is.
func asValueList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// resolveEntityType returns fallback if non-empty, else looks up the
// entity's __type attribute so retract/update/merge/delete events are
// stamped with a type even when the caller didn't repeat it.
func resolveEntityType(ex triplelog.Execer, entityID, fallback string) string {
	if fallback != "" {
		return fallback
	}
	triples, err := triplelog.LiveTriplesForEntityAttribute(ex, entityID, typeAttribute)
	if err != nil || len(triples) == 0 {
		return ""
	}
	if s, ok := triples[0].Value.(string); ok {
		return s
	}
	return ""
}
