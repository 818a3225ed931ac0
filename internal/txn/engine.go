package txn

import (
	"encoding/json"
	"fmt"

	"github.com/localfirst/tripledb/internal/triplelog"
)

// Engine is the transaction engine (C2): it owns the only write path
// into the triple log and is the sole place LookupRefs are resolved,
// operations applied, and change events produced.
type Engine struct {
	store *triplelog.Store
}

// New returns an Engine writing through store.
func New(store *triplelog.Store) *Engine {
	return &Engine{store: store}
}

// Apply resolves lookups, applies every operation of t atomically, and
// on success hands the buffered change events to sink in production
// order (spec §4.2). Applying a transaction whose id is already present
// in the log is a no-op (spec invariant 2, testable property 1): Apply
// returns nil without touching the log or calling sink.
func (e *Engine) Apply(t Transaction, sink EventSink) error {
	exists, err := triplelog.TxExists(e.store.Conn(), t.ID)
	if err != nil {
		return fmt.Errorf("check transaction %s: %w", t.ID, err)
	}
	if exists {
		return nil
	}

	ops := assignEntityIDs(t.Operations)
	ops, err = resolveLookupRefs(e.store.Conn(), ops)
	if err != nil {
		return err
	}

	encodedOps, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encode operations for %s: %w", t.ID, err)
	}

	var events []ChangeEvent
	applyErr := e.store.Transact(func(tx triplelog.Execer) error {
		if err := triplelog.InsertTxRecord(tx, triplelog.TxRecord{
			ID: t.ID, Timestamp: t.Timestamp, Status: t.Status, Data: string(encodedOps),
		}); err != nil {
			return err
		}
		for _, op := range ops {
			evs, err := applyOperation(tx, op, t.ID)
			if err != nil {
				return err
			}
			events = append(events, evs...)
		}
		return nil
	})
	if applyErr != nil {
		return fmt.Errorf("apply transaction %s: %w", t.ID, applyErr)
	}

	// Change events are only handed out after the enclosing log
	// transaction has committed (spec invariant 3).
	if sink != nil && len(events) > 0 {
		sink(events)
	}
	return nil
}
