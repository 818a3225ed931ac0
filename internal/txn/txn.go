// Package txn implements the transaction engine (component C2): lookup
// reference resolution, atomic operation application against the triple
// log, and buffered post-commit change-event emission.
package txn

import (
	"errors"
	"time"

	"github.com/localfirst/tripledb/internal/triplelog"
)

// ErrLookupFailed is wrapped into any error returned because a LookupRef
// could not be resolved to exactly one entity. The public facade maps
// this to tripledb.KindLookupFailed without txn importing that package.
var ErrLookupFailed = errors.New("lookup reference did not resolve to exactly one entity")

// OpKind names one of the operation variants of spec §3.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpUpdate  OpKind = "update"
	OpMerge   OpKind = "merge"
	OpDelete  OpKind = "delete"
	OpLink    OpKind = "link"
	OpUnlink  OpKind = "unlink"
	OpRetract OpKind = "retract"
)

// Operation is one step of a Transaction.
type Operation struct {
	Kind       OpKind         `json:"kind"`
	EntityType string         `json:"entityType,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// LookupRef is a placeholder that resolves to a literal entity id before
// operations apply (spec §3, §4.2 step 2). Callers using the Go builder
// API construct these directly; operations arriving as JSON (from an
// inbound sync frame, or a caller building from a wire shape) encode the
// same thing as {"$lookup": {"entityType","attribute","value"}}, decoded
// by asLookupRef.
type LookupRef struct {
	EntityType string
	Attribute  string
	Value      any
}

// Transaction is the unit the engine applies: an ordered operation list
// identified by a globally unique id (spec §3, invariant 2).
type Transaction struct {
	ID         string
	Operations []Operation
	Timestamp  time.Time
	Status     triplelog.TxStatus
}

// ChangeEvent is one field-level change produced by applying a
// transaction, buffered until the enclosing log transaction commits
// (spec invariant 3) and then handed to an EventSink in production order.
type ChangeEvent struct {
	Kind       ChangeKind
	EntityID   string
	EntityType string
	Attribute  string
	Value      any
	TxID       string
}

// ChangeKind distinguishes an attribute taking a new value from one
// being retracted.
type ChangeKind string

const (
	ChangeAdd     ChangeKind = "add"
	ChangeRetract ChangeKind = "retract"
)

// EventSink receives the events produced by one transaction's apply, in
// order, after the log transaction has committed. A nil sink is valid:
// callers that only care about durable effect (e.g. a test seeding
// state) may omit it.
type EventSink func([]ChangeEvent)
