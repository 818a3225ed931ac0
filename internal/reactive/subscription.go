// Package reactive implements the subscription manager (component C5):
// live (query, result) pairs that re-evaluate and diff-notify on
// relevant change events, registered and dispatched through a
// mutex-guarded registry in the same shape as an event bus.
package reactive

import (
	"sync"

	"github.com/localfirst/tripledb/internal/entity"
	"github.com/localfirst/tripledb/internal/query"
	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

// State is the lifecycle stage of a subscription's most recent result
// (spec §4.5).
type State string

const (
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Result is what a subscription hands its consumer on every publish.
type Result struct {
	State      State
	Entities   []entity.Map
	Aggregates []query.AggregateRow
	Err        error
}

// Consumer receives every published Result for a subscription, starting
// with a StateLoading result at registration and then one publish per
// structurally-distinct re-evaluation.
type Consumer func(Result)

// Subscription is one live (query, cached result) pair. Obtained from
// Manager.Subscribe; its only other operation is Unsubscribe.
type Subscription struct {
	id       string
	query    query.Query
	consumer Consumer

	mu   sync.Mutex
	last Result

	manager *Manager
}

// Unsubscribe removes this subscription and releases its retained
// state. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.manager.remove(s.id)
}

// Manager is the registry of active subscriptions (spec §4.5), guarded
// by a single mutex in the style of a handler-dispatch event bus:
// Register/Unregister/Dispatch replaced here by Subscribe/Unsubscribe/
// Notify, since what's dispatched is a re-evaluation, not a fixed event
// payload.
type Manager struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	nextID uint64

	store triplelog.Execer
}

// New returns a Manager evaluating queries against store.
func New(store triplelog.Execer) *Manager {
	return &Manager{subs: make(map[string]*Subscription), store: store}
}

// Subscribe registers q, evaluates it immediately (publishing a loading
// result first, then the first success/error), and returns a handle.
func (m *Manager) Subscribe(q query.Query, consumer Consumer) *Subscription {
	m.mu.Lock()
	m.nextID++
	id := idFromCounter(m.nextID)
	sub := &Subscription{id: id, query: q, consumer: consumer, manager: m}
	m.subs[id] = sub
	m.mu.Unlock()

	consumer(Result{State: StateLoading})
	sub.evaluate(m.store)
	return sub
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
}

// Notify re-evaluates every subscription whose candidate set could be
// affected by events, per the sound-but-simple policy of spec §4.5:
// entityType match, entityId match, or a query with neither filter.
func (m *Manager) Notify(events []txn.ChangeEvent) {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.RUnlock()

	for _, s := range subs {
		if relevant(s.query, events) {
			s.evaluate(m.store)
		}
	}
}

func relevant(q query.Query, events []txn.ChangeEvent) bool {
	if q.EntityType == "" && q.EntityID == "" {
		return true
	}
	for _, e := range events {
		if q.EntityType != "" && e.EntityType == q.EntityType {
			return true
		}
		if q.EntityID != "" && e.EntityID == q.EntityID {
			return true
		}
	}
	return false
}

// evaluate re-runs the subscription's query and publishes only if the
// result differs structurally from the cached one (spec §4.5 step 3).
func (s *Subscription) evaluate(ex triplelog.Execer) {
	res, err := query.Execute(ex, s.query)
	var next Result
	if err != nil {
		next = Result{State: StateError, Err: err}
	} else {
		next = Result{State: StateSuccess, Entities: res.Entities, Aggregates: res.Aggregates}
	}

	s.mu.Lock()
	changed := !resultsEqual(s.last, next)
	if changed {
		s.last = next
	}
	s.mu.Unlock()

	if changed {
		s.consumer(next)
	}
}

func resultsEqual(a, b Result) bool {
	if a.State != b.State {
		return false
	}
	if a.State == StateError {
		return errString(a.Err) == errString(b.Err)
	}
	return entity.Equal(entitiesToAny(a.Entities), entitiesToAny(b.Entities)) &&
		entity.Equal(aggregatesToAny(a.Aggregates), aggregatesToAny(b.Aggregates))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func entitiesToAny(entities []entity.Map) any {
	out := make([]any, len(entities))
	for i, e := range entities {
		out[i] = map[string]any(e)
	}
	return out
}

func aggregatesToAny(rows []query.AggregateRow) any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any{"group": r.Group, "values": r.Values}
	}
	return out
}

func idFromCounter(n uint64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	buf := make([]byte, 0, 16)
	for n > 0 {
		buf = append([]byte{digits[n%36]}, buf...)
		n /= 36
	}
	return string(buf)
}
