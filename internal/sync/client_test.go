package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/localfirst/tripledb/internal/connectivity"
	"github.com/localfirst/tripledb/internal/entity"
	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

// fakeServer is a minimal stand-in for the sync backend: it accepts one
// init frame, acks it, declines the bootstrap snapshot request every
// fresh client sends against an empty local log (this fixture doesn't
// implement snapshotting), then pushes one inbound transaction so the
// test can observe Client applying it through the engine. Modeled on
// the teacher's own fake-server sync test harness.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // init
			return
		}
		if err := conn.WriteJSON(frame{Op: "ack"}); err != nil {
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := decodeFrame(data)
			if err != nil {
				return
			}
			if f.Op != "snapshot_request" {
				continue
			}
			if err := conn.WriteJSON(frame{Op: "error", Code: "not_found", Message: "snapshot unsupported"}); err != nil {
				return
			}
			break
		}

		ts := time.Now().UTC()
		push := frame{
			Op:   "tx",
			TxID: "tx-server-1",
			Operations: []txn.Operation{{
				Kind: txn.OpAdd, EntityType: "todo", EntityID: "e1",
				Data: map[string]any{"title": "from server"},
			}},
			Timestamp: &ts,
		}
		if err := conn.WriteJSON(push); err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestClientAppliesInboundTransactionAndReachesReady(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	store, err := triplelog.Open(triplelog.Options{PersistenceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	engine := txn.New(store)
	signal := connectivity.New()

	cfg := Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		AppID:          "app1",
		DeviceID:       "dev1",
		ReconnectDelay: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		HealthInterval: time.Hour,
	}
	client := New(cfg, store, engine, signal, func() string { return "token" }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if client.State() == StateReady {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if client.State() != StateReady {
		t.Fatalf("expected client to reach Ready, got %v", client.State())
	}
	if !signal.Online() {
		t.Fatal("expected the connectivity signal to report online once Ready")
	}

	var triples []triplelog.Triple
	for time.Now().Before(deadline) {
		triples, err = triplelog.LiveTriplesForEntity(store.Conn(), "e1")
		if err != nil {
			t.Fatalf("LiveTriplesForEntity: %v", err)
		}
		if len(triples) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m, ok := entity.MaterializeOne("e1", triples)
	if !ok {
		t.Fatal("expected the server-pushed transaction to materialize entity e1")
	}
	if m["title"] != "from server" {
		t.Fatalf("unexpected materialized entity: %+v", m)
	}

	exists, err := triplelog.TxExists(store.Conn(), "tx-server-1")
	if err != nil {
		t.Fatalf("TxExists: %v", err)
	}
	if !exists {
		t.Fatal("expected the inbound transaction to be durably recorded")
	}
}

func TestClientReportsOfflineAfterDisconnect(t *testing.T) {
	srv := fakeServer(t)

	store, err := triplelog.Open(triplelog.Options{PersistenceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	engine := txn.New(store)
	signal := connectivity.New()
	cfg := Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		DeviceID:       "dev1",
		ReconnectDelay: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		HealthInterval: time.Hour,
	}
	client := New(cfg, store, engine, signal, func() string { return "" }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && client.State() != StateReady {
		time.Sleep(10 * time.Millisecond)
	}
	if client.State() != StateReady {
		t.Fatal("expected client to reach Ready before closing the server")
	}

	srv.Close()

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && signal.Online() {
		time.Sleep(10 * time.Millisecond)
	}
	if signal.Online() {
		t.Fatal("expected connectivity signal to go offline once the connection drops")
	}
}

// snapshotServer responds to the bootstrap snapshot request with a bulk
// "snapshot" frame carrying two transactions, instead of declining like
// fakeServer does, so the test can verify the client applies the whole
// batch through the engine on first connect.
func snapshotServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // init
			return
		}
		if err := conn.WriteJSON(frame{Op: "ack"}); err != nil {
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := decodeFrame(data)
			if err != nil {
				return
			}
			if f.Op != "snapshot_request" {
				continue
			}
			ts := time.Now().UTC()
			snap := frame{
				Op:          "snapshot",
				SnapshotSeq: 7,
				Transactions: []snapshotTx{
					{TxID: "snap-1", Timestamp: ts, Operations: []txn.Operation{
						{Kind: txn.OpAdd, EntityType: "todo", EntityID: "e1", Data: map[string]any{"title": "one"}},
					}},
					{TxID: "snap-2", Timestamp: ts, Operations: []txn.Operation{
						{Kind: txn.OpAdd, EntityType: "todo", EntityID: "e2", Data: map[string]any{"title": "two"}},
					}},
				},
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			break
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestClientAppliesSnapshotBootstrapOnEmptyLog(t *testing.T) {
	srv := snapshotServer(t)
	defer srv.Close()

	store, err := triplelog.Open(triplelog.Options{PersistenceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	engine := txn.New(store)
	signal := connectivity.New()
	cfg := Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		DeviceID:       "dev1",
		ReconnectDelay: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		HealthInterval: time.Hour,
	}
	client := New(cfg, store, engine, signal, func() string { return "" }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	var e1, e2 []triplelog.Triple
	for time.Now().Before(deadline) {
		e1, err = triplelog.LiveTriplesForEntity(store.Conn(), "e1")
		if err != nil {
			t.Fatalf("LiveTriplesForEntity e1: %v", err)
		}
		e2, err = triplelog.LiveTriplesForEntity(store.Conn(), "e2")
		if err != nil {
			t.Fatalf("LiveTriplesForEntity e2: %v", err)
		}
		if len(e1) > 0 && len(e2) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m1, ok := entity.MaterializeOne("e1", e1)
	if !ok || m1["title"] != "one" {
		t.Fatalf("expected snapshot transaction snap-1 to materialize e1, got %+v ok=%v", m1, ok)
	}
	m2, ok := entity.MaterializeOne("e2", e2)
	if !ok || m2["title"] != "two" {
		t.Fatalf("expected snapshot transaction snap-2 to materialize e2, got %+v ok=%v", m2, ok)
	}

	for _, id := range []string{"snap-1", "snap-2"} {
		exists, err := triplelog.TxExists(store.Conn(), id)
		if err != nil {
			t.Fatalf("TxExists %s: %v", id, err)
		}
		if !exists {
			t.Fatalf("expected snapshot transaction %s to be durably recorded", id)
		}
	}
}

func TestClientSkipsSnapshotBootstrapWhenLogNonEmpty(t *testing.T) {
	srv := snapshotServer(t)
	defer srv.Close()

	store, err := triplelog.Open(triplelog.Options{PersistenceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	engine := txn.New(store)
	if err := engine.Apply(txn.Transaction{
		ID:        "local-1",
		Status:    triplelog.TxSynced,
		Timestamp: time.Now(),
		Operations: []txn.Operation{
			{Kind: txn.OpAdd, EntityType: "todo", EntityID: "existing", Data: map[string]any{"title": "already here"}},
		},
	}, nil); err != nil {
		t.Fatalf("seed local transaction: %v", err)
	}

	signal := connectivity.New()
	cfg := Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		DeviceID:       "dev1",
		ReconnectDelay: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		HealthInterval: time.Hour,
	}
	client := New(cfg, store, engine, signal, func() string { return "" }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && client.State() != StateReady {
		time.Sleep(10 * time.Millisecond)
	}
	if client.State() != StateReady {
		t.Fatal("expected client to reach Ready")
	}

	// The snapshotServer only ever answers "snapshot_request"; since this
	// client's log already has a transaction, it never sends one, and the
	// two snapshot-carried entities must never appear locally.
	time.Sleep(100 * time.Millisecond)
	e1, err := triplelog.LiveTriplesForEntity(store.Conn(), "e1")
	if err != nil {
		t.Fatalf("LiveTriplesForEntity: %v", err)
	}
	if len(e1) != 0 {
		t.Fatal("expected a non-empty local log to skip the snapshot bootstrap entirely")
	}
}
