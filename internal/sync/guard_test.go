package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

func openTestStore(t *testing.T) *triplelog.Store {
	t.Helper()
	s, err := triplelog.Open(triplelog.Options{PersistenceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func encodeOps(t *testing.T, ops []txn.Operation) string {
	t.Helper()
	b, err := json.Marshal(ops)
	if err != nil {
		t.Fatalf("marshal ops: %v", err)
	}
	return string(b)
}

func TestLooksCorruptDetectsSerializedListEntityID(t *testing.T) {
	corrupt := txn.Operation{Kind: txn.OpDelete, EntityID: `["e1","e2"]`}
	clean := txn.Operation{Kind: txn.OpDelete, EntityID: "e1"}

	if !looksCorrupt(triplelog.TxRecord{Data: encodeOps(t, []txn.Operation{corrupt})}) {
		t.Fatal("expected a delete op with a list-shaped entity id to be flagged corrupt")
	}
	if looksCorrupt(triplelog.TxRecord{Data: encodeOps(t, []txn.Operation{clean})}) {
		t.Fatal("expected a normal delete op not to be flagged")
	}
}

func TestLooksCorruptIgnoresNonDeleteOps(t *testing.T) {
	op := txn.Operation{Kind: txn.OpAdd, EntityID: `["looks","weird"]`, EntityType: "todo"}
	if looksCorrupt(triplelog.TxRecord{Data: encodeOps(t, []txn.Operation{op})}) {
		t.Fatal("the corruption guard only inspects delete operations")
	}
}

func TestQuarantineMalformedMarksFailedAndExcludes(t *testing.T) {
	store := openTestStore(t)

	good := triplelog.TxRecord{ID: "tx-good", Timestamp: time.Now().UTC(), Status: triplelog.TxPending,
		Data: encodeOps(t, []txn.Operation{{Kind: txn.OpDelete, EntityID: "e1"}})}
	bad := triplelog.TxRecord{ID: "tx-bad", Timestamp: time.Now().UTC(), Status: triplelog.TxPending,
		Data: encodeOps(t, []txn.Operation{{Kind: txn.OpDelete, EntityID: `["e1","e2"]`}})}

	if err := triplelog.InsertTxRecord(store.Conn(), good); err != nil {
		t.Fatalf("insert good: %v", err)
	}
	if err := triplelog.InsertTxRecord(store.Conn(), bad); err != nil {
		t.Fatalf("insert bad: %v", err)
	}

	clean, err := quarantineMalformed(store, []triplelog.TxRecord{good, bad})
	if err != nil {
		t.Fatalf("quarantineMalformed: %v", err)
	}
	if len(clean) != 1 || clean[0].ID != "tx-good" {
		t.Fatalf("expected only the good record to survive quarantine, got %+v", clean)
	}

	pending, err := triplelog.PendingTransactions(store.Conn())
	if err != nil {
		t.Fatalf("PendingTransactions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "tx-good" {
		t.Fatalf("expected the bad record's status to be marked failed, pending=%+v", pending)
	}
}
