package sync

import (
	"testing"

	"github.com/localfirst/tripledb/internal/txn"
)

func TestInitFrameCarriesDeviceID(t *testing.T) {
	f := initFrame("app1", "tok", "dev1")
	if f.Op != "init" || f.AppID != "app1" || f.Token != "tok" || f.DeviceID != "dev1" {
		t.Fatalf("unexpected init frame: %+v", f)
	}
}

func TestTransactFrameRoundTripsOperations(t *testing.T) {
	ops := []txn.Operation{{Kind: txn.OpAdd, EntityType: "todo", EntityID: "e1", Data: map[string]any{"title": "x"}}}
	f := transactFrame("tx1", "dev1", ops)
	if f.Op != "transact" || f.TxID != "tx1" || f.DeviceID != "dev1" || len(f.Operations) != 1 {
		t.Fatalf("unexpected transact frame: %+v", f)
	}
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	f := pingFrame()
	if f.Op != "ping" {
		t.Fatalf("expected ping op, got %q", f.Op)
	}

	raw := []byte(`{"op":"ack","txId":"tx1"}`)
	decoded, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if decoded.Op != "ack" || decoded.TxID != "tx1" {
		t.Fatalf("unexpected decoded frame: %+v", decoded)
	}
}

func TestDecodeFrameInvalidJSON(t *testing.T) {
	if _, err := decodeFrame([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding malformed frame data")
	}
}

func TestSnapshotRequestFrameCarriesDeviceID(t *testing.T) {
	f := snapshotRequestFrame("dev1")
	if f.Op != "snapshot_request" || f.DeviceID != "dev1" {
		t.Fatalf("unexpected snapshot request frame: %+v", f)
	}
}

func TestDecodeSnapshotFrameRoundTripsTransactions(t *testing.T) {
	raw := []byte(`{"op":"snapshot","snapshotSeq":3,"transactions":[
		{"txId":"t1","timestamp":"2024-01-01T00:00:00Z","operations":[
			{"kind":"add","entityType":"todo","entityId":"e1","data":{"title":"x"}}
		]}
	]}`)
	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if f.Op != "snapshot" || f.SnapshotSeq != 3 || len(f.Transactions) != 1 {
		t.Fatalf("unexpected decoded snapshot frame: %+v", f)
	}
	if f.Transactions[0].TxID != "t1" || len(f.Transactions[0].Operations) != 1 {
		t.Fatalf("unexpected snapshot transaction entry: %+v", f.Transactions[0])
	}
}
