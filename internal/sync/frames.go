package sync

import (
	"encoding/json"
	"time"

	"github.com/localfirst/tripledb/internal/txn"
)

// snapshotTx is one bulk-transferred transaction inside a "snapshot"
// frame: the same shape runReady applies individual inbound "tx" frames
// as, just batched (spec §9.C "Snapshot bootstrap").
type snapshotTx struct {
	TxID       string          `json:"txId"`
	Operations []txn.Operation `json:"operations"`
	Timestamp  time.Time       `json:"timestamp"`
}

// frame is the envelope for every message on the duplex connection
// (spec §6 wire protocol). Only the fields relevant to Op are populated.
type frame struct {
	Op           string          `json:"op"`
	AppID        string          `json:"appId,omitempty"`
	Token        string          `json:"token,omitempty"`
	DeviceID     string          `json:"deviceId,omitempty"`
	TxID         string          `json:"txId,omitempty"`
	Operations   []txn.Operation `json:"operations,omitempty"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	Code         string          `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
	Transactions []snapshotTx    `json:"transactions,omitempty"`
	SnapshotSeq  int64           `json:"snapshotSeq,omitempty"`
}

func initFrame(appID, token, deviceID string) frame {
	return frame{Op: "init", AppID: appID, Token: token, DeviceID: deviceID}
}

func transactFrame(txID, deviceID string, ops []txn.Operation) frame {
	return frame{Op: "transact", TxID: txID, DeviceID: deviceID, Operations: ops}
}

// snapshotRequestFrame asks the server for a full bootstrap snapshot
// instead of the complete event history, sent once when this device's
// local log is still empty (spec §9.C "Snapshot bootstrap", grounded on
// the teacher's `GetSnapshot` bootstrap call).
func snapshotRequestFrame(deviceID string) frame {
	return frame{Op: "snapshot_request", DeviceID: deviceID}
}

func pingFrame() frame { return frame{Op: "ping"} }

func decodeFrame(data []byte) (frame, error) {
	var f frame
	err := json.Unmarshal(data, &f)
	return f, err
}
