package triplelog

import (
	"database/sql"
	"fmt"
	"time"
)

// TxStatus mirrors the status column of the transactions table.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSynced  TxStatus = "synced"
	TxFailed  TxStatus = "failed"
)

// TxRecord is one row of the transactions table: the durable record of
// an applied transaction, kept so it can be replayed to the sync server
// and so duplicate application (by TxID) is a no-op.
type TxRecord struct {
	ID        string
	Timestamp time.Time
	Status    TxStatus
	Data      string // JSON-encoded operation list
}

// TxExists reports whether a transaction with this id has already been
// recorded, the basis of the engine's apply-once guarantee (spec
// invariant I-2).
func TxExists(ex Execer, txID string) (bool, error) {
	var exists int
	err := ex.QueryRow(`SELECT 1 FROM transactions WHERE id = ?`, txID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check transaction %s: %w", txID, err)
	}
	return true, nil
}

// InsertTxRecord records a transaction as applied.
func InsertTxRecord(ex Execer, rec TxRecord) error {
	_, err := ex.Exec(
		`INSERT INTO transactions (id, timestamp, status, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Timestamp, string(rec.Status), rec.Data,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", rec.ID, err)
	}
	return nil
}

// MarkTxStatus updates the status of an already-recorded transaction
// (e.g. pending -> synced once the sync client confirms delivery).
func MarkTxStatus(ex Execer, txID string, status TxStatus) error {
	_, err := ex.Exec(`UPDATE transactions SET status = ? WHERE id = ?`, string(status), txID)
	if err != nil {
		return fmt.Errorf("mark transaction %s %s: %w", txID, status, err)
	}
	return nil
}

// IsEmpty reports whether the log holds no triples at all, the signal
// the sync client uses to decide whether to request a bootstrap
// snapshot instead of replaying the full event history on first connect
// (spec §9.C "Snapshot bootstrap").
func IsEmpty(ex Execer) (bool, error) {
	var exists int
	err := ex.QueryRow(`SELECT 1 FROM triples LIMIT 1`).Scan(&exists)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check triple log empty: %w", err)
	}
	return false, nil
}

// PendingTransactions returns every transaction still awaiting sync
// delivery, oldest first, for the sync client to flush on reconnect.
func PendingTransactions(ex Execer) ([]TxRecord, error) {
	rows, err := ex.Query(
		`SELECT id, timestamp, status, data FROM transactions WHERE status = ? ORDER BY timestamp ASC`,
		string(TxPending),
	)
	if err != nil {
		return nil, fmt.Errorf("query pending transactions: %w", err)
	}
	defer rows.Close()

	var out []TxRecord
	for rows.Next() {
		var rec TxRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &status, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Status = TxStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
