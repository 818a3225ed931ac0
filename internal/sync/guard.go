package sync

import (
	"encoding/json"
	"strings"

	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

// quarantineMalformed implements the corruption guard of spec §4.6: some
// old bug class produced pending transactions whose delete operation
// carries a serialized list where a bare entity id was expected. Rather
// than let these block the outbound queue forever, they're marked
// failed and excluded before dispatch. The root cause is undocumented
// upstream (spec §9 open question); this only prevents it from wedging
// sync.
func quarantineMalformed(store *triplelog.Store, pending []triplelog.TxRecord) ([]triplelog.TxRecord, error) {
	clean := make([]triplelog.TxRecord, 0, len(pending))
	for _, rec := range pending {
		if looksCorrupt(rec) {
			if err := triplelog.MarkTxStatus(store.Conn(), rec.ID, triplelog.TxFailed); err != nil {
				return nil, err
			}
			continue
		}
		clean = append(clean, rec)
	}
	return clean, nil
}

func looksCorrupt(rec triplelog.TxRecord) bool {
	var ops []txn.Operation
	if err := json.Unmarshal([]byte(rec.Data), &ops); err != nil {
		return false
	}
	for _, op := range ops {
		if op.Kind != txn.OpDelete {
			continue
		}
		id := strings.TrimSpace(op.EntityID)
		if strings.HasPrefix(id, "[") && strings.HasSuffix(id, "]") {
			return true
		}
	}
	return false
}
