package triplelog

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Triple is one row of the log: an entity's attribute set to a value by
// a given transaction, possibly later retracted.
type Triple struct {
	EntityID  string
	Attribute string
	Value     any
	TxID      string
	Retracted bool
}

// Execer is satisfied by *sql.DB and *sql.Tx, letting the txn engine
// choose whether a write participates in a caller-managed transaction.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Codec optionally transforms a triple's JSON-encoded value before it is
// written to, and after it is read from, the value column, implementing
// at-rest encryption (spec §6 encryptedStorage). A nil Codec leaves
// values stored as plain JSON.
type Codec interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CodecProvider is implemented by an Execer that also carries a Codec,
// which Store.Conn and Store.Transact return so these free functions can
// reach the codec without taking it as an explicit parameter everywhere.
type CodecProvider interface {
	Codec() Codec
}

func codecFrom(ex Execer) Codec {
	if cp, ok := ex.(CodecProvider); ok {
		return cp.Codec()
	}
	return nil
}

// encodeValue JSON-encodes v and, if codec is set, encrypts the result,
// base64-wrapping it so it still stores as TEXT. Used for deterministic
// encryption (see crypto.EncryptDeterministic) so WHERE value = ?
// equality lookups keep working against encrypted rows.
func encodeValue(codec Codec, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if codec == nil {
		return string(raw), nil
	}
	enc, err := codec.Encrypt(raw)
	if err != nil {
		return "", fmt.Errorf("encrypt value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// decodeValue reverses encodeValue.
func decodeValue(codec Codec, stored string, out *any) error {
	if codec == nil {
		return json.Unmarshal([]byte(stored), out)
	}
	enc, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return fmt.Errorf("decode stored value: %w", err)
	}
	raw, err := codec.Decrypt(enc)
	if err != nil {
		return fmt.Errorf("decrypt value: %w", err)
	}
	return json.Unmarshal(raw, out)
}

// InsertTriple appends one triple row. Re-inserting the same
// (entityId, attribute, value, txId) is a no-op thanks to the primary
// key, which is what gives transaction replay its idempotency (spec
// invariant I-2).
func InsertTriple(ex Execer, t Triple) error {
	val, err := encodeValue(codecFrom(ex), t.Value)
	if err != nil {
		return fmt.Errorf("encode value for %s.%s: %w", t.EntityID, t.Attribute, err)
	}
	_, err = ex.Exec(
		`INSERT INTO triples (entity_id, attribute, value, tx_id, retracted)
		 VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(entity_id, attribute, value, tx_id) DO NOTHING`,
		t.EntityID, t.Attribute, val, t.TxID,
	)
	if err != nil {
		return fmt.Errorf("insert triple: %w", err)
	}
	return nil
}

// RetractEntity flips retracted=1 on every live triple for entityId,
// used by the delete operation (spec §3).
func RetractEntity(ex Execer, entityID string) error {
	_, err := ex.Exec(`UPDATE triples SET retracted = 1 WHERE entity_id = ? AND retracted = 0`, entityID)
	if err != nil {
		return fmt.Errorf("retract entity %s: %w", entityID, err)
	}
	return nil
}

// RetractAttribute flips retracted=1 on every live triple for
// (entityId, attribute), used before re-inserting a new value on update
// so the retract-then-insert pair lands in the same durable transaction.
func RetractAttribute(ex Execer, entityID, attribute string) error {
	_, err := ex.Exec(
		`UPDATE triples SET retracted = 1 WHERE entity_id = ? AND attribute = ? AND retracted = 0`,
		entityID, attribute,
	)
	if err != nil {
		return fmt.Errorf("retract %s.%s: %w", entityID, attribute, err)
	}
	return nil
}

// RetractValue flips retracted=1 on one exact (entityId, attribute,
// value) triple, used by unlink to remove a single element of a
// multi-valued (link) attribute without touching its siblings.
func RetractValue(ex Execer, entityID, attribute string, value any) error {
	val, err := encodeValue(codecFrom(ex), value)
	if err != nil {
		return fmt.Errorf("encode value for %s.%s: %w", entityID, attribute, err)
	}
	_, err = ex.Exec(
		`UPDATE triples SET retracted = 1
		 WHERE entity_id = ? AND attribute = ? AND value = ? AND retracted = 0`,
		entityID, attribute, val,
	)
	if err != nil {
		return fmt.Errorf("retract value %s.%s: %w", entityID, attribute, err)
	}
	return nil
}

// LiveTriplesForEntity returns every non-retracted triple for entityId.
func LiveTriplesForEntity(ex Execer, entityID string) ([]Triple, error) {
	rows, err := ex.Query(
		`SELECT entity_id, attribute, value, tx_id, retracted FROM triples
		 WHERE entity_id = ? AND retracted = 0`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entity %s: %w", entityID, err)
	}
	defer rows.Close()
	return scanTriples(rows, codecFrom(ex))
}

// LiveTriplesForEntityAttribute returns the non-retracted triples for one
// (entityId, attribute) pair. Ordinarily at most one (spec invariant: at
// most one live triple per attribute after a well-formed update), but
// link-created multi-valued attributes may hold several.
func LiveTriplesForEntityAttribute(ex Execer, entityID, attribute string) ([]Triple, error) {
	rows, err := ex.Query(
		`SELECT entity_id, attribute, value, tx_id, retracted FROM triples
		 WHERE entity_id = ? AND attribute = ? AND retracted = 0`,
		entityID, attribute,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", entityID, attribute, err)
	}
	defer rows.Close()
	return scanTriples(rows, codecFrom(ex))
}

// LiveTriplesForEntities returns every non-retracted triple across all
// of entityIDs in one query, used by the materializer when hydrating a
// whole candidate set.
func LiveTriplesForEntities(ex Execer, entityIDs []string) ([]Triple, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(entityIDs))
	args := make([]any, len(entityIDs))
	for i, id := range entityIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT entity_id, attribute, value, tx_id, retracted FROM triples
		 WHERE retracted = 0 AND entity_id IN (%s)`,
		joinPlaceholders(placeholders),
	)
	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()
	return scanTriples(rows, codecFrom(ex))
}

// LiveTriplesForAll returns every non-retracted triple in the log, used
// when a query has neither entityId nor entityType and must scan
// everything (spec §4.4 candidate-set selection, lowest-priority case).
func LiveTriplesForAll(ex Execer) ([]Triple, error) {
	rows, err := ex.Query(`SELECT entity_id, attribute, value, tx_id, retracted FROM triples WHERE retracted = 0`)
	if err != nil {
		return nil, fmt.Errorf("query all triples: %w", err)
	}
	defer rows.Close()
	return scanTriples(rows, codecFrom(ex))
}

// EntityIDsForType returns the distinct entity ids whose live __type
// attribute equals entityType, used as the candidate-set fast path when
// a query names entityType but not entityId.
func EntityIDsForType(ex Execer, entityType string) ([]string, error) {
	val, err := encodeValue(codecFrom(ex), entityType)
	if err != nil {
		return nil, fmt.Errorf("encode entity type: %w", err)
	}
	rows, err := ex.Query(
		`SELECT DISTINCT entity_id FROM triples WHERE attribute = '__type' AND value = ? AND retracted = 0`,
		val,
	)
	if err != nil {
		return nil, fmt.Errorf("query entity ids for type %s: %w", entityType, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LookupEntityID finds the unique entity of type entityType whose live
// (attribute, value) triple matches, for LookupRef resolution (spec
// §4.2 step 2: "a query (type + attribute = value, limit 1)"). Scoping
// by type keeps two different entity types that happen to share an
// attribute name and value (e.g. "email" on both "users" and "admins")
// from resolving to each other's id. Returns (found=false) if zero or
// more than one entity matches — callers report a lookup_failed error
// rather than pick arbitrarily.
func LookupEntityID(ex Execer, entityType, attribute string, value any) (id string, found bool, err error) {
	val, err := encodeValue(codecFrom(ex), value)
	if err != nil {
		return "", false, fmt.Errorf("encode lookup value: %w", err)
	}
	typeVal, err := encodeValue(codecFrom(ex), entityType)
	if err != nil {
		return "", false, fmt.Errorf("encode lookup entity type: %w", err)
	}
	rows, err := ex.Query(
		`SELECT DISTINCT t.entity_id FROM triples t
		 JOIN triples ty ON ty.entity_id = t.entity_id
		   AND ty.attribute = '__type' AND ty.value = ? AND ty.retracted = 0
		 WHERE t.attribute = ? AND t.value = ? AND t.retracted = 0`,
		typeVal, attribute, val,
	)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s.%s: %w", entityType, attribute, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var eid string
		if err := rows.Scan(&eid); err != nil {
			return "", false, fmt.Errorf("scan lookup row: %w", err)
		}
		ids = append(ids, eid)
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}
	if len(ids) != 1 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func scanTriples(rows *sql.Rows, codec Codec) ([]Triple, error) {
	var out []Triple
	for rows.Next() {
		var t Triple
		var rawValue string
		var retracted int
		if err := rows.Scan(&t.EntityID, &t.Attribute, &rawValue, &t.TxID, &retracted); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		if err := decodeValue(codec, rawValue, &t.Value); err != nil {
			return nil, fmt.Errorf("decode value for %s.%s: %w", t.EntityID, t.Attribute, err)
		}
		t.Retracted = retracted != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}
