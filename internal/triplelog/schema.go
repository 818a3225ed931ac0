package triplelog

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

const schema = `
-- The triple log: the only durable source of truth. Rows are never
-- deleted; retraction flips the "retracted" flag (spec §3 invariant 1).
CREATE TABLE IF NOT EXISTS triples (
    entity_id   TEXT NOT NULL,
    attribute   TEXT NOT NULL,
    value       TEXT NOT NULL, -- JSON-encoded
    tx_id       TEXT NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    retracted   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (entity_id, attribute, value, tx_id)
);

CREATE INDEX IF NOT EXISTS idx_triples_entity    ON triples(entity_id);
CREATE INDEX IF NOT EXISTS idx_triples_attribute ON triples(attribute);
CREATE INDEX IF NOT EXISTS idx_triples_tx        ON triples(tx_id);
CREATE INDEX IF NOT EXISTS idx_triples_created    ON triples(created_at);
CREATE INDEX IF NOT EXISTS idx_triples_entity_attr_live
    ON triples(entity_id, attribute) WHERE retracted = 0;

-- One row per transaction the engine has applied, local or remote.
CREATE TABLE IF NOT EXISTS transactions (
    id          TEXT PRIMARY KEY,
    timestamp   DATETIME NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending',
    data        TEXT NOT NULL -- JSON-encoded operation list, for sync replay
);

CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
CREATE INDEX IF NOT EXISTS idx_transactions_ts      ON transactions(timestamp);

-- Free-form key/value store for engine metadata: schema version and,
-- with encrypted storage, the encryption salt.
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
