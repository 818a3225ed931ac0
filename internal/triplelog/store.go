// Package triplelog is the durable append-only triple log (component
// C1): an entity-attribute-value store with soft retraction, backed by
// SQLite, with secondary indices on entity, attribute, tx id and
// creation time (spec §4.1).
package triplelog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/localfirst/tripledb/internal/crypto"
	_ "modernc.org/sqlite"
)

const dbFile = "triples.db"

// Store wraps the durable connection and the encryption-at-rest key, if
// any. All writes that touch more than one row go through withWriteLock
// so that goroutines inside this process never interleave partial
// transactions (spec §5 single-writer model); mutual exclusion across
// processes sharing one persistence directory is left to SQLite's own
// WAL mode and busy_timeout (set in openConn), the same SQL-level
// mechanism the teacher relies on for its own multi-process concurrency
// rather than a second, file-based lock on top of it.
type Store struct {
	conn    *sql.DB
	dir     string
	writeMu sync.Mutex
	encKey  []byte // nil unless Options.EncryptedStorage is set
	codec   Codec  // non-nil iff encKey is set; wraps encKey as a Codec
}

// aesCodec adapts the derived encryption key to the Codec interface
// using deterministic AES-256-GCM (crypto.EncryptDeterministic), so
// value equality lookups (type index, LookupRef resolution) still work
// against encrypted-at-rest rows.
type aesCodec struct{ key []byte }

func (c aesCodec) Encrypt(plaintext []byte) ([]byte, error) {
	return crypto.EncryptDeterministic(c.key, plaintext)
}

func (c aesCodec) Decrypt(ciphertext []byte) ([]byte, error) {
	return crypto.DecryptDeterministic(c.key, ciphertext)
}

// EncodedConn pairs an Execer with the Codec that should transform
// triple values flowing through it. Store.Conn and the argument passed
// to Store.Transact's fn are both *EncodedConn, so the free functions in
// triples.go can recover the active codec via CodecProvider without
// every caller threading it through explicitly.
type EncodedConn struct {
	Execer
	codec Codec
}

// Codec returns the codec this connection carries, or nil for plaintext.
func (c *EncodedConn) Codec() Codec { return c.codec }

// Options configures how the log is opened.
type Options struct {
	// PersistenceDir is the filesystem root for the durable log (spec §6
	// persistenceDir). Created if missing; if empty, a temp dir is used.
	PersistenceDir string
	// EncryptedStorage, if true, encrypts triple values at rest using a
	// key derived from Passphrase (spec §6 encryptedStorage).
	EncryptedStorage bool
	Passphrase       string
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports only one writer; pinning the pool to a single
	// connection keeps the WAL/SHM files from being opened concurrently
	// by extra pooled connections under multi-goroutine access.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	return conn, nil
}

// Open opens (creating if necessary) the triple log at opts.PersistenceDir.
func Open(opts Options) (*Store, error) {
	dir := opts.PersistenceDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "tripledb-*")
		if err != nil {
			return nil, fmt.Errorf("create default persistence dir: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create persistence dir: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, dir: dir}

	if err := s.setMetadataIfAbsent("schema_version", fmt.Sprintf("%d", SchemaVersion)); err != nil {
		conn.Close()
		return nil, err
	}

	if opts.EncryptedStorage {
		key, err := s.loadOrCreateEncryptionKey(opts.Passphrase)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("initialize encryption: %w", err)
		}
		s.encKey = key
		s.codec = aesCodec{key: key}
	}

	return s, nil
}

// loadOrCreateEncryptionKey derives (or recovers) the AES key used to
// encrypt triple values at rest, storing only the Argon2id salt in
// metadata — never the key or passphrase.
func (s *Store) loadOrCreateEncryptionKey(passphrase string) ([]byte, error) {
	saltHex, err := s.getMetadata("encryption_salt")
	if err != nil {
		return nil, err
	}
	if saltHex != "" {
		salt, err := crypto.DecodeSalt(saltHex)
		if err != nil {
			return nil, err
		}
		return crypto.DeriveKeyFromPassphraseWithSalt(passphrase, salt)
	}

	key, salt, err := crypto.DeriveKeyFromPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	if err := s.setMetadataIfAbsent("encryption_salt", crypto.EncodeSalt(salt)); err != nil {
		return nil, err
	}
	// Another process may have stored its salt first; derive from the stored one.
	stored, err := s.getMetadata("encryption_salt")
	if err != nil {
		return nil, err
	}
	if stored != crypto.EncodeSalt(salt) {
		storedSalt, err := crypto.DecodeSalt(stored)
		if err != nil {
			return nil, err
		}
		return crypto.DeriveKeyFromPassphraseWithSalt(passphrase, storedSalt)
	}
	return key, nil
}

// Close flushes the WAL into the main file and closes the connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// Dir returns the persistence directory backing this store.
func (s *Store) Dir() string { return s.dir }

// Conn exposes the connection, wrapped with this store's Codec, for
// callers (txn engine, query engine) that only need to read or make a
// single-row write.
func (s *Store) Conn() Execer { return &EncodedConn{Execer: s.conn, codec: s.codec} }

// withWriteLock executes fn while holding this store's in-process write
// mutex, so two goroutines in the same Store never interleave multi-row
// writes. A second *os.Process* attached to the same persistence
// directory is excluded instead by SQLite itself: WAL mode plus the
// busy_timeout PRAGMA (openConn) make a conflicting writer block and
// retry at the SQL level, so encryption-key derivation and schema setup
// never race across processes either without this package owning a
// second, file-based lock.
func (s *Store) withWriteLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// Transact runs fn inside one durable SQL transaction while holding the
// in-process write mutex, committing on success and rolling back on any
// error fn returns. Callers that apply more than one row's worth of
// change (the transaction engine, C2) MUST use this rather than Conn()
// directly, so the atomic-apply invariant (spec invariant 4) holds.
func (s *Store) Transact(fn func(Execer) error) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()
		if err := fn(&EncodedConn{Execer: tx, codec: s.codec}); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// ClearAll wipes every row from the triples and transactions tables; the
// metadata table (schema version, encryption salt) is kept. Used by tests and by
// explicit user-requested resets; not part of normal operation.
func (s *Store) ClearAll() error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()
		for _, stmt := range []string{"DELETE FROM triples", "DELETE FROM transactions"} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("clear: %w", err)
			}
		}
		return tx.Commit()
	})
}
