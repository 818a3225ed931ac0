package tripledb

import "time"

// Config holds the options enumerated in spec §6. Construct via
// options passed to Init rather than building the struct directly, so
// defaults stay centralized.
type Config struct {
	PersistenceDir   string
	SyncEnabled      bool
	BaseURL          string
	MaxCacheSize     int
	MaxCachedQueries int
	ReconnectDelay   time.Duration
	VerboseLogging   bool
	StorageBackend   string
	EncryptedStorage bool
	Passphrase       string
}

// Option configures a Config during Init.
type Option func(*Config)

// WithPersistenceDir sets the filesystem root for the durable log;
// ignored on platforms that use native key-value stores (spec §6).
func WithPersistenceDir(dir string) Option {
	return func(c *Config) { c.PersistenceDir = dir }
}

// WithSyncEnabled toggles whether the sync client (C6) is started at
// all; disabled, the client is purely local (spec §6 syncEnabled).
func WithSyncEnabled(enabled bool) Option {
	return func(c *Config) { c.SyncEnabled = enabled }
}

// WithBaseURL sets the remote endpoint for HTTP auth and duplex sync.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithCacheLimits sets MaxCacheSize and MaxCachedQueries. No component
// reads these values: queries and subscriptions are evaluated without a
// result cache, so nothing is bounded by them.
func WithCacheLimits(maxCacheSize, maxCachedQueries int) Option {
	return func(c *Config) {
		c.MaxCacheSize = maxCacheSize
		c.MaxCachedQueries = maxCachedQueries
	}
}

// WithReconnectDelay sets the base for exponential sync backoff.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Config) { c.ReconnectDelay = d }
}

// WithVerboseLogging raises log verbosity.
func WithVerboseLogging(v bool) Option {
	return func(c *Config) { c.VerboseLogging = v }
}

// WithStorageBackend records the persistent backend name in Config.
// "sqlite" is the only backend this module implements; Init does not read
// the value and always opens the SQLite log.
func WithStorageBackend(name string) Option {
	return func(c *Config) { c.StorageBackend = name }
}

// WithEncryptedStorage enables at-rest encryption of triple values,
// deriving the key from passphrase via Argon2id.
func WithEncryptedStorage(passphrase string) Option {
	return func(c *Config) {
		c.EncryptedStorage = true
		c.Passphrase = passphrase
	}
}

func defaultConfig() Config {
	return Config{
		SyncEnabled:      true,
		MaxCacheSize:     1000,
		MaxCachedQueries: 100,
		ReconnectDelay:   250 * time.Millisecond,
		StorageBackend:   "sqlite",
	}
}
