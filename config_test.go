package tripledb

import (
	"testing"
	"time"
)

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithPersistenceDir("/tmp/x"),
		WithSyncEnabled(false),
		WithBaseURL("https://example.test"),
		WithCacheLimits(50, 5),
		WithReconnectDelay(time.Second),
		WithVerboseLogging(true),
		WithStorageBackend("sqlite"),
		WithEncryptedStorage("secret"),
	} {
		opt(&cfg)
	}

	if cfg.PersistenceDir != "/tmp/x" {
		t.Fatalf("PersistenceDir: got %q", cfg.PersistenceDir)
	}
	if cfg.SyncEnabled {
		t.Fatal("expected SyncEnabled false after WithSyncEnabled(false)")
	}
	if cfg.BaseURL != "https://example.test" {
		t.Fatalf("BaseURL: got %q", cfg.BaseURL)
	}
	if cfg.MaxCacheSize != 50 || cfg.MaxCachedQueries != 5 {
		t.Fatalf("cache limits: got %d/%d", cfg.MaxCacheSize, cfg.MaxCachedQueries)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Fatalf("ReconnectDelay: got %v", cfg.ReconnectDelay)
	}
	if !cfg.VerboseLogging {
		t.Fatal("expected VerboseLogging true")
	}
	if !cfg.EncryptedStorage || cfg.Passphrase != "secret" {
		t.Fatalf("expected encrypted storage enabled with passphrase, got %v/%q", cfg.EncryptedStorage, cfg.Passphrase)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.SyncEnabled {
		t.Fatal("expected sync enabled by default")
	}
	if cfg.StorageBackend != "sqlite" {
		t.Fatalf("expected sqlite default backend, got %q", cfg.StorageBackend)
	}
}
