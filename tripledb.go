// Package tripledb is a local-first, reactive triple store: a client
// that persists entity-attribute-value data, evaluates declarative
// queries continuously against it, and synchronizes transactions
// bidirectionally with a remote server over a persistent duplex
// connection. See SPEC_FULL.md for the full component breakdown.
package tripledb

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/localfirst/tripledb/internal/auth"
	"github.com/localfirst/tripledb/internal/connectivity"
	"github.com/localfirst/tripledb/internal/idgen"
	"github.com/localfirst/tripledb/internal/query"
	"github.com/localfirst/tripledb/internal/reactive"
	"github.com/localfirst/tripledb/internal/sync"
	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

// Client is the library's public handle: created explicitly by Init and
// owned by its caller. There is no process-level singleton (spec §9).
type Client struct {
	appID  string
	cfg    Config
	log    *slog.Logger
	store  *triplelog.Store
	engine *txn.Engine
	subs   *reactive.Manager
	signal *connectivity.Signal

	authStore  *auth.Store
	authClient *auth.Client
	creds      *auth.Credentials

	syncClient *sync.Client
	cancelSync context.CancelFunc
}

// Init opens the local store, wires the transaction engine, reactive
// subscription manager, and (if enabled) the sync client, and returns a
// ready-to-use Client (spec §6: init(appId, config)).
func Init(appID string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	log := slog.Default()
	if cfg.VerboseLogging {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	store, err := triplelog.Open(triplelog.Options{
		PersistenceDir:   cfg.PersistenceDir,
		EncryptedStorage: cfg.EncryptedStorage,
		Passphrase:       cfg.Passphrase,
	})
	if err != nil {
		return nil, newErr(KindStorageError, "open triple log", err)
	}

	c := &Client{
		appID:      appID,
		cfg:        cfg,
		log:        log,
		store:      store,
		engine:     txn.New(store),
		subs:       reactive.New(store.Conn()),
		signal:     connectivity.New(),
		authStore:  auth.NewStore(store.Dir()),
		authClient: auth.NewClient(cfg.BaseURL),
	}

	if creds, err := c.authStore.Load(); err == nil {
		c.creds = creds
	}

	if cfg.SyncEnabled && cfg.BaseURL != "" {
		c.startSync()
	}

	return c, nil
}

func (c *Client) startSync() {
	deviceID, err := auth.LoadOrCreateDeviceID(c.store.Dir())
	if err != nil {
		c.log.Warn("load device id failed, sync frames will use a process-local id", "error", err)
	}
	syncCfg := sync.Config{
		URL:            c.cfg.BaseURL,
		AppID:          c.appID,
		DeviceID:       deviceID,
		ReconnectDelay: c.cfg.ReconnectDelay,
	}
	client := sync.New(syncCfg, c.store, c.engine, c.signal, c.currentToken, c.log)
	client.SetSink(c.subs.Notify)
	c.syncClient = client

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelSync = cancel
	go client.Run(ctx)
}

func (c *Client) currentToken() string {
	if c.creds == nil {
		return ""
	}
	return c.creds.Token
}

// TxResult is returned by Transact.
type TxResult struct {
	TxID string
}

// Transact applies a sequence of operations as one transaction (spec
// §6: transact(operations) -> txResult). Network errors never surface
// here — sync runs in the background against C1's pending queue.
func (c *Client) Transact(ops ...txn.Operation) (TxResult, error) {
	t := txn.Transaction{
		ID:         idgen.NewTxID(),
		Operations: ops,
		Timestamp:  time.Now(),
		Status:     triplelog.TxPending,
	}
	if err := c.engine.Apply(t, c.subs.Notify); err != nil {
		return TxResult{}, wrapEngineError(err)
	}
	return TxResult{TxID: t.ID}, nil
}

// Query evaluates q once against the current materialized state (spec
// §6: query(shape) -> result).
func (c *Client) Query(q query.Query) (query.Result, error) {
	res, err := query.Execute(c.store.Conn(), q)
	if err != nil {
		return query.Result{}, newErr(KindInvalidInput, "evaluate query", err)
	}
	return res, nil
}

// Subscribe registers a live query (spec §6: subscribe(shape) ->
// stream<result>). The returned Subscription's Unsubscribe releases all
// retained state.
func (c *Client) Subscribe(q query.Query, consumer reactive.Consumer) *reactive.Subscription {
	return c.subs.Subscribe(q, consumer)
}

// CurrentUser returns the active session's credentials, or nil if
// signed out.
func (c *Client) CurrentUser() *auth.Credentials {
	return c.creds
}

// ConnectionStatus reports whether the sync client currently has a
// Ready duplex connection (spec §4.7 / C7).
func (c *Client) ConnectionStatus() bool {
	return c.signal.Online()
}

// Close stops the sync client and closes the underlying store.
func (c *Client) Close() error {
	if c.cancelSync != nil {
		c.cancelSync()
	}
	return c.store.Close()
}

func wrapEngineError(err error) *Error {
	kind := KindStorageError
	if errors.Is(err, txn.ErrLookupFailed) {
		kind = KindLookupFailed
	}
	return newErr(kind, "apply transaction", err)
}
