package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/localfirst/tripledb/internal/connectivity"
	"github.com/localfirst/tripledb/internal/idgen"
	"github.com/localfirst/tripledb/internal/triplelog"
	"github.com/localfirst/tripledb/internal/txn"
)

// TokenSource supplies the current session token; auth (magic-code,
// guest sign-in, OAuth) is an external collaborator per spec §1/§6 — the
// sync client only consumes the resulting token.
type TokenSource func() string

// Client maintains the duplex connection described by spec §4.6 and
// drives C1's pending-transaction queue through it.
type Client struct {
	cfg      Config
	store    *triplelog.Store
	engine   *txn.Engine
	sink     txn.EventSink
	signal   *connectivity.Signal
	token    TokenSource
	deviceID string
	log      *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

// New returns a Client. The sink for change events produced by applying
// inbound transactions is installed afterwards with SetSink. cfg.DeviceID
// should be the persistence directory's stable device id (spec §9.C
// "Device identity"); if empty, a fresh one is generated for this
// process only.
func New(cfg Config, store *triplelog.Store, engine *txn.Engine, signal *connectivity.Signal, token TokenSource, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	deviceID := cfg.DeviceID
	if deviceID == "" {
		var err error
		deviceID, err = idgen.NewDeviceID()
		if err != nil {
			deviceID = "unknown"
		}
	}
	return &Client{
		cfg: cfg.withDefaults(), store: store, engine: engine, signal: signal,
		token: token, deviceID: deviceID, log: log, state: StateDisconnected,
	}
}

// State returns the client's current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.signal.Set(s == StateReady)
}

// Run drives the connection lifecycle until ctx is cancelled, cycling
// Disconnected -> Connecting -> Authenticating -> Ready, and on any
// failure -> Backoff -> Connecting again (spec §4.6 table).
func (c *Client) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		c.setState(StateConnecting)
		conn, err := c.connect(ctx)
		if err != nil {
			c.log.Warn("sync connect failed", "error", err)
			attempt = c.backoff(ctx, attempt)
			continue
		}

		c.setState(StateAuthenticating)
		if err := c.authenticate(conn); err != nil {
			c.log.Warn("sync auth failed", "error", err)
			conn.Close()
			attempt = c.backoff(ctx, attempt)
			continue
		}

		attempt = 0
		c.setState(StateReady)
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		err = c.runReady(ctx, conn)
		c.setState(StateDraining)
		conn.Close()
		c.setState(StateDisconnected)
		if err != nil {
			c.log.Info("sync disconnected", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		attempt = c.backoff(ctx, attempt)
	}
}

func (c *Client) backoff(ctx context.Context, attempt int) int {
	c.setState(StateBackoff)
	delay := backoffDelay(c.cfg.ReconnectDelay, c.cfg.MaxBackoff, attempt)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
	return attempt + 1
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func (c *Client) authenticate(conn *websocket.Conn) error {
	var token string
	if c.token != nil {
		token = c.token()
	}
	if err := conn.WriteJSON(initFrame(c.cfg.AppID, token, c.deviceID)); err != nil {
		return fmt.Errorf("send init: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth ack: %w", err)
	}
	f, err := decodeFrame(data)
	if err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if f.Op == "error" {
		return fmt.Errorf("auth rejected: %s", f.Message)
	}
	return nil
}

// runReady flushes pending transactions, then alternates reading
// inbound frames and periodic health-check pings until the connection
// breaks or ctx is cancelled.
func (c *Client) runReady(ctx context.Context, conn *websocket.Conn) error {
	if err := c.bootstrapSnapshot(conn); err != nil {
		return err
	}
	if err := c.flushPending(conn); err != nil {
		return err
	}

	inbound := make(chan frame)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			f, err := decodeFrame(data)
			if err != nil {
				readErr <- fmt.Errorf("protocol_error: %w", err)
				return
			}
			inbound <- f
		}
	}()

	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case f := <-inbound:
			if err := c.handleInbound(f); err != nil {
				c.log.Warn("inbound frame error", "error", err)
			}
		case <-ticker.C:
			if err := conn.WriteJSON(pingFrame()); err != nil {
				return fmt.Errorf("health check: %w", err)
			}
		}
	}
}

// flushPending sends every non-synced, non-failed transaction in
// timestamp order (spec §4.6 outbound path). Because C2 is idempotent
// by txId, re-sending one the server already applied is safe.
func (c *Client) flushPending(conn *websocket.Conn) error {
	pending, err := triplelog.PendingTransactions(c.store.Conn())
	if err != nil {
		return fmt.Errorf("storage_error: fetch pending: %w", err)
	}
	pending, err = quarantineMalformed(c.store, pending)
	if err != nil {
		return fmt.Errorf("storage_error: quarantine: %w", err)
	}

	for _, rec := range pending {
		var ops []txn.Operation
		if err := json.Unmarshal([]byte(rec.Data), &ops); err != nil {
			continue
		}
		if err := conn.WriteJSON(transactFrame(rec.ID, c.deviceID, ops)); err != nil {
			return fmt.Errorf("send transaction %s: %w", rec.ID, err)
		}
	}
	return nil
}

// bootstrapSnapshot requests a full snapshot of the remote triple set
// instead of replaying the entire event history, but only when this
// device's local log is still empty (spec §9.C "Snapshot bootstrap",
// grounded on the teacher's `GetSnapshot` fast-forward-a-new-device
// call). A server that doesn't understand "snapshot_request" or that
// has nothing to offer responds with "error"/"snapshot" carrying zero
// transactions; either way runReady falls through to the normal
// pending-flush/inbound loop once this returns.
func (c *Client) bootstrapSnapshot(conn *websocket.Conn) error {
	empty, err := triplelog.IsEmpty(c.store.Conn())
	if err != nil {
		return fmt.Errorf("storage_error: check empty log: %w", err)
	}
	if !empty {
		return nil
	}

	if err := conn.WriteJSON(snapshotRequestFrame(c.deviceID)); err != nil {
		return fmt.Errorf("send snapshot request: %w", err)
	}

	deadline := time.Now().Add(c.cfg.HealthInterval)
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read snapshot response: %w", err)
	}
	f, err := decodeFrame(data)
	if err != nil {
		return fmt.Errorf("protocol_error: decode snapshot response: %w", err)
	}

	switch f.Op {
	case "error":
		c.log.Info("snapshot bootstrap declined, falling back to full replay", "code", f.Code, "message", f.Message)
		return nil
	case "snapshot":
		for _, entry := range f.Transactions {
			if err := c.engine.Apply(txn.Transaction{
				ID: entry.TxID, Operations: entry.Operations, Timestamp: entry.Timestamp, Status: triplelog.TxSynced,
			}, c.sink); err != nil {
				return fmt.Errorf("storage_error: apply snapshot transaction %s: %w", entry.TxID, err)
			}
		}
		c.log.Info("snapshot bootstrap applied", "transactions", len(f.Transactions), "seq", f.SnapshotSeq)
		return nil
	default:
		return fmt.Errorf("protocol_error: unexpected snapshot response op %q", f.Op)
	}
}

func (c *Client) handleInbound(f frame) error {
	switch f.Op {
	case "ack":
		return triplelog.MarkTxStatus(c.store.Conn(), f.TxID, triplelog.TxSynced)
	case "tx":
		ts := time.Now()
		if f.Timestamp != nil {
			ts = *f.Timestamp
		}
		return c.engine.Apply(txn.Transaction{
			ID: f.TxID, Operations: f.Operations, Timestamp: ts, Status: triplelog.TxSynced,
		}, c.sink)
	case "error":
		return fmt.Errorf("protocol_error: server error %s: %s", f.Code, f.Message)
	case "pong":
		return nil
	default:
		return fmt.Errorf("protocol_error: unknown frame op %q", f.Op)
	}
}

// SetSink installs the change-event sink used for inbound transactions,
// set after construction so the reactive manager can be wired up once
// the facade has built both.
func (c *Client) SetSink(sink txn.EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}
