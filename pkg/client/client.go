// Package client is the Go SDK for the Gomoku arena: one reconnecting
// WebSocket per client process, fire-and-forget event subscriptions and
// correlated request/response calls layered on top of it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// Handler consumes a broadcast event payload.
type Handler func(data json.RawMessage)

// Options configures a Client.
type Options struct {
	// URL is the ws:// or wss:// endpoint of the arena server.
	URL string
	// Name is the display name sent on hello.
	Name string
	// Token is an optional resume token from a previous session. It is
	// refreshed from every hello acknowledgment.
	Token string

	// MinBackoff is the first reconnect delay. Defaults to 250ms.
	MinBackoff time.Duration
	// MaxBackoff caps the doubling reconnect delay. Defaults to 5s.
	MaxBackoff time.Duration
	// MaxAttempts bounds automatic reconnect attempts. After the bound
	// is exhausted the client reports disconnected and stays so until
	// Connect is called again. Defaults to 5.
	MaxAttempts int
	// CallTimeout is the default deadline for typed calls. Defaults to 10s.
	CallTimeout time.Duration

	Logger *zerolog.Logger
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return opts
}

// Identity is the server-assigned identity restored across reconnects.
type Identity struct {
	PlayerID string
	Name     string
	Token    string
}

type handlerEntry struct {
	key uintptr
	fn  Handler
}

type callResult struct {
	data json.RawMessage
	err  error
}

// envelope is the wire frame in both directions.
type envelope struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

type request struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Client owns one streaming connection. All methods are safe for
// concurrent use.
type Client struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	connCtx  context.Context
	connStop context.CancelFunc
	gen      int // connection generation; stale read loops bail out
	closed   bool
	closedCh chan struct{}
	identity Identity

	active  map[string][]handlerEntry
	pending map[string][]handlerEntry
	calls   map[string]chan callResult
}

// New builds a client; it does not connect.
func New(opts Options) *Client {
	o := opts.withDefaults()
	return &Client{
		opts:    o,
		log:     o.Logger.With().Str("component", "arena-client").Logger(),
		active:  make(map[string][]handlerEntry),
		pending: make(map[string][]handlerEntry),
		calls:   make(map[string]chan callResult),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity assigned by the last hello ack.
func (c *Client) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Connect establishes the connection, performing the hello handshake
// and attaching every pending subscription. It is idempotent: when
// already connected it returns immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.closed = false
	c.closedCh = make(chan struct{})
	c.mu.Unlock()

	conn, err := c.dialWithBackoff(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	gen := c.attach(conn)
	go c.readLoop(conn, gen)
	return nil
}

// Disconnect closes the connection and fails every outstanding call
// with ErrNotConnected. Subscriptions are retained and re-attached on
// the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		if c.closedCh != nil {
			close(c.closedCh)
		}
	}
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	if c.connStop != nil {
		c.connStop()
	}
	stranded := c.takeCallsLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
	for _, ch := range stranded {
		ch <- callResult{err: ErrNotConnected}
	}
}

// Subscribe registers a handler for a broadcast event. While
// disconnected the registration is held pending and attached on the
// next successful connection. A handler registered twice for the same
// event is attached once.
func (c *Client) Subscribe(event string, handler Handler) {
	entry := handlerEntry{key: reflect.ValueOf(handler).Pointer(), fn: handler}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected {
		c.active[event] = addUnique(c.active[event], entry)
		return
	}
	c.pending[event] = addUnique(c.pending[event], entry)
}

// Unsubscribe removes a handler for an event; a nil handler clears
// every handler for that event, both active and pending.
func (c *Client) Unsubscribe(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handler == nil {
		delete(c.active, event)
		delete(c.pending, event)
		return
	}
	key := reflect.ValueOf(handler).Pointer()
	c.active[event] = removeKey(c.active[event], key)
	c.pending[event] = removeKey(c.pending[event], key)
}

// Emit sends a fire-and-forget event; no acknowledgment is expected.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, request{Type: event, Data: payload})
}

// Call sends a correlated request and waits for its acknowledgment.
// It fails immediately with ErrNotConnected when no live connection
// exists, and with ErrTimeout when no response arrives in time.
// Resolution and expiry are mutually exclusive.
func (c *Client) Call(ctx context.Context, event string, payload any, timeout time.Duration) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	id := uuid.NewString()
	ch := make(chan callResult, 1)
	c.calls[id] = ch
	c.mu.Unlock()

	if err := wsjson.Write(ctx, conn, request{Type: event, ID: id, Data: payload}); err != nil {
		c.dropCall(id)
		return nil, ErrNotConnected
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer.C:
		if c.dropCall(id) {
			return nil, ErrTimeout
		}
		// The ack raced the deadline and won.
		res := <-ch
		return res.data, res.err
	case <-ctx.Done():
		if c.dropCall(id) {
			return nil, ctx.Err()
		}
		res := <-ch
		return res.data, res.err
	}
}

func (c *Client) dialWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	delay := c.opts.MinBackoff
	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		conn, err := c.dialOnce(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("dial failed")

		if attempt == c.opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > c.opts.MaxBackoff {
			delay = c.opts.MaxBackoff
		}
	}
	return nil, lastErr
}

// dialOnce dials and runs the hello handshake, restoring the previous
// identity when a resume token is held.
func (c *Client) dialOnce(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	token := c.identity.Token
	if token == "" {
		token = c.opts.Token
	}
	c.mu.Unlock()

	hello := request{
		Type: "hello",
		ID:   uuid.NewString(),
		Data: map[string]any{"name": c.opts.Name, "token": token},
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, err
	}

	var ack envelope
	if err := wsjson.Read(ctx, conn, &ack); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, err
	}
	if ack.Error != nil {
		conn.Close(websocket.StatusPolicyViolation, "hello rejected")
		return nil, ack.Error
	}

	var id Identity
	var helloAck struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
		Token    string `json:"token"`
	}
	if err := json.Unmarshal(ack.Data, &helloAck); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "bad hello ack")
		return nil, err
	}
	id = Identity{PlayerID: helloAck.PlayerID, Name: helloAck.Name, Token: helloAck.Token}

	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	return conn, nil
}

// attach installs the connection and reconciles listeners: the active
// set is rebuilt from the deduplicated union of previously active and
// pending handlers, atomically with respect to event dispatch. The new
// read loop only starts after reconciliation, so no event reaches a
// stale handler set.
func (c *Client) attach(conn *websocket.Conn) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = conn
	c.state = StateConnected
	c.gen++
	if c.connStop != nil {
		c.connStop()
	}
	c.connCtx, c.connStop = context.WithCancel(context.Background())

	for event, entries := range c.pending {
		for _, e := range entries {
			c.active[event] = addUnique(c.active[event], e)
		}
	}
	c.pending = make(map[string][]handlerEntry)

	return c.gen
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	c.mu.Lock()
	ctx := c.connCtx
	c.mu.Unlock()

	for {
		var env envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			break
		}
		switch env.Type {
		case "ack", "error":
			c.resolveCall(env)
		case "event":
			for _, entry := range c.handlers(env.Event) {
				entry.fn(env.Data)
			}
		}
	}

	c.mu.Lock()
	stale := c.gen != gen || c.closed
	if !stale {
		c.state = StateConnecting
		c.conn = nil
	}
	stranded := c.takeCallsLocked()
	c.mu.Unlock()

	// Outstanding calls never wait out their deadline once the
	// transport is gone.
	for _, ch := range stranded {
		ch <- callResult{err: ErrNotConnected}
	}
	if stale {
		return
	}

	c.log.Info().Msg("connection lost, reconnecting")
	c.reconnect()
}

func (c *Client) reconnect() {
	c.mu.Lock()
	closedCh := c.closedCh
	c.mu.Unlock()

	delay := c.opts.MinBackoff
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		select {
		case <-time.After(delay):
		case <-closedCh:
			return
		}
		delay *= 2
		if delay > c.opts.MaxBackoff {
			delay = c.opts.MaxBackoff
		}

		dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dialOnce(dialCtx)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		gen := c.attach(conn)
		go c.readLoop(conn, gen)
		c.log.Info().Int("attempt", attempt).Msg("reconnected")
		return
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.log.Error().Int("attempts", c.opts.MaxAttempts).Msg("reconnect attempts exhausted")
}

func (c *Client) handlers(event string) []handlerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.active[event]
	out := make([]handlerEntry, len(entries))
	copy(out, entries)
	return out
}

func (c *Client) resolveCall(env envelope) {
	c.mu.Lock()
	ch, ok := c.calls[env.ID]
	if ok {
		delete(c.calls, env.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Already expired; resolution is at-most-once.
		return
	}
	if env.Error != nil {
		ch <- callResult{err: env.Error}
		return
	}
	ch <- callResult{data: env.Data}
}

func (c *Client) dropCall(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.calls[id]; !ok {
		return false
	}
	delete(c.calls, id)
	return true
}

func (c *Client) takeCallsLocked() []chan callResult {
	out := make([]chan callResult, 0, len(c.calls))
	for _, ch := range c.calls {
		out = append(out, ch)
	}
	c.calls = make(map[string]chan callResult)
	return out
}

func addUnique(entries []handlerEntry, e handlerEntry) []handlerEntry {
	for _, have := range entries {
		if have.key == e.key {
			return entries
		}
	}
	return append(entries, e)
}

func removeKey(entries []handlerEntry, key uintptr) []handlerEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.key != key {
			out = append(out, e)
		}
	}
	return out
}
