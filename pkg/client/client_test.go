package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

type serverFrame struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type serverHello struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type serverConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (sc *serverConn) write(ctx context.Context, v any) error {
	sc.wmu.Lock()
	defer sc.wmu.Unlock()
	return wsjson.Write(ctx, sc.conn, v)
}

// fakeServer speaks the arena envelope protocol: hello handshake, then
// acks for correlated requests and pushed events.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server
	url string

	// onRequest, when set, replaces the default echo behavior for
	// post-handshake frames.
	onRequest func(ctx context.Context, sc *serverConn, frame serverFrame)

	mu      sync.Mutex
	conns   []*serverConn
	hellos  []serverHello
	nextID  int
	players map[string]string // resume token -> player id
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, players: make(map[string]string)}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	fs.url = "ws" + strings.TrimPrefix(fs.srv.URL, "http")
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	ctx := r.Context()
	sc := &serverConn{conn: conn}

	var first serverFrame
	if err := wsjson.Read(ctx, conn, &first); err != nil || first.Type != "hello" {
		conn.Close(websocket.StatusPolicyViolation, "expected hello")
		return
	}
	var hello serverHello
	_ = json.Unmarshal(first.Data, &hello)

	fs.mu.Lock()
	fs.hellos = append(fs.hellos, hello)
	playerID, resumed := fs.players[hello.Token]
	if !resumed {
		fs.nextID++
		playerID = fmt.Sprintf("p-%d", fs.nextID)
	}
	token := "tok-" + playerID
	fs.players[token] = playerID
	fs.conns = append(fs.conns, sc)
	fs.mu.Unlock()

	ack := map[string]any{
		"type": "ack",
		"id":   first.ID,
		"data": map[string]string{"playerId": playerID, "name": hello.Name, "token": token},
	}
	if err := sc.write(ctx, ack); err != nil {
		return
	}

	for {
		var frame serverFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
		if fs.onRequest != nil {
			fs.onRequest(ctx, sc, frame)
			continue
		}
		if frame.ID == "" {
			continue
		}
		// Default behavior: echo the payload back as the ack.
		_ = sc.write(ctx, map[string]any{"type": "ack", "id": frame.ID, "data": frame.Data})
	}
}

func (fs *fakeServer) helloCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.hellos)
}

func (fs *fakeServer) lastHello() serverHello {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(fs.t, fs.hellos)
	return fs.hellos[len(fs.hellos)-1]
}

// push sends an event on the most recent connection.
func (fs *fakeServer) push(event string, data any) {
	fs.mu.Lock()
	require.NotEmpty(fs.t, fs.conns)
	sc := fs.conns[len(fs.conns)-1]
	fs.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(fs.t, sc.write(ctx, map[string]any{"type": "event", "event": event, "data": data}))
}

// dropLatest closes the most recent connection from the server side.
func (fs *fakeServer) dropLatest() {
	fs.mu.Lock()
	require.NotEmpty(fs.t, fs.conns)
	sc := fs.conns[len(fs.conns)-1]
	fs.mu.Unlock()
	sc.conn.Close(websocket.StatusGoingAway, "dropped")
}

func newTestClient(fs *fakeServer) *Client {
	return New(Options{
		URL:         fs.url,
		Name:        "Tester",
		MinBackoff:  10 * time.Millisecond,
		MaxBackoff:  50 * time.Millisecond,
		MaxAttempts: 5,
		CallTimeout: 2 * time.Second,
	})
}

func mustConnect(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Disconnect)
}

func awaitRaw(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("event handler was never invoked")
		return nil
	}
}

func TestCallBeforeConnectFails(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)

	_, err := c.Call(context.Background(), "createRoom", nil, time.Second)
	require.ErrorIs(t, err, ErrNotConnected)
	require.ErrorIs(t, c.Emit(context.Background(), "leaveRoom", nil), ErrNotConnected)
	require.Equal(t, StateDisconnected, c.State())
}

func TestConnectIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)

	mustConnect(t, c)
	require.Equal(t, StateConnected, c.State())
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, 1, fs.helloCount())

	id := c.Identity()
	require.Equal(t, "p-1", id.PlayerID)
	require.Equal(t, "tok-p-1", id.Token)
}

func TestCallRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)
	mustConnect(t, c)

	data, err := c.Call(context.Background(), "echo", map[string]int{"x": 7}, time.Second)
	require.NoError(t, err)

	var payload struct {
		X int `json:"x"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, 7, payload.X)
}

func TestCallPropagatesServerError(t *testing.T) {
	fs := newFakeServer(t)
	fs.onRequest = func(ctx context.Context, sc *serverConn, frame serverFrame) {
		_ = sc.write(ctx, map[string]any{
			"type":  "error",
			"id":    frame.ID,
			"error": map[string]string{"code": "room_full", "msg": "room is full"},
		})
	}
	c := newTestClient(fs)
	mustConnect(t, c)

	_, err := c.Call(context.Background(), "joinRoom", nil, time.Second)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "room_full", apiErr.Code)
}

func TestCallTimesOutWithoutResponse(t *testing.T) {
	fs := newFakeServer(t)
	fs.onRequest = func(context.Context, *serverConn, serverFrame) {} // swallow everything
	c := newTestClient(fs)
	mustConnect(t, c)

	start := time.Now()
	_, err := c.Call(context.Background(), "move", nil, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), time.Second)
}

func TestDisconnectFailsOutstandingCalls(t *testing.T) {
	fs := newFakeServer(t)
	fs.onRequest = func(context.Context, *serverConn, serverFrame) {}
	c := newTestClient(fs)
	mustConnect(t, c)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "move", nil, 10*time.Second)
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond) // let the call get in flight
	c.Disconnect()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("outstanding call was not failed by Disconnect")
	}
	require.Equal(t, StateDisconnected, c.State())
}

func TestSubscribeBeforeConnectAttachesOnce(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)

	got := make(chan json.RawMessage, 4)
	handler := func(data json.RawMessage) { got <- data }
	c.Subscribe("gameState", handler)
	c.Subscribe("gameState", handler) // duplicate registration collapses

	mustConnect(t, c)
	fs.push("gameState", map[string]string{"roomId": "r-1"})

	data := awaitRaw(t, got)
	var ev struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, "r-1", ev.RoomID)

	// The duplicate registration must not double-deliver.
	select {
	case <-got:
		t.Fatal("duplicate handler registration delivered twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeAllClearsHandlers(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)
	mustConnect(t, c)

	got := make(chan json.RawMessage, 4)
	c.Subscribe("chat", func(data json.RawMessage) { got <- data })
	c.Subscribe("chat", func(data json.RawMessage) { got <- data })
	c.Unsubscribe("chat", nil)

	fs.push("chat", map[string]string{"text": "hi"})
	select {
	case <-got:
		t.Fatal("handler fired after Unsubscribe(event, nil)")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectResumesIdentityAndHandlers(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(fs)

	got := make(chan json.RawMessage, 4)
	c.Subscribe("gameState", func(data json.RawMessage) { got <- data })
	mustConnect(t, c)

	first := c.Identity()
	require.Equal(t, "p-1", first.PlayerID)

	fs.dropLatest()

	// The client reconnects on its own and resends the resume token.
	require.Eventually(t, func() bool { return fs.helloCount() == 2 }, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, first.Token, fs.lastHello().Token)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, first.PlayerID, c.Identity().PlayerID)

	// Subscriptions survive the reconnect.
	fs.push("gameState", map[string]string{"roomId": "r-1"})
	awaitRaw(t, got)
}

func TestConnectFailsAfterExhaustedAttempts(t *testing.T) {
	c := New(Options{
		URL:         "ws://127.0.0.1:1", // nothing listens here
		MinBackoff:  time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
		MaxAttempts: 2,
	})

	err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectFailed)
	require.Equal(t, StateDisconnected, c.State())
}
