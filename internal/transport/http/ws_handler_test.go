package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/auth"
	"github.com/vovakirdan/gomoku-arena/internal/config"
	"github.com/vovakirdan/gomoku-arena/internal/core"
	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/proto"
)

type rawOutbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type wsTestEnv struct {
	server *httptest.Server
	hub    *core.Hub
	store  *fakeStore
	url    string
}

func newWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	logger := zerolog.Nop()
	st := &fakeStore{}
	hub := core.NewHub(st, core.GomokuRules{}, 15, &logger)
	tokens := &auth.Config{Secret: []byte("ws-test-secret"), Issuer: "gomoku-arena", TTL: time.Hour}
	cfg := config.Default()
	srv := NewServer(hub, tokens, st, &cfg, &logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &wsTestEnv{
		server: ts,
		hub:    hub,
		store:  st,
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

type wsSession struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context

	PlayerID string
	Token    string
}

// connect dials the endpoint and completes the hello exchange. A
// non-empty token resumes the identity it was issued for.
func connect(t *testing.T, env *wsTestEnv, name, token string) *wsSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, env.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s := &wsSession{t: t, conn: conn, ctx: ctx}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	ack := s.call(proto.InboundTypeHello, "hello-1", proto.HelloData{Name: name, Token: token})
	if ack.Type != proto.OutboundTypeAck {
		t.Fatalf("hello rejected: %+v", ack.Error)
	}
	var hello proto.HelloAck
	s.decode(ack.Data, &hello)
	if hello.PlayerID == "" || hello.Token == "" {
		t.Fatalf("incomplete hello ack: %+v", hello)
	}
	s.PlayerID = hello.PlayerID
	s.Token = hello.Token
	return s
}

func (s *wsSession) send(msgType, id string, data any) {
	s.t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		s.t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	if err := wsjson.Write(s.ctx, s.conn, proto.Inbound{Type: msgType, ID: id, Data: raw}); err != nil {
		s.t.Fatalf("write %s: %v", msgType, err)
	}
}

// call sends a correlated request and reads frames until its ack or
// error arrives, discarding unrelated events.
func (s *wsSession) call(msgType, id string, data any) rawOutbound {
	s.t.Helper()
	s.send(msgType, id, data)
	for {
		out := s.read()
		if (out.Type == proto.OutboundTypeAck || out.Type == proto.OutboundTypeError) && out.ID == id {
			return out
		}
	}
}

// awaitEvent reads frames until the named event arrives.
func (s *wsSession) awaitEvent(name string) rawOutbound {
	s.t.Helper()
	for {
		out := s.read()
		if out.Type == proto.OutboundTypeEvent && out.Event == name {
			return out
		}
	}
}

func (s *wsSession) read() rawOutbound {
	s.t.Helper()
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	var out rawOutbound
	if err := wsjson.Read(ctx, s.conn, &out); err != nil {
		s.t.Fatalf("read frame: %v", err)
	}
	return out
}

func (s *wsSession) decode(data json.RawMessage, v any) {
	s.t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		s.t.Fatalf("decode payload: %v", err)
	}
}

func (s *wsSession) mustSnapshot(out rawOutbound) proto.RoomSnapshot {
	s.t.Helper()
	if out.Type != proto.OutboundTypeAck {
		s.t.Fatalf("expected ack, got %s: %+v", out.Type, out.Error)
	}
	var snap proto.RoomSnapshot
	s.decode(out.Data, &snap)
	return snap
}

func TestWebSocketGameFlow(t *testing.T) {
	env := newWSTestEnv(t)

	alice := connect(t, env, "Alice", "")
	snap := alice.mustSnapshot(alice.call(proto.InboundTypeCreateRoom, "c-1", proto.CreateRoomData{}))
	if snap.Status != "waiting" || snap.Black == nil || snap.Black.Name != "Alice" {
		t.Fatalf("unexpected create snapshot: %+v", snap)
	}

	bob := connect(t, env, "Bob", "")
	joined := bob.mustSnapshot(bob.call(proto.InboundTypeJoinRoom, "j-1", proto.JoinRoomData{RoomID: snap.RoomID}))
	if joined.Status != "playing" || joined.Turn != "black" {
		t.Fatalf("unexpected join snapshot: %+v", joined)
	}

	// The seated creator hears about the join and the new state.
	alice.awaitEvent(proto.EventPlayerJoined)
	ev := alice.awaitEvent(proto.EventGameState)
	var pushed proto.RoomSnapshot
	alice.decode(ev.Data, &pushed)
	if pushed.Status != "playing" {
		t.Fatalf("expected pushed playing state, got %+v", pushed)
	}

	moved := alice.mustSnapshot(alice.call(proto.InboundTypeMove, "m-1", proto.MoveData{RoomID: snap.RoomID, X: 7, Y: 7}))
	if len(moved.Moves) != 1 || moved.Turn != "white" {
		t.Fatalf("unexpected move snapshot: %+v", moved)
	}

	// Moving again out of turn is rejected with a correlated error.
	out := alice.call(proto.InboundTypeMove, "m-2", proto.MoveData{RoomID: snap.RoomID, X: 8, Y: 8})
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeNotYourTurn {
		t.Fatalf("expected not_your_turn, got %+v", out)
	}

	chatAck := bob.call(proto.InboundTypeChat, "ch-1", proto.ChatData{RoomID: snap.RoomID, Message: "good luck"})
	var chat proto.ChatAck
	bob.decode(chatAck.Data, &chat)
	if chat.Seq != 1 {
		t.Fatalf("expected chat seq 1, got %d", chat.Seq)
	}
	chatEv := alice.awaitEvent(proto.EventChat)
	var line proto.ChatEvent
	alice.decode(chatEv.Data, &line)
	if line.From != "Bob" || line.Text != "good luck" || line.Seq != 1 {
		t.Fatalf("unexpected chat event: %+v", line)
	}

	listAck := bob.call(proto.InboundTypeGetRoomList, "l-1", struct{}{})
	var list proto.RoomListData
	bob.decode(listAck.Data, &list)
	if len(list.Rooms) != 1 || list.Rooms[0].RoomID != snap.RoomID {
		t.Fatalf("unexpected room list: %+v", list)
	}
}

func TestWebSocketResumeWithToken(t *testing.T) {
	env := newWSTestEnv(t)

	alice := connect(t, env, "Alice", "")
	snap := alice.mustSnapshot(alice.call(proto.InboundTypeCreateRoom, "c-1", proto.CreateRoomData{}))
	bob := connect(t, env, "Bob", "")
	bob.mustSnapshot(bob.call(proto.InboundTypeJoinRoom, "j-1", proto.JoinRoomData{RoomID: snap.RoomID}))

	// Drop the creator's connection.
	alice.conn.Close(websocket.StatusGoingAway, "network")

	left := bob.awaitEvent(proto.EventPlayerLeft)
	var gone proto.PresenceEvent
	bob.decode(left.Data, &gone)
	if gone.PlayerID != alice.PlayerID {
		t.Fatalf("unexpected leave notice: %+v", gone)
	}

	// A fresh session presenting the resume token gets the old identity
	// and the seat back.
	alice2 := connect(t, env, "", alice.Token)
	if alice2.PlayerID != alice.PlayerID {
		t.Fatalf("expected resumed identity %s, got %s", alice.PlayerID, alice2.PlayerID)
	}
	ev := alice2.awaitEvent(proto.EventGameState)
	var resumed proto.RoomSnapshot
	alice2.decode(ev.Data, &resumed)
	if resumed.Black == nil || !resumed.Black.Connected || resumed.Status != "playing" {
		t.Fatalf("expected reconnected black seat, got %+v", resumed)
	}

	// The resumed seat can still move.
	moved := alice2.mustSnapshot(alice2.call(proto.InboundTypeMove, "m-1", proto.MoveData{RoomID: snap.RoomID, X: 7, Y: 7}))
	if len(moved.Moves) != 1 {
		t.Fatalf("unexpected move snapshot: %+v", moved)
	}
}

func TestWebSocketRejectsNonHelloFirst(t *testing.T) {
	env := newWSTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, env.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeCreateRoom, ID: "c-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err == nil {
		t.Fatalf("expected the connection to be closed, got %+v", out)
	}
}

func TestWebSocketHistoryQuery(t *testing.T) {
	env := newWSTestEnv(t)
	finished := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	env.store.records = []history.Record{
		{RoomID: "room-1", BlackName: "Alice", WhiteName: "Bob", Winner: "black", Moves: 9, CreatedAt: finished.Add(-time.Minute), FinishedAt: finished},
		{RoomID: "room-2", BlackName: "Carol", WhiteName: "Dave", Winner: "white", Moves: 12, CreatedAt: finished, FinishedAt: finished.Add(time.Hour)},
	}

	alice := connect(t, env, "Alice", "")
	ack := alice.call(proto.InboundTypeGetHistory, "h-1", proto.HistoryData{PlayerName: "Alice"})
	var page proto.HistoryAck
	alice.decode(ack.Data, &page)
	if page.Total != 1 || len(page.Records) != 1 || page.Records[0].RoomID != "room-1" {
		t.Fatalf("unexpected history page: %+v", page)
	}

	out := alice.call(proto.InboundTypeGetHistory, "h-2", proto.HistoryData{Limit: -1})
	if out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", out)
	}
}
