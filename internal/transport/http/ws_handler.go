package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/auth"
	"github.com/vovakirdan/gomoku-arena/internal/core"
	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/proto"
	"github.com/vovakirdan/gomoku-arena/internal/utils"
)

const handshakeTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub    *core.Hub
	tokens *auth.Config
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, tokens *auth.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, tokens: tokens, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client, err := h.handshake(ctx, conn)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws handshake failed")
		conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return
	}

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	acks := make(chan proto.Outbound, 16)
	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, acks)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, acks)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("player_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake waits for the hello frame, resolves the client identity
// (resuming it when a valid token is presented) and acknowledges with a
// fresh resume token.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*core.Client, error) {
	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(hctx, conn, &inbound); err != nil {
		return nil, err
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, errors.New("first message must be hello")
	}

	var hello proto.HelloData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, err
		}
	}

	playerID := utils.NewID()
	name := hello.Name
	if hello.Token != "" {
		claims, err := auth.Validate(h.tokens, hello.Token)
		if err != nil {
			// Expired or garbled token falls back to a fresh identity;
			// the ack tells the client who it is now.
			h.log.Warn().Err(err).Msg("resume token rejected, issuing new identity")
		} else {
			playerID = claims.PlayerID
			if name == "" {
				name = claims.Name
			}
		}
	}

	token, err := auth.Issue(h.tokens, playerID, name)
	if err != nil {
		return nil, err
	}

	client := core.NewClient(playerID, name)
	ack := proto.Outbound{
		Type: proto.OutboundTypeAck,
		ID:   inbound.ID,
		Data: proto.HelloAck{PlayerID: playerID, Name: client.Name, Token: token},
	}
	if err := wsjson.Write(hctx, conn, ack); err != nil {
		return nil, err
	}

	h.log.Info().Str("player_id", playerID).Str("name", client.Name).Msg("client connected")
	return client, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, acks chan<- proto.Outbound) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		out := h.handleInbound(ctx, client, inbound)
		if out == nil {
			continue
		}
		select {
		case acks <- *out:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, acks <-chan proto.Outbound) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("player_id", client.ID).Msg("write ws event")
				return err
			}
		case out := <-acks:
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("player_id", client.ID).Msg("write ws ack")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleInbound executes one client intent and returns the correlated
// ack or error, or nil when no response is due.
func (h *WSHandler) handleInbound(ctx context.Context, client *core.Client, in proto.Inbound) *proto.Outbound {
	switch in.Type {
	case proto.InboundTypeHello:
		return errOut(in.ID, core.ErrCodeBadRequest, "already introduced")

	case proto.InboundTypeCreateRoom:
		var data proto.CreateRoomData
		if err := unmarshal(in.Data, &data); err != nil {
			return errOut(in.ID, core.ErrCodeBadRequest, "invalid createRoom payload")
		}
		if data.PlayerName != "" {
			client.Name = data.PlayerName
		}
		snap := h.hub.CreateRoom(client)
		if snap == nil {
			return errOut(in.ID, "internal", "failed to create room")
		}
		return ackOut(in.ID, snapshotToProto(snap))

	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := unmarshal(in.Data, &data); err != nil || data.RoomID == "" {
			return errOut(in.ID, core.ErrCodeBadRequest, "roomId is required")
		}
		if data.PlayerName != "" {
			client.Name = data.PlayerName
		}
		room, ok := h.hub.Room(data.RoomID)
		if !ok {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		reply := make(chan core.JoinReply, 1)
		if !room.Deliver(core.JoinSeat{Client: client, Reply: reply}) {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		return joinResponse(ctx, in.ID, room, reply)

	case proto.InboundTypeSpectate:
		var data proto.SpectateData
		if err := unmarshal(in.Data, &data); err != nil || data.RoomID == "" {
			return errOut(in.ID, core.ErrCodeBadRequest, "roomId is required")
		}
		if data.Name != "" {
			client.Name = data.Name
		}
		room, ok := h.hub.Room(data.RoomID)
		if !ok {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		reply := make(chan core.JoinReply, 1)
		if !room.Deliver(core.Spectate{Client: client, Reply: reply}) {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		return joinResponse(ctx, in.ID, room, reply)

	case proto.InboundTypeMove:
		var data proto.MoveData
		if err := unmarshal(in.Data, &data); err != nil || data.RoomID == "" {
			return errOut(in.ID, core.ErrCodeBadRequest, "roomId is required")
		}
		room, ok := h.hub.Room(data.RoomID)
		if !ok {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		reply := make(chan core.MoveReply, 1)
		if !room.Deliver(core.SubmitMove{PlayerID: client.ID, X: data.X, Y: data.Y, Reply: reply}) {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		select {
		case r := <-reply:
			if r.Err != nil {
				return errOut(in.ID, r.Err.Code, r.Err.Message)
			}
			return ackOut(in.ID, snapshotToProto(r.Snapshot))
		case <-room.Done():
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		case <-ctx.Done():
			return nil
		}

	case proto.InboundTypeChat:
		var data proto.ChatData
		if err := unmarshal(in.Data, &data); err != nil || data.RoomID == "" {
			return errOut(in.ID, core.ErrCodeBadRequest, "roomId is required")
		}
		room, ok := h.hub.Room(data.RoomID)
		if !ok {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		reply := make(chan core.ChatReply, 1)
		if !room.Deliver(core.SendChat{PlayerID: client.ID, Text: data.Message, Reply: reply}) {
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		}
		select {
		case r := <-reply:
			if r.Err != nil {
				return errOut(in.ID, r.Err.Code, r.Err.Message)
			}
			return ackOut(in.ID, proto.ChatAck{Seq: r.Seq})
		case <-room.Done():
			return errOut(in.ID, core.ErrCodeRoomNotFound, "room not found")
		case <-ctx.Done():
			return nil
		}

	case proto.InboundTypeLeaveRoom:
		var data proto.LeaveRoomData
		if err := unmarshal(in.Data, &data); err != nil || data.RoomID == "" {
			return errOut(in.ID, core.ErrCodeBadRequest, "roomId is required")
		}
		if room, ok := h.hub.Room(data.RoomID); ok {
			room.Deliver(core.Leave{PlayerID: client.ID})
		}
		return ackOut(in.ID, struct{}{})

	case proto.InboundTypeGetRoomList:
		return ackOut(in.ID, roomListToProto(h.hub.RoomList()))

	case proto.InboundTypeGetHistory:
		var data proto.HistoryData
		if err := unmarshal(in.Data, &data); err != nil {
			return errOut(in.ID, core.ErrCodeBadRequest, "invalid getHistory payload")
		}
		opts, err := historyOptions(data)
		if err != nil {
			return errOut(in.ID, core.ErrCodeBadRequest, "invalid date bound")
		}
		total, records, err := h.hub.History().Query(ctx, opts)
		if err != nil {
			if errors.Is(err, history.ErrNegativeRange) {
				return errOut(in.ID, core.ErrCodeBadRequest, err.Error())
			}
			h.log.Error().Err(err).Msg("history query failed")
			return errOut(in.ID, "internal", "history query failed")
		}
		ack := proto.HistoryAck{Total: total, Records: make([]proto.HistoryRecord, 0, len(records))}
		for _, rec := range records {
			ack.Records = append(ack.Records, recordToProto(rec))
		}
		return ackOut(in.ID, ack)

	default:
		return errOut(in.ID, core.ErrCodeBadRequest, "unknown message type")
	}
}

func joinResponse(ctx context.Context, id string, room *core.Room, reply <-chan core.JoinReply) *proto.Outbound {
	select {
	case r := <-reply:
		if r.Err != nil {
			return errOut(id, r.Err.Code, r.Err.Message)
		}
		return ackOut(id, snapshotToProto(r.Snapshot))
	case <-room.Done():
		return errOut(id, core.ErrCodeRoomNotFound, "room not found")
	case <-ctx.Done():
		return nil
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// ackOut builds a correlated ack; fire-and-forget intents get none.
func ackOut(id string, data any) *proto.Outbound {
	if id == "" {
		return nil
	}
	return &proto.Outbound{Type: proto.OutboundTypeAck, ID: id, Data: data}
}

func errOut(id, code, msg string) *proto.Outbound {
	return &proto.Outbound{Type: proto.OutboundTypeError, ID: id, Error: &proto.Error{Code: code, Msg: msg}}
}
