package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. ID is
// the correlation id and is present exactly when the client expects an
// acknowledgment.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeCreateRoom  = "createRoom"
	InboundTypeJoinRoom    = "joinRoom"
	InboundTypeSpectate    = "spectate"
	InboundTypeMove        = "move"
	InboundTypeChat        = "chat"
	InboundTypeLeaveRoom   = "leaveRoom"
	InboundTypeGetRoomList = "getRoomList"
	InboundTypeGetHistory  = "getHistory"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventGameState    = "gameState"
	EventChat         = "chat"
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
	EventRoomList     = "roomList"
	EventGameFinished = "gameFinished"
	EventError        = "error"
)

// HelloData introduces a client. Token, when present, is a resume token
// from a previous session and restores that identity.
type HelloData struct {
	Name     string `json:"name"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// HelloAck returns the (possibly restored) identity and a signed resume
// token for future reconnects.
type HelloAck struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// CreateRoomData requests a new room with the sender seated black.
type CreateRoomData struct {
	PlayerName string `json:"playerName,omitempty"`
}

// JoinRoomData requests the white seat (or a seat resume) in a room.
type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName,omitempty"`
}

// SpectateData requests read-only admission to a room.
type SpectateData struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name,omitempty"`
}

// MoveData places a stone.
type MoveData struct {
	RoomID string `json:"roomId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// ChatData sends a chat line to a room.
type ChatData struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// ChatAck returns the assigned per-room sequence number.
type ChatAck struct {
	Seq int64 `json:"seq"`
}

// LeaveRoomData leaves a room explicitly.
type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

// HistoryData queries finished matches. Dates are RFC 3339.
type HistoryData struct {
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
}

// Outbound is the envelope for messages sent to the client. Acks and
// errors echo the inbound correlation id; events never carry one.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// SeatInfo describes a seat occupant on the wire.
type SeatInfo struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Move is one accepted stone placement on the wire.
type Move struct {
	Seat string `json:"seat"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Seq  int    `json:"seq"`
}

// RoomSnapshot is the versioned full room state clients reconcile from.
type RoomSnapshot struct {
	RoomID     string     `json:"roomId"`
	Version    int        `json:"version"`
	Status     string     `json:"status"`
	BoardSize  int        `json:"boardSize"`
	Black      *SeatInfo  `json:"black,omitempty"`
	White      *SeatInfo  `json:"white,omitempty"`
	Spectators []SeatInfo `json:"spectators,omitempty"`
	Moves      []Move     `json:"moves"`
	Turn       string     `json:"turn"`
	Winner     string     `json:"winner,omitempty"`
	CreatedAt  int64      `json:"createdAt"`
	FinishedAt int64      `json:"finishedAt,omitempty"`
}

// ChatEvent delivers one ordered chat message.
type ChatEvent struct {
	RoomID string `json:"roomId"`
	Seq    int64  `json:"seq"`
	From   string `json:"from"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// PresenceEvent notifies about a member joining or leaving.
type PresenceEvent struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// RoomListEntry summarizes one room in a listing.
type RoomListEntry struct {
	RoomID     string `json:"roomId"`
	Status     string `json:"status"`
	Black      string `json:"black,omitempty"`
	White      string `json:"white,omitempty"`
	Spectators int    `json:"spectators"`
}

// RoomListData carries the room listing.
type RoomListData struct {
	Rooms []RoomListEntry `json:"rooms"`
}

// GameFinishedEvent announces a game result.
type GameFinishedEvent struct {
	RoomID     string `json:"roomId"`
	Winner     string `json:"winner"`
	Moves      int    `json:"moves"`
	DurationMs int64  `json:"durationMs"`
}

// HistoryRecord is one finished match on the wire.
type HistoryRecord struct {
	RoomID     string `json:"roomId"`
	BlackID    string `json:"blackId"`
	BlackName  string `json:"blackName"`
	WhiteID    string `json:"whiteId"`
	WhiteName  string `json:"whiteName"`
	Winner     string `json:"winner"`
	Moves      int    `json:"moves"`
	CreatedAt  string `json:"createdAt"`
	FinishedAt string `json:"finishedAt"`
	DurationMs int64  `json:"durationMs"`
}

// HistoryAck answers a history query.
type HistoryAck struct {
	Total   int             `json:"total"`
	Records []HistoryRecord `json:"records"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
