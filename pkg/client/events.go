package client

// Server broadcast event names.
const (
	EventGameState    = "gameState"
	EventChat         = "chat"
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
	EventRoomList     = "roomList"
	EventGameFinished = "gameFinished"
	EventError        = "error"
)

// SeatInfo describes a seat occupant.
type SeatInfo struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Move is one accepted stone placement.
type Move struct {
	Seat string `json:"seat"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Seq  int    `json:"seq"`
}

// RoomSnapshot is the versioned full room state. Renderers reconcile
// from the latest snapshot; no diff tracking is needed.
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

// ChatEvent is one ordered chat message.
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

// GameFinishedEvent announces a game result.
type GameFinishedEvent struct {
	RoomID     string `json:"roomId"`
	Winner     string `json:"winner"`
	Moves      int    `json:"moves"`
	DurationMs int64  `json:"durationMs"`
}

// RoomListEntry summarizes one room.
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

// HistoryRecord is one finished match.
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

// HistoryPage answers a history query.
type HistoryPage struct {
	Total   int             `json:"total"`
	Records []HistoryRecord `json:"records"`
}
