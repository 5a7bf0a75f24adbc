package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventGameState carries the full room snapshot after any accepted
	// mutation. Renderers reconcile from the latest snapshot alone.
	EventGameState EventKind = iota
	// EventChat delivers a chat message to room members.
	EventChat
	// EventPlayerJoined notifies members that someone took a seat or
	// started spectating.
	EventPlayerJoined
	// EventPlayerLeft notifies members that a player disconnected or a
	// spectator left.
	EventPlayerLeft
	// EventGameFinished announces the result of a finished game.
	EventGameFinished
	// EventRoomList carries the current open-room listing.
	EventRoomList
	// EventError notifies a single client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Snapshot *Snapshot
	Chat     *ChatMessage
	Presence *Presence
	Result   *GameResult
	Rooms    []RoomInfo
	Error    *Error
}

// SeatInfo describes a seat occupant in a snapshot.
type SeatInfo struct {
	PlayerID  string
	Name      string
	Connected bool
}

// Snapshot is the versioned full state of a room. The version increases
// by one on every accepted mutation.
type Snapshot struct {
	RoomID     string
	Version    int
	Status     Status
	BoardSize  int
	Black      *SeatInfo
	White      *SeatInfo
	Spectators []SeatInfo
	Moves      []Move
	Turn       Seat
	Winner     Winner
	CreatedAt  int64
	FinishedAt int64
}

// Presence describes a join/leave notification.
type Presence struct {
	PlayerID string
	Name     string
	Role     string // "black", "white" or "spectator"
}

// GameResult announces a finished game.
type GameResult struct {
	RoomID     string
	Winner     Winner
	Moves      int
	DurationMs int64
}

// RoomInfo is a room-listing summary.
type RoomInfo struct {
	RoomID     string
	Status     Status
	Black      string
	White      string
	Spectators int
}
