package core

// Msg is a request processed by a room actor. Each room consumes its
// inbox in a single goroutine, so at most one mutation is in flight per
// room at any time.
type Msg interface{ isRoomMsg() }

// JoinSeat seats the client white, or re-attaches a returning player to
// the seat reserved for their identity.
type JoinSeat struct {
	Client *Client
	Reply  chan JoinReply
}

// Spectate adds the client to the spectator set.
type Spectate struct {
	Client *Client
	Reply  chan JoinReply
}

// JoinReply answers JoinSeat and Spectate.
type JoinReply struct {
	Snapshot *Snapshot
	Err      *Error
}

// SubmitMove places a stone for the player's seat.
type SubmitMove struct {
	PlayerID string
	X, Y     int
	Reply    chan MoveReply
}

// MoveReply answers SubmitMove.
type MoveReply struct {
	Snapshot *Snapshot
	Err      *Error
}

// SendChat relays a chat message to all room members.
type SendChat struct {
	PlayerID string
	Text     string
	Reply    chan ChatReply
}

// ChatReply answers SendChat with the assigned sequence number.
type ChatReply struct {
	Seq int64
	Err *Error
}

// Leave is an explicit leave request. Seated players keep their seat
// reserved while the game is not finished; spectators are removed.
type Leave struct {
	PlayerID string
}

// SessionGone tells the room a transport session dropped. The room
// marks the matching member disconnected; a stale notice for an already
// replaced session is ignored.
type SessionGone struct {
	Session *Client
}

// Reattach hands a fresh session for a known identity to the room, so a
// reconnected player resumes their seat and receives the current
// snapshot without re-joining.
type Reattach struct {
	Client *Client
}

// GetInfo asks for a room-listing summary.
type GetInfo struct {
	Reply chan RoomInfo
}

// GetSnapshot asks for the current full snapshot.
type GetSnapshot struct {
	Reply chan *Snapshot
}

func (JoinSeat) isRoomMsg()    {}
func (Spectate) isRoomMsg()    {}
func (SubmitMove) isRoomMsg()  {}
func (SendChat) isRoomMsg()    {}
func (Leave) isRoomMsg()       {}
func (SessionGone) isRoomMsg() {}
func (Reattach) isRoomMsg()    {}
func (GetInfo) isRoomMsg()     {}
func (GetSnapshot) isRoomMsg() {}
