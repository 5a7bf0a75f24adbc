package core

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Seat is one of the two fixed player roles in a room.
type Seat string

const (
	SeatNone  Seat = ""
	SeatBlack Seat = "black"
	SeatWhite Seat = "white"
)

// Status is the room lifecycle state. Transitions only ever move
// waiting -> playing -> finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Winner is set if and only if the room is finished.
type Winner string

const (
	WinnerNone  Winner = ""
	WinnerBlack Winner = "black"
	WinnerWhite Winner = "white"
	WinnerDraw  Winner = "draw"
)

// Move is one accepted stone placement.
type Move struct {
	Seat Seat
	X    int
	Y    int
	Seq  int
}

type member struct {
	id        string
	name      string
	session   *Client
	connected bool
}

// Room is the authoritative per-game session. All state below inbox is
// owned by the room goroutine and never touched from outside it.
type Room struct {
	ID    string
	inbox chan Msg
	done  chan struct{}

	status     Status
	board      *Board
	rules      Rules
	seats      map[Seat]*member
	spectators map[string]*member
	moves      []Move
	turn       Seat
	winner     Winner
	version    int
	chat       *ChatRelay
	createdAt  time.Time
	finishedAt time.Time
	finalized  bool

	onFinished func(*Snapshot)
	onEmpty    func(string)
	log        zerolog.Logger
}

// NewRoom allocates a waiting room with the creator seated black and
// starts its actor goroutine.
func NewRoom(id string, creator *Client, boardSize int, rules Rules, onFinished func(*Snapshot), onEmpty func(string), logger zerolog.Logger) *Room {
	r := &Room{
		ID:         id,
		inbox:      make(chan Msg, 64),
		done:       make(chan struct{}),
		status:     StatusWaiting,
		board:      NewBoard(boardSize),
		rules:      rules,
		seats:      make(map[Seat]*member),
		spectators: make(map[string]*member),
		turn:       SeatBlack,
		chat:       NewChatRelay(id),
		createdAt:  time.Now(),
		onFinished: onFinished,
		onEmpty:    onEmpty,
		log:        logger.With().Str("room_id", id).Logger(),
	}
	r.seats[SeatBlack] = &member{id: creator.ID, name: creator.Name, session: creator, connected: true}
	go r.loop()
	return r
}

// Deliver sends a message to the room actor. It returns false if the
// room has already shut down.
func (r *Room) Deliver(m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.done:
		return false
	}
}

// Done reports room shutdown; callers waiting on a reply select on it
// so a terminated room never strands them.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) loop() {
	defer close(r.done)
	for m := range r.inbox {
		switch msg := m.(type) {
		case JoinSeat:
			msg.Reply <- r.handleJoin(msg.Client)
		case Spectate:
			msg.Reply <- r.handleSpectate(msg.Client)
		case SubmitMove:
			msg.Reply <- r.handleMove(msg.PlayerID, msg.X, msg.Y)
		case SendChat:
			msg.Reply <- r.handleChat(msg.PlayerID, msg.Text)
		case Leave:
			r.handleLeave(msg.PlayerID)
		case SessionGone:
			r.handleSessionGone(msg.Session)
		case Reattach:
			r.handleReattach(msg.Client)
		case GetInfo:
			msg.Reply <- r.info()
		case GetSnapshot:
			msg.Reply <- r.snapshot()
		}
		if r.empty() {
			r.log.Debug().Msg("room empty, shutting down")
			if r.onEmpty != nil {
				r.onEmpty(r.ID)
			}
			return
		}
	}
}

func (r *Room) handleJoin(c *Client) JoinReply {
	// Returning player: same identity resumes the reserved seat.
	if seat, m := r.memberSeat(c.ID); seat != SeatNone {
		m.session = c
		m.connected = true
		r.version++
		r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
		r.log.Info().Str("player_id", c.ID).Str("seat", string(seat)).Msg("player resumed seat")
		return JoinReply{Snapshot: r.snapshot()}
	}

	if r.seats[SeatWhite] != nil {
		return JoinReply{Err: coreError(ErrCodeRoomFull, "both seats are taken")}
	}

	r.seats[SeatWhite] = &member{id: c.ID, name: c.Name, session: c, connected: true}
	r.status = StatusPlaying
	r.turn = SeatBlack
	r.version++
	r.broadcast(&Event{Kind: EventPlayerJoined, Room: r.ID, Presence: &Presence{PlayerID: c.ID, Name: c.Name, Role: string(SeatWhite)}})
	r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
	r.log.Info().Str("player_id", c.ID).Msg("white seated, game started")
	return JoinReply{Snapshot: r.snapshot()}
}

func (r *Room) handleSpectate(c *Client) JoinReply {
	if r.status == StatusFinished {
		return JoinReply{Err: coreError(ErrCodeInvalidState, "game already finished")}
	}
	if seat, m := r.memberSeat(c.ID); seat != SeatNone {
		// A seated player cannot also spectate; treat as resume.
		m.session = c
		m.connected = true
		r.version++
		r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
		return JoinReply{Snapshot: r.snapshot()}
	}

	r.spectators[c.ID] = &member{id: c.ID, name: c.Name, session: c, connected: true}
	r.version++
	r.broadcast(&Event{Kind: EventPlayerJoined, Room: r.ID, Presence: &Presence{PlayerID: c.ID, Name: c.Name, Role: "spectator"}})
	r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
	return JoinReply{Snapshot: r.snapshot()}
}

func (r *Room) handleMove(playerID string, x, y int) MoveReply {
	seat, _ := r.memberSeat(playerID)
	if seat == SeatNone {
		return MoveReply{Err: coreError(ErrCodeNotAMember, "not seated in this room")}
	}
	if r.status != StatusPlaying {
		return MoveReply{Err: coreError(ErrCodeInvalidState, "room is not playing")}
	}
	if seat != r.turn {
		return MoveReply{Err: coreError(ErrCodeNotYourTurn, "not your turn")}
	}

	outcome, err := r.rules.Check(r.board, seat, x, y)
	if err != nil {
		return MoveReply{Err: coreError(ErrCodeIllegalMove, err.Error())}
	}

	r.board.Place(x, y, seat)
	r.moves = append(r.moves, Move{Seat: seat, X: x, Y: y, Seq: len(r.moves) + 1})
	r.turn = opponent(seat)
	r.version++

	switch outcome {
	case OutcomeWin:
		r.finish(Winner(seat))
	case OutcomeDraw:
		r.finish(WinnerDraw)
	default:
		r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
	}
	return MoveReply{Snapshot: r.snapshot()}
}

func (r *Room) finish(w Winner) {
	r.status = StatusFinished
	r.winner = w
	r.finishedAt = time.Now()
	snap := r.snapshot()
	r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: snap})
	r.broadcast(&Event{Kind: EventGameFinished, Room: r.ID, Result: &GameResult{
		RoomID:     r.ID,
		Winner:     w,
		Moves:      len(r.moves),
		DurationMs: r.finishedAt.Sub(r.createdAt).Milliseconds(),
	}})
	if !r.finalized {
		r.finalized = true
		if r.onFinished != nil {
			r.onFinished(snap)
		}
	}
	r.log.Info().Str("winner", string(w)).Int("moves", len(r.moves)).Msg("game finished")
}

func (r *Room) handleChat(playerID, text string) ChatReply {
	m := r.findMember(playerID)
	if m == nil {
		return ChatReply{Err: coreError(ErrCodeNotAMember, "not a member of this room")}
	}
	msg := r.chat.Append(m.name, text)
	r.broadcast(&Event{Kind: EventChat, Room: r.ID, Chat: &msg})
	return ChatReply{Seq: msg.Seq}
}

func (r *Room) handleLeave(playerID string) {
	if _, ok := r.spectators[playerID]; ok {
		delete(r.spectators, playerID)
		r.version++
		r.broadcast(&Event{Kind: EventPlayerLeft, Room: r.ID, Presence: &Presence{PlayerID: playerID, Role: "spectator"}})
		r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
		return
	}
	seat, m := r.memberSeat(playerID)
	if seat == SeatNone || !m.connected {
		return
	}
	// Seat stays reserved for reconnection; only presence changes.
	m.connected = false
	m.session = nil
	r.version++
	r.broadcast(&Event{Kind: EventPlayerLeft, Room: r.ID, Presence: &Presence{PlayerID: playerID, Name: m.name, Role: string(seat)}})
	r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
	r.log.Info().Str("player_id", playerID).Str("seat", string(seat)).Msg("player left, seat reserved")
}

func (r *Room) handleSessionGone(session *Client) {
	for id, m := range r.spectators {
		if m.session == session {
			delete(r.spectators, id)
			r.version++
			r.broadcast(&Event{Kind: EventPlayerLeft, Room: r.ID, Presence: &Presence{PlayerID: id, Name: m.name, Role: "spectator"}})
			r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
			return
		}
	}
	for _, m := range r.seats {
		// Pointer match ignores stale notices for replaced sessions.
		if m != nil && m.session == session {
			r.handleLeave(m.id)
			return
		}
	}
}

func (r *Room) handleReattach(c *Client) {
	seat, m := r.memberSeat(c.ID)
	if seat == SeatNone {
		return
	}
	m.session = c
	m.connected = true
	r.version++
	r.broadcast(&Event{Kind: EventPlayerJoined, Room: r.ID, Presence: &Presence{PlayerID: c.ID, Name: m.name, Role: string(seat)}})
	r.broadcast(&Event{Kind: EventGameState, Room: r.ID, Snapshot: r.snapshot()})
	r.log.Info().Str("player_id", c.ID).Str("seat", string(seat)).Msg("player reattached")
}

func (r *Room) memberSeat(playerID string) (Seat, *member) {
	for _, seat := range [2]Seat{SeatBlack, SeatWhite} {
		if m := r.seats[seat]; m != nil && m.id == playerID {
			return seat, m
		}
	}
	return SeatNone, nil
}

func (r *Room) findMember(playerID string) *member {
	if _, m := r.memberSeat(playerID); m != nil {
		return m
	}
	return r.spectators[playerID]
}

// empty reports whether nobody is connected and the room has nothing
// left to preserve: a waiting room with no live sessions, or a finished
// room whose summary has been handed off.
func (r *Room) empty() bool {
	for _, m := range r.seats {
		if m != nil && m.connected {
			return false
		}
	}
	for _, m := range r.spectators {
		if m.connected {
			return false
		}
	}
	switch r.status {
	case StatusWaiting:
		return true
	case StatusFinished:
		return r.finalized
	}
	return false
}

func (r *Room) broadcast(ev *Event) {
	deliver := func(m *member) {
		if m == nil || !m.connected || m.session == nil {
			return
		}
		if !m.session.Send(ev) {
			r.log.Warn().Str("player_id", m.id).Msg("dropping event for slow consumer")
		}
	}
	deliver(r.seats[SeatBlack])
	deliver(r.seats[SeatWhite])
	for _, m := range r.spectators {
		deliver(m)
	}
}

func (r *Room) snapshot() *Snapshot {
	snap := &Snapshot{
		RoomID:    r.ID,
		Version:   r.version,
		Status:    r.status,
		BoardSize: r.board.Size,
		Turn:      r.turn,
		Winner:    r.winner,
		CreatedAt: r.createdAt.UnixMilli(),
	}
	if !r.finishedAt.IsZero() {
		snap.FinishedAt = r.finishedAt.UnixMilli()
	}
	if m := r.seats[SeatBlack]; m != nil {
		snap.Black = &SeatInfo{PlayerID: m.id, Name: m.name, Connected: m.connected}
	}
	if m := r.seats[SeatWhite]; m != nil {
		snap.White = &SeatInfo{PlayerID: m.id, Name: m.name, Connected: m.connected}
	}
	snap.Moves = make([]Move, len(r.moves))
	copy(snap.Moves, r.moves)
	for _, m := range r.spectators {
		snap.Spectators = append(snap.Spectators, SeatInfo{PlayerID: m.id, Name: m.name, Connected: m.connected})
	}
	sort.Slice(snap.Spectators, func(i, j int) bool {
		return snap.Spectators[i].PlayerID < snap.Spectators[j].PlayerID
	})
	return snap
}

func (r *Room) info() RoomInfo {
	info := RoomInfo{RoomID: r.ID, Status: r.status, Spectators: len(r.spectators)}
	if m := r.seats[SeatBlack]; m != nil {
		info.Black = m.name
	}
	if m := r.seats[SeatWhite]; m != nil {
		info.White = m.name
	}
	return info
}

func opponent(s Seat) Seat {
	if s == SeatBlack {
		return SeatWhite
	}
	return SeatBlack
}
