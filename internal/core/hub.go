package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/utils"
)

// Hub owns the room registry and the client session table. It only
// needs insert/lookup/delete mutual exclusion; all game state lives in
// the per-room actors.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	clients map[string]*Client

	store     history.Store
	rules     Rules
	boardSize int
	log       *zerolog.Logger
}

// NewHub builds a hub persisting finished games to the given store.
func NewHub(st history.Store, rules Rules, boardSize int, logger *zerolog.Logger) *Hub {
	return &Hub{
		rooms:     make(map[string]*Room),
		clients:   make(map[string]*Client),
		store:     st,
		rules:     rules,
		boardSize: boardSize,
		log:       logger,
	}
}

// RegisterClient records a live session and re-attaches its identity to
// any room that reserved a seat for it.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	rooms := h.roomsLocked()
	h.mu.Unlock()

	for _, r := range rooms {
		r.Deliver(Reattach{Client: c})
	}
}

// UnregisterClient drops a session and marks its seats disconnected.
// A session replaced by a newer one for the same identity is ignored.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	if h.clients[c.ID] == c {
		delete(h.clients, c.ID)
	}
	rooms := h.roomsLocked()
	h.mu.Unlock()

	for _, r := range rooms {
		r.Deliver(SessionGone{Session: c})
	}
}

// CreateRoom allocates a waiting room with the creator seated black and
// returns its initial snapshot.
func (h *Hub) CreateRoom(creator *Client) *Snapshot {
	id := utils.ShortID()
	r := NewRoom(id, creator, h.boardSize, h.rules, h.finalize, h.removeRoom, *h.log)

	h.mu.Lock()
	h.rooms[id] = r
	h.mu.Unlock()

	h.log.Info().Str("room_id", id).Str("player_id", creator.ID).Msg("room created")

	reply := make(chan *Snapshot, 1)
	if r.Deliver(GetSnapshot{Reply: reply}) {
		select {
		case snap := <-reply:
			return snap
		case <-r.Done():
		}
	}
	return nil
}

// Room looks up a room by id.
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

// RoomList summarizes every registered room.
func (h *Hub) RoomList() []RoomInfo {
	h.mu.Lock()
	rooms := h.roomsLocked()
	h.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		reply := make(chan RoomInfo, 1)
		if !r.Deliver(GetInfo{Reply: reply}) {
			continue
		}
		select {
		case info := <-reply:
			infos = append(infos, info)
		case <-r.Done():
		}
	}
	return infos
}

// History exposes the read path for paginated match queries.
func (h *Hub) History() history.Store { return h.store }

func (h *Hub) roomsLocked() []*Room {
	out := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, r)
	}
	return out
}

func (h *Hub) removeRoom(id string) {
	h.mu.Lock()
	delete(h.rooms, id)
	h.mu.Unlock()
	h.log.Debug().Str("room_id", id).Msg("room removed from registry")
}

// finalize hands a finished room's summary to the history store without
// blocking the room actor. The store is idempotent on room id.
func (h *Hub) finalize(snap *Snapshot) {
	rec := RecordFromSnapshot(snap)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.Finalize(ctx, rec); err != nil {
			h.log.Error().Err(err).Str("room_id", snap.RoomID).Msg("failed to persist match record")
			return
		}
		h.log.Info().Str("room_id", snap.RoomID).Msg("match record persisted")
	}()
}

// RecordFromSnapshot converts a finished room snapshot into its
// immutable history record.
func RecordFromSnapshot(snap *Snapshot) *history.Record {
	rec := &history.Record{
		RoomID:     snap.RoomID,
		Winner:     string(snap.Winner),
		Moves:      len(snap.Moves),
		CreatedAt:  time.UnixMilli(snap.CreatedAt),
		FinishedAt: time.UnixMilli(snap.FinishedAt),
	}
	rec.Duration = rec.FinishedAt.Sub(rec.CreatedAt)
	if snap.Black != nil {
		rec.BlackID = snap.Black.PlayerID
		rec.BlackName = snap.Black.Name
	}
	if snap.White != nil {
		rec.WhiteID = snap.White.PlayerID
		rec.WhiteName = snap.White.Name
	}
	return rec
}
