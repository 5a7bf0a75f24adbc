package core

import "time"

// ChatRelay orders chat messages within one room. It runs inside the
// room actor, so no locking is needed; the actor provides the total
// order members observe.
type ChatRelay struct {
	roomID string
	seq    int64
	log    []ChatMessage
}

// NewChatRelay creates a relay for the given room.
func NewChatRelay(roomID string) *ChatRelay {
	return &ChatRelay{roomID: roomID}
}

// Append assigns the next sequence number to a message and retains it
// for the life of the in-memory room.
func (r *ChatRelay) Append(from, text string) ChatMessage {
	r.seq++
	msg := ChatMessage{
		Room:      r.roomID,
		Seq:       r.seq,
		From:      from,
		Text:      text,
		CreatedAt: time.Now(),
	}
	r.log = append(r.log, msg)
	return msg
}

// Log returns the messages accepted so far, in sequence order.
func (r *ChatRelay) Log() []ChatMessage {
	out := make([]ChatMessage, len(r.log))
	copy(out, r.log)
	return out
}
