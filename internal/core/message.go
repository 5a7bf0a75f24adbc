package core

import "time"

// ChatMessage is the domain model for a room chat message. Seq is
// strictly increasing within a room and never reused.
type ChatMessage struct {
	Room      string
	Seq       int64
	From      string
	Text      string
	CreatedAt time.Time
}
