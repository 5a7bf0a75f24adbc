package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a unique identifier for players, rooms and pending calls.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp if entropy is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

// ShortID returns a compact identifier suitable for shareable room codes.
func ShortID() string {
	return NewID()[:8]
}
