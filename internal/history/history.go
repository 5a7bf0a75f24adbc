// Package history defines the match-history contract: insert-if-absent
// finalization of finished rooms and filtered, paginated reads.
package history

import (
	"context"
	"errors"
	"time"
)

// Pagination defaults for the query path. Callers passing Limit 0 get
// DefaultLimit; anything above MaxLimit is clamped.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrNegativeRange is returned for negative limit or offset.
var ErrNegativeRange = errors.New("history: limit and offset must be non-negative")

// Record is the immutable summary of one finished room.
type Record struct {
	RoomID     string
	BlackID    string
	BlackName  string
	WhiteID    string
	WhiteName  string
	Winner     string // "black", "white" or "draw"
	Moves      int
	CreatedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// QueryOptions filters and pages a history query. PlayerName matches
// either seat's name; Start/End bound finish time inclusively.
type QueryOptions struct {
	Limit      int
	Offset     int
	PlayerName string
	Start      *time.Time
	End        *time.Time
}

// Store persists finished rooms. Finalize and Query are safe for
// concurrent use from different rooms.
type Store interface {
	// Finalize inserts the record unless one already exists for its
	// room id; a duplicate call is a no-op, not an error.
	Finalize(ctx context.Context, rec *Record) error

	// Query returns the total number of matching records and one page
	// ordered by finish time descending. An out-of-range offset yields
	// an empty page with the correct total.
	Query(ctx context.Context, opts QueryOptions) (int, []Record, error)

	// Close releases the underlying storage.
	Close() error
}
