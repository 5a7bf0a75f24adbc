package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/gomoku-arena/internal/history"
)

// Store implements history.Store for SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS match_history (
	room_id     TEXT PRIMARY KEY,
	black_id    TEXT NOT NULL,
	black_name  TEXT NOT NULL,
	white_id    TEXT NOT NULL,
	white_name  TEXT NOT NULL,
	winner      TEXT NOT NULL,
	moves       INTEGER NOT NULL,
	created_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_history_finished_at ON match_history (finished_at DESC);
CREATE INDEX IF NOT EXISTS idx_match_history_black_name ON match_history (black_name);
CREATE INDEX IF NOT EXISTS idx_match_history_white_name ON match_history (white_name);
`

// New opens (or creates) the match-history database at dbPath and
// applies the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Finalize inserts the record if no record exists for its room id.
func (s *Store) Finalize(ctx context.Context, rec *history.Record) error {
	query := `
		INSERT OR IGNORE INTO match_history
			(room_id, black_id, black_name, white_id, white_name, winner, moves, created_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.RoomID,
		rec.BlackID,
		rec.BlackName,
		rec.WhiteID,
		rec.WhiteName,
		rec.Winner,
		rec.Moves,
		rec.CreatedAt.UTC(),
		rec.FinishedAt.UTC(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// Query returns the matching total and one page ordered by finish time
// descending.
func (s *Store) Query(ctx context.Context, opts history.QueryOptions) (int, []history.Record, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return 0, nil, history.ErrNegativeRange
	}
	limit := opts.Limit
	if limit == 0 {
		limit = history.DefaultLimit
	}
	if limit > history.MaxLimit {
		limit = history.MaxLimit
	}

	where := " WHERE 1=1"
	args := []any{}
	if opts.PlayerName != "" {
		where += " AND (black_name = ? OR white_name = ?)"
		args = append(args, opts.PlayerName, opts.PlayerName)
	}
	if opts.Start != nil {
		where += " AND finished_at >= ?"
		args = append(args, opts.Start.UTC())
	}
	if opts.End != nil {
		where += " AND finished_at <= ?"
		args = append(args, opts.End.UTC())
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_history"+where, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count match records: %w", err)
	}

	query := `
		SELECT room_id, black_id, black_name, white_id, white_name, winner, moves, created_at, finished_at, duration_ms
		FROM match_history` + where + `
		ORDER BY finished_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, opts.Offset)...)
	if err != nil {
		return 0, nil, fmt.Errorf("query match records: %w", err)
	}
	defer rows.Close()

	records := []history.Record{}
	for rows.Next() {
		var rec history.Record
		var durationMs int64
		if err := rows.Scan(
			&rec.RoomID,
			&rec.BlackID,
			&rec.BlackName,
			&rec.WhiteID,
			&rec.WhiteName,
			&rec.Winner,
			&rec.Moves,
			&rec.CreatedAt,
			&rec.FinishedAt,
			&durationMs,
		); err != nil {
			return 0, nil, fmt.Errorf("scan match record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate match records: %w", err)
	}

	return total, records, nil
}
