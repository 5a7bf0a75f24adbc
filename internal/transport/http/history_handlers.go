package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/proto"
)

// HistoryHandlers serves the REST read path for finished matches.
type HistoryHandlers struct {
	store history.Store
	log   *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(st history.Store, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{store: st, log: logger}
}

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Query handles paginated match-history reads.
// GET /api/history?limit=&offset=&player=&start=&end=
func (h *HistoryHandlers) Query(c *gin.Context) {
	opts := history.QueryOptions{PlayerName: c.Query("player")}

	var err error
	if opts.Limit, err = intQuery(c, "limit", 0); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		return
	}
	if opts.Offset, err = intQuery(c, "offset", 0); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		return
	}
	if opts.Start, err = timeQuery(c, "start"); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start date, want RFC 3339"})
		return
	}
	if opts.End, err = timeQuery(c, "end"); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end date, want RFC 3339"})
		return
	}

	total, records, err := h.store.Query(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, history.ErrNegativeRange) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := proto.HistoryAck{Total: total, Records: make([]proto.HistoryRecord, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordToProto(rec))
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
