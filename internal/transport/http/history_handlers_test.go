package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/proto"
)

type fakeStore struct {
	mu      sync.Mutex
	records []history.Record
}

func (f *fakeStore) Finalize(_ context.Context, rec *history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.RoomID == rec.RoomID {
			return nil
		}
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeStore) Query(_ context.Context, opts history.QueryOptions) (int, []history.Record, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return 0, nil, history.ErrNegativeRange
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []history.Record{}
	for _, rec := range f.records {
		if opts.PlayerName != "" && rec.BlackName != opts.PlayerName && rec.WhiteName != opts.PlayerName {
			continue
		}
		matched = append(matched, rec)
	}
	return len(matched), matched, nil
}

func (f *fakeStore) Close() error { return nil }

func historyRouter(st history.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	router := gin.New()
	router.GET("/api/history", NewHistoryHandlers(st, &logger).Query)
	return router
}

func TestHistoryQueryReturnsRecords(t *testing.T) {
	st := &fakeStore{}
	finished := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	st.records = []history.Record{
		{RoomID: "room-1", BlackName: "Alice", WhiteName: "Bob", Winner: "black", Moves: 9, CreatedAt: finished.Add(-time.Minute), FinishedAt: finished},
		{RoomID: "room-2", BlackName: "Carol", WhiteName: "Dave", Winner: "draw", Moves: 225, CreatedAt: finished, FinishedAt: finished.Add(time.Hour)},
	}
	router := historyRouter(st)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/api/history?player=Alice", nil)
	router.ServeHTTP(w, req)

	if w.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp proto.HistoryAck
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Records) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Records[0].RoomID != "room-1" || resp.Records[0].Winner != "black" {
		t.Fatalf("unexpected record: %+v", resp.Records[0])
	}
	if resp.Records[0].FinishedAt != finished.Format(time.RFC3339) {
		t.Fatalf("unexpected finishedAt: %s", resp.Records[0].FinishedAt)
	}
}

func TestHistoryQueryRejectsBadParams(t *testing.T) {
	router := historyRouter(&fakeStore{})

	cases := []struct {
		name string
		url  string
	}{
		{"non-numeric limit", "/api/history?limit=abc"},
		{"non-numeric offset", "/api/history?offset=x"},
		{"bad start date", "/api/history?start=02-01-2026"},
		{"bad end date", "/api/history?end=yesterday"},
		{"negative limit", "/api/history?limit=-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(stdhttp.MethodGet, tc.url, nil)
			router.ServeHTTP(w, req)
			if w.Code != stdhttp.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
