package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

func drainEvents(c *Client) {
	for {
		select {
		case <-c.Events:
		default:
			return
		}
	}
}

func testRoom(t *testing.T, creator *Client, onFinished func(*Snapshot)) *Room {
	t.Helper()
	return NewRoom("r-test", creator, 15, GomokuRules{}, onFinished, nil, zerolog.Nop())
}

func mustJoin(t *testing.T, r *Room, c *Client) *Snapshot {
	t.Helper()
	reply := make(chan JoinReply, 1)
	if !r.Deliver(JoinSeat{Client: c, Reply: reply}) {
		t.Fatal("room already shut down")
	}
	rep := awaitReply(t, r, reply)
	if rep.Err != nil {
		t.Fatalf("join failed: %s", rep.Err.Message)
	}
	return rep.Snapshot
}

func mustMove(t *testing.T, r *Room, playerID string, x, y int) *Snapshot {
	t.Helper()
	rep := tryMove(t, r, playerID, x, y)
	if rep.Err != nil {
		t.Fatalf("move (%d,%d) failed: %s", x, y, rep.Err.Message)
	}
	return rep.Snapshot
}

func tryMove(t *testing.T, r *Room, playerID string, x, y int) MoveReply {
	t.Helper()
	reply := make(chan MoveReply, 1)
	if !r.Deliver(SubmitMove{PlayerID: playerID, X: x, Y: y, Reply: reply}) {
		t.Fatal("room already shut down")
	}
	return awaitReply(t, r, reply)
}

func roomSnapshot(t *testing.T, r *Room) *Snapshot {
	t.Helper()
	reply := make(chan *Snapshot, 1)
	if !r.Deliver(GetSnapshot{Reply: reply}) {
		t.Fatal("room already shut down")
	}
	return awaitReply(t, r, reply)
}

func awaitReply[T any](t *testing.T, r *Room, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-r.Done():
		t.Fatal("room shut down before replying")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for room reply")
	}
	var zero T
	return zero
}
