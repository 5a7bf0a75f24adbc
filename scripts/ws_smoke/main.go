// Command ws_smoke exercises a running arena server end to end: two
// clients connect, play a few stones and exchange a chat line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vovakirdan/gomoku-arena/pkg/client"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	black := client.New(client.Options{URL: *addr, Name: "smoke-black"})
	white := client.New(client.Options{URL: *addr, Name: "smoke-white"})

	chatSeen := make(chan struct{}, 1)
	black.Subscribe(client.EventChat, func(data json.RawMessage) {
		var ev client.ChatEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			fmt.Printf("chat seq=%d from=%s text=%q\n", ev.Seq, ev.From, ev.Text)
		}
		select {
		case chatSeen <- struct{}{}:
		default:
		}
	})

	if err := black.Connect(ctx); err != nil {
		return fmt.Errorf("connect black: %w", err)
	}
	defer black.Disconnect()
	if err := white.Connect(ctx); err != nil {
		return fmt.Errorf("connect white: %w", err)
	}
	defer white.Disconnect()

	snap, err := black.CreateRoom(ctx, "smoke-black")
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	fmt.Printf("room %s created, status=%s\n", snap.RoomID, snap.Status)

	joined, err := white.JoinRoom(ctx, snap.RoomID, "smoke-white")
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	fmt.Printf("joined, status=%s turn=%s\n", joined.Status, joined.Turn)

	moves := [][2]int{{7, 7}, {8, 8}, {7, 8}}
	players := []*client.Client{black, white, black}
	for i, mv := range moves {
		state, err := players[i].Move(ctx, snap.RoomID, mv[0], mv[1])
		if err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
		fmt.Printf("move %d accepted, version=%d turn=%s\n", i+1, state.Version, state.Turn)
	}

	seq, err := white.Chat(ctx, snap.RoomID, "hello from smoke test")
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Printf("chat accepted, seq=%d\n", seq)

	select {
	case <-chatSeen:
	case <-ctx.Done():
		return fmt.Errorf("chat event never arrived: %w", ctx.Err())
	}

	list, err := black.RoomList(ctx)
	if err != nil {
		return fmt.Errorf("room list: %w", err)
	}
	fmt.Printf("rooms open: %d\n", len(list.Rooms))
	return nil
}
