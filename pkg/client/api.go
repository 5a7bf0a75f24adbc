package client

import (
	"context"
	"encoding/json"
)

// CreateRoom allocates a new room with this client seated black and
// returns the initial snapshot.
func (c *Client) CreateRoom(ctx context.Context, playerName string) (*RoomSnapshot, error) {
	return c.snapshotCall(ctx, "createRoom", map[string]any{"playerName": playerName})
}

// JoinRoom takes the white seat in a room, or resumes a reserved seat
// when this identity already belongs to the room.
func (c *Client) JoinRoom(ctx context.Context, roomID, playerName string) (*RoomSnapshot, error) {
	return c.snapshotCall(ctx, "joinRoom", map[string]any{"roomId": roomID, "playerName": playerName})
}

// Spectate joins a room with read-only access.
func (c *Client) Spectate(ctx context.Context, roomID, name string) (*RoomSnapshot, error) {
	return c.snapshotCall(ctx, "spectate", map[string]any{"roomId": roomID, "name": name})
}

// Move places a stone and returns the resulting snapshot.
func (c *Client) Move(ctx context.Context, roomID string, x, y int) (*RoomSnapshot, error) {
	return c.snapshotCall(ctx, "move", map[string]any{"roomId": roomID, "x": x, "y": y})
}

// Chat sends a message to a room and returns its sequence number.
func (c *Client) Chat(ctx context.Context, roomID, message string) (int64, error) {
	raw, err := c.Call(ctx, "chat", map[string]any{"roomId": roomID, "message": message}, c.opts.CallTimeout)
	if err != nil {
		return 0, err
	}
	var ack struct {
		Seq int64 `json:"seq"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return 0, err
	}
	return ack.Seq, nil
}

// LeaveRoom leaves a room. Seated players keep their seat reserved
// while the game is in progress.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	_, err := c.Call(ctx, "leaveRoom", map[string]any{"roomId": roomID}, c.opts.CallTimeout)
	return err
}

// RoomList fetches the current room listing.
func (c *Client) RoomList(ctx context.Context) (*RoomListData, error) {
	raw, err := c.Call(ctx, "getRoomList", struct{}{}, c.opts.CallTimeout)
	if err != nil {
		return nil, err
	}
	var list RoomListData
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// HistoryQuery filters a match-history read. Zero values are omitted;
// the server defaults limit to 20 and offset to 0. Dates are RFC 3339.
type HistoryQuery struct {
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
}

// History fetches one page of finished matches.
func (c *Client) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	raw, err := c.Call(ctx, "getHistory", q, c.opts.CallTimeout)
	if err != nil {
		return nil, err
	}
	var page HistoryPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) snapshotCall(ctx context.Context, event string, payload any) (*RoomSnapshot, error) {
	raw, err := c.Call(ctx, event, payload, c.opts.CallTimeout)
	if err != nil {
		return nil, err
	}
	var snap RoomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
