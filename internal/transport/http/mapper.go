package http

import (
	"time"

	"github.com/vovakirdan/gomoku-arena/internal/core"
	"github.com/vovakirdan/gomoku-arena/internal/history"
	"github.com/vovakirdan/gomoku-arena/internal/proto"
)

func snapshotToProto(snap *core.Snapshot) *proto.RoomSnapshot {
	if snap == nil {
		return nil
	}
	out := &proto.RoomSnapshot{
		RoomID:     snap.RoomID,
		Version:    snap.Version,
		Status:     string(snap.Status),
		BoardSize:  snap.BoardSize,
		Turn:       string(snap.Turn),
		Winner:     string(snap.Winner),
		CreatedAt:  snap.CreatedAt,
		FinishedAt: snap.FinishedAt,
		Moves:      make([]proto.Move, 0, len(snap.Moves)),
	}
	if snap.Black != nil {
		out.Black = &proto.SeatInfo{PlayerID: snap.Black.PlayerID, Name: snap.Black.Name, Connected: snap.Black.Connected}
	}
	if snap.White != nil {
		out.White = &proto.SeatInfo{PlayerID: snap.White.PlayerID, Name: snap.White.Name, Connected: snap.White.Connected}
	}
	for _, s := range snap.Spectators {
		out.Spectators = append(out.Spectators, proto.SeatInfo{PlayerID: s.PlayerID, Name: s.Name, Connected: s.Connected})
	}
	for _, m := range snap.Moves {
		out.Moves = append(out.Moves, proto.Move{Seat: string(m.Seat), X: m.X, Y: m.Y, Seq: m.Seq})
	}
	return out
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventGameState:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventGameState,
			Data:  snapshotToProto(event.Snapshot),
		}
	case core.EventChat:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChat,
			Data: proto.ChatEvent{
				RoomID: event.Chat.Room,
				Seq:    event.Chat.Seq,
				From:   event.Chat.From,
				Text:   event.Chat.Text,
				TS:     event.Chat.CreatedAt.UnixMilli(),
			},
		}
	case core.EventPlayerJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPlayerJoined,
			Data: proto.PresenceEvent{
				RoomID:   event.Room,
				PlayerID: event.Presence.PlayerID,
				Name:     event.Presence.Name,
				Role:     event.Presence.Role,
			},
		}
	case core.EventPlayerLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPlayerLeft,
			Data: proto.PresenceEvent{
				RoomID:   event.Room,
				PlayerID: event.Presence.PlayerID,
				Name:     event.Presence.Name,
				Role:     event.Presence.Role,
			},
		}
	case core.EventGameFinished:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventGameFinished,
			Data: proto.GameFinishedEvent{
				RoomID:     event.Result.RoomID,
				Winner:     string(event.Result.Winner),
				Moves:      event.Result.Moves,
				DurationMs: event.Result.DurationMs,
			},
		}
	case core.EventRoomList:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomList,
			Data:  roomListToProto(event.Rooms),
		}
	case core.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "internal", Msg: "unknown event kind"},
		}
	}
}

func roomListToProto(rooms []core.RoomInfo) proto.RoomListData {
	out := proto.RoomListData{Rooms: make([]proto.RoomListEntry, 0, len(rooms))}
	for _, r := range rooms {
		out.Rooms = append(out.Rooms, proto.RoomListEntry{
			RoomID:     r.RoomID,
			Status:     string(r.Status),
			Black:      r.Black,
			White:      r.White,
			Spectators: r.Spectators,
		})
	}
	return out
}

func recordToProto(rec history.Record) proto.HistoryRecord {
	return proto.HistoryRecord{
		RoomID:     rec.RoomID,
		BlackID:    rec.BlackID,
		BlackName:  rec.BlackName,
		WhiteID:    rec.WhiteID,
		WhiteName:  rec.WhiteName,
		Winner:     rec.Winner,
		Moves:      rec.Moves,
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
		FinishedAt: rec.FinishedAt.UTC().Format(time.RFC3339),
		DurationMs: rec.Duration.Milliseconds(),
	}
}

func historyOptions(data proto.HistoryData) (history.QueryOptions, error) {
	opts := history.QueryOptions{
		Limit:      data.Limit,
		Offset:     data.Offset,
		PlayerName: data.PlayerName,
	}
	if data.StartDate != "" {
		t, err := time.Parse(time.RFC3339, data.StartDate)
		if err != nil {
			return opts, err
		}
		opts.Start = &t
	}
	if data.EndDate != "" {
		t, err := time.Parse(time.RFC3339, data.EndDate)
		if err != nil {
			return opts, err
		}
		opts.End = &t
	}
	return opts, nil
}
