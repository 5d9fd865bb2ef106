package request

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandKind is a client -> server channel operation.
type CommandKind string

const (
	CommandJoin     CommandKind = "join"
	CommandHold     CommandKind = "hold"
	CommandRelease  CommandKind = "release"
	CommandComplete CommandKind = "complete"
)

// Older clients still send these spellings.
var commandAliases = map[string]CommandKind{
	"join":           CommandJoin,
	"join_session":   CommandJoin,
	"joinSession":    CommandJoin,
	"hold":           CommandHold,
	"hold_seat":      CommandHold,
	"holdSeat":       CommandHold,
	"release":        CommandRelease,
	"release_seat":   CommandRelease,
	"releaseSeat":    CommandRelease,
	"complete":       CommandComplete,
	"complete_seats": CommandComplete,
	"completeSeats":  CommandComplete,
}

var (
	ErrMalformedMessage = errors.New("invalid message format")
	ErrMissingEvent     = errors.New("missing event type")
)

// ChannelCommand is a decoded channel message. SessionID may be empty when
// the channel has already joined a session.
type ChannelCommand struct {
	Kind      CommandKind
	SessionID string
	SeatID    string
	SeatIDs   []string
}

type commandFields struct {
	SessionID string   `json:"sessionId"`
	SeatID    string   `json:"seatId"`
	SeatIDs   []string `json:"seatIds"`
}

type channelMessage struct {
	Event string          `json:"event"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	commandFields
}

// DecodeChannelMessage parses {event, data} or the legacy flat form where the
// fields sit next to event.
func DecodeChannelMessage(raw []byte) (*ChannelCommand, error) {
	var msg channelMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, ErrMalformedMessage
	}

	name := msg.Event
	if name == "" {
		name = msg.Type
	}
	kind, ok := commandAliases[name]
	if !ok {
		if name == "" {
			return nil, ErrMissingEvent
		}
		return nil, fmt.Errorf("unknown event: %s", name)
	}

	fields := msg.commandFields
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		var data commandFields
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, ErrMalformedMessage
		}
		fields = mergeFields(data, fields)
	}

	return &ChannelCommand{
		Kind:      kind,
		SessionID: fields.SessionID,
		SeatID:    fields.SeatID,
		SeatIDs:   fields.SeatIDs,
	}, nil
}

// mergeFields prefers values from data and falls back to the top level.
func mergeFields(data, top commandFields) commandFields {
	if data.SessionID == "" {
		data.SessionID = top.SessionID
	}
	if data.SeatID == "" {
		data.SeatID = top.SeatID
	}
	if len(data.SeatIDs) == 0 {
		data.SeatIDs = top.SeatIDs
	}
	return data
}
