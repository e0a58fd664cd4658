package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

// Message type identifiers shared by both directions.
const (
	TypePing     = "ping"
	TypePong     = "pong"
	TypeInit     = "init"
	TypeUpdate   = "update"
	TypeRecovery = "recovery"
)

// ServerID is the clientId carried by server-originated messages and diffs.
const ServerID = record.SenderServer

var (
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedPayload = errors.New("malformed message payload")
)

// ClientMessage is sent by a client: ping{clock}, update{clock, diffs} or
// recovery{clock}. Clock is the last server clock the client observed.
type ClientMessage struct {
	Type     string        `json:"type"`
	ClientID string        `json:"clientId"`
	Clock    int64         `json:"clock"`
	Diffs    []record.Diff `json:"diffs,omitempty"`
}

// ClientUpdate groups the diffs merged on behalf of one sender.
type ClientUpdate struct {
	ClientID string        `json:"clientId"`
	Diffs    []record.Diff `json:"diffs"`
}

// ServerMessage is sent by the room: pong{clock}, init{clock, snapshot},
// recovery{clock, snapshot} or update{clock, updates}.
type ServerMessage struct {
	Type     string         `json:"type"`
	ClientID string         `json:"clientId"`
	Clock    int64          `json:"clock"`
	Snapshot store.Snapshot `json:"snapshot,omitempty"`
	Updates  []ClientUpdate `json:"updates,omitempty"`
}

func Ping(clientID string, clock int64) ClientMessage {
	return ClientMessage{Type: TypePing, ClientID: clientID, Clock: clock}
}

func Update(clientID string, clock int64, diffs []record.Diff) ClientMessage {
	return ClientMessage{Type: TypeUpdate, ClientID: clientID, Clock: clock, Diffs: diffs}
}

func RecoveryRequest(clientID string, clock int64) ClientMessage {
	return ClientMessage{Type: TypeRecovery, ClientID: clientID, Clock: clock}
}

func Pong(clock int64) ServerMessage {
	return ServerMessage{Type: TypePong, ClientID: ServerID, Clock: clock}
}

func Init(clock int64, snap store.Snapshot) ServerMessage {
	return ServerMessage{Type: TypeInit, ClientID: ServerID, Clock: clock, Snapshot: snap}
}

func Recovery(clock int64, snap store.Snapshot) ServerMessage {
	return ServerMessage{Type: TypeRecovery, ClientID: ServerID, Clock: clock, Snapshot: snap}
}

func Broadcast(clock int64, updates []ClientUpdate) ServerMessage {
	return ServerMessage{Type: TypeUpdate, ClientID: ServerID, Clock: clock, Updates: updates}
}

// PeekClient reads only the envelope of a client message.
func PeekClient(data []byte) (ClientMessage, error) {
	var head struct {
		Type     string `json:"type"`
		ClientID string `json:"clientId"`
		Clock    int64  `json:"clock"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	return ClientMessage{Type: head.Type, ClientID: head.ClientID, Clock: head.Clock}, nil
}

// DecodeClient parses a client message and rejects unknown types. Like
// DecodeServer it keeps the envelope when only the payload is malformed.
func DecodeClient(data []byte) (ClientMessage, error) {
	head, err := PeekClient(data)
	if err != nil {
		return ClientMessage{}, err
	}
	switch head.Type {
	case TypePing, TypeUpdate, TypeRecovery:
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return head, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return msg, nil
}

// DecodeServer parses a server message and rejects unknown types. When the
// envelope is readable but its payload is not, the envelope is returned with
// an error wrapping ErrMalformedPayload so the caller can still tell which
// message failed.
func DecodeServer(data []byte) (ServerMessage, error) {
	var head struct {
		Type     string `json:"type"`
		ClientID string `json:"clientId"`
		Clock    int64  `json:"clock"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	switch head.Type {
	case TypePong, TypeInit, TypeRecovery, TypeUpdate:
	default:
		return ServerMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		envelope := ServerMessage{Type: head.Type, ClientID: head.ClientID, Clock: head.Clock}
		return envelope, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return msg, nil
}
