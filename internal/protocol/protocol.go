// Package protocol defines the closed set of messages exchanged
// between host and clients. Every message is an envelope
// {type, payload, timestamp} with a payload struct per type, so the
// dispatch table is checked at compile time instead of through
// stringly-typed field access.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type tags a message.
type Type string

const (
	// Lobby management.
	TypeJoinRequest  Type = "join_request"
	TypeJoinAccepted Type = "join_accepted"
	TypeJoinRejected Type = "join_rejected"
	TypePlayerJoined Type = "player_joined"
	TypePlayerLeft   Type = "player_left"
	TypeLobbyUpdate  Type = "lobby_update"
	TypeLobbyClosed  Type = "lobby_closed"

	// Game flow.
	TypeGameStart Type = "game_start"
	TypeGameState Type = "game_state"
	TypeGameEnd   Type = "game_end"

	// Player intents, client to host.
	TypeDraftSelect  Type = "action_draft_select"
	TypeDraftConfirm Type = "action_draft_confirm"
	TypeRoll         Type = "action_roll"
	TypeReroll       Type = "action_reroll"
	TypeContinue     Type = "action_continue"
	TypePurchaseCar  Type = "action_purchase_car"
	TypePurchaseCard Type = "action_purchase_card"
	TypePlayCard     Type = "action_play_card"
	TypeEndTurn      Type = "action_end_turn"

	// Utility.
	TypePing  Type = "ping"
	TypePong  Type = "pong"
	TypeError Type = "error"
)

// ErrUnknownType reports an envelope whose type tag is not in the
// catalog. Such messages are dropped at the transport boundary.
var ErrUnknownType = errors.New("protocol: unknown message type")

// Message is any payload in the catalog.
type Message interface {
	Type() Type
}

// Envelope is the wire frame. Payload stays raw until the type tag
// picks the concrete struct.
type Envelope struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Encode wraps a message in an envelope stamped with the current time
// and marshals it.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s payload: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{
		Type:      msg.Type(),
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Decode parses an envelope and its payload into the concrete message
// struct for the type tag.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: bad envelope: %w", err)
	}
	msg, err := emptyMessage(env.Type)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("protocol: bad %s payload: %w", env.Type, err)
		}
	}
	return msg, nil
}

// emptyMessage is the exhaustive tag-to-struct table.
func emptyMessage(t Type) (Message, error) {
	switch t {
	case TypeJoinRequest:
		return &JoinRequest{}, nil
	case TypeJoinAccepted:
		return &JoinAccepted{}, nil
	case TypeJoinRejected:
		return &JoinRejected{}, nil
	case TypePlayerJoined:
		return &PlayerJoined{}, nil
	case TypePlayerLeft:
		return &PlayerLeft{}, nil
	case TypeLobbyUpdate:
		return &LobbyUpdate{}, nil
	case TypeLobbyClosed:
		return &LobbyClosed{}, nil
	case TypeGameStart:
		return &GameStart{}, nil
	case TypeGameState:
		return &GameState{}, nil
	case TypeGameEnd:
		return &GameEnd{}, nil
	case TypeDraftSelect:
		return &DraftSelect{}, nil
	case TypeDraftConfirm:
		return &DraftConfirm{}, nil
	case TypeRoll:
		return &Roll{}, nil
	case TypeReroll:
		return &Reroll{}, nil
	case TypeContinue:
		return &Continue{}, nil
	case TypePurchaseCar:
		return &PurchaseCar{}, nil
	case TypePurchaseCard:
		return &PurchaseCard{}, nil
	case TypePlayCard:
		return &PlayCard{}, nil
	case TypeEndTurn:
		return &EndTurn{}, nil
	case TypePing:
		return &Ping{}, nil
	case TypePong:
		return &Pong{}, nil
	case TypeError:
		return &Error{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}
