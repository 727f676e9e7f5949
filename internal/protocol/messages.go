package protocol

import "github.com/dicetrain/server/internal/engine"

// LobbyStatus is the life-cycle state of a lobby.
type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "waiting"
	LobbyStarting LobbyStatus = "starting"
	LobbyPlaying  LobbyStatus = "playing"
	LobbyEnded    LobbyStatus = "ended"
)

// Participant is one seat in a lobby roster.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsReady bool   `json:"is_ready"`
	IsAI    bool   `json:"is_ai"`
	IsHost  bool   `json:"is_host"`
}

// Lobby is the full roster/settings snapshot broadcast on every
// change. Passwords travel only as the HasPassword flag.
type Lobby struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	HostName    string        `json:"host_name"`
	MaxPlayers  int           `json:"max_players"`
	HasPassword bool          `json:"has_password"`
	RoundCount  int           `json:"round_count"`
	Players     []Participant `json:"players"`
	Status      LobbyStatus   `json:"status"`
}

// Lobby management messages.

type JoinRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

type JoinAccepted struct {
	Lobby Lobby `json:"lobby"`
}

type JoinRejected struct {
	Reason string `json:"reason"`
}

type PlayerJoined struct {
	Player Participant `json:"player"`
}

type PlayerLeft struct {
	ID string `json:"id"`
}

type LobbyUpdate struct {
	Lobby Lobby `json:"lobby"`
}

type LobbyClosed struct {
	Reason string `json:"reason,omitempty"`
}

// Game flow messages.

type GameStart struct {
	PlayerConfigs []engine.PlayerConfig `json:"player_configs"`
	RoundCount    int                   `json:"round_count"`
}

type GameState struct {
	Version  int             `json:"version"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

type GameEnd struct {
	Standings []engine.Standing `json:"standings"`
}

// Player intents.

type DraftSelect struct {
	CardIndex int `json:"card_index"`
}

type DraftConfirm struct{}

type Roll struct{}

type Reroll struct {
	DieIndex int `json:"die_index"`
}

// Continue asks to advance to the named phase: "station" or "shop".
type Continue struct {
	ToPhase engine.Phase `json:"to_phase"`
}

type PurchaseCar struct {
	CarID string `json:"car_id"`
}

type PurchaseCard struct {
	CardIndex int `json:"card_index"`
}

type PlayCard struct {
	CardIndex int `json:"card_index"`
}

type EndTurn struct{}

// Utility messages.

type Ping struct{}

type Pong struct{}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (*JoinRequest) Type() Type  { return TypeJoinRequest }
func (*JoinAccepted) Type() Type { return TypeJoinAccepted }
func (*JoinRejected) Type() Type { return TypeJoinRejected }
func (*PlayerJoined) Type() Type { return TypePlayerJoined }
func (*PlayerLeft) Type() Type   { return TypePlayerLeft }
func (*LobbyUpdate) Type() Type  { return TypeLobbyUpdate }
func (*LobbyClosed) Type() Type  { return TypeLobbyClosed }
func (*GameStart) Type() Type    { return TypeGameStart }
func (*GameState) Type() Type    { return TypeGameState }
func (*GameEnd) Type() Type      { return TypeGameEnd }
func (*DraftSelect) Type() Type  { return TypeDraftSelect }
func (*DraftConfirm) Type() Type { return TypeDraftConfirm }
func (*Roll) Type() Type         { return TypeRoll }
func (*Reroll) Type() Type       { return TypeReroll }
func (*Continue) Type() Type     { return TypeContinue }
func (*PurchaseCar) Type() Type  { return TypePurchaseCar }
func (*PurchaseCard) Type() Type { return TypePurchaseCard }
func (*PlayCard) Type() Type     { return TypePlayCard }
func (*EndTurn) Type() Type      { return TypeEndTurn }
func (*Ping) Type() Type         { return TypePing }
func (*Pong) Type() Type         { return TypePong }
func (*Error) Type() Type        { return TypeError }
