// Package lobby manages a session's roster before and during a game:
// joins, AI seats, kicks, settings, and the transition into play. All
// roster mutation runs on the host's executor goroutine, so handlers
// never see a half-updated roster.
package lobby

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

const (
	DefaultMaxPlayers = 4
	DefaultRounds     = 10
	MaxSeats          = 8
)

var (
	ErrNotWaiting    = errors.New("lobby: game already started")
	ErrTooFewPlayers = errors.New("lobby: need at least two players")
	ErrNoSuchSeat    = errors.New("lobby: no such seat")
	ErrNotAI         = errors.New("lobby: seat is not an AI")
	ErrHostSeat      = errors.New("lobby: cannot remove the host")
	ErrFull          = errors.New("lobby: lobby is full")
)

// Rejection reasons sent to joining clients. These are user-facing.
const (
	reasonBadPassword = "Incorrect password"
	reasonFull        = "Lobby is full"
	reasonStarted     = "Game already in progress"
)

// Config describes a new lobby. Zero values fall back to defaults.
type Config struct {
	Name       string
	HostName   string
	MaxPlayers int
	Password   string
	RoundCount int
}

type seat struct {
	id     string
	name   string
	isAI   bool
	isHost bool
}

// Lobby owns a session roster. The host player holds a local seat and
// never appears as a transport peer.
type Lobby struct {
	host *transport.Host
	log  *zap.Logger

	name         string
	maxPlayers   int
	roundCount   int
	passwordHash []byte
	hostID       string

	// Mutated only on the executor goroutine.
	seats   []seat
	status  protocol.LobbyStatus
	onStart func(configs []engine.PlayerConfig, rounds int)
}

// New builds a lobby over the host transport, seats the host player,
// and registers the join and ping handlers.
func New(host *transport.Host, cfg Config, log *zap.Logger) (*Lobby, error) {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = DefaultMaxPlayers
	}
	if cfg.MaxPlayers > MaxSeats {
		cfg.MaxPlayers = MaxSeats
	}
	if cfg.RoundCount <= 0 {
		cfg.RoundCount = DefaultRounds
	}

	var hash []byte
	if cfg.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	l := &Lobby{
		host:         host,
		log:          log.With(zap.String("session", host.Code())),
		name:         cfg.Name,
		maxPlayers:   cfg.MaxPlayers,
		roundCount:   cfg.RoundCount,
		passwordHash: hash,
		hostID:       uuid.NewString(),
		status:       protocol.LobbyWaiting,
	}
	l.seats = append(l.seats, seat{id: l.hostID, name: cfg.HostName, isHost: true})

	host.Handle(protocol.TypeJoinRequest, l.handleJoin)
	host.Handle(protocol.TypePing, func(from string, _ protocol.Message) {
		host.Send(from, &protocol.Pong{})
	})
	host.OnPeerEvent(l.handlePeerEvent)
	return l, nil
}

// OnStart registers the callback that wires up the game when the lobby
// starts. It runs on the executor goroutine.
func (l *Lobby) OnStart(fn func(configs []engine.PlayerConfig, rounds int)) {
	l.host.Do(func() { l.onStart = fn })
}

// HostID is the host player's seat id.
func (l *Lobby) HostID() string { return l.hostID }

// handleJoin runs on the executor. Checks run password, capacity, then
// status; the first failure wins and the client gets one rejection.
func (l *Lobby) handleJoin(from string, msg protocol.Message) {
	req := msg.(*protocol.JoinRequest)

	if len(l.passwordHash) > 0 {
		if bcrypt.CompareHashAndPassword(l.passwordHash, []byte(req.Password)) != nil {
			l.reject(from, reasonBadPassword)
			return
		}
	}
	if l.seatIndex(from) >= 0 {
		// Duplicate join from a seated peer; resend the roster.
		l.host.Send(from, &protocol.JoinAccepted{Lobby: l.view()})
		return
	}
	if len(l.seats) >= l.maxPlayers {
		l.reject(from, reasonFull)
		return
	}
	if l.status != protocol.LobbyWaiting {
		l.reject(from, reasonStarted)
		return
	}

	s := seat{id: from, name: req.Name}
	l.seats = append(l.seats, s)
	l.log.Info("player joined", zap.String("peer", from), zap.String("name", req.Name))

	l.host.Send(from, &protocol.JoinAccepted{Lobby: l.view()})
	l.host.BroadcastExcept(from, &protocol.PlayerJoined{Player: l.participant(s)})
	l.host.BroadcastExcept(from, &protocol.LobbyUpdate{Lobby: l.view()})
}

// handlePeerEvent treats a dropped connection as leaving the lobby.
func (l *Lobby) handlePeerEvent(ev transport.PeerEvent) {
	if ev.Kind != transport.PeerDisconnected {
		return
	}
	i := l.seatIndex(ev.ID)
	if i < 0 {
		return
	}
	l.log.Info("player left", zap.String("peer", ev.ID), zap.String("name", l.seats[i].name))
	l.seats = append(l.seats[:i], l.seats[i+1:]...)
	l.host.Broadcast(&protocol.PlayerLeft{ID: ev.ID})
	l.host.Broadcast(&protocol.LobbyUpdate{Lobby: l.view()})
}

// AddAI seats an AI player and returns its id.
func (l *Lobby) AddAI(name string) (string, error) {
	type result struct {
		id  string
		err error
	}
	reply := make(chan result, 1)
	l.host.Do(func() {
		if l.status != protocol.LobbyWaiting {
			reply <- result{err: ErrNotWaiting}
			return
		}
		if len(l.seats) >= l.maxPlayers {
			reply <- result{err: ErrFull}
			return
		}
		id := "ai-" + uuid.NewString()
		l.seats = append(l.seats, seat{id: id, name: name, isAI: true})
		l.host.Broadcast(&protocol.LobbyUpdate{Lobby: l.view()})
		reply <- result{id: id}
	})
	r := <-reply
	return r.id, r.err
}

// RemoveAI unseats an AI player.
func (l *Lobby) RemoveAI(id string) error {
	reply := make(chan error, 1)
	l.host.Do(func() {
		i := l.seatIndex(id)
		switch {
		case i < 0:
			reply <- ErrNoSuchSeat
		case !l.seats[i].isAI:
			reply <- ErrNotAI
		default:
			l.seats = append(l.seats[:i], l.seats[i+1:]...)
			l.host.Broadcast(&protocol.LobbyUpdate{Lobby: l.view()})
			reply <- nil
		}
	})
	return <-reply
}

// Kick removes a seat. The host seat cannot be kicked. A kicked remote
// peer is told why, then disconnected.
func (l *Lobby) Kick(id string) error {
	reply := make(chan error, 1)
	l.host.Do(func() {
		i := l.seatIndex(id)
		switch {
		case i < 0:
			reply <- ErrNoSuchSeat
			return
		case l.seats[i].isHost:
			reply <- ErrHostSeat
			return
		}
		wasAI := l.seats[i].isAI
		l.seats = append(l.seats[:i], l.seats[i+1:]...)
		if !wasAI {
			l.host.Send(id, &protocol.LobbyClosed{Reason: "Kicked by host"})
			l.host.Detach(id)
		}
		l.host.Broadcast(&protocol.PlayerLeft{ID: id})
		l.host.Broadcast(&protocol.LobbyUpdate{Lobby: l.view()})
		reply <- nil
	})
	return <-reply
}

// Settings are the host-editable lobby knobs. Nil Password leaves the
// current password alone; a pointer to "" removes it.
type Settings struct {
	Name       string
	MaxPlayers int
	RoundCount int
	Password   *string
}

// UpdateSettings applies new settings and broadcasts the roster. A
// MaxPlayers below the current seat count is raised to it; seated
// players are never evicted by a settings change.
func (l *Lobby) UpdateSettings(s Settings) error {
	var hash []byte
	if s.Password != nil && *s.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(*s.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
	}

	reply := make(chan error, 1)
	l.host.Do(func() {
		if l.status != protocol.LobbyWaiting {
			reply <- ErrNotWaiting
			return
		}
		if s.Password != nil {
			l.passwordHash = hash
		}
		if s.Name != "" {
			l.name = s.Name
		}
		if s.MaxPlayers > 0 {
			if s.MaxPlayers > MaxSeats {
				s.MaxPlayers = MaxSeats
			}
			if s.MaxPlayers < len(l.seats) {
				s.MaxPlayers = len(l.seats)
			}
			l.maxPlayers = s.MaxPlayers
		}
		if s.RoundCount > 0 {
			l.roundCount = s.RoundCount
		}
		l.host.Broadcast(&protocol.LobbyUpdate{Lobby: l.view()})
		reply <- nil
	})
	return <-reply
}

// Start moves the lobby into play: it broadcasts GameStart with the
// final player list in seat order, then hands off to the OnStart
// callback.
func (l *Lobby) Start() error {
	reply := make(chan error, 1)
	l.host.Do(func() {
		if l.status != protocol.LobbyWaiting {
			reply <- ErrNotWaiting
			return
		}
		if len(l.seats) < 2 {
			reply <- ErrTooFewPlayers
			return
		}
		l.status = protocol.LobbyStarting

		configs := make([]engine.PlayerConfig, len(l.seats))
		for i, s := range l.seats {
			configs[i] = engine.PlayerConfig{
				ID:      s.id,
				Name:    s.name,
				IsAI:    s.isAI,
				IsLocal: s.isHost || s.isAI,
			}
		}
		l.host.Broadcast(&protocol.GameStart{PlayerConfigs: configs, RoundCount: l.roundCount})
		l.status = protocol.LobbyPlaying
		l.log.Info("game starting", zap.Int("players", len(configs)), zap.Int("rounds", l.roundCount))
		if l.onStart != nil {
			l.onStart(configs, l.roundCount)
		}
		reply <- nil
	})
	return <-reply
}

// MarkEnded records that the game finished so the roster reports the
// right status.
func (l *Lobby) MarkEnded() {
	l.host.Do(func() { l.status = protocol.LobbyEnded })
}

// Close tells every remote peer the lobby is gone.
func (l *Lobby) Close(reason string) {
	done := make(chan struct{})
	l.host.Do(func() {
		l.host.Broadcast(&protocol.LobbyClosed{Reason: reason})
		close(done)
	})
	<-done
}

// View reads the roster snapshot off the executor.
func (l *Lobby) View() protocol.Lobby {
	reply := make(chan protocol.Lobby, 1)
	l.host.Do(func() { reply <- l.view() })
	return <-reply
}

func (l *Lobby) view() protocol.Lobby {
	players := make([]protocol.Participant, len(l.seats))
	for i, s := range l.seats {
		players[i] = l.participant(s)
	}
	return protocol.Lobby{
		Code:        l.host.Code(),
		Name:        l.name,
		HostName:    l.seats[0].name,
		MaxPlayers:  l.maxPlayers,
		HasPassword: len(l.passwordHash) > 0,
		RoundCount:  l.roundCount,
		Players:     players,
		Status:      l.status,
	}
}

func (l *Lobby) participant(s seat) protocol.Participant {
	return protocol.Participant{
		ID:      s.id,
		Name:    s.name,
		IsReady: s.isHost || s.isAI,
		IsAI:    s.isAI,
		IsHost:  s.isHost,
	}
}

func (l *Lobby) seatIndex(id string) int {
	for i, s := range l.seats {
		if s.id == id {
			return i
		}
	}
	return -1
}

func (l *Lobby) reject(to, reason string) {
	l.log.Info("join rejected", zap.String("peer", to), zap.String("reason", reason))
	l.host.Send(to, &protocol.JoinRejected{Reason: reason})
}
