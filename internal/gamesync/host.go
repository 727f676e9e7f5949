// Package gamesync replicates game state from the host to every peer.
// The host is the only writer: peers send intents, the host validates
// them against the engine and broadcasts a full snapshot after each
// one. Clients never merge; they replace their mirror wholesale.
package gamesync

import (
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

// actionTypes is every intent a seat may send during play.
var actionTypes = []protocol.Type{
	protocol.TypeDraftSelect,
	protocol.TypeDraftConfirm,
	protocol.TypeRoll,
	protocol.TypeReroll,
	protocol.TypeContinue,
	protocol.TypePurchaseCar,
	protocol.TypePurchaseCard,
	protocol.TypePlayCard,
	protocol.TypeEndTurn,
}

// HostSync owns the authoritative game on the host side. All state
// access runs on the transport executor.
type HostSync struct {
	host *transport.Host
	game *engine.Game
	log  *zap.Logger

	version int
	notify  chan struct{}
	onEnd   func(standings []engine.Standing)
}

// NewHost wires the game behind the transport's action handlers.
func NewHost(host *transport.Host, game *engine.Game, log *zap.Logger) *HostSync {
	s := &HostSync{
		host:   host,
		game:   game,
		log:    log.With(zap.String("session", host.Code())),
		notify: make(chan struct{}, 1),
	}
	for _, t := range actionTypes {
		host.Handle(t, s.handleAction)
	}
	return s
}

// OnEnd registers the callback invoked once when the game transitions
// to ended. It runs on the executor goroutine.
func (s *HostSync) OnEnd(fn func(standings []engine.Standing)) {
	s.host.Do(func() { s.onEnd = fn })
}

// Notify signals after every snapshot broadcast. The channel is
// buffered with one slot; a slow consumer coalesces signals instead of
// stalling the executor.
func (s *HostSync) Notify() <-chan struct{} { return s.notify }

// Begin publishes the initial snapshot. Call once, after the engine is
// initialized.
func (s *HostSync) Begin() {
	s.host.Do(func() { s.publish() })
}

// CurrentSnapshot reads a snapshot off the executor. Local seats (host
// player, AI) use this instead of the broadcast path.
func (s *HostSync) CurrentSnapshot() engine.Snapshot {
	reply := make(chan engine.Snapshot, 1)
	s.host.Do(func() { reply <- s.game.Snapshot() })
	return <-reply
}

// handleAction runs on the executor. Turn ownership is the only
// authorization: a message from any seat but the current player is
// dropped without a reply, so a spoofed or late intent cannot move the
// game or leak why it failed.
func (s *HostSync) handleAction(from string, msg protocol.Message) {
	cur := s.game.CurrentPlayer()
	if cur == nil || cur.ID != from {
		s.log.Debug("dropping out-of-turn action",
			zap.String("from", from), zap.String("type", string(msg.Type())))
		return
	}

	accepted := s.apply(msg)
	if !accepted {
		s.log.Debug("engine rejected action",
			zap.String("from", from), zap.String("type", string(msg.Type())))
	}

	// Broadcast even after a rejection: mirrors stay converged and the
	// sender's optimistic UI snaps back to the authoritative state.
	s.publish()

	if s.game.State() == engine.StateEnded {
		standings := s.game.Standings()
		s.host.Broadcast(&protocol.GameEnd{Standings: standings})
		s.log.Info("game ended", zap.Int("players", len(standings)))
		if s.onEnd != nil {
			s.onEnd(standings)
		}
	}
}

func (s *HostSync) apply(msg protocol.Message) bool {
	switch m := msg.(type) {
	case *protocol.DraftSelect:
		return s.game.ToggleDraftSelection(m.CardIndex)
	case *protocol.DraftConfirm:
		return s.game.ConfirmDraft()
	case *protocol.Roll:
		return s.game.RollDice() != nil
	case *protocol.Reroll:
		return s.game.RerollDie(m.DieIndex)
	case *protocol.Continue:
		switch m.ToPhase {
		case engine.PhaseStation:
			return s.game.AdvanceToStation() != nil
		case engine.PhaseShop:
			return s.game.AdvanceToShop()
		default:
			return false
		}
	case *protocol.PurchaseCar:
		return s.game.PurchaseCar(m.CarID)
	case *protocol.PurchaseCard:
		return s.game.PurchaseCard(m.CardIndex)
	case *protocol.PlayCard:
		return s.game.PlayCard(m.CardIndex)
	case *protocol.EndTurn:
		_, ok := s.game.EndTurn()
		return ok
	default:
		return false
	}
}

// publish broadcasts the full snapshot under the next version number
// and pokes the notify channel.
func (s *HostSync) publish() {
	s.version++
	s.host.Broadcast(&protocol.GameState{
		Version:  s.version,
		Snapshot: s.game.Snapshot(),
	})
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
