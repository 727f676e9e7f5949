package gamesync

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

// Mirror is a client's read-only copy of the host's game. Every
// snapshot replaces the previous one wholesale; there is no merging,
// so the mirror can never drift from the host in a way the next
// snapshot does not repair.
type Mirror struct {
	localID string
	log     *zap.Logger

	mu        sync.RWMutex
	version   int
	snap      engine.Snapshot
	standings []engine.Standing
	onUpdate  func()
}

// NewMirror subscribes to game state over the client connection.
func NewMirror(c *transport.Client, log *zap.Logger) *Mirror {
	m := &Mirror{localID: c.LocalID(), log: log}
	c.Handle(protocol.TypeGameState, m.handleState)
	c.Handle(protocol.TypeGameEnd, m.handleEnd)
	return m
}

// OnUpdate registers a callback invoked after each applied snapshot,
// on the connection's read goroutine.
func (m *Mirror) OnUpdate(fn func()) {
	m.mu.Lock()
	m.onUpdate = fn
	m.mu.Unlock()
}

func (m *Mirror) handleState(_ string, msg protocol.Message) {
	st := msg.(*protocol.GameState)

	m.mu.Lock()
	if st.Version <= m.version {
		// Stale or duplicate; the newer snapshot already won.
		m.mu.Unlock()
		return
	}
	m.version = st.Version
	m.snap = st.Snapshot
	fn := m.onUpdate
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (m *Mirror) handleEnd(_ string, msg protocol.Message) {
	end := msg.(*protocol.GameEnd)
	m.mu.Lock()
	m.standings = end.Standings
	fn := m.onUpdate
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Snapshot returns the latest replicated state.
func (m *Mirror) Snapshot() engine.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Version is the latest applied snapshot version, 0 before the first.
func (m *Mirror) Version() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// IsLocalTurn reports whether the mirrored state says it is this
// client's turn to act.
func (m *Mirror) IsLocalTurn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.CurrentID == m.localID &&
		(m.snap.GameState == engine.StateDrafting || m.snap.GameState == engine.StatePlaying)
}

// Standings returns the final ranking, nil until the game ends.
func (m *Mirror) Standings() []engine.Standing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.standings
}
