package hub

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/bot"
	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/lobby"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(bot.SpeedInstant, zap.NewNop())
	t.Cleanup(func() { h.Shutdown("test over") })
	return h
}

func TestCreateAndGetSamePointer(t *testing.T) {
	h := newTestHub(t)

	s1, err := h.Create(lobby.Config{Name: "Night Train", HostName: "Ada"})
	require.NoError(t, err)
	require.Regexp(t, `^DT-[A-HJ-NP-Z2-9]{6}$`, s1.Code)

	s2, ok := h.Get(s1.Code)
	require.True(t, ok)
	require.Same(t, s1, s2)
}

func TestGetUnknownCode(t *testing.T) {
	h := newTestHub(t)
	_, ok := h.Get("DT-XXXXXX")
	require.False(t, ok)
}

func TestRemoveForgetsSession(t *testing.T) {
	h := newTestHub(t)

	s, err := h.Create(lobby.Config{Name: "Night Train", HostName: "Ada"})
	require.NoError(t, err)

	h.Remove(s.Code, "host left")
	_, ok := h.Get(s.Code)
	require.False(t, ok)
}

func TestSessionsGetDistinctCodes(t *testing.T) {
	h := newTestHub(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		s, err := h.Create(lobby.Config{Name: "Night Train", HostName: "Ada"})
		require.NoError(t, err)
		require.False(t, seen[s.Code], "duplicate code %s", s.Code)
		seen[s.Code] = true
	}
}

func TestLobbyStartWiresGame(t *testing.T) {
	h := newTestHub(t)

	s, err := h.Create(lobby.Config{Name: "Night Train", HostName: "Ada", RoundCount: 1})
	require.NoError(t, err)

	_, err = s.Lobby.AddAI("Conductor Bot")
	require.NoError(t, err)
	require.NoError(t, s.Lobby.Start())

	// Start returns only after the executor ran the wiring callback.
	require.NotNil(t, s.Sync())

	snap := s.Sync().CurrentSnapshot()
	require.Equal(t, engine.StateDrafting, snap.GameState)
	require.Len(t, snap.Players, 2)
}
