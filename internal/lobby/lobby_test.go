package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

func newTestLobby(t *testing.T, cfg Config) (*transport.Host, *Lobby) {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "Night Train"
	}
	if cfg.HostName == "" {
		cfg.HostName = "Ada"
	}
	h := transport.NewHost("DT-TEST22", zap.NewNop())
	t.Cleanup(h.Close)
	l, err := New(h, cfg, zap.NewNop())
	require.NoError(t, err)
	return h, l
}

// recvMsg drains one frame from a peer's outbox and decodes it.
func recvMsg(t *testing.T, p *transport.Peer) protocol.Message {
	t.Helper()
	select {
	case frame, ok := <-p.Frames():
		require.True(t, ok, "peer outbox closed")
		msg, err := protocol.Decode(frame)
		require.NoError(t, err)
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func join(t *testing.T, h *transport.Host, id, name, password string) *transport.Peer {
	t.Helper()
	p, err := h.Attach(id)
	require.NoError(t, err)
	h.Inject(id, &protocol.JoinRequest{Name: name, Password: password})
	return p
}

func TestJoinAcceptedSeatsPlayer(t *testing.T) {
	h, l := newTestLobby(t, Config{})

	p := join(t, h, "p1", "Brin", "")
	msg := recvMsg(t, p)
	acc, ok := msg.(*protocol.JoinAccepted)
	require.True(t, ok, "want join_accepted, got %s", msg.Type())

	require.Len(t, acc.Lobby.Players, 2)
	require.Equal(t, "Ada", acc.Lobby.Players[0].Name)
	require.True(t, acc.Lobby.Players[0].IsHost)
	require.Equal(t, "Brin", acc.Lobby.Players[1].Name)
	require.Equal(t, "p1", acc.Lobby.Players[1].ID)

	require.Len(t, l.View().Players, 2)
}

func TestJoinWrongPassword(t *testing.T) {
	h, l := newTestLobby(t, Config{Password: "choochoo"})

	p := join(t, h, "p1", "Brin", "wrong")
	msg := recvMsg(t, p)
	rej, ok := msg.(*protocol.JoinRejected)
	require.True(t, ok, "want join_rejected, got %s", msg.Type())
	require.Equal(t, "Incorrect password", rej.Reason)
	require.Len(t, l.View().Players, 1)

	// Correct password still works afterwards.
	h.Inject("p1", &protocol.JoinRequest{Name: "Brin", Password: "choochoo"})
	msg = recvMsg(t, p)
	require.IsType(t, &protocol.JoinAccepted{}, msg)
}

func TestJoinLobbyFull(t *testing.T) {
	h, _ := newTestLobby(t, Config{MaxPlayers: 2})

	p1 := join(t, h, "p1", "Brin", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p1))

	p2 := join(t, h, "p2", "Cole", "")
	msg := recvMsg(t, p2)
	rej, ok := msg.(*protocol.JoinRejected)
	require.True(t, ok, "want join_rejected, got %s", msg.Type())
	require.Equal(t, "Lobby is full", rej.Reason)
}

func TestJoinAfterStart(t *testing.T) {
	h, l := newTestLobby(t, Config{})

	_, err := l.AddAI("Conductor Bot")
	require.NoError(t, err)
	require.NoError(t, l.Start())

	p := join(t, h, "p1", "Brin", "")
	msg := recvMsg(t, p)
	rej, ok := msg.(*protocol.JoinRejected)
	require.True(t, ok, "want join_rejected, got %s", msg.Type())
	require.Equal(t, "Game already in progress", rej.Reason)
}

func TestAddAndRemoveAI(t *testing.T) {
	_, l := newTestLobby(t, Config{})

	id, err := l.AddAI("Conductor Bot")
	require.NoError(t, err)
	require.Regexp(t, `^ai-`, id)

	view := l.View()
	require.Len(t, view.Players, 2)
	require.True(t, view.Players[1].IsAI)

	require.ErrorIs(t, l.RemoveAI(l.HostID()), ErrNotAI)
	require.NoError(t, l.RemoveAI(id))
	require.ErrorIs(t, l.RemoveAI(id), ErrNoSuchSeat)
	require.Len(t, l.View().Players, 1)
}

func TestKick(t *testing.T) {
	h, l := newTestLobby(t, Config{})

	p := join(t, h, "p1", "Brin", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p))

	require.ErrorIs(t, l.Kick(l.HostID()), ErrHostSeat)
	require.NoError(t, l.Kick("p1"))

	msg := recvMsg(t, p)
	closed, ok := msg.(*protocol.LobbyClosed)
	require.True(t, ok, "want lobby_closed, got %s", msg.Type())
	require.Equal(t, "Kicked by host", closed.Reason)

	require.False(t, h.IsAttached("p1"))
	require.Len(t, l.View().Players, 1)
}

func TestDisconnectLeavesLobby(t *testing.T) {
	h, l := newTestLobby(t, Config{})

	p1 := join(t, h, "p1", "Brin", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p1))

	p2 := join(t, h, "p2", "Cole", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p2))
	// p1 sees p2 arrive.
	require.IsType(t, &protocol.PlayerJoined{}, recvMsg(t, p1))
	require.IsType(t, &protocol.LobbyUpdate{}, recvMsg(t, p1))

	h.Detach("p2")

	msg := recvMsg(t, p1)
	left, ok := msg.(*protocol.PlayerLeft)
	require.True(t, ok, "want player_left, got %s", msg.Type())
	require.Equal(t, "p2", left.ID)

	upd := recvMsg(t, p1).(*protocol.LobbyUpdate)
	require.Len(t, upd.Lobby.Players, 2)
	require.Len(t, l.View().Players, 2)
}

func TestStartRequiresTwoSeats(t *testing.T) {
	h, l := newTestLobby(t, Config{RoundCount: 5})

	require.ErrorIs(t, l.Start(), ErrTooFewPlayers)

	var got []engine.PlayerConfig
	var rounds int
	started := make(chan struct{})
	l.OnStart(func(configs []engine.PlayerConfig, r int) {
		got = configs
		rounds = r
		close(started)
	})

	p := join(t, h, "p1", "Brin", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p))

	aiID, err := l.AddAI("Conductor Bot")
	require.NoError(t, err)
	require.IsType(t, &protocol.LobbyUpdate{}, recvMsg(t, p))

	require.NoError(t, l.Start())
	<-started

	require.Equal(t, 5, rounds)
	require.Len(t, got, 3)
	require.Equal(t, l.HostID(), got[0].ID)
	require.True(t, got[0].IsLocal)
	require.Equal(t, "p1", got[1].ID)
	require.False(t, got[1].IsLocal)
	require.Equal(t, aiID, got[2].ID)
	require.True(t, got[2].IsLocal)
	require.True(t, got[2].IsAI)

	// Peer got the broadcast too.
	msg := recvMsg(t, p)
	start, ok := msg.(*protocol.GameStart)
	require.True(t, ok, "want game_start, got %s", msg.Type())
	require.Len(t, start.PlayerConfigs, 3)

	require.ErrorIs(t, l.Start(), ErrNotWaiting)
}

func TestUpdateSettingsClampsMaxPlayers(t *testing.T) {
	h, l := newTestLobby(t, Config{MaxPlayers: 4})

	p := join(t, h, "p1", "Brin", "")
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p))

	require.NoError(t, l.UpdateSettings(Settings{MaxPlayers: 1, RoundCount: 8}))

	view := l.View()
	require.Equal(t, 2, view.MaxPlayers, "cannot shrink below seated players")
	require.Equal(t, 8, view.RoundCount)
}

func TestUpdateSettingsPassword(t *testing.T) {
	h, l := newTestLobby(t, Config{})

	pw := "allaboard"
	require.NoError(t, l.UpdateSettings(Settings{Password: &pw}))
	require.True(t, l.View().HasPassword)

	p := join(t, h, "p1", "Brin", "nope")
	require.IsType(t, &protocol.JoinRejected{}, recvMsg(t, p))

	h.Inject("p1", &protocol.JoinRequest{Name: "Brin", Password: "allaboard"})
	require.IsType(t, &protocol.JoinAccepted{}, recvMsg(t, p))

	// A pointer to empty removes the password again.
	none := ""
	require.NoError(t, l.UpdateSettings(Settings{Password: &none}))
	require.False(t, l.View().HasPassword)
}
