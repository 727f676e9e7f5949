package transport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/protocol"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h := NewHost("DT-TEST22", zap.NewNop())
	t.Cleanup(h.Close)
	return h
}

func recvFrame(t *testing.T, p *Peer) []byte {
	t.Helper()
	select {
	case frame, ok := <-p.Frames():
		require.True(t, ok, "outbox closed")
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestGenerateCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, len("DT-")+codeLength)
		require.True(t, strings.HasPrefix(code, "DT-"))
		for _, r := range code[3:] {
			require.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 1, "codes should vary")
}

func TestAttachRejectsDuplicateID(t *testing.T) {
	h := newTestHost(t)

	_, err := h.Attach("p1")
	require.NoError(t, err)
	_, err = h.Attach("p1")
	require.ErrorIs(t, err, ErrPeerExists)
}

func TestSendToMissingPeer(t *testing.T) {
	h := newTestHost(t)
	require.False(t, h.Send("ghost", &protocol.Ping{}))
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	h := newTestHost(t)

	p1, err := h.Attach("p1")
	require.NoError(t, err)
	p2, err := h.Attach("p2")
	require.NoError(t, err)

	h.BroadcastExcept("p1", &protocol.PlayerLeft{ID: "p3"})

	frame := recvFrame(t, p2)
	msg, err := protocol.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, protocol.TypePlayerLeft, msg.Type())

	select {
	case frame := <-p1.Frames():
		t.Fatalf("excluded peer got frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowPeerIsDropped(t *testing.T) {
	h := newTestHost(t)

	_, err := h.Attach("slow")
	require.NoError(t, err)

	for i := 0; i < outboxSize; i++ {
		require.True(t, h.Send("slow", &protocol.Ping{}))
	}
	require.False(t, h.Send("slow", &protocol.Ping{}))
	require.False(t, h.IsAttached("slow"))
}

func TestDeliverDispatchesToHandler(t *testing.T) {
	h := newTestHost(t)

	got := make(chan string, 1)
	h.Handle(protocol.TypeJoinRequest, func(from string, msg protocol.Message) {
		req := msg.(*protocol.JoinRequest)
		got <- from + "/" + req.Name
	})

	frame, err := protocol.Encode(&protocol.JoinRequest{Name: "Ada"})
	require.NoError(t, err)
	h.Deliver("p1", frame)

	select {
	case v := <-got:
		require.Equal(t, "p1/Ada", v)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestInjectUsesSameHandlerPath(t *testing.T) {
	h := newTestHost(t)

	got := make(chan string, 1)
	h.Handle(protocol.TypeRoll, func(from string, msg protocol.Message) {
		got <- from
	})

	h.Inject("ai-1", &protocol.Roll{})

	select {
	case v := <-got:
		require.Equal(t, "ai-1", v)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestUndecodableFrameIsDropped(t *testing.T) {
	h := newTestHost(t)

	got := make(chan struct{}, 1)
	h.Handle(protocol.TypePing, func(string, protocol.Message) {
		got <- struct{}{}
	})

	h.Deliver("p1", []byte(`{"type":"warp_drive"}`))
	h.Deliver("p1", []byte(`not json`))

	frame, err := protocol.Encode(&protocol.Ping{})
	require.NoError(t, err)
	h.Deliver("p1", frame)

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("executor stalled on bad frames")
	}
}

func TestUndecodableFrameGetsErrorReply(t *testing.T) {
	h := newTestHost(t)

	p, err := h.Attach("p1")
	require.NoError(t, err)

	h.Deliver("p1", []byte(`not json`))

	msg, err := protocol.Decode(recvFrame(t, p))
	require.NoError(t, err)
	errMsg, ok := msg.(*protocol.Error)
	require.True(t, ok, "want error, got %s", msg.Type())
	require.Equal(t, "bad_message", errMsg.Code)
}

func TestDetachClosesOutboxAndEmitsEvent(t *testing.T) {
	h := newTestHost(t)

	events := make(chan PeerEvent, 4)
	h.OnPeerEvent(func(ev PeerEvent) { events <- ev })

	p, err := h.Attach("p1")
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, PeerEvent{Kind: PeerConnected, ID: "p1"}, ev)
	case <-time.After(time.Second):
		t.Fatal("no connect event")
	}

	h.Detach("p1")
	h.Detach("p1") // idempotent

	select {
	case ev := <-events:
		require.Equal(t, PeerEvent{Kind: PeerDisconnected, ID: "p1"}, ev)
	case <-time.After(time.Second):
		t.Fatal("no disconnect event")
	}

	_, ok := <-p.Frames()
	require.False(t, ok, "outbox should be closed")
	require.False(t, h.Send("p1", &protocol.Ping{}))
}

func TestDoRunsOnExecutor(t *testing.T) {
	h := newTestHost(t)

	done := make(chan int, 2)
	h.Do(func() { done <- 1 })
	h.Do(func() { done <- 2 })

	for want := 1; want <= 2; want++ {
		select {
		case v := <-done:
			require.Equal(t, want, v, "work must run in order")
		case <-time.After(time.Second):
			t.Fatal("work never ran")
		}
	}
}
