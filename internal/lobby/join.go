package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

// joinTimeout bounds how long a client waits for the host to answer a
// join request before giving up.
const joinTimeout = 10 * time.Second

var (
	// ErrJoinTimeout reports that the host never answered the join.
	ErrJoinTimeout = errors.New("lobby: join timed out")
	// ErrJoinRejected wraps the host's rejection reason.
	ErrJoinRejected = errors.New("lobby: join rejected")
)

// Join sends a join request over the client connection and waits for
// the host's verdict. On success the returned roster is the lobby as
// the host sees it.
func Join(ctx context.Context, c *transport.Client, name, password string) (protocol.Lobby, error) {
	verdict := make(chan protocol.Message, 1)
	deliver := func(_ string, msg protocol.Message) {
		select {
		case verdict <- msg:
		default:
		}
	}
	c.Handle(protocol.TypeJoinAccepted, deliver)
	c.Handle(protocol.TypeJoinRejected, deliver)

	if !c.SendHost(&protocol.JoinRequest{Name: name, Password: password}) {
		return protocol.Lobby{}, errors.New("lobby: connection lost before join")
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	select {
	case msg := <-verdict:
		switch m := msg.(type) {
		case *protocol.JoinAccepted:
			return m.Lobby, nil
		case *protocol.JoinRejected:
			return protocol.Lobby{}, fmt.Errorf("%w: %s", ErrJoinRejected, m.Reason)
		default:
			return protocol.Lobby{}, fmt.Errorf("lobby: unexpected reply %s", msg.Type())
		}
	case <-ctx.Done():
		return protocol.Lobby{}, ErrJoinTimeout
	}
}
