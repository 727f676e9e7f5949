// Package ws bridges websocket connections onto a session's transport.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/hub"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a connection and attaches it to the session named
// by the code query parameter. The client supplies its own peer id;
// that id is the player's identity for the whole session.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		peerID := r.URL.Query().Get("peer")
		if code == "" || peerID == "" {
			http.Error(w, "missing code or peer", http.StatusBadRequest)
			return
		}

		s, ok := h.Get(code)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		peer, err := s.Host.Attach(peerID)
		if err != nil {
			log.Warn("attach refused", zap.String("session", code),
				zap.String("peer", peerID), zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "peer id unavailable")
			return
		}
		defer s.Host.Detach(peerID)

		// Writer: drain the peer's outbox into the socket. The channel
		// closes when the host detaches the peer.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range peer.Frames() {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageText, frame)
				cancel()
				if err != nil {
					return
				}
			}
			conn.Close(websocket.StatusNormalClosure, "session closed")
		}()

		// Reader: every inbound frame goes to the executor; the
		// transport drops what it cannot decode.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
			s.Host.Deliver(peerID, data)
		}
	}
}
