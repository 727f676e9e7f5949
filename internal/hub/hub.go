// Package hub tracks every live session by its code.
package hub

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/bot"
	"github.com/dicetrain/server/internal/lobby"
	"github.com/dicetrain/server/internal/transport"
)

// codeRetries bounds how often Create retries a colliding code before
// giving up.
const codeRetries = 5

var ErrCodeSpaceExhausted = errors.New("hub: could not allocate a session code")

type Hub struct {
	log     *zap.Logger
	aiSpeed bot.Speed

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(aiSpeed bot.Speed, log *zap.Logger) *Hub {
	return &Hub{
		log:      log,
		aiSpeed:  aiSpeed,
		sessions: make(map[string]*Session),
	}
}

// Create allocates a fresh code and hosts a new session under it. A
// code collision is retried with a new code.
func (h *Hub) Create(cfg lobby.Config) (*Session, error) {
	for i := 0; i < codeRetries; i++ {
		code, err := transport.GenerateCode()
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		if _, taken := h.sessions[code]; taken {
			h.mu.Unlock()
			continue
		}
		// Reserve the code before the (slower) session construction.
		h.sessions[code] = nil
		h.mu.Unlock()

		s, err := newSession(code, cfg, h.aiSpeed, h.log)
		h.mu.Lock()
		if err != nil {
			delete(h.sessions, code)
			h.mu.Unlock()
			return nil, err
		}
		h.sessions[code] = s
		h.mu.Unlock()

		h.log.Info("session created", zap.String("session", code))
		return s, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// Get looks a session up by code.
func (h *Hub) Get(code string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[code]
	return s, ok && s != nil
}

// Remove closes a session and forgets its code.
func (h *Hub) Remove(code string, reason string) {
	h.mu.Lock()
	s := h.sessions[code]
	delete(h.sessions, code)
	h.mu.Unlock()
	if s != nil {
		s.Close(reason)
		h.log.Info("session removed", zap.String("session", code))
	}
}

// Shutdown closes every session.
func (h *Hub) Shutdown(reason string) {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	clear(h.sessions)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close(reason)
	}
}
