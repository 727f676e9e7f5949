package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/hub"
	"github.com/dicetrain/server/internal/lobby"
	"github.com/dicetrain/server/internal/protocol"
)

// hostIDHeader carries the host seat id returned by CreateLobby. It is
// the credential for every host-only endpoint.
const hostIDHeader = "X-Host-ID"

type createLobbyRequest struct {
	Name       string `json:"name"`
	HostName   string `json:"host_name"`
	MaxPlayers int    `json:"max_players"`
	Password   string `json:"password"`
	RoundCount int    `json:"round_count"`
}

type createLobbyResponse struct {
	Code   string         `json:"code"`
	HostID string         `json:"host_id"`
	Lobby  protocol.Lobby `json:"lobby"`
}

// CreateLobby hosts a new session and returns its join code.
func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if req.HostName == "" {
			http.Error(w, "host_name is required", http.StatusBadRequest)
			return
		}

		s, err := h.Create(lobby.Config{
			Name:       req.Name,
			HostName:   req.HostName,
			MaxPlayers: req.MaxPlayers,
			Password:   req.Password,
			RoundCount: req.RoundCount,
		})
		if err != nil {
			log.Error("create session failed", zap.Error(err))
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createLobbyResponse{
			Code:   s.Code,
			HostID: s.Lobby.HostID(),
			Lobby:  s.Lobby.View(),
		})
	}
}

// GetLobby returns the roster for a session code, for join screens.
func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.Get(chi.URLParam(r, "code"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Lobby.View())
	}
}

// hostSession resolves the session for a host-only request. It writes
// the error response itself when the code is unknown or the caller does
// not present the host id.
func hostSession(h *hub.Hub, w http.ResponseWriter, r *http.Request) (*hub.Session, bool) {
	s, ok := h.Get(chi.URLParam(r, "code"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	if r.Header.Get(hostIDHeader) != s.Lobby.HostID() {
		http.Error(w, "host id required", http.StatusForbidden)
		return nil, false
	}
	return s, true
}

// lobbyError maps a lobby mutation error to an HTTP status.
func lobbyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lobby.ErrNoSuchSeat):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lobby.ErrHostSeat):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, lobby.ErrNotWaiting),
		errors.Is(err, lobby.ErrTooFewPlayers),
		errors.Is(err, lobby.ErrNotAI),
		errors.Is(err, lobby.ErrFull):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StartGame moves the lobby into play.
func StartGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := hostSession(h, w, r)
		if !ok {
			return
		}
		if err := s.Lobby.Start(); err != nil {
			lobbyError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Lobby.View())
	}
}

type addAIRequest struct {
	Name string `json:"name"`
}

type addAIResponse struct {
	ID    string         `json:"id"`
	Lobby protocol.Lobby `json:"lobby"`
}

// AddAI seats an AI player.
func AddAI(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := hostSession(h, w, r)
		if !ok {
			return
		}
		var req addAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = "Conductor Bot"
		}
		id, err := s.Lobby.AddAI(req.Name)
		if err != nil {
			lobbyError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(addAIResponse{ID: id, Lobby: s.Lobby.View()})
	}
}

// RemovePlayer unseats an AI or kicks a remote player.
func RemovePlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := hostSession(h, w, r)
		if !ok {
			return
		}
		if err := s.Lobby.Kick(chi.URLParam(r, "id")); err != nil {
			lobbyError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Lobby.View())
	}
}

type updateLobbyRequest struct {
	Name       string  `json:"name"`
	MaxPlayers int     `json:"max_players"`
	RoundCount int     `json:"round_count"`
	Password   *string `json:"password"`
}

// UpdateLobby edits lobby settings. An absent password field leaves the
// current password alone; an empty string removes it.
func UpdateLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := hostSession(h, w, r)
		if !ok {
			return
		}
		var req updateLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		err := s.Lobby.UpdateSettings(lobby.Settings{
			Name:       req.Name,
			MaxPlayers: req.MaxPlayers,
			RoundCount: req.RoundCount,
			Password:   req.Password,
		})
		if err != nil {
			lobbyError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Lobby.View())
	}
}

// CloseLobby tears the session down and frees its code.
func CloseLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := hostSession(h, w, r)
		if !ok {
			return
		}
		h.Remove(s.Code, "Lobby closed by host")
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
