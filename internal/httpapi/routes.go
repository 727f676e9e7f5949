package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/hub"
	"github.com/dicetrain/server/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/lobbies", CreateLobby(h, log))
	r.Get("/lobbies/{code}", GetLobby(h))
	r.Patch("/lobbies/{code}", UpdateLobby(h))
	r.Delete("/lobbies/{code}", CloseLobby(h))
	r.Post("/lobbies/{code}/start", StartGame(h))
	r.Post("/lobbies/{code}/ai", AddAI(h))
	r.Delete("/lobbies/{code}/players/{id}", RemovePlayer(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}
