package hub

import (
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/bot"
	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/gamesync"
	"github.com/dicetrain/server/internal/lobby"
	"github.com/dicetrain/server/internal/transport"
)

// Session is one hosted game: the transport, the lobby roster and,
// once the lobby starts, the authoritative engine with its sync and AI
// runner.
type Session struct {
	Code  string
	Host  *transport.Host
	Lobby *lobby.Lobby

	log     *zap.Logger
	aiSpeed bot.Speed

	// Set on the executor goroutine when the lobby starts.
	game   *engine.Game
	sync   *gamesync.HostSync
	runner *bot.Runner
}

func newSession(code string, cfg lobby.Config, aiSpeed bot.Speed, log *zap.Logger) (*Session, error) {
	host := transport.NewHost(code, log)
	lb, err := lobby.New(host, cfg, log)
	if err != nil {
		host.Close()
		return nil, err
	}

	s := &Session{
		Code:    code,
		Host:    host,
		Lobby:   lb,
		log:     log.With(zap.String("session", code)),
		aiSpeed: aiSpeed,
	}
	lb.OnStart(s.startGame)
	return s, nil
}

// startGame runs on the executor when the lobby starts: it builds the
// engine, puts the sync layer behind the action handlers, publishes the
// first snapshot and spins up the AI runner.
func (s *Session) startGame(configs []engine.PlayerConfig, rounds int) {
	s.game = engine.New()
	if !s.game.Initialize(configs, rounds) {
		s.log.Error("engine refused initialization", zap.Int("players", len(configs)))
		return
	}

	s.sync = gamesync.NewHost(s.Host, s.game, s.log)
	s.sync.OnEnd(func(standings []engine.Standing) {
		s.Lobby.MarkEnded()
		if s.runner != nil {
			s.runner.Stop()
		}
	})
	s.runner = bot.NewRunner(s.Host, s.sync, configs, s.aiSpeed, s.log)
	s.sync.Begin()
}

// Sync is nil until the game starts.
func (s *Session) Sync() *gamesync.HostSync { return s.sync }

// Close tears the whole session down.
func (s *Session) Close(reason string) {
	if s.runner != nil {
		s.runner.Stop()
	}
	s.Lobby.Close(reason)
	s.Host.Close()
}
