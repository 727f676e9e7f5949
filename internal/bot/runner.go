package bot

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/engine"
	"github.com/dicetrain/server/internal/gamesync"
	"github.com/dicetrain/server/internal/protocol"
	"github.com/dicetrain/server/internal/transport"
)

const (
	// rerollThreshold: reroll dice below this fraction of their max face.
	rerollThreshold = 0.4
	// purchaseFloor: skip purchases scoring below this.
	purchaseFloor = 25.0
	// maxPurchases bounds shopping per turn.
	maxPurchases = 3
	// repollInterval re-reads the game even without a notify signal, in
	// case a signal was coalesced away while the runner slept.
	repollInterval = 2 * time.Second
)

// Runner watches the game and injects one intent per wake-up whenever
// an AI seat holds the turn. Each accepted intent triggers a broadcast,
// which triggers the next wake-up, so a full AI turn unfolds one step
// at a time.
type Runner struct {
	host  *transport.Host
	sync  *gamesync.HostSync
	log   *zap.Logger
	speed Speed
	rng   *rand.Rand
	aiIDs map[string]bool

	// Per-turn shopping budget; reset when the turn changes.
	turnKey   string
	purchases int

	done chan struct{}
	once sync.Once
}

// Option configures a Runner.
type Option func(*Runner)

// WithRand fixes the decision noise source, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) { r.rng = rng }
}

// NewRunner builds a runner for the AI seats in configs and starts its
// loop.
func NewRunner(host *transport.Host, sync *gamesync.HostSync, configs []engine.PlayerConfig, speed Speed, log *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		host:  host,
		sync:  sync,
		log:   log.With(zap.String("session", host.Code())),
		speed: speed,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		aiIDs: make(map[string]bool),
		done:  make(chan struct{}),
	}
	for _, c := range configs {
		if c.IsAI {
			r.aiIDs[c.ID] = true
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

// Stop halts the runner. Idempotent.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *Runner) loop() {
	if len(r.aiIDs) == 0 {
		return
	}
	for {
		select {
		case <-r.done:
			return
		case <-r.sync.Notify():
		case <-time.After(repollInterval):
		}

		snap := r.sync.CurrentSnapshot()
		if snap.GameState == engine.StateEnded {
			return
		}
		if !r.aiIDs[snap.CurrentID] {
			continue
		}

		msg := r.decide(snap)
		if msg == nil {
			continue
		}
		if d := r.speed.Delay(); d > 0 {
			select {
			case <-time.After(d):
			case <-r.done:
				return
			}
		}
		r.log.Debug("ai action",
			zap.String("seat", snap.CurrentID), zap.String("type", string(msg.Type())))
		r.host.Inject(snap.CurrentID, msg)
	}
}

// decide picks the AI's next intent from the snapshot, nil when there
// is nothing to do.
func (r *Runner) decide(snap engine.Snapshot) protocol.Message {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Players) {
		return nil
	}
	p := snap.Players[snap.CurrentIndex]

	switch snap.GameState {
	case engine.StateDrafting:
		if len(snap.DraftSelection) < engine.DraftPickCount {
			if i := r.pickDraftIndex(snap, p); i >= 0 {
				return &protocol.DraftSelect{CardIndex: i}
			}
		}
		return &protocol.DraftConfirm{}

	case engine.StatePlaying:
		switch snap.Phase {
		case engine.PhaseRoll:
			if !p.HasRolled {
				return &protocol.Roll{}
			}
			if i := r.dieToReroll(p); i >= 0 {
				return &protocol.Reroll{DieIndex: i}
			}
			return &protocol.Continue{ToPhase: engine.PhaseStation}
		case engine.PhaseStation:
			return &protocol.Continue{ToPhase: engine.PhaseShop}
		case engine.PhaseShop:
			return r.shopAction(snap, p)
		}
	}
	return nil
}

// pickDraftIndex chooses the best unselected offer card.
func (r *Runner) pickDraftIndex(snap engine.Snapshot, p engine.Player) int {
	selected := make(map[int]bool, len(snap.DraftSelection))
	for _, i := range snap.DraftSelection {
		selected[i] = true
	}
	best, bestScore := -1, -1.0
	for i, card := range snap.DraftOffer {
		if selected[i] {
			continue
		}
		if s := r.scoreCard(card, p, snap); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// dieToReroll returns the worst die worth rerolling, -1 when the roll
// is good enough or no reroll resource remains.
func (r *Runner) dieToReroll(p engine.Player) int {
	if p.FreeRerolls <= 0 && p.Fuel <= 0 {
		return -1
	}
	worst, worstScore := -1, 101.0
	for i, res := range p.LastRoll {
		max := float64(res.Die)
		if max <= 0 {
			continue
		}
		score := float64(res.Final) / max * 100
		// A little noise so the AI is not perfectly predictable.
		threshold := max * rerollThreshold * (1 + r.rng.Float64()*0.15)
		if float64(res.Final) <= threshold && score < worstScore {
			worst, worstScore = i, score
		}
	}
	return worst
}

// shopAction plays ripe hand cards, then shops within the per-turn
// budget, then ends the turn.
func (r *Runner) shopAction(snap engine.Snapshot, p engine.Player) protocol.Message {
	key := fmt.Sprintf("%d:%s", snap.CurrentRound, snap.CurrentID)
	if key != r.turnKey {
		r.turnKey = key
		r.purchases = 0
	}

	for i, card := range p.Hand {
		if r.shouldPlayCard(card, snap) {
			return &protocol.PlayCard{CardIndex: i}
		}
	}

	if r.purchases < maxPurchases {
		if msg := r.bestPurchase(snap, p); msg != nil {
			r.purchases++
			return msg
		}
	}
	return &protocol.EndTurn{}
}

func (r *Runner) shouldPlayCard(card engine.Card, snap engine.Snapshot) bool {
	switch card.Effect.Type {
	case engine.EffectDistanceBonus:
		// Distance is worth most once the finish line is near.
		return float64(snap.CurrentRound) >= float64(snap.TotalRounds)*0.7
	case engine.EffectDoubleGold:
		return r.rng.Float64() > 0.3
	default:
		return false
	}
}

// bestPurchase scores every affordable car and card and buys the best
// one above the floor.
func (r *Runner) bestPurchase(snap engine.Snapshot, p engine.Player) protocol.Message {
	var best protocol.Message
	bestScore := purchaseFloor

	for _, car := range snap.ShopCars {
		if p.Gold < car.Cost || p.TotalDistance < car.UnlockDistance {
			continue
		}
		if s := r.scoreCar(car, p, snap); s >= bestScore {
			best, bestScore = &protocol.PurchaseCar{CarID: car.ID}, s
		}
	}
	for i, card := range snap.ShopCards {
		if p.Gold < card.Cost {
			continue
		}
		if s := r.scoreCard(card, p, snap); s >= bestScore {
			best, bestScore = &protocol.PurchaseCard{CardIndex: i}, s
		}
	}
	return best
}

func (r *Runner) scoreCar(car engine.Car, p engine.Player, snap engine.Snapshot) float64 {
	score := float64(car.Die) * 2.5
	score += float64(car.StationGold) * 6
	score += float64(car.FuelPerStation) * 10

	switch car.Special {
	case engine.SpecialPerCarGold:
		score += 18
	case engine.SpecialLowestBonus:
		score += 15
	case engine.SpecialFreeReroll:
		score += 12
	case engine.SpecialSynergy:
		score += 10
	case engine.SpecialSelfBonus:
		score += float64(car.SelfBonus) * 5
	}

	score -= float64(car.Cost) * 1.5

	if p.Gold < 10 {
		score *= 0.7
	} else if p.Gold > 25 {
		score *= 1.2
	}

	progress := progress(snap)
	if progress < 0.3 && (car.StationGold > 0 || car.Special == engine.SpecialPerCarGold) {
		score *= 1.3
	} else if progress > 0.7 {
		score += float64(car.Die) * 1.5
	}

	return clamp(score)
}

func (r *Runner) scoreCard(card engine.Card, p engine.Player, snap engine.Snapshot) float64 {
	var score float64
	if card.Persistent {
		score = 25
	} else {
		score = 10
	}

	eff := card.Effect
	switch eff.Type {
	case engine.EffectReroll:
		score += float64(max(eff.Count, 1)) * 15
	case engine.EffectStationBonus:
		remaining := float64(snap.TotalRounds - snap.CurrentRound)
		score += float64(eff.Bonus) * remaining * 0.8
	case engine.EffectDieBonus:
		matching := 0
		for _, c := range p.Cars {
			if c.Type == eff.CarType {
				matching++
			}
		}
		score += float64(eff.Bonus) * float64(matching) * 4
	case engine.EffectAllDieBonus:
		score += float64(eff.Bonus) * float64(len(p.Cars)) * 4
	case engine.EffectHighestDieBonus:
		score += float64(eff.Bonus) * 4
	case engine.EffectMinimumRoll:
		score += 12
	case engine.EffectDistanceBonus:
		score += float64(eff.Bonus) * (1 + progress(snap))
	case engine.EffectDoubleGold:
		score += 12
	case engine.EffectCarTypeGold:
		matching := 0
		for _, c := range p.Cars {
			if c.Type == eff.CarType {
				matching++
			}
		}
		score += float64(eff.Bonus) * float64(matching) * 3
	case engine.EffectPerCarGold:
		score += float64(eff.Bonus) * float64(len(p.Cars)) * 2
	default:
		score += 10
	}

	score -= float64(card.Cost) * 1.5
	if p.Gold < 10 {
		score *= 0.6
	}
	return clamp(score)
}

func progress(snap engine.Snapshot) float64 {
	if snap.TotalRounds <= 0 {
		return 0
	}
	return float64(snap.CurrentRound) / float64(snap.TotalRounds)
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
