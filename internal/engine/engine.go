// Package engine is the authoritative turn/phase state machine for a
// Dice Train game. Only the host process ever constructs or mutates a
// Game; clients see it exclusively through snapshots.
//
// Expected rejections (wrong phase, insufficient gold, bad index) are
// reported as falsy returns with no state change, never as errors.
package engine

import (
	"math/rand"
	"sort"
	"time"
)

// GameState is the coarse life-cycle state of a game.
type GameState string

const (
	StateSetup    GameState = "setup"
	StateDrafting GameState = "drafting"
	StatePlaying  GameState = "playing"
	StateEnded    GameState = "ended"
)

// Phase is one of the ordered sub-stages of a single player's turn.
type Phase string

const (
	PhaseDraft   Phase = "draft"
	PhaseRoll    Phase = "roll"
	PhaseStation Phase = "station"
	PhaseShop    Phase = "shop"
)

const (
	// DraftOfferSize cards are offered to each drafter.
	DraftOfferSize = 3
	// DraftPickCount cards must be selected to confirm a draft.
	DraftPickCount = 2
	// ShopOfferSize cards are on offer in the shop at any time.
	ShopOfferSize = 3
)

// Game holds the whole authoritative state tree. It is not safe for
// concurrent use; the session executor serializes all calls.
type Game struct {
	state        GameState
	phase        Phase
	players      []*Player
	currentIdx   int
	currentRound int
	totalRounds  int

	deck      []Card
	shopCards []Card
	shopCars  []Car

	draftOffer     []Card
	draftSelection []int // indexes into draftOffer, at most DraftPickCount
	draftedCount   int

	lastStation *StationResult

	rng *rand.Rand
}

// Option configures a Game.
type Option func(*Game)

// WithRand fixes the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

func New(opts ...Option) *Game {
	g := &Game{
		state: StateSetup,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize moves SETUP to DRAFTING: creates the seats, shuffles the
// deck and deals the first player's draft offer. False if the game has
// already been initialized or fewer than two seats are given.
func (g *Game) Initialize(configs []PlayerConfig, totalRounds int) bool {
	if g.state != StateSetup || len(configs) < 2 || totalRounds < 1 {
		return false
	}
	g.players = make([]*Player, len(configs))
	for i, cfg := range configs {
		g.players[i] = newPlayer(cfg)
	}
	g.totalRounds = totalRounds
	g.currentRound = 1
	g.currentIdx = 0
	g.deck = NewDeck(g.rng)
	g.shopCars = PurchasableCars()
	g.state = StateDrafting
	g.phase = PhaseDraft
	g.dealDraftOffer()
	return true
}

func (g *Game) dealDraftOffer() {
	g.draftOffer = drawCards(&g.deck, DraftOfferSize)
	g.draftSelection = g.draftSelection[:0]
}

func (g *Game) State() GameState { return g.state }
func (g *Game) Phase() Phase     { return g.phase }
func (g *Game) Round() int       { return g.currentRound }
func (g *Game) TotalRounds() int { return g.totalRounds }

// CurrentPlayer returns the seat whose turn (or draft) it is, nil
// before initialization or after the game ends.
func (g *Game) CurrentPlayer() *Player {
	if g.state != StateDrafting && g.state != StatePlaying {
		return nil
	}
	return g.players[g.currentIdx]
}

// ToggleDraftSelection toggles offer index i in the selection set.
// Selecting beyond the pick cap is a silent no-op; deselecting always
// works. False only for out-of-range indexes or outside DRAFTING.
func (g *Game) ToggleDraftSelection(i int) bool {
	if g.state != StateDrafting || i < 0 || i >= len(g.draftOffer) {
		return false
	}
	for k, sel := range g.draftSelection {
		if sel == i {
			g.draftSelection = append(g.draftSelection[:k], g.draftSelection[k+1:]...)
			return true
		}
	}
	if len(g.draftSelection) >= DraftPickCount {
		return true // cap reached, toggle-on ignored
	}
	g.draftSelection = append(g.draftSelection, i)
	return true
}

// DraftSelection returns the selected offer indexes.
func (g *Game) DraftSelection() []int {
	out := make([]int, len(g.draftSelection))
	copy(out, g.draftSelection)
	return out
}

// DraftOffer returns the cards currently offered to the drafter.
func (g *Game) DraftOffer() []Card {
	out := make([]Card, len(g.draftOffer))
	copy(out, g.draftOffer)
	return out
}

// ConfirmDraft locks in the current drafter's selection. Requires
// exactly DraftPickCount selected cards. Chosen persistent cards take
// effect immediately; one-time cards go to the hand. The unchosen card
// returns to the bottom of the deck. After the last drafter the deck
// is reshuffled, the shop offer drawn, and play begins at ROLL for
// player 0.
func (g *Game) ConfirmDraft() bool {
	if g.state != StateDrafting || len(g.draftSelection) != DraftPickCount {
		return false
	}

	p := g.players[g.currentIdx]
	chosen := make(map[int]bool, DraftPickCount)
	for _, i := range g.draftSelection {
		chosen[i] = true
	}
	for i, card := range g.draftOffer {
		if !chosen[i] {
			g.deck = append(g.deck, card)
			continue
		}
		if card.Persistent {
			p.ActiveCards = append(p.ActiveCards, card)
		} else {
			p.Hand = append(p.Hand, card)
		}
	}

	g.draftedCount++
	if g.draftedCount < len(g.players) {
		g.currentIdx++
		g.dealDraftOffer()
		return true
	}

	// All seats drafted: reshuffle, open the shop, start play.
	g.rng.Shuffle(len(g.deck), func(i, j int) {
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	})
	g.shopCards = drawCards(&g.deck, ShopOfferSize)
	g.draftOffer = nil
	g.draftSelection = nil
	g.currentIdx = 0
	g.state = StatePlaying
	g.phase = PhaseRoll
	return true
}

// RollDice rolls one die per car the current player owns, applies
// modifiers and resets the turn's reroll allowances. Nil outside ROLL
// or when the player has already rolled this turn.
func (g *Game) RollDice() []DieResult {
	if g.state != StatePlaying || g.phase != PhaseRoll {
		return nil
	}
	p := g.players[g.currentIdx]
	if p.HasRolled {
		return nil
	}
	p.LastRoll = rollTrain(g.rng, p.Cars)
	applyModifiers(p.LastRoll, p.Cars, p.ActiveCards)
	p.HasRolled = true
	p.FreeRerolls = p.rerollAllowance()
	p.FuelRerolls = p.Fuel
	return p.LastRoll
}

// RerollDie rerolls die i of the current roll, spending the free
// allowance first and then one fuel per reroll. False when no resource
// remains, the index is bad, or the player has not rolled.
func (g *Game) RerollDie(i int) bool {
	if g.state != StatePlaying || g.phase != PhaseRoll {
		return false
	}
	p := g.players[g.currentIdx]
	if !p.canReroll() || i < 0 || i >= len(p.LastRoll) {
		return false
	}
	if p.FreeRerolls > 0 {
		p.FreeRerolls--
	} else {
		p.Fuel--
	}
	p.LastRoll[i].Base = rollDie(g.rng, p.LastRoll[i].Die)
	applyModifiers(p.LastRoll, p.Cars, p.ActiveCards)
	p.FuelRerolls = p.Fuel
	return true
}

// AdvanceToStation commits the roll total to the player's cumulative
// distance (irreversible) and applies station gold and fuel income.
// Nil outside ROLL or before the player has rolled.
func (g *Game) AdvanceToStation() *StationResult {
	if g.state != StatePlaying || g.phase != PhaseRoll {
		return nil
	}
	p := g.players[g.currentIdx]
	if !p.HasRolled {
		return nil
	}

	res := p.stationEarnings()
	res.Distance = rollTotal(p.LastRoll)
	p.TotalDistance += res.Distance
	p.Gold += res.Gold
	p.Fuel += res.Fuel

	g.phase = PhaseStation
	g.lastStation = &res
	return &res
}

// AdvanceToShop refreshes the card offer: the unsold offer shuffles
// back into the deck and a fresh offer is drawn. False outside STATION.
func (g *Game) AdvanceToShop() bool {
	if g.state != StatePlaying || g.phase != PhaseStation {
		return false
	}
	g.deck = append(g.deck, g.shopCards...)
	g.rng.Shuffle(len(g.deck), func(i, j int) {
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	})
	g.shopCards = drawCards(&g.deck, ShopOfferSize)
	g.phase = PhaseShop
	return true
}

// PurchaseCar buys train car id for the current player. The purchase
// is atomic: gold is checked before any deduction. Cars stay on offer
// after purchase (the shop is a catalog) but are gated by the buyer's
// cumulative distance.
func (g *Game) PurchaseCar(id string) bool {
	if g.state != StatePlaying || g.phase != PhaseShop {
		return false
	}
	var car *Car
	for i := range g.shopCars {
		if g.shopCars[i].ID == id {
			car = &g.shopCars[i]
			break
		}
	}
	if car == nil {
		return false
	}
	p := g.players[g.currentIdx]
	if p.TotalDistance < car.UnlockDistance || p.Gold < car.Cost {
		return false
	}
	p.Gold -= car.Cost
	p.Cars = append(p.Cars, *car)
	return true
}

// PurchaseCard buys offer index i. Persistent cards take effect
// immediately; one-time cards go to the hand. The slot refills from
// the deck. Atomic like PurchaseCar.
func (g *Game) PurchaseCard(i int) bool {
	if g.state != StatePlaying || g.phase != PhaseShop {
		return false
	}
	if i < 0 || i >= len(g.shopCards) {
		return false
	}
	card := g.shopCards[i]
	p := g.players[g.currentIdx]
	if p.Gold < card.Cost {
		return false
	}
	p.Gold -= card.Cost
	if card.Persistent {
		p.ActiveCards = append(p.ActiveCards, card)
	} else {
		p.Hand = append(p.Hand, card)
	}
	g.shopCards = append(g.shopCards[:i], g.shopCards[i+1:]...)
	g.shopCards = append(g.shopCards, drawCards(&g.deck, 1)...)
	return true
}

// PlayCard plays one-time card i from the current player's hand.
// Distance bonuses apply immediately; double-gold arms for the next
// station. Legal during any phase of the owner's turn.
func (g *Game) PlayCard(i int) bool {
	if g.state != StatePlaying {
		return false
	}
	p := g.players[g.currentIdx]
	if i < 0 || i >= len(p.Hand) {
		return false
	}
	card := p.Hand[i]
	switch card.Effect.Type {
	case EffectDistanceBonus:
		p.TotalDistance += card.Effect.Bonus
	case EffectDoubleGold:
		p.ActiveCards = append(p.ActiveCards, card)
	default:
		return false
	}
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return true
}

// EndResult reports whether an accepted EndTurn finished the game.
type EndResult struct {
	GameEnded bool
}

// EndTurn is only legal from SHOP. It advances the player cursor,
// wrapping into the next round; when the round count is exhausted the
// game transitions to ENDED and accepts no further mutation.
func (g *Game) EndTurn() (EndResult, bool) {
	if g.state != StatePlaying || g.phase != PhaseShop {
		return EndResult{}, false
	}

	p := g.players[g.currentIdx]
	p.HasRolled = false
	p.FreeRerolls = 0
	p.FuelRerolls = 0

	g.currentIdx++
	if g.currentIdx >= len(g.players) {
		g.currentIdx = 0
		g.currentRound++
		if g.currentRound > g.totalRounds {
			g.state = StateEnded
			return EndResult{GameEnded: true}, true
		}
	}
	g.phase = PhaseRoll
	g.lastStation = nil
	return EndResult{}, true
}

// Standing is one row of the final ranking.
type Standing struct {
	Rank     int    `json:"rank"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Distance int    `json:"distance"`
	Gold     int    `json:"gold"`
}

// Standings ranks players by cumulative distance descending. The sort
// is stable, so ties keep original seat order. Ranks are 1-based.
func (g *Game) Standings() []Standing {
	ordered := make([]*Player, len(g.players))
	copy(ordered, g.players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalDistance > ordered[j].TotalDistance
	})
	standings := make([]Standing, len(ordered))
	for i, p := range ordered {
		standings[i] = Standing{
			Rank:     i + 1,
			ID:       p.ID,
			Name:     p.Name,
			Distance: p.TotalDistance,
			Gold:     p.Gold,
		}
	}
	return standings
}
