package engine

// PlayerConfig describes one seat when a game is initialized. ID is
// the peer connection id for remote humans, a synthetic id for AI
// seats, and the host's own peer id for the host seat.
type PlayerConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAI    bool   `json:"is_ai"`
	IsLocal bool   `json:"is_local"`
}

// Player is one seat's live game state. It is a plain data record:
// every mutation goes through a Game operation, never through the
// player directly. Clients hold read-only mirrors of these fields.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAI    bool   `json:"is_ai"`
	IsLocal bool   `json:"is_local"`

	Gold          int `json:"gold"`
	Fuel          int `json:"fuel"`
	TotalDistance int `json:"total_distance"`

	Cars        []Car  `json:"cars"`         // owned train, append-only during a game
	Hand        []Card `json:"hand"`         // held one-time cards
	ActiveCards []Card `json:"active_cards"` // persistent cards in effect

	LastRoll    []DieResult `json:"last_roll"`
	HasRolled   bool        `json:"has_rolled"` // rolled yet this turn
	FreeRerolls int         `json:"free_rerolls"`
	FuelRerolls int         `json:"fuel_rerolls"` // rerolls affordable with fuel right now
}

func newPlayer(cfg PlayerConfig) *Player {
	p := &Player{
		ID:          cfg.ID,
		Name:        cfg.Name,
		IsAI:        cfg.IsAI,
		IsLocal:     cfg.IsLocal,
		Cars:        StartingCars(),
		Hand:        []Card{},
		ActiveCards: []Card{},
		LastRoll:    []DieResult{},
	}
	for _, c := range p.Cars {
		p.Fuel += c.StartingFuel
	}
	return p
}

// rerollAllowance counts the free per-turn rerolls granted by cars and
// persistent cards.
func (p *Player) rerollAllowance() int {
	n := 0
	for _, car := range p.Cars {
		if car.Special == SpecialFreeReroll {
			n++
		}
	}
	for _, card := range p.ActiveCards {
		if card.Effect.Type == EffectReroll {
			n += card.Effect.Count
		}
	}
	return n
}

// canReroll reports whether any reroll resource remains.
func (p *Player) canReroll() bool {
	return p.HasRolled && (p.FreeRerolls > 0 || p.Fuel > 0)
}

type earningLine struct {
	Source string `json:"source"`
	Amount int    `json:"amount"`
}

// StationResult is the outcome of advancing from ROLL to STATION.
type StationResult struct {
	Distance   int           `json:"distance"`
	Gold       int           `json:"gold"`
	Fuel       int           `json:"fuel"`
	Breakdown  []earningLine `json:"breakdown"`
}

// stationEarnings computes the gold and fuel gained at a station from
// cars and in-effect cards. Double-gold cards are consumed here.
func (p *Player) stationEarnings() StationResult {
	res := StationResult{Breakdown: []earningLine{}}

	passengers := 0
	for _, car := range p.Cars {
		if car.Type == CarPassenger {
			passengers++
		}
	}

	for _, car := range p.Cars {
		if car.StationGold > 0 {
			res.Gold += car.StationGold
			res.Breakdown = append(res.Breakdown, earningLine{Source: car.Name, Amount: car.StationGold})
		}
		res.Fuel += car.FuelPerStation
		switch car.Special {
		case SpecialPerCarGold:
			amount := len(p.Cars)
			res.Gold += amount
			res.Breakdown = append(res.Breakdown, earningLine{Source: car.Name, Amount: amount})
		case SpecialSynergy:
			if amount := passengers - 1; amount > 0 {
				res.Gold += amount
				res.Breakdown = append(res.Breakdown, earningLine{Source: car.Name, Amount: amount})
			}
		}
	}

	for i := range p.ActiveCards {
		card := &p.ActiveCards[i]
		switch card.Effect.Type {
		case EffectStationBonus:
			res.Gold += card.Effect.Bonus
			res.Breakdown = append(res.Breakdown, earningLine{Source: card.Name, Amount: card.Effect.Bonus})
		case EffectCarTypeGold:
			matching := 0
			for _, car := range p.Cars {
				if car.Type == card.Effect.CarType {
					matching++
				}
			}
			if amount := matching * card.Effect.Bonus; amount > 0 {
				res.Gold += amount
				res.Breakdown = append(res.Breakdown, earningLine{Source: card.Name, Amount: amount})
			}
		case EffectPerCarGold:
			amount := len(p.Cars) * card.Effect.Bonus
			res.Gold += amount
			res.Breakdown = append(res.Breakdown, earningLine{Source: card.Name, Amount: amount})
		case EffectDoubleGold:
			if card.Effect.Uses > 0 {
				res.Breakdown = append(res.Breakdown, earningLine{Source: card.Name + " (consumed)", Amount: res.Gold})
				res.Gold *= 2
				card.Effect.Uses--
			}
		}
	}

	// Spent double-gold cards leave the active set.
	kept := p.ActiveCards[:0]
	for _, card := range p.ActiveCards {
		if card.Effect.Type == EffectDoubleGold && card.Effect.Uses <= 0 {
			continue
		}
		kept = append(kept, card)
	}
	p.ActiveCards = kept

	return res
}
