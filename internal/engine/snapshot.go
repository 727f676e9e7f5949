package engine

// Snapshot is the complete serialization of authoritative state that
// the host broadcasts after every accepted action. It carries
// everything a thin client needs to render without local computation.
// The undrawn deck is deliberately absent: clients only ever see the
// offered subsets.
type Snapshot struct {
	GameState    GameState `json:"game_state"`
	Phase        Phase     `json:"phase"`
	CurrentRound int       `json:"current_round"`
	TotalRounds  int       `json:"total_rounds"`
	CurrentIndex int       `json:"current_index"`
	CurrentID    string    `json:"current_id"`

	Players []Player `json:"players"`

	ShopCards []Card `json:"shop_cards"`
	ShopCars  []Car  `json:"shop_cars"`

	DraftOffer     []Card `json:"draft_offer"`
	DraftSelection []int  `json:"draft_selection"`

	LastStation *StationResult `json:"last_station,omitempty"`
}

// Snapshot copies the current state into a Snapshot. Players are
// copied by value so the mirror can never alias host state.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		GameState:      g.state,
		Phase:          g.phase,
		CurrentRound:   g.currentRound,
		TotalRounds:    g.totalRounds,
		CurrentIndex:   g.currentIdx,
		Players:        make([]Player, len(g.players)),
		ShopCards:      append([]Card(nil), g.shopCards...),
		ShopCars:       append([]Car(nil), g.shopCars...),
		DraftOffer:     append([]Card(nil), g.draftOffer...),
		DraftSelection: append([]int(nil), g.draftSelection...),
	}
	if g.lastStation != nil {
		st := *g.lastStation
		st.Breakdown = append([]earningLine(nil), g.lastStation.Breakdown...)
		snap.LastStation = &st
	}
	for i, p := range g.players {
		cp := *p
		cp.Cars = append([]Car(nil), p.Cars...)
		cp.Hand = append([]Card(nil), p.Hand...)
		cp.ActiveCards = append([]Card(nil), p.ActiveCards...)
		cp.LastRoll = append([]DieResult(nil), p.LastRoll...)
		snap.Players[i] = cp
	}
	if cur := g.CurrentPlayer(); cur != nil {
		snap.CurrentID = cur.ID
	}
	return snap
}
