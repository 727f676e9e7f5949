package engine

import "math/rand"

// EffectType tags what an enhancement card does. The engine only ever
// switches on these tags; card data itself is inert.
type EffectType string

const (
	EffectDieBonus        EffectType = "dieBonus"        // +N to dice of one car type
	EffectAllDieBonus     EffectType = "allDieBonus"     // +N to every die
	EffectMinimumRoll     EffectType = "minimumRoll"     // raise base rolls to a floor
	EffectHighestDieBonus EffectType = "highestDieBonus" // +N to the highest die
	EffectStationBonus    EffectType = "stationBonus"    // +N gold at every station
	EffectCarTypeGold     EffectType = "carTypeGoldBonus"
	EffectPerCarGold      EffectType = "perCarGoldBonus"
	EffectReroll          EffectType = "reroll"
	EffectDoubleGold      EffectType = "doubleGold"
	EffectDistanceBonus   EffectType = "distanceBonus"
)

type Effect struct {
	Type    EffectType `json:"type"`
	CarType CarType    `json:"car_type,omitempty"`
	Bonus   int        `json:"bonus,omitempty"`
	Count   int        `json:"count,omitempty"`
	Minimum int        `json:"minimum,omitempty"`
	Uses    int        `json:"uses,omitempty"`
}

// Card is an enhancement card. Persistent cards stay in effect once
// acquired; one-time cards sit in the hand until played.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Persistent  bool   `json:"persistent"`
	Effect      Effect `json:"effect"`
}

var enhancementCards = []Card{
	{ID: "coalEfficiency", Name: "Coal Efficiency", Description: "+1 to all Coal type dice", Cost: 6, Persistent: true,
		Effect: Effect{Type: EffectDieBonus, CarType: CarCoal, Bonus: 1}},
	{ID: "passengerComfort", Name: "Passenger Comfort", Description: "+1 to all Passenger type dice", Cost: 6, Persistent: true,
		Effect: Effect{Type: EffectDieBonus, CarType: CarPassenger, Bonus: 1}},
	{ID: "freightOptimization", Name: "Freight Optimization", Description: "+1 to all Freight type dice", Cost: 6, Persistent: true,
		Effect: Effect{Type: EffectDieBonus, CarType: CarFreight, Bonus: 1}},
	{ID: "stationMaster", Name: "Station Master", Description: "+2 gold at every station", Cost: 8, Persistent: true,
		Effect: Effect{Type: EffectStationBonus, Bonus: 2}},
	{ID: "efficientEngine", Name: "Efficient Engine", Description: "+1 to all dice rolls", Cost: 15, Persistent: true,
		Effect: Effect{Type: EffectAllDieBonus, Bonus: 1}},
	{ID: "luckyCharm", Name: "Lucky Charm", Description: "Re-roll one die per turn", Cost: 7, Persistent: true,
		Effect: Effect{Type: EffectReroll, Count: 1}},
	{ID: "expressDelivery", Name: "Express Delivery", Description: "+2 to your highest die roll", Cost: 9, Persistent: true,
		Effect: Effect{Type: EffectHighestDieBonus, Bonus: 2}},
	{ID: "goldRush", Name: "Gold Rush", Description: "Double gold from your next station (one-time)", Cost: 5, Persistent: false,
		Effect: Effect{Type: EffectDoubleGold, Uses: 1}},
	{ID: "steadyHand", Name: "Steady Hand", Description: "Minimum die roll of 2 on all dice", Cost: 10, Persistent: true,
		Effect: Effect{Type: EffectMinimumRoll, Minimum: 2}},
	{ID: "cargoMaster", Name: "Cargo Master", Description: "+1 gold per Freight car at stations", Cost: 7, Persistent: true,
		Effect: Effect{Type: EffectCarTypeGold, CarType: CarFreight, Bonus: 1}},
	{ID: "vipService", Name: "VIP Service", Description: "+1 gold per Passenger car at stations", Cost: 7, Persistent: true,
		Effect: Effect{Type: EffectCarTypeGold, CarType: CarPassenger, Bonus: 1}},
	{ID: "turboBoost", Name: "Turbo Boost", Description: "+3 to total distance once per game", Cost: 4, Persistent: false,
		Effect: Effect{Type: EffectDistanceBonus, Bonus: 3, Uses: 1}},
	{ID: "ironHorse", Name: "Iron Horse", Description: "+2 to all Coal type dice", Cost: 11, Persistent: true,
		Effect: Effect{Type: EffectDieBonus, CarType: CarCoal, Bonus: 2}},
	{ID: "conductorsBell", Name: "Conductor's Bell", Description: "+3 gold at every station", Cost: 12, Persistent: true,
		Effect: Effect{Type: EffectStationBonus, Bonus: 3}},
	{ID: "railroadTycoon", Name: "Railroad Tycoon", Description: "+1 gold per train car you own at stations", Cost: 14, Persistent: true,
		Effect: Effect{Type: EffectPerCarGold, Bonus: 1}},
	{ID: "wildWestExpress", Name: "Wild West Express", Description: "Re-roll up to two dice per turn", Cost: 12, Persistent: true,
		Effect: Effect{Type: EffectReroll, Count: 2}},
	{ID: "goldenSpike", Name: "Golden Spike", Description: "+5 to total distance once per game", Cost: 6, Persistent: false,
		Effect: Effect{Type: EffectDistanceBonus, Bonus: 5, Uses: 1}},
	{ID: "frontierSpirit", Name: "Frontier Spirit", Description: "Minimum die roll of 3 on all dice", Cost: 16, Persistent: true,
		Effect: Effect{Type: EffectMinimumRoll, Minimum: 3}},
	{ID: "coalBarons", Name: "Coal Baron's Deal", Description: "+2 gold per Coal car at stations", Cost: 10, Persistent: true,
		Effect: Effect{Type: EffectCarTypeGold, CarType: CarCoal, Bonus: 2}},
}

// NewDeck returns a shuffled copy of the full enhancement deck.
func NewDeck(rng *rand.Rand) []Card {
	deck := make([]Card, len(enhancementCards))
	copy(deck, enhancementCards)
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// drawCards removes up to count cards from the top of the deck.
func drawCards(deck *[]Card, count int) []Card {
	n := min(count, len(*deck))
	drawn := make([]Card, n)
	copy(drawn, (*deck)[:n])
	*deck = (*deck)[n:]
	return drawn
}

// CardByID looks a card up in the master table.
func CardByID(id string) (Card, bool) {
	for _, c := range enhancementCards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
