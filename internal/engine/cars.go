package engine

// CarType groups train cars by strategy: coal feeds fuel, passenger
// feeds gold, freight feeds distance.
type CarType string

const (
	CarCoal      CarType = "coal"
	CarPassenger CarType = "passenger"
	CarFreight   CarType = "freight"
	CarSpecial   CarType = "special"
)

// CarSpecialty tags a car's special rule.
type CarSpecialty string

const (
	SpecialNone        CarSpecialty = ""
	SpecialSelfBonus   CarSpecialty = "selfBonus"      // this car's die rolls at +N
	SpecialLowestBonus CarSpecialty = "lowestDieBonus" // +1 to the lowest die in the train
	SpecialFreeReroll  CarSpecialty = "freeReroll"     // first reroll each turn is free
	SpecialPerCarGold  CarSpecialty = "perCarGold"     // +1 gold per owned car at stations
	SpecialSynergy     CarSpecialty = "passengerSynergy"
)

// Car is a train car. Each car contributes one die to the roll.
type Car struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Die            Die          `json:"die"`
	StationGold    int          `json:"station_gold"`
	Cost           int          `json:"cost"`
	Starting       bool         `json:"starting"`
	Type           CarType      `json:"type"`
	UnlockDistance int          `json:"unlock_distance"`
	StartingFuel   int          `json:"starting_fuel,omitempty"`
	FuelPerStation int          `json:"fuel_per_station,omitempty"`
	Special        CarSpecialty `json:"special,omitempty"`
	SelfBonus      int          `json:"self_bonus,omitempty"`
}

var trainCars = []Car{
	// Starting cars, one per playstyle.
	{ID: "coalTender", Name: "Coal Tender", Description: "Fuel engine. Start with 3 fuel. Gain +1 fuel per station.",
		Die: D6, Starting: true, Type: CarCoal, StartingFuel: 3, FuelPerStation: 1},
	{ID: "passengerCar", Name: "Passenger Car", Description: "Carry travelers. Earn 3 gold at each station.",
		Die: D6, Starting: true, Type: CarPassenger, StationGold: 3},
	{ID: "freightCar", Name: "Freight Car", Description: "Heavy hauler. This die gets +1 to its roll.",
		Die: D6, Starting: true, Type: CarFreight, Special: SpecialSelfBonus, SelfBonus: 1},

	// Entry tier, 0 mi.
	{ID: "boxcar", Name: "Boxcar", Description: "Reliable freight hauler. This die gets +1 to its roll.",
		Die: D6, Cost: 4, Type: CarFreight, Special: SpecialSelfBonus, SelfBonus: 1},
	{ID: "mailCar", Name: "Mail Car", Description: "Steady postal income. +1 gold at each station.",
		Die: D6, Cost: 5, Type: CarPassenger, StationGold: 1},
	{ID: "waterTower", Name: "Water Tower", Description: "Steam supply car. +2 fuel at each station.",
		Die: D4, Cost: 5, Type: CarCoal, FuelPerStation: 2},
	{ID: "caboose", Name: "Caboose", Description: "Tail car provides stability. +1 to your lowest die roll.",
		Die: D6, Cost: 6, Type: CarSpecial, Special: SpecialLowestBonus},

	// Mid tier, 30 mi.
	{ID: "stockCar", Name: "Stock Car", Description: "Livestock transport. Larger die for more distance.",
		Die: D8, Cost: 7, Type: CarFreight, UnlockDistance: 30},
	{ID: "coalHopper", Name: "Coal Hopper", Description: "Efficient coal storage. +1 fuel/station. First reroll each turn is free.",
		Die: D6, Cost: 7, Type: CarCoal, UnlockDistance: 30, FuelPerStation: 1, Special: SpecialFreeReroll},
	{ID: "diningCar", Name: "Dining Car", Description: "Fine dining attracts wealthy travelers. +2 gold at stations.",
		Die: D6, Cost: 8, Type: CarPassenger, UnlockDistance: 30, StationGold: 2},
	{ID: "observationDeck", Name: "Observation Deck", Description: "Scenic views attract tourists. +1 gold per other Passenger car at stations.",
		Die: D6, Cost: 8, Type: CarPassenger, UnlockDistance: 30, Special: SpecialSynergy},

	// Strong tier, 60 mi.
	{ID: "gondolaCar", Name: "Gondola Car", Description: "Open-top bulk hauler. This die gets +1 to its roll.",
		Die: D8, Cost: 9, Type: CarFreight, UnlockDistance: 60, Special: SpecialSelfBonus, SelfBonus: 1},
	{ID: "tankCar", Name: "Tank Car", Description: "Massive fuel reserves. +3 fuel at each station.",
		Die: D6, Cost: 10, Type: CarCoal, UnlockDistance: 60, FuelPerStation: 3},
	{ID: "cargoHold", Name: "Cargo Hold", Description: "Massive storage capacity. Roll d10 for maximum speed.",
		Die: D10, Cost: 10, Type: CarFreight, UnlockDistance: 60},
	{ID: "luxurySleeper", Name: "Luxury Sleeper", Description: "Premium accommodations. +4 gold at each station.",
		Die: D6, Cost: 11, Type: CarPassenger, UnlockDistance: 60, StationGold: 4},

	// Elite tier, 100 mi.
	{ID: "steamBoiler", Name: "Steam Boiler", Description: "High-pressure power. +1 fuel at each station.",
		Die: D6, Cost: 12, Type: CarCoal, UnlockDistance: 100, FuelPerStation: 1},
	{ID: "firstClassCar", Name: "First Class Car", Description: "Railroad tycoon status. +1 gold per train car you own.",
		Die: D6, Cost: 13, Type: CarPassenger, UnlockDistance: 100, Special: SpecialPerCarGold},
	{ID: "expressEngine", Name: "Express Engine", Description: "Pure power. Roll the mighty d12.",
		Die: D12, Cost: 14, Type: CarCoal, UnlockDistance: 100},
	{ID: "pullmanCar", Name: "Pullman Car", Description: "The famous luxury sleeper. +6 gold at each station.",
		Die: D6, Cost: 15, Type: CarPassenger, UnlockDistance: 100, StationGold: 6},
}

// StartingCars returns the three cars every player begins with.
func StartingCars() []Car {
	cars := make([]Car, 0, 3)
	for _, c := range trainCars {
		if c.Starting {
			cars = append(cars, c)
		}
	}
	return cars
}

// PurchasableCars returns every non-starting car. Unlock gating by
// distance happens at purchase time, not here.
func PurchasableCars() []Car {
	cars := make([]Car, 0, len(trainCars))
	for _, c := range trainCars {
		if !c.Starting {
			cars = append(cars, c)
		}
	}
	return cars
}

// CarByID looks a car up in the master table.
func CarByID(id string) (Car, bool) {
	for _, c := range trainCars {
		if c.ID == id {
			return c, true
		}
	}
	return Car{}, false
}
