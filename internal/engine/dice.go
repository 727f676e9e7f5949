package engine

import "math/rand"

// Die is a die size: the number of faces.
type Die int

const (
	D4  Die = 4
	D6  Die = 6
	D8  Die = 8
	D10 Die = 10
	D12 Die = 12
)

// DieResult is one rolled die with its modifier breakdown. Final is
// always Base + Bonus.
type DieResult struct {
	Die     Die     `json:"die"`
	CarName string  `json:"car_name"`
	CarType CarType `json:"car_type"`
	Base    int     `json:"base"`
	Bonus   int     `json:"bonus"`
	Final   int     `json:"final"`
}

func rollDie(rng *rand.Rand, d Die) int {
	if d <= 0 {
		return 0
	}
	return rng.Intn(int(d)) + 1
}

// rollTrain rolls one die per car, without modifiers.
func rollTrain(rng *rand.Rand, cars []Car) []DieResult {
	results := make([]DieResult, len(cars))
	for i, car := range cars {
		results[i] = DieResult{
			Die:     car.Die,
			CarName: car.Name,
			CarType: car.Type,
			Base:    rollDie(rng, car.Die),
		}
	}
	return results
}

// applyModifiers recomputes every die's bonus from scratch out of the
// player's cars and in-effect cards. Safe to call after a reroll.
func applyModifiers(results []DieResult, cars []Car, active []Card) {
	for i := range results {
		results[i].Bonus = 0
	}

	// Car self bonuses line up by index: car i rolled die i.
	for i, car := range cars {
		if i < len(results) && car.Special == SpecialSelfBonus {
			results[i].Bonus += car.SelfBonus
		}
	}

	for _, card := range active {
		eff := card.Effect
		switch eff.Type {
		case EffectDieBonus:
			for i := range results {
				if results[i].CarType == eff.CarType {
					results[i].Bonus += eff.Bonus
				}
			}
		case EffectAllDieBonus:
			for i := range results {
				results[i].Bonus += eff.Bonus
			}
		case EffectMinimumRoll:
			for i := range results {
				if results[i].Base < eff.Minimum {
					results[i].Bonus += eff.Minimum - results[i].Base
				}
			}
		case EffectHighestDieBonus:
			if i := extremeIndex(results, true); i >= 0 {
				results[i].Bonus += eff.Bonus
			}
		}
	}

	for _, car := range cars {
		if car.Special == SpecialLowestBonus {
			if i := extremeIndex(results, false); i >= 0 {
				results[i].Bonus++
			}
		}
	}

	for i := range results {
		results[i].Final = results[i].Base + results[i].Bonus
	}
}

// extremeIndex returns the index of the highest (or lowest) die by
// Base+Bonus, first occurrence winning ties. -1 when empty.
func extremeIndex(results []DieResult, highest bool) int {
	if len(results) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(results); i++ {
		v, b := results[i].Base+results[i].Bonus, results[best].Base+results[best].Bonus
		if (highest && v > b) || (!highest && v < b) {
			best = i
		}
	}
	return best
}

// rollTotal sums the final values of a roll.
func rollTotal(results []DieResult) int {
	total := 0
	for _, r := range results {
		total += r.Final
	}
	return total
}
