package rules

import "math"

// TurfDamage is the influence an attacker strips from a territory. Half points
// of strength round up.
func TurfDamage(strength, rank, familyMembers int) int {
	members := familyMembers
	if members > 10 {
		members = 10
	}
	return int(math.Round(10 + 0.5*float64(strength) + 5*float64(rank) + 2*float64(members)))
}

// ApplyInfluence adds delta to current and clamps to [0, max].
func ApplyInfluence(current, delta, max int) int {
	v := current + delta
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// FortifyPoints converts cash into influence points.
func FortifyPoints(cash, costPerPoint int) int {
	if costPerPoint <= 0 || cash <= 0 {
		return 0
	}
	return cash / costPerPoint
}
