package rules

import (
	"math"
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
)

// Chance bounds.
const (
	MinCrimeChance   = 0.05
	MaxCrimeChance   = 0.95
	MinVehicleChance = 0.05
	MaxVehicleChance = 0.90
	MinHeistChance   = 0.05
	MaxHeistChance   = 0.90

	maxRankBonus      = 0.15
	rankBonusPerLevel = 0.02
	heatPenalty       = 0.25
	injuryPenalty     = 0.10
	injuryThreshold   = 30
)

// RankForXP returns the index of the highest rank whose threshold xp reaches.
func RankForXP(ranks []catalog.Rank, xp int) int {
	idx := 0
	for i, r := range ranks {
		if xp >= r.MinXP {
			idx = i
		}
	}
	return idx
}

// CrimeInput is everything the crime formula looks at.
type CrimeInput struct {
	BaseChance  float64
	StatWeight  float64
	Stat        int // 0-100
	Rank        int
	MinRank     int
	SkillBonus  float64
	FamilyBonus float64
	Heat        float64 // 0-100
	Health      float64 // 0-100
}

// CrimeChance is the success probability of a solo crime.
func CrimeChance(in CrimeInput) float64 {
	chance := in.BaseChance + in.StatWeight*float64(in.Stat)/100
	chance += math.Min(rankBonusPerLevel*float64(in.Rank-in.MinRank), maxRankBonus)
	chance += in.SkillBonus + in.FamilyBonus
	chance -= heatPenalty * in.Heat / 100
	if in.Health < injuryThreshold {
		chance -= injuryPenalty
	}
	return Clamp(chance, MinCrimeChance, MaxCrimeChance)
}

// VehicleInput is everything the vehicle theft formula looks at.
type VehicleInput struct {
	BaseChance float64
	Driving    int
	Stealth    int
	SkillBonus float64
	Heat       float64
}

// VehicleTheftChance is the success probability of stealing a car.
func VehicleTheftChance(in VehicleInput) float64 {
	chance := in.BaseChance + 0.003*float64(in.Driving) + 0.002*float64(in.Stealth) + in.SkillBonus
	chance -= 0.2 * in.Heat / 100
	return Clamp(chance, MinVehicleChance, MaxVehicleChance)
}

// JailChance scales a base arrest chance down by stealth.
func JailChance(base float64, stealth int) float64 {
	return Clamp(base*(1-float64(stealth)/200), 0, 1)
}

// JailDuration shortens a sentence by reductionPct, never below a quarter.
func JailDuration(d time.Duration, reductionPct float64) time.Duration {
	factor := math.Max(1-reductionPct, 0.25)
	return time.Duration(math.Round(float64(d) * factor))
}

// BailCost prices release from jail: rate per started minute, scaled by rank.
func BailCost(remaining time.Duration, rank, ratePerMinute int) int {
	if remaining <= 0 {
		return 0
	}
	minutes := int(math.Ceil(remaining.Minutes()))
	return minutes * ratePerMinute * (1 + rank)
}

// ScaleReward raises base by pct and rounds.
func ScaleReward(base int, pct float64) int {
	return int(math.Round(float64(base) * (1 + pct)))
}

// ScaleCooldown shortens d by reductionPct, capped at half.
func ScaleCooldown(d time.Duration, reductionPct float64) time.Duration {
	return time.Duration(math.Round(float64(d) * (1 - Clamp(reductionPct, 0, 0.5))))
}

// HeistChance combines base odds, preparation, brains, the getaway car and skill.
func HeistChance(base, prepBonus float64, intelligence int, getaway, skill float64) float64 {
	chance := base + prepBonus + 0.002*float64(intelligence) + getaway + skill
	return Clamp(chance, MinHeistChance, MaxHeistChance)
}

// GetawayBonus is the heist bonus from the getaway vehicle.
func GetawayBonus(condition, speed int) float64 {
	return 0.10 * float64(condition) / 100 * float64(speed) / 100
}

// FailedStage places a failing roll (roll >= chance) among the heist stages.
// A roll just above chance fails at the last stage; a roll near 1 fails at the first.
func FailedStage(roll, chance float64, stages int) int {
	if stages <= 1 || chance >= 1 {
		return 0
	}
	pos := (roll - chance) / (1 - chance) // 0..1
	idx := stages - 1 - int(pos*float64(stages))
	if idx < 0 {
		idx = 0
	}
	if idx >= stages {
		idx = stages - 1
	}
	return idx
}

// BustChance is the chance customs catch a smuggler leaving town.
func BustChance(riskUnits float64, capacity, stealth int) float64 {
	if capacity <= 0 || riskUnits <= 0 {
		return 0
	}
	return Clamp(0.3*riskUnits/float64(capacity)*(1-float64(stealth)/200), 0, 0.6)
}

// SalePrice is what a fence pays for a vehicle.
func SalePrice(value, condition int, sellRate float64, charisma int, skillPct float64) int {
	rate := math.Min(sellRate+0.002*float64(charisma)+skillPct, 1.0)
	return int(math.Round(float64(value) * float64(condition) / 100 * rate))
}

// RepairCost is half the value lost to damage.
func RepairCost(value, condition int) int {
	return int(math.Round(float64(value) * float64(100-condition) / 100 * 0.5))
}
