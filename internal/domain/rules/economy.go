package rules

import (
	"math"
	"time"
)

// DriftPrice moves a market price by a bounded random walk around base.
func DriftPrice(current, base, volatility, roll float64) float64 {
	next := current * (1 + volatility*(2*roll-1))
	return Clamp(next, 0.5*base, 2*base)
}

// AccruedIncome is the passive income of a business over elapsed.
func AccruedIncome(perHour, level int, elapsed time.Duration, bonusPct float64) float64 {
	if elapsed <= 0 || level <= 0 {
		return 0
	}
	return float64(perHour*level) * elapsed.Hours() * (1 + bonusPct)
}

// ProducedUnits is the production of a business over elapsed, in fractional units.
func ProducedUnits(perHour float64, level int, elapsed time.Duration) float64 {
	if elapsed <= 0 || level <= 0 {
		return 0
	}
	return perHour * float64(level) * elapsed.Hours()
}

// UpgradeCost is the price of raising a business from level to level+1.
func UpgradeCost(base, level int) int {
	return int(math.Round(float64(base) * math.Pow(float64(level), 1.5)))
}

// Regenerate restores current toward max at perMinute over elapsed.
func Regenerate(current, max, perMinute float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return math.Min(current, max)
	}
	return math.Min(current+perMinute*elapsed.Minutes(), max)
}

// DecayHeat cools heat down over elapsed, never below zero.
func DecayHeat(heat, perMinute float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return math.Max(heat, 0)
	}
	return math.Max(heat-perMinute*elapsed.Minutes(), 0)
}

// BankFee is the deposit fee.
func BankFee(amount int, feePct float64) int {
	return int(math.Ceil(float64(amount) * feePct))
}
