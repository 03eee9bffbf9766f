package rules

// RouletteBet is a roulette wager: "red", "black", "odd", "even" or a pocket number.
type RouletteBet struct {
	Kind   string `json:"kind"`
	Number int    `json:"number"`
}

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// CoinFlipWins reports a win on an even-money flip shaded by the house edge.
func CoinFlipWins(roll, edge float64) bool {
	return roll < 0.5-edge
}

// DiceTotal turns two rolls into a 2d6 total.
func DiceTotal(r1, r2 float64) int {
	return RollRange(r1, 1, 6) + RollRange(r2, 1, 6)
}

// DiceWins resolves a high/low bet on 2d6: high wins on 8+, low on 6-, 7 loses both.
func DiceWins(total int, guessHigh bool) bool {
	if guessHigh {
		return total >= 8
	}
	return total <= 6
}

// RouletteSpin maps a roll to a single-zero pocket.
func RouletteSpin(roll float64) int {
	return RollRange(roll, 0, 36)
}

// RoulettePayout returns the total multiplier paid on the stake (0 on a loss).
func RoulettePayout(pocket int, bet RouletteBet) int {
	switch bet.Kind {
	case "number":
		if pocket == bet.Number {
			return 36
		}
		return 0
	case "red":
		if pocket != 0 && redPockets[pocket] {
			return 2
		}
	case "black":
		if pocket != 0 && !redPockets[pocket] {
			return 2
		}
	case "odd":
		if pocket != 0 && pocket%2 == 1 {
			return 2
		}
	case "even":
		if pocket != 0 && pocket%2 == 0 {
			return 2
		}
	}
	return 0
}

// SlotsPayout returns the multiplier for a line of symbol indexes:
// all equal pays the symbol payout, a leading pair pays pairPayout.
func SlotsPayout(line []int, payouts []int, pairPayout int) int {
	if len(line) == 0 {
		return 0
	}
	first := line[0]
	all := true
	for _, s := range line[1:] {
		if s != first {
			all = false
			break
		}
	}
	if all {
		return payouts[first]
	}
	if len(line) >= 2 && line[1] == first {
		return pairPayout
	}
	return 0
}

// SlotsSpin picks one weighted symbol index per roll.
func SlotsSpin(rolls []float64, weights []int) []int {
	line := make([]int, len(rolls))
	for i, r := range rolls {
		line[i] = PickWeighted(r, weights)
	}
	return line
}
