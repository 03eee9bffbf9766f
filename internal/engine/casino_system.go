package engine

import (
	"strconv"
	"time"

	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// Casino games.
const (
	GameCoinFlip = "coinflip"
	GameDice     = "dice"
	GameRoulette = "roulette"
	GameSlots    = "slots"
)

// CasinoResult is the outcome of one wager.
type CasinoResult struct {
	Game    string   `json:"game"`
	Choice  string   `json:"choice,omitempty"`
	Bet     int      `json:"bet"`
	Won     bool     `json:"won"`
	Payout  int      `json:"payout"`
	Net     int      `json:"net"`
	Dice    int      `json:"dice,omitempty"`
	Pocket  int      `json:"pocket,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Cash    int      `json:"cash"`
}

// CasinoSystem takes bets. Payouts are total returns on the stake.
type CasinoSystem struct {
	system
}

// BetLimits returns the allowed stake range for p.
func (cs *CasinoSystem) BetLimits(p *player.Player) (int, int) {
	c := cs.w.cat.Casino
	return c.MinBet, c.MaxBetPerRank * (p.Rank + 1)
}

func parseRouletteChoice(choice string) (rules.RouletteBet, bool) {
	switch choice {
	case "red", "black", "odd", "even":
		return rules.RouletteBet{Kind: choice}, true
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 0 || n > 36 {
		return rules.RouletteBet{}, false
	}
	return rules.RouletteBet{Kind: "number", Number: n}, true
}

// Play places a bet on one of the games.
func (cs *CasinoSystem) Play(p *player.Player, game string, bet int, choice string, now time.Time) (CasinoResult, error) {
	var roulette rules.RouletteBet
	switch game {
	case GameCoinFlip:
		if choice != "heads" && choice != "tails" {
			return CasinoResult{}, ErrInvalidChoice
		}
	case GameDice:
		if choice != "high" && choice != "low" {
			return CasinoResult{}, ErrInvalidChoice
		}
	case GameRoulette:
		var ok bool
		if roulette, ok = parseRouletteChoice(choice); !ok {
			return CasinoResult{}, ErrInvalidChoice
		}
	case GameSlots:
		choice = ""
	default:
		return CasinoResult{}, ErrUnknownGame
	}
	lo, hi := cs.BetLimits(p)
	if bet < lo || bet > hi {
		return CasinoResult{}, ErrBetOutOfRange
	}
	if !p.Spend(bet) {
		return CasinoResult{}, ErrNotEnoughCash
	}

	c := cs.w.cat.Casino
	res := CasinoResult{Game: game, Choice: choice, Bet: bet}
	mult := 0
	switch game {
	case GameCoinFlip:
		if rules.CoinFlipWins(cs.w.roll.Float64(), c.HouseEdge) {
			mult = 2
		}
	case GameDice:
		res.Dice = rules.DiceTotal(cs.w.roll.Float64(), cs.w.roll.Float64())
		if rules.DiceWins(res.Dice, choice == "high") {
			mult = 2
		}
	case GameRoulette:
		res.Pocket = rules.RouletteSpin(cs.w.roll.Float64())
		mult = rules.RoulettePayout(res.Pocket, roulette)
	case GameSlots:
		rolls := make([]float64, c.Reels)
		for i := range rolls {
			rolls[i] = cs.w.roll.Float64()
		}
		weights := make([]int, len(c.Symbols))
		payouts := make([]int, len(c.Symbols))
		for i, s := range c.Symbols {
			weights[i] = s.Weight
			payouts[i] = s.Payout
		}
		line := rules.SlotsSpin(rolls, weights)
		for _, idx := range line {
			res.Symbols = append(res.Symbols, c.Symbols[idx].ID)
		}
		mult = rules.SlotsPayout(line, payouts, c.PairPayout)
	}

	res.Payout = bet * mult
	res.Net = res.Payout - bet
	res.Won = res.Net > 0
	p.Cash += res.Payout
	p.Record.CasinoNet += int64(res.Net)
	res.Cash = p.Cash

	cs.emit(now, events.EventTypeCasinoPlayed, p.ID, game, res)
	return res, nil
}
