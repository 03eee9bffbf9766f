package engine

import (
	"errors"
	"testing"
)

func TestCasinoGames(t *testing.T) {
	tests := []struct {
		name    string
		game    string
		choice  string
		rolls   []float64
		bet     int
		payout  int
		checkFn func(t *testing.T, res CasinoResult)
	}{
		{name: "coinflip win", game: GameCoinFlip, choice: "heads", rolls: []float64{0.1}, bet: 100, payout: 200},
		{name: "coinflip loss on the edge", game: GameCoinFlip, choice: "tails", rolls: []float64{0.49}, bet: 100, payout: 0},
		{name: "dice high", game: GameDice, choice: "high", rolls: []float64{0.99, 0.99}, bet: 50, payout: 100,
			checkFn: func(t *testing.T, res CasinoResult) {
				if res.Dice != 12 {
					t.Errorf("expected 12, got %d", res.Dice)
				}
			}},
		{name: "dice seven loses", game: GameDice, choice: "low", rolls: []float64{0.0, 0.99}, bet: 50, payout: 0},
		{name: "roulette straight up", game: GameRoulette, choice: "17", rolls: []float64{17.5 / 37}, bet: 10, payout: 360},
		{name: "roulette red", game: GameRoulette, choice: "red", rolls: []float64{1.5 / 37}, bet: 10, payout: 20},
		{name: "roulette zero", game: GameRoulette, choice: "even", rolls: []float64{0.0}, bet: 10, payout: 0},
		{name: "slots three cherries", game: GameSlots, rolls: []float64{0, 0, 0}, bet: 10, payout: 50,
			checkFn: func(t *testing.T, res CasinoResult) {
				if len(res.Symbols) != 3 || res.Symbols[0] != "cherry" {
					t.Errorf("unexpected symbols %v", res.Symbols)
				}
			}},
		{name: "slots pair", game: GameSlots, rolls: []float64{0.99, 0.99, 0}, bet: 10, payout: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			p := h.newPlayer(t, "Tony")
			h.roll.Reset(tt.rolls...)
			res, err := h.e.PlayCasino(p.ID, tt.game, tt.bet, tt.choice)
			if err != nil {
				t.Fatalf("play: %v", err)
			}
			if res.Payout != tt.payout {
				t.Errorf("expected payout %d, got %d", tt.payout, res.Payout)
			}
			if p.Cash != 500-tt.bet+tt.payout {
				t.Errorf("cash %d does not match payout", p.Cash)
			}
			if p.Record.CasinoNet != int64(tt.payout-tt.bet) {
				t.Errorf("casino net not tracked: %d", p.Record.CasinoNet)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, res)
			}
		})
	}
}

func TestCasinoRefusals(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Cash = 100000

	cases := []struct {
		game   string
		bet    int
		choice string
		want   error
	}{
		{"poker", 100, "", ErrUnknownGame},
		{GameCoinFlip, 100, "edge", ErrInvalidChoice},
		{GameRoulette, 100, "37", ErrInvalidChoice},
		{GameDice, 100, "seven", ErrInvalidChoice},
		{GameCoinFlip, 5, "heads", ErrBetOutOfRange},
		{GameCoinFlip, 5001, "heads", ErrBetOutOfRange},
	}
	for _, c := range cases {
		if _, err := h.e.PlayCasino(p.ID, c.game, c.bet, c.choice); !errors.Is(err, c.want) {
			t.Errorf("%s/%d/%s: expected %v, got %v", c.game, c.bet, c.choice, c.want, err)
		}
	}
	p.Rank = 1
	if _, err := h.e.PlayCasino(p.ID, GameCoinFlip, 10000, "heads"); err != nil {
		t.Errorf("rank 1 may bet 10000: %v", err)
	}
	p.Cash = 50
	if _, err := h.e.PlayCasino(p.ID, GameSlots, 100, ""); !errors.Is(err, ErrNotEnoughCash) {
		t.Errorf("expected ErrNotEnoughCash, got %v", err)
	}
}
