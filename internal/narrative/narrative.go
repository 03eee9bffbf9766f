// Package narrative turns engine outcomes into one line of flavor text.
// Output is deterministic for a given result.
package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cosanostra-game/server/internal/engine"
)

// Money formats a cash amount as "$12,500".
func Money(n int) string {
	if n < 0 {
		return "-$" + humanize.Comma(int64(-n))
	}
	return "$" + humanize.Comma(int64(n))
}

// Span formats a sentence length in whole minutes or hours.
func Span(d time.Duration) string {
	d = d.Round(time.Minute)
	switch {
	case d < time.Minute:
		return "a moment"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return fmt.Sprintf("%s and %s", plural(int(d/time.Hour), "hour"), plural(int((d%time.Hour)/time.Minute), "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func withRankUp(line string, rankUp bool) string {
	if rankUp {
		return line + " Word travels fast: you've been promoted."
	}
	return line
}

// Crime describes a crime attempt.
func Crime(r engine.CrimeResult) string {
	var line string
	switch {
	case r.Success:
		line = fmt.Sprintf("%s went off clean. You walk away with %s.", r.CrimeName, Money(r.Reward))
	case r.Jailed:
		line = fmt.Sprintf("%s fell apart. The cops picked you up: %s behind bars.", r.CrimeName, Span(r.JailedFor))
	default:
		line = fmt.Sprintf("%s went nowhere. You slipped away empty-handed.", r.CrimeName)
	}
	if r.Hospitalized {
		line += " You wake up in a hospital bed."
	}
	return withRankUp(line, r.RankUp)
}

// Vehicle describes a car theft.
func Vehicle(r engine.VehicleResult) string {
	var line string
	switch {
	case r.Success:
		cond := 100
		if r.Vehicle != nil {
			cond = r.Vehicle.Condition
		}
		line = fmt.Sprintf("You hot-wired a %s (%d%% condition), worth about %s.", r.ModelName, cond, Money(r.Value))
	case r.Jailed:
		line = fmt.Sprintf("The owner came back early. You're booked for %s.", Span(r.JailedFor))
	default:
		line = "The alarm went off and you ran."
	}
	return withRankUp(line, r.RankUp)
}

// Heist describes a heist, naming the stage where it failed.
func Heist(r engine.HeistResult) string {
	if r.Success {
		return withRankUp(fmt.Sprintf("%s: every stage held. You clear %s.", r.Name, Money(r.Payout)), r.RankUp)
	}
	stage := r.StageName
	if stage == "" {
		stage = humanize.Ordinal(r.FailedStage+1) + " stage"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s collapsed at the %s.", r.Name, stage)
	if r.Jailed {
		fmt.Fprintf(&b, " You're doing %s.", Span(r.JailedFor))
	}
	if r.VehicleDamage > 0 {
		fmt.Fprintf(&b, " The getaway car took %d%% damage.", r.VehicleDamage)
	}
	return withRankUp(b.String(), r.RankUp)
}

// Casino describes a round at the tables.
func Casino(r engine.CasinoResult) string {
	var table string
	switch r.Game {
	case engine.GameCoinFlip:
		table = fmt.Sprintf("The coin lands. You called %s", r.Choice)
	case engine.GameDice:
		table = fmt.Sprintf("The dice show %d. You called %s", r.Dice, r.Choice)
	case engine.GameRoulette:
		table = fmt.Sprintf("The ball drops on %d. You played %s", r.Pocket, r.Choice)
	case engine.GameSlots:
		table = "The reels stop on " + strings.Join(r.Symbols, " | ")
	default:
		table = "The house deals"
	}
	switch {
	case r.Net > 0:
		return fmt.Sprintf("%s and win %s.", table, Money(r.Net))
	case r.Payout > 0:
		return fmt.Sprintf("%s and get your %s back.", table, Money(r.Bet))
	default:
		return fmt.Sprintf("%s and lose %s.", table, Money(r.Bet))
	}
}
