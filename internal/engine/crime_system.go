package engine

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// CrimeResult is the outcome of a solo crime.
type CrimeResult struct {
	CrimeID      string        `json:"crime_id"`
	CrimeName    string        `json:"crime_name"`
	Success      bool          `json:"success"`
	Chance       float64       `json:"chance"`
	Reward       int           `json:"reward"`
	XP           int           `json:"xp"`
	Heat         float64       `json:"heat"`
	Damage       int           `json:"damage"`
	Jailed       bool          `json:"jailed"`
	JailedFor    time.Duration `json:"jailed_for"`
	Hospitalized bool          `json:"hospitalized"`
	RankUp       bool          `json:"rank_up"`
	Cash         int           `json:"cash"`
}

// CrimeSystem resolves crimes. Roll order: success, then reward on success
// or arrest on failure.
type CrimeSystem struct {
	system
}

func crimeKey(id string) string { return "crime:" + id }

// Chance returns the current success probability of a crime for p.
func (cs *CrimeSystem) Chance(p *player.Player, c catalog.Crime) float64 {
	stat, _ := p.Stat(c.Stat)
	return rules.CrimeChance(rules.CrimeInput{
		BaseChance:  c.BaseChance,
		StatWeight:  c.StatWeight,
		Stat:        stat,
		Rank:        p.Rank,
		MinRank:     c.MinRank,
		SkillBonus:  cs.skill(p, catalog.SkillCrimeMastery),
		FamilyBonus: cs.bonuses(p).CrimePct,
		Heat:        p.Heat,
		Health:      p.Health,
	})
}

// Commit attempts a crime.
func (cs *CrimeSystem) Commit(p *player.Player, crimeID string, now time.Time) (CrimeResult, error) {
	c, ok := cs.w.cat.Crime(crimeID)
	if !ok {
		return CrimeResult{}, ErrUnknownCrime
	}
	if p.Rank < c.MinRank {
		return CrimeResult{}, ErrRankTooLow
	}
	if err := checkCooldown(p, crimeKey(c.ID), now); err != nil {
		return CrimeResult{}, err
	}
	if !p.UseStamina(c.StaminaCost) {
		return CrimeResult{}, ErrNotEnoughStamina
	}

	res := CrimeResult{CrimeID: c.ID, CrimeName: c.Name, Chance: cs.Chance(p, c)}
	cs.cooldown(p, crimeKey(c.ID), c.Cooldown, now)
	p.Record.CrimesAttempted++

	if cs.w.roll.Float64() < res.Chance {
		res.Success = true
		pct := cs.skill(p, catalog.SkillGreed) + cs.bonuses(p).CrimePct
		res.Reward = rules.ScaleReward(rules.RollRange(cs.w.roll.Float64(), c.MinReward, c.MaxReward), pct)
		res.XP = c.XP
		res.Heat = c.Heat / 2
		p.Cash += res.Reward
		p.Record.CrimesSucceeded++
	} else {
		res.XP = 1
		res.Heat = c.Heat
		res.Damage = c.Damage
		if cs.w.roll.Float64() < rules.JailChance(c.JailChance, p.Stats.Stealth) {
			res.Jailed = true
			res.JailedFor = cs.jail(p, c.JailTime, "Caught during "+c.Name, now)
		}
	}
	p.AddHeat(res.Heat)
	res.RankUp = cs.gainXP(p, res.XP, now)
	res.Hospitalized = cs.hurt(p, res.Damage, now)
	res.Cash = p.Cash

	cs.emit(now, events.EventTypeCrimeCommitted, p.ID, c.ID, res)
	if res.Success {
		cs.logger.Event("CRIME", p.ID, c.Name+" succeeded")
	} else {
		cs.logger.Event("CRIME", p.ID, c.Name+" failed")
	}
	return res, nil
}
