package engine

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// HeistQuote is the plan for a heist with a given crew setup.
type HeistQuote struct {
	HeistID   string   `json:"heist_id"`
	Name      string   `json:"name"`
	Chance    float64  `json:"chance"`
	PrepCost  int      `json:"prep_cost"`
	PrepBonus float64  `json:"prep_bonus"`
	Getaway   float64  `json:"getaway"`
	Stages    []string `json:"stages"`
	MinPayout int      `json:"min_payout"`
	MaxPayout int      `json:"max_payout"`
}

// HeistResult is the outcome of a heist.
type HeistResult struct {
	HeistQuote
	Success       bool          `json:"success"`
	Payout        int           `json:"payout"`
	FailedStage   int           `json:"failed_stage"`
	StageName     string        `json:"stage_name,omitempty"`
	XP            int           `json:"xp"`
	Jailed        bool          `json:"jailed"`
	JailedFor     time.Duration `json:"jailed_for"`
	VehicleDamage int           `json:"vehicle_damage"`
	RankUp        bool          `json:"rank_up"`
	Cash          int           `json:"cash"`
}

// HeistSystem plans and runs multi-stage jobs. Prep is paid up front and a
// failed heist pays nothing. Roll order: success, then payout on success, or
// arrest and getaway damage on failure.
type HeistSystem struct {
	system
}

func heistKey(id string) string { return "heist:" + id }

// Plan quotes a heist without changing anything.
func (hs *HeistSystem) Plan(p *player.Player, heistID string, prepIDs []string, vehicleID string) (HeistQuote, error) {
	h, ok := hs.w.cat.Heist(heistID)
	if !ok {
		return HeistQuote{}, ErrUnknownHeist
	}
	q := HeistQuote{
		HeistID:   h.ID,
		Name:      h.Name,
		Stages:    append([]string(nil), h.Stages...),
		MinPayout: h.MinPayout,
		MaxPayout: h.MaxPayout,
	}
	seen := make(map[string]bool, len(prepIDs))
	for _, id := range prepIDs {
		opt, ok := h.PrepOption(id)
		if !ok || seen[id] {
			return HeistQuote{}, ErrUnknownPrep
		}
		seen[id] = true
		q.PrepCost += opt.Cost
		q.PrepBonus += opt.Bonus
	}
	if vehicleID != "" {
		v := p.Vehicle(vehicleID)
		if v == nil {
			return HeistQuote{}, ErrUnknownVehicle
		}
		m, _ := hs.w.cat.Model(v.ModelID)
		q.Getaway = rules.GetawayBonus(v.Condition, m.Speed)
	} else if h.RequiresVehicle {
		return HeistQuote{}, ErrVehicleRequired
	}
	q.Chance = rules.HeistChance(h.BaseChance, q.PrepBonus, p.Stats.Intelligence, q.Getaway, hs.skill(p, catalog.SkillMastermind))
	return q, nil
}

// Execute runs a heist.
func (hs *HeistSystem) Execute(p *player.Player, heistID string, prepIDs []string, vehicleID string, now time.Time) (HeistResult, error) {
	q, err := hs.Plan(p, heistID, prepIDs, vehicleID)
	if err != nil {
		return HeistResult{}, err
	}
	h, _ := hs.w.cat.Heist(heistID)
	if p.Rank < h.MinRank {
		return HeistResult{}, ErrRankTooLow
	}
	if err := checkCooldown(p, heistKey(h.ID), now); err != nil {
		return HeistResult{}, err
	}
	if p.Stamina < float64(h.StaminaCost) {
		return HeistResult{}, ErrNotEnoughStamina
	}
	if !p.Spend(q.PrepCost) {
		return HeistResult{}, ErrNotEnoughCash
	}
	p.UseStamina(h.StaminaCost)
	hs.cooldown(p, heistKey(h.ID), h.Cooldown, now)
	p.Record.HeistsAttempted++

	res := HeistResult{HeistQuote: q, FailedStage: -1}
	roll := hs.w.roll.Float64()
	if roll < q.Chance {
		res.Success = true
		pct := hs.skill(p, catalog.SkillGreed) + hs.bonuses(p).CrimePct
		res.Payout = rules.ScaleReward(rules.RollRange(hs.w.roll.Float64(), h.MinPayout, h.MaxPayout), pct)
		res.XP = h.XP
		p.Cash += res.Payout
		p.AddHeat(h.Heat / 2)
		p.Record.HeistsSucceeded++
	} else {
		res.FailedStage = rules.FailedStage(roll, q.Chance, len(h.Stages))
		if res.FailedStage < len(h.Stages) {
			res.StageName = h.Stages[res.FailedStage]
		}
		res.XP = 1
		p.AddHeat(h.Heat)
		if hs.w.roll.Float64() < rules.JailChance(h.JailChance, p.Stats.Stealth) {
			res.Jailed = true
			res.JailedFor = hs.jail(p, h.JailTime, "Arrested during "+h.Name, now)
		}
		if v := p.Vehicle(vehicleID); v != nil {
			res.VehicleDamage = rules.RollRange(hs.w.roll.Float64(), 10, 30)
			v.Condition -= res.VehicleDamage
			if v.Condition < 1 {
				v.Condition = 1
			}
		}
	}
	res.RankUp = hs.gainXP(p, res.XP, now)
	res.Cash = p.Cash

	hs.emit(now, events.EventTypeHeistExecuted, p.ID, h.ID, res)
	if res.Success {
		hs.logger.Event("HEIST", p.ID, h.Name+" succeeded")
	} else {
		hs.logger.Event("HEIST", p.ID, h.Name+" failed at "+res.StageName)
	}
	return res, nil
}
