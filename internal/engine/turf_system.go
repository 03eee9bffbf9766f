package engine

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

const turfKey = "turf"

// TurfResult is the outcome of an attack on a territory.
type TurfResult struct {
	TerritoryID  string `json:"territory_id"`
	Damage       int    `json:"damage"`
	Influence    int    `json:"influence"`
	Conquered    bool   `json:"conquered"`
	Controller   string `json:"controller"`
	Hospitalized bool   `json:"hospitalized"`
}

// FortifyResult is the outcome of fortifying a territory.
type FortifyResult struct {
	TerritoryID string `json:"territory_id"`
	Points      int    `json:"points"`
	Cost        int    `json:"cost"`
	Influence   int    `json:"influence"`
	Cash        int    `json:"cash"`
}

// ConquestPayload describes a change of control.
type ConquestPayload struct {
	TerritoryID string `json:"territory_id"`
	Previous    string `json:"previous"`
	Controller  string `json:"controller"`
}

// TurfSystem runs the turf war: influence only changes hands at exactly zero.
type TurfSystem struct {
	system
}

// Attack strips influence from a territory on behalf of p's family.
func (ts *TurfSystem) Attack(p *player.Player, territoryID string, now time.Time) (TurfResult, error) {
	f, ok := ts.w.families[p.FamilyID]
	if !ok {
		return TurfResult{}, ErrNotInFamily
	}
	t, ok := ts.w.territories[territoryID]
	if !ok {
		return TurfResult{}, ErrUnknownTerritory
	}
	if t.ControllerID == f.ID {
		return TurfResult{}, ErrOwnTerritory
	}
	if err := checkCooldown(p, turfKey, now); err != nil {
		return TurfResult{}, err
	}
	lim := ts.w.cat.Limits
	if !p.UseStamina(lim.TurfStamina) {
		return TurfResult{}, ErrNotEnoughStamina
	}
	p.SetCooldown(turfKey, lim.TurfCooldown, now)
	p.Record.TurfAttacks++

	res := TurfResult{TerritoryID: t.ID, Damage: rules.TurfDamage(p.Stats.Strength, p.Rank, len(f.Members))}
	t.Influence = rules.ApplyInfluence(t.Influence, -res.Damage, t.MaxInfluence)
	prev := t.ControllerID
	if t.Influence == 0 {
		ts.conquer(t, f, p, now)
		res.Conquered = true
	}
	res.Influence = t.Influence
	res.Controller = t.ControllerID
	res.Hospitalized = ts.hurt(p, lim.TurfDamageHealth, now)

	ts.emit(now, events.EventTypeTurfAttacked, p.ID, t.ID, res)
	if res.Conquered {
		ts.emit(now, events.EventTypeTurfConquered, p.ID, t.ID, ConquestPayload{TerritoryID: t.ID, Previous: prev, Controller: f.ID})
		ts.logger.Event("TURF_CONQUERED", p.ID, t.Name+" falls to "+f.Name)
	}
	ts.logger.Event("TURF_ATTACK", p.ID, t.Name)
	return res, nil
}

// conquer hands t to f with the conquest influence.
func (ts *TurfSystem) conquer(t *family.Territory, f *family.Family, p *player.Player, now time.Time) {
	t.ControllerID = f.ID
	t.Influence = rules.ApplyInfluence(0, ts.w.cat.Limits.ConquestInfluence, t.MaxInfluence)
	t.RegenCarry = 0
	t.LastChange = now
	p.Record.Conquests++
}

// Fortify converts cash into influence on a territory p's family holds.
// Only whole points below the cap are paid for.
func (ts *TurfSystem) Fortify(p *player.Player, territoryID string, cash int, now time.Time) (FortifyResult, error) {
	t, ok := ts.w.territories[territoryID]
	if !ok {
		return FortifyResult{}, ErrUnknownTerritory
	}
	if p.FamilyID == "" || t.ControllerID != p.FamilyID {
		return FortifyResult{}, ErrNotController
	}
	costPer := ts.w.cat.Limits.FortifyCostPerPoint
	points := rules.FortifyPoints(cash, costPer)
	if points <= 0 {
		return FortifyResult{}, ErrInvalidAmount
	}
	if room := t.MaxInfluence - t.Influence; points > room {
		points = room
	}
	if points <= 0 {
		return FortifyResult{}, ErrInfluenceFull
	}
	cost := points * costPer
	if !p.Spend(cost) {
		return FortifyResult{}, ErrNotEnoughCash
	}
	t.Influence = rules.ApplyInfluence(t.Influence, points, t.MaxInfluence)

	res := FortifyResult{TerritoryID: t.ID, Points: points, Cost: cost, Influence: t.Influence, Cash: p.Cash}
	ts.emit(now, events.EventTypeTurfFortified, p.ID, t.ID, res)
	return res, nil
}
