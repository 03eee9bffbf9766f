package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// VehicleResult is the outcome of a theft attempt.
type VehicleResult struct {
	TierID    string          `json:"tier_id"`
	Success   bool            `json:"success"`
	Chance    float64         `json:"chance"`
	Vehicle   *player.Vehicle `json:"vehicle,omitempty"`
	ModelName string          `json:"model_name,omitempty"`
	Value     int             `json:"value,omitempty"`
	XP        int             `json:"xp"`
	Jailed    bool            `json:"jailed"`
	JailedFor time.Duration   `json:"jailed_for"`
	RankUp    bool            `json:"rank_up"`
}

// SaleResult is the outcome of fencing a car.
type SaleResult struct {
	VehicleID string `json:"vehicle_id"`
	ModelID   string `json:"model_id"`
	ModelName string `json:"model_name"`
	Price     int    `json:"price"`
	Cash      int    `json:"cash"`
}

// RepairResult is the outcome of fixing a car.
type RepairResult struct {
	VehicleID string `json:"vehicle_id"`
	Cost      int    `json:"cost"`
	Condition int    `json:"condition"`
	Cash      int    `json:"cash"`
}

// VehicleSystem handles grand theft auto and the garage.
// Roll order for a theft: success, then model and condition on success, or arrest on failure.
type VehicleSystem struct {
	system
}

func vehicleKey(tier string) string { return "vehicle:" + tier }

// Chance returns the current theft probability for a tier.
func (vs *VehicleSystem) Chance(p *player.Player, t catalog.VehicleTier) float64 {
	return rules.VehicleTheftChance(rules.VehicleInput{
		BaseChance: t.BaseChance,
		Driving:    p.Stats.Driving,
		Stealth:    p.Stats.Stealth,
		SkillBonus: vs.skill(p, catalog.SkillWheelman),
		Heat:       p.Heat,
	})
}

// Steal attempts to steal a car from a tier.
func (vs *VehicleSystem) Steal(p *player.Player, tierID string, now time.Time) (VehicleResult, error) {
	t, ok := vs.w.cat.Tier(tierID)
	if !ok {
		return VehicleResult{}, ErrUnknownTier
	}
	if p.Rank < t.MinRank {
		return VehicleResult{}, ErrRankTooLow
	}
	if len(p.Garage) >= vs.garageCapacity(p) {
		return VehicleResult{}, ErrGarageFull
	}
	if err := checkCooldown(p, vehicleKey(t.ID), now); err != nil {
		return VehicleResult{}, err
	}
	if !p.UseStamina(t.StaminaCost) {
		return VehicleResult{}, ErrNotEnoughStamina
	}

	res := VehicleResult{TierID: t.ID, Chance: vs.Chance(p, t)}
	vs.cooldown(p, vehicleKey(t.ID), t.Cooldown, now)

	if vs.w.roll.Float64() < res.Chance {
		modelID := t.Models[rules.RollRange(vs.w.roll.Float64(), 0, len(t.Models)-1)]
		m, _ := vs.w.cat.Model(modelID)
		v := player.Vehicle{
			ID:        uuid.NewString(),
			ModelID:   m.ID,
			Condition: rules.RollRange(vs.w.roll.Float64(), t.MinCondition, t.MaxCondition),
			StolenAt:  now,
		}
		p.Garage = append(p.Garage, v)
		p.Record.CarsStolen++
		vs.refreshCapacity(p)
		res.Success = true
		res.Vehicle = &v
		res.ModelName = m.Name
		res.Value = m.Value * v.Condition / 100
		res.XP = t.XP
		p.AddHeat(t.Heat / 2)
	} else {
		res.XP = 1
		p.AddHeat(t.Heat)
		if vs.w.roll.Float64() < rules.JailChance(t.JailChance, p.Stats.Stealth) {
			res.Jailed = true
			res.JailedFor = vs.jail(p, t.JailTime, "Caught stealing a car", now)
		}
	}
	res.RankUp = vs.gainXP(p, res.XP, now)

	vs.emit(now, events.EventTypeVehicleStolen, p.ID, t.ID, res)
	if res.Success {
		vs.logger.Event("VEHICLE_STOLEN", p.ID, res.ModelName)
	}
	return res, nil
}

// Sell fences a car from the garage.
func (vs *VehicleSystem) Sell(p *player.Player, vehicleID string, now time.Time) (SaleResult, error) {
	v := p.Vehicle(vehicleID)
	if v == nil {
		return SaleResult{}, ErrUnknownVehicle
	}
	m, _ := vs.w.cat.Model(v.ModelID)
	price := rules.SalePrice(m.Value, v.Condition, vs.w.cat.Limits.SellRate, p.Stats.Charisma, vs.skill(p, catalog.SkillSilverTongue))

	p.RemoveVehicle(vehicleID)
	p.Cash += price
	vs.refreshCapacity(p)

	res := SaleResult{VehicleID: vehicleID, ModelID: m.ID, ModelName: m.Name, Price: price, Cash: p.Cash}
	vs.emit(now, events.EventTypeVehicleSold, p.ID, vehicleID, res)
	vs.logger.Event("VEHICLE_SOLD", p.ID, m.Name)
	return res, nil
}

// Repair restores a car to full condition.
func (vs *VehicleSystem) Repair(p *player.Player, vehicleID string, now time.Time) (RepairResult, error) {
	v := p.Vehicle(vehicleID)
	if v == nil {
		return RepairResult{}, ErrUnknownVehicle
	}
	if v.Condition >= 100 {
		return RepairResult{}, ErrNoRepairNeeded
	}
	m, _ := vs.w.cat.Model(v.ModelID)
	cost := rules.RepairCost(m.Value, v.Condition)
	if !p.Spend(cost) {
		return RepairResult{}, ErrNotEnoughCash
	}
	v.Condition = 100

	res := RepairResult{VehicleID: vehicleID, Cost: cost, Condition: v.Condition, Cash: p.Cash}
	vs.emit(now, events.EventTypeVehicleRepaired, p.ID, vehicleID, res)
	return res, nil
}
