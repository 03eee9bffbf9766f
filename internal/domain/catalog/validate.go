package catalog

import (
	"errors"
	"fmt"
)

var validStats = map[string]bool{
	"strength":     true,
	"stealth":      true,
	"driving":      true,
	"charisma":     true,
	"intelligence": true,
}

// Validate checks the internal consistency of the tables.
func (c *Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Ranks) == 0 {
		add("ranks: at least one rank is required")
	} else if c.Ranks[0].MinXP != 0 {
		add("ranks: first rank must start at 0 xp")
	}
	for i := 1; i < len(c.Ranks); i++ {
		if c.Ranks[i].MinXP <= c.Ranks[i-1].MinXP {
			add("ranks: %s must require more xp than %s", c.Ranks[i].Name, c.Ranks[i-1].Name)
		}
	}
	rankOK := func(table, id string, r int) {
		if r < 0 || r >= len(c.Ranks) {
			add("%s %s: min_rank %d out of range", table, id, r)
		}
	}
	probOK := func(table, id, field string, p float64) {
		if p < 0 || p > 1 {
			add("%s %s: %s %.3f not in [0,1]", table, id, field, p)
		}
	}
	unique := func(table string, ids []string) map[string]bool {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if id == "" {
				add("%s: empty id", table)
				continue
			}
			if seen[id] {
				add("%s: duplicate id %s", table, id)
			}
			seen[id] = true
		}
		return seen
	}

	crimeIDs := make([]string, 0, len(c.Crimes))
	for _, cr := range c.Crimes {
		crimeIDs = append(crimeIDs, cr.ID)
		rankOK("crime", cr.ID, cr.MinRank)
		probOK("crime", cr.ID, "base_chance", cr.BaseChance)
		probOK("crime", cr.ID, "jail_chance", cr.JailChance)
		if !validStats[cr.Stat] {
			add("crime %s: unknown stat %q", cr.ID, cr.Stat)
		}
		if cr.MinReward > cr.MaxReward || cr.MinReward < 0 {
			add("crime %s: invalid reward range %d..%d", cr.ID, cr.MinReward, cr.MaxReward)
		}
		if cr.StaminaCost < 0 {
			add("crime %s: negative stamina cost", cr.ID)
		}
	}
	unique("crimes", crimeIDs)

	modelIDs := make([]string, 0, len(c.VehicleModels))
	for _, m := range c.VehicleModels {
		modelIDs = append(modelIDs, m.ID)
		if m.Value <= 0 {
			add("vehicle model %s: value must be positive", m.ID)
		}
		if m.Speed < 0 || m.Speed > 100 {
			add("vehicle model %s: speed %d not in [0,100]", m.ID, m.Speed)
		}
	}
	models := unique("vehicle_models", modelIDs)

	tierIDs := make([]string, 0, len(c.VehicleTiers))
	for _, t := range c.VehicleTiers {
		tierIDs = append(tierIDs, t.ID)
		rankOK("vehicle tier", t.ID, t.MinRank)
		probOK("vehicle tier", t.ID, "base_chance", t.BaseChance)
		probOK("vehicle tier", t.ID, "jail_chance", t.JailChance)
		if len(t.Models) == 0 {
			add("vehicle tier %s: empty model pool", t.ID)
		}
		for _, m := range t.Models {
			if !models[m] {
				add("vehicle tier %s: unknown model %s", t.ID, m)
			}
		}
		if t.MinCondition < 1 || t.MaxCondition > 100 || t.MinCondition > t.MaxCondition {
			add("vehicle tier %s: invalid condition range %d..%d", t.ID, t.MinCondition, t.MaxCondition)
		}
	}
	unique("vehicle_tiers", tierIDs)

	goodIDs := make([]string, 0, len(c.Goods))
	for _, g := range c.Goods {
		goodIDs = append(goodIDs, g.ID)
		if g.BasePrice <= 0 {
			add("good %s: base price must be positive", g.ID)
		}
		probOK("good", g.ID, "volatility", g.Volatility)
	}
	goods := unique("goods", goodIDs)

	cityIDs := make([]string, 0, len(c.Cities))
	for _, city := range c.Cities {
		cityIDs = append(cityIDs, city.ID)
		for g, mod := range city.PriceModifiers {
			if !goods[g] {
				add("city %s: price modifier for unknown good %s", city.ID, g)
			}
			if mod <= 0 {
				add("city %s: price modifier for %s must be positive", city.ID, g)
			}
		}
	}
	cities := unique("cities", cityIDs)
	if len(c.Cities) < 2 {
		add("cities: at least two cities are required")
	}
	if !cities[c.Limits.StartingCity] {
		add("limits: unknown starting city %q", c.Limits.StartingCity)
	}

	bizIDs := make([]string, 0, len(c.Businesses))
	for _, b := range c.Businesses {
		bizIDs = append(bizIDs, b.ID)
		rankOK("business", b.ID, b.MinRank)
		if b.MaxLevel < 1 {
			add("business %s: max_level must be at least 1", b.ID)
		}
		if b.ProducesGood != "" && !goods[b.ProducesGood] {
			add("business %s: produces unknown good %s", b.ID, b.ProducesGood)
		}
		if b.StorageHours <= 0 {
			add("business %s: storage_hours must be positive", b.ID)
		}
	}
	unique("businesses", bizIDs)

	heistIDs := make([]string, 0, len(c.Heists))
	for _, h := range c.Heists {
		heistIDs = append(heistIDs, h.ID)
		rankOK("heist", h.ID, h.MinRank)
		probOK("heist", h.ID, "base_chance", h.BaseChance)
		probOK("heist", h.ID, "jail_chance", h.JailChance)
		if len(h.Stages) == 0 {
			add("heist %s: at least one stage is required", h.ID)
		}
		if h.MinPayout > h.MaxPayout || h.MinPayout < 0 {
			add("heist %s: invalid payout range %d..%d", h.ID, h.MinPayout, h.MaxPayout)
		}
		prepIDs := make([]string, 0, len(h.Prep))
		for _, p := range h.Prep {
			prepIDs = append(prepIDs, p.ID)
		}
		unique("heist "+h.ID+" prep", prepIDs)
	}
	unique("heists", heistIDs)

	skillIDs := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		skillIDs = append(skillIDs, s.ID)
		if s.MaxLevel < 1 || s.PointCost < 1 {
			add("skill %s: max_level and point_cost must be positive", s.ID)
		}
	}
	skills := unique("skills", skillIDs)
	for _, s := range c.Skills {
		for _, req := range s.Requires {
			if req == s.ID {
				add("skill %s: requires itself", s.ID)
			} else if !skills[req] {
				add("skill %s: unknown prerequisite %s", s.ID, req)
			}
		}
	}

	npcIDs := make([]string, 0, len(c.NPCFamilies))
	for _, f := range c.NPCFamilies {
		npcIDs = append(npcIDs, f.ID)
	}
	npcs := unique("npc_families", npcIDs)

	terrIDs := make([]string, 0, len(c.Territories))
	for _, t := range c.Territories {
		terrIDs = append(terrIDs, t.ID)
		if t.Controller != "" && !npcs[t.Controller] {
			add("territory %s: unknown controller %s", t.ID, t.Controller)
		}
		if t.MaxInfluence <= 0 || t.StartInfluence < 0 || t.StartInfluence > t.MaxInfluence {
			add("territory %s: invalid influence %d/%d", t.ID, t.StartInfluence, t.MaxInfluence)
		}
	}
	unique("territories", terrIDs)

	if c.Casino.MinBet <= 0 || c.Casino.MaxBetPerRank < c.Casino.MinBet {
		add("casino: invalid bet limits %d..%d", c.Casino.MinBet, c.Casino.MaxBetPerRank)
	}
	if c.Casino.Reels < 2 || len(c.Casino.Symbols) == 0 {
		add("casino: slots need at least two reels and one symbol")
	}
	for _, s := range c.Casino.Symbols {
		if s.Weight <= 0 {
			add("casino: symbol %s must have positive weight", s.ID)
		}
	}
	if c.Casino.HouseEdge < 0 || c.Casino.HouseEdge >= 0.5 {
		add("casino: house_edge %.3f not in [0,0.5)", c.Casino.HouseEdge)
	}

	if c.Limits.ConquestInfluence <= 0 || c.Limits.FortifyCostPerPoint <= 0 {
		add("limits: conquest_influence and fortify_cost_per_point must be positive")
	}
	if c.Limits.BaseStamina <= 0 || c.Limits.BaseCapacity <= 0 || c.Limits.BaseGarage <= 0 {
		add("limits: base stamina, capacity and garage must be positive")
	}
	rankOK("limits", "family", c.Limits.FamilyMinRank)

	return errors.Join(errs...)
}
