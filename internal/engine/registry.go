package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// RegisterPlayer adds or replaces a player, e.g. from storage or an import.
func (e *Engine) RegisterPlayer(p *player.Player) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registerPlayer(p)
	e.logger.Info("Player registered with engine: " + p.ID)
}

func (e *Engine) registerPlayer(p *player.Player) {
	if p.Skills == nil {
		p.Skills = make(map[string]int)
	}
	if p.Cooldowns == nil {
		p.Cooldowns = make(map[string]time.Time)
	}
	if p.Inventory.Goods == nil {
		p.Inventory.Goods = make(map[string]int)
	}
	if p.Rank >= len(e.w.cat.Ranks) {
		p.Rank = len(e.w.cat.Ranks) - 1
	}
	p.MaxStamina = e.regenSystem.maxStamina(p)
	e.regenSystem.refreshCapacity(p)
	e.w.players[p.ID] = p
}

// ImportPlayer brings an exported career back. The ID and name must be free.
// Family membership is dropped and the clock restarts at now. Vitals and stats
// are clamped, rank follows XP and skill points are capped at what the rank
// earned; anything that cannot be repaired is refused with ErrInvalidCareer.
func (e *Engine) ImportPlayer(in player.Player) (player.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := strings.TrimSpace(in.Name)
	if in.ID == "" || len(name) < 2 || len(name) > 24 {
		return player.Player{}, ErrInvalidName
	}
	if _, ok := e.w.players[in.ID]; ok {
		return player.Player{}, ErrPlayerExists
	}
	for _, p := range e.w.players {
		if strings.EqualFold(p.Name, name) {
			return player.Player{}, ErrNameTaken
		}
	}

	now := e.clock()
	p := in.Clone()
	p.Name = name
	p.FamilyID = ""
	p.LastTick = now
	if err := e.regenSystem.repairImport(&p, now); err != nil {
		return player.Player{}, err
	}
	e.registerPlayer(&p)

	e.regenSystem.emit(now, events.EventTypePlayerCreated, p.ID, "", map[string]string{"name": p.Name, "source": "import"})
	e.logger.Event("PLAYER_IMPORTED", p.ID, p.Name)
	return p.Clone(), nil
}

// RegisterFamily adds or replaces a family.
func (e *Engine) RegisterFamily(f *family.Family) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.families[f.ID] = f
}

// RegisterTerritory adds or replaces a territory.
func (e *Engine) RegisterTerritory(t *family.Territory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.territories[t.ID] = t
}

// SeedWorld creates the NPC families and territories from the catalog.
// Entries that already exist are left alone.
func (e *Engine) SeedWorld() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()

	for _, nf := range e.w.cat.NPCFamilies {
		if _, ok := e.w.families[nf.ID]; ok {
			continue
		}
		f := family.New(nf.ID, nf.Name, now)
		f.NPC = true
		e.w.families[f.ID] = f
	}
	for _, ct := range e.w.cat.Territories {
		if _, ok := e.w.territories[ct.ID]; ok {
			continue
		}
		e.w.territories[ct.ID] = &family.Territory{
			ID:             ct.ID,
			Name:           ct.Name,
			ControllerID:   ct.Controller,
			Influence:      ct.StartInfluence,
			MaxInfluence:   ct.MaxInfluence,
			IncomeBonusPct: ct.IncomeBonusPct,
			CrimeBonusPct:  ct.CrimeBonusPct,
			RegenPerHour:   ct.RegenPerHour,
			LastChange:     now,
			LastTick:       now,
		}
	}
	e.travelSystem.initMarkets()
	e.logger.Info("World seeded from catalog")
}

// Snapshot copies the whole world for persistence.
func (e *Engine) Snapshot() WorldState {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws := WorldState{
		Markets: make(map[string]map[string]float64, len(e.w.markets)),
		Tick:    e.w.tick,
	}
	for _, p := range e.w.players {
		ws.Players = append(ws.Players, p.Clone())
	}
	for _, f := range e.w.families {
		c := *f
		c.Members = append([]family.Member(nil), f.Members...)
		ws.Families = append(ws.Families, c)
	}
	for _, t := range e.w.territories {
		ws.Territories = append(ws.Territories, *t)
	}
	for city, prices := range e.w.markets {
		m := make(map[string]float64, len(prices))
		for g, v := range prices {
			m[g] = v
		}
		ws.Markets[city] = m
	}
	return ws
}

// Restore replaces the world with a snapshot and resumes the tick counter.
func (e *Engine) Restore(ws WorldState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.w.players = make(map[string]*player.Player, len(ws.Players))
	for i := range ws.Players {
		p := ws.Players[i]
		e.registerPlayer(&p)
	}
	e.w.families = make(map[string]*family.Family, len(ws.Families))
	for i := range ws.Families {
		f := ws.Families[i]
		e.w.families[f.ID] = &f
	}
	e.w.territories = make(map[string]*family.Territory, len(ws.Territories))
	for i := range ws.Territories {
		t := ws.Territories[i]
		e.w.territories[t.ID] = &t
	}
	e.w.markets = make(map[string]map[string]float64)
	for city, prices := range ws.Markets {
		m := make(map[string]float64, len(prices))
		for g, v := range prices {
			m[g] = v
		}
		e.w.markets[city] = m
	}
	e.travelSystem.initMarkets()
	e.w.tick = ws.Tick
	e.ticker.SetTickNumber(ws.Tick)
	e.logger.Info("World restored")
}

// repairImport brings an imported career back inside the game's bounds.
func (s *system) repairImport(p *player.Player, now time.Time) error {
	cat := s.w.cat
	if p.Cash < 0 || p.Bank < 0 || p.XP < 0 {
		return fmt.Errorf("%w: negative cash, bank or xp", ErrInvalidCareer)
	}
	if _, ok := cat.City(p.City); !ok {
		return fmt.Errorf("%w: unknown city %q", ErrInvalidCareer, p.City)
	}
	if p.TravelTo != "" {
		if _, ok := cat.City(p.TravelTo); !ok {
			return fmt.Errorf("%w: unknown destination %q", ErrInvalidCareer, p.TravelTo)
		}
	}

	spent := 0
	for id, lvl := range p.Skills {
		sk, ok := cat.Skill(id)
		if !ok || lvl < 0 || lvl > sk.MaxLevel {
			return fmt.Errorf("%w: skill %s at level %d", ErrInvalidCareer, id, lvl)
		}
		spent += lvl * sk.PointCost
	}
	p.Rank = rules.RankForXP(cat.Ranks, p.XP)
	earned := cat.Limits.StartingSkillPoints + p.Rank*cat.Limits.PointsPerRank
	if spent > earned {
		return fmt.Errorf("%w: %d skill points spent, rank earned %d", ErrInvalidCareer, spent, earned)
	}
	p.SkillPoints = min(max(p.SkillPoints, 0), earned-spent)

	for _, st := range []*int{&p.Stats.Strength, &p.Stats.Stealth, &p.Stats.Driving, &p.Stats.Charisma, &p.Stats.Intelligence} {
		*st = min(max(*st, 0), player.MaxStat)
	}
	p.Health = clampFloat(p.Health, 0, player.MaxHealth)
	if p.Health == 0 && !p.IsHospitalized(now) {
		p.Health = 1
	}
	p.Heat = clampFloat(p.Heat, 0, player.MaxHeat)
	p.MaxStamina = s.maxStamina(p)
	p.Stamina = clampFloat(p.Stamina, 0, float64(p.MaxStamina))

	if len(p.Garage) > s.garageCapacity(p) {
		return fmt.Errorf("%w: %d cars in a garage for %d", ErrInvalidCareer, len(p.Garage), s.garageCapacity(p))
	}
	for i := range p.Garage {
		v := &p.Garage[i]
		if _, ok := cat.Model(v.ModelID); !ok || v.ID == "" {
			return fmt.Errorf("%w: unknown car %q", ErrInvalidCareer, v.ModelID)
		}
		v.Condition = min(max(v.Condition, 1), 100)
	}
	s.refreshCapacity(p)
	for id, q := range p.Inventory.Goods {
		if _, ok := cat.Good(id); !ok || q < 0 {
			return fmt.Errorf("%w: %d units of %q", ErrInvalidCareer, q, id)
		}
		if q == 0 {
			delete(p.Inventory.Goods, id)
		}
	}
	if p.Inventory.Used() > p.Inventory.Capacity {
		return fmt.Errorf("%w: carrying %d with room for %d", ErrInvalidCareer, p.Inventory.Used(), p.Inventory.Capacity)
	}

	seen := make(map[string]bool, len(p.Businesses))
	for i := range p.Businesses {
		ob := &p.Businesses[i]
		b, ok := cat.Business(ob.BusinessID)
		if !ok || ob.ID == "" || seen[ob.BusinessID] {
			return fmt.Errorf("%w: business %q", ErrInvalidCareer, ob.BusinessID)
		}
		seen[ob.BusinessID] = true
		if ob.Till < 0 || ob.Produced < 0 || math.IsNaN(ob.Till) || math.IsNaN(ob.Produced) {
			return fmt.Errorf("%w: business %s has a negative till", ErrInvalidCareer, ob.ID)
		}
		ob.Level = min(max(ob.Level, 1), b.MaxLevel)
		ob.Till = math.Min(ob.Till, float64(b.IncomePerHour*ob.Level)*b.StorageHours)
		ob.Produced = math.Min(ob.Produced, b.UnitsPerHour*float64(ob.Level)*b.StorageHours)
		ob.LastAccrued = now
	}
	return nil
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
