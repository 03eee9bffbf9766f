package engine

import (
	"math"
	"sort"
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
)

// world is the mutable game state shared by every system. It is only touched
// while the engine lock is held.
type world struct {
	cat         *catalog.Catalog
	roll        rules.Roller
	players     map[string]*player.Player
	families    map[string]*family.Family
	territories map[string]*family.Territory
	markets     map[string]map[string]float64 // city -> good -> price
	tick        int64
}

func newWorld(cat *catalog.Catalog, roll rules.Roller) *world {
	return &world{
		cat:         cat,
		roll:        roll,
		players:     make(map[string]*player.Player),
		families:    make(map[string]*family.Family),
		territories: make(map[string]*family.Territory),
		markets:     make(map[string]map[string]float64),
	}
}

// system carries what every subsystem needs.
type system struct {
	w        *world
	eventLog *events.EventLog
	logger   *logger.Logger
}

func (s *system) emit(now time.Time, t events.EventType, actorID, targetID string, payload interface{}) events.GameEvent {
	return s.eventLog.Append(events.GameEvent{
		Timestamp: now,
		Type:      t,
		ActorID:   actorID,
		TargetID:  targetID,
		Payload:   payload,
	})
}

// skill returns the total effect of a learned skill: level times its catalog amount.
func (s *system) skill(p *player.Player, id string) float64 {
	lvl := p.SkillLevel(id)
	if lvl == 0 {
		return 0
	}
	sk, ok := s.w.cat.Skill(id)
	if !ok {
		return 0
	}
	return float64(lvl) * sk.Amount
}

func (s *system) bonuses(p *player.Player) family.Bonuses {
	if p.FamilyID == "" {
		return family.Bonuses{}
	}
	return family.BonusesFor(p.FamilyID, s.sortedTerritories())
}

func (s *system) sortedTerritories() []*family.Territory {
	out := make([]*family.Territory, 0, len(s.w.territories))
	for _, t := range s.w.territories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *system) garageCapacity(p *player.Player) int {
	return s.w.cat.Limits.BaseGarage + int(s.skill(p, catalog.SkillBigGarage))
}

func (s *system) maxStamina(p *player.Player) int {
	return s.w.cat.Limits.BaseStamina + int(s.skill(p, catalog.SkillIronLungs))
}

// refreshCapacity recomputes carry capacity from skills and the roomiest car.
func (s *system) refreshCapacity(p *player.Player) {
	best := 0
	for _, v := range p.Garage {
		if m, ok := s.w.cat.Model(v.ModelID); ok && m.Capacity > best {
			best = m.Capacity
		}
	}
	p.Inventory.Capacity = s.w.cat.Limits.BaseCapacity + int(s.skill(p, catalog.SkillSmuggler)) + best
}

// checkCooldown returns a *CooldownError if key is still blocked.
func checkCooldown(p *player.Player, key string, now time.Time) error {
	if rem := p.CooldownRemaining(key, now); rem > 0 {
		return &CooldownError{Action: key, Remaining: rem}
	}
	return nil
}

// cooldown starts key's cooldown, shortened by fast hands.
func (s *system) cooldown(p *player.Player, key string, d time.Duration, now time.Time) {
	p.SetCooldown(key, rules.ScaleCooldown(d, s.skill(p, catalog.SkillFastHands)), now)
}

// gainXP adds xp, promotes and grants skill points once per rank gained.
// Returns true on promotion.
func (s *system) gainXP(p *player.Player, xp int, now time.Time) bool {
	if xp <= 0 {
		return false
	}
	p.XP += xp
	rank := rules.RankForXP(s.w.cat.Ranks, p.XP)
	if rank <= p.Rank {
		return false
	}
	gained := rank - p.Rank
	p.Rank = rank
	p.SkillPoints += gained * s.w.cat.Limits.PointsPerRank
	s.emit(now, events.EventTypeRankUp, p.ID, "", RankUpPayload{
		Rank:        rank,
		RankName:    s.w.cat.Ranks[rank].Name,
		PointsGiven: gained * s.w.cat.Limits.PointsPerRank,
	})
	s.logger.Event("RANK_UP", p.ID, "Promoted to "+s.w.cat.Ranks[rank].Name)
	return true
}

// jail locks the player up for d shortened by the lawyer skill. Returns the sentence.
func (s *system) jail(p *player.Player, d time.Duration, reason string, now time.Time) time.Duration {
	sentence := rules.JailDuration(d, s.skill(p, catalog.SkillLawyer))
	p.JailedUntil = now.Add(sentence)
	p.Record.TimesJailed++
	s.emit(now, events.EventTypeJailed, events.SystemActor, p.ID, JailPayload{
		Reason: reason,
		Until:  p.JailedUntil,
	})
	s.logger.Event("JAILED", p.ID, reason)
	return sentence
}

// hurt applies damage and sends the player to hospital when health runs out.
func (s *system) hurt(p *player.Player, amount int, now time.Time) bool {
	if amount <= 0 || !p.Damage(amount) {
		return false
	}
	p.HospitalUntil = now.Add(s.w.cat.Regen.HospitalTime)
	s.emit(now, events.EventTypeHospitalized, events.SystemActor, p.ID, HospitalPayload{Until: p.HospitalUntil})
	s.logger.Event("HOSPITALIZED", p.ID, "Taken to hospital")
	return true
}

// settle brings a player up to now: regeneration, business accrual and
// timer releases. Elapsed time is capped at the catalog's catch-up limit.
func (s *system) settle(p *player.Player, now time.Time) {
	elapsed := s.catchUp(p.LastTick, now)
	if elapsed > 0 {
		regen := s.w.cat.Regen
		p.MaxStamina = s.maxStamina(p)
		p.Stamina = rules.Regenerate(p.Stamina, float64(p.MaxStamina), regen.StaminaPerMinute, elapsed)
		p.Health = rules.Regenerate(p.Health, player.MaxHealth, regen.HealthPerMinute, elapsed)
		p.Heat = rules.DecayHeat(p.Heat, regen.HeatDecayPerMinute, elapsed)
	}
	if now.After(p.LastTick) {
		p.LastTick = now
	}

	bonus := s.bonuses(p)
	for i := range p.Businesses {
		s.accrue(&p.Businesses[i], bonus.IncomePct, now)
	}

	if !p.JailedUntil.IsZero() && !p.IsJailed(now) {
		p.JailedUntil = time.Time{}
		s.emit(now, events.EventTypeReleased, events.SystemActor, p.ID, nil)
	}
	if !p.HospitalUntil.IsZero() && !p.IsHospitalized(now) {
		p.HospitalUntil = time.Time{}
		p.Health = math.Max(p.Health, player.MaxHealth/2)
		s.emit(now, events.EventTypeDischarged, events.SystemActor, p.ID, nil)
	}
	if p.TravelTo != "" && !p.IsTraveling(now) {
		from := p.City
		p.City = p.TravelTo
		p.TravelTo = ""
		p.ArrivesAt = time.Time{}
		s.emit(now, events.EventTypeTravelArrived, p.ID, "", TravelPayload{From: from, To: p.City})
	}
	p.PruneCooldowns(now)
}

func (s *system) catchUp(last, now time.Time) time.Duration {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	elapsed := now.Sub(last)
	if limit := s.w.cat.Regen.MaxCatchUp; limit > 0 && elapsed > limit {
		elapsed = limit
	}
	return elapsed
}

// accrue fills a business till and production since its last accrual,
// capped at StorageHours worth of output.
func (s *system) accrue(ob *player.OwnedBusiness, incomeBonus float64, now time.Time) {
	elapsed := s.catchUp(ob.LastAccrued, now)
	if now.After(ob.LastAccrued) {
		ob.LastAccrued = now
	}
	if elapsed <= 0 {
		return
	}
	b, ok := s.w.cat.Business(ob.BusinessID)
	if !ok {
		return
	}
	if b.IncomePerHour > 0 {
		limit := float64(b.IncomePerHour*ob.Level) * b.StorageHours * (1 + incomeBonus)
		ob.Till = math.Min(ob.Till+rules.AccruedIncome(b.IncomePerHour, ob.Level, elapsed, incomeBonus), limit)
	}
	if b.ProducesGood != "" && b.UnitsPerHour > 0 {
		limit := b.UnitsPerHour * float64(ob.Level) * b.StorageHours
		ob.Produced = math.Min(ob.Produced+rules.ProducedUnits(b.UnitsPerHour, ob.Level, elapsed), limit)
	}
}
