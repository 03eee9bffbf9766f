// Package player defines the core domain entity for a criminal career.
// This package is PURE and must NOT import any infrastructure packages.
package player

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/item"
)

// Stat names.
const (
	StatStrength     = "strength"
	StatStealth      = "stealth"
	StatDriving      = "driving"
	StatCharisma     = "charisma"
	StatIntelligence = "intelligence"

	MaxStat   = 100
	MaxHealth = 100
	MaxHeat   = 100
)

// Stats are the trainable attributes, each 0-100.
type Stats struct {
	Strength     int `json:"strength"`
	Stealth      int `json:"stealth"`
	Driving      int `json:"driving"`
	Charisma     int `json:"charisma"`
	Intelligence int `json:"intelligence"`
}

// Vehicle is a stolen car in the garage.
type Vehicle struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Condition int       `json:"condition"` // 1-100
	StolenAt  time.Time `json:"stolen_at"`
}

// OwnedBusiness is a front owned by the player.
type OwnedBusiness struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	Level       int       `json:"level"`
	Till        float64   `json:"till"`     // uncollected cash
	Produced    float64   `json:"produced"` // uncollected units
	LastAccrued time.Time `json:"last_accrued"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Record keeps lifetime counters.
type Record struct {
	CrimesAttempted int   `json:"crimes_attempted"`
	CrimesSucceeded int   `json:"crimes_succeeded"`
	CarsStolen      int   `json:"cars_stolen"`
	HeistsAttempted int   `json:"heists_attempted"`
	HeistsSucceeded int   `json:"heists_succeeded"`
	TimesJailed     int   `json:"times_jailed"`
	TimesBusted     int   `json:"times_busted"`
	CasinoNet       int64 `json:"casino_net"`
	TurfAttacks     int   `json:"turf_attacks"`
	Conquests       int   `json:"conquests"`
	Donated         int64 `json:"donated"`
}

// Player represents the state of a single criminal career.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Economics
	Cash int `json:"cash"`
	Bank int `json:"bank"`

	// Progression
	XP          int            `json:"xp"`
	Rank        int            `json:"rank"`
	SkillPoints int            `json:"skill_points"`
	Skills      map[string]int `json:"skills"`
	Stats       Stats          `json:"stats"`

	// Vitals
	Health     float64 `json:"health"`
	Stamina    float64 `json:"stamina"`
	MaxStamina int     `json:"max_stamina"`
	Heat       float64 `json:"heat"`

	// Location and timers
	City          string               `json:"city"`
	TravelTo      string               `json:"travel_to,omitempty"`
	ArrivesAt     time.Time            `json:"arrives_at"`
	JailedUntil   time.Time            `json:"jailed_until"`
	HospitalUntil time.Time            `json:"hospital_until"`
	Cooldowns     map[string]time.Time `json:"cooldowns"`
	LastTick      time.Time            `json:"last_tick"`

	// Holdings
	Garage     []Vehicle       `json:"garage"`
	Inventory  item.Inventory  `json:"inventory"`
	Businesses []OwnedBusiness `json:"businesses"`

	FamilyID string `json:"family_id,omitempty"`
	Record   Record `json:"record"`
}

// New creates a fresh career.
func New(id, name, city string, cash, stamina, capacity int, now time.Time) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		CreatedAt:  now,
		Cash:       cash,
		Skills:     make(map[string]int),
		Stats:      Stats{Strength: 5, Stealth: 5, Driving: 5, Charisma: 5, Intelligence: 5},
		Health:     MaxHealth,
		Stamina:    float64(stamina),
		MaxStamina: stamina,
		City:       city,
		Cooldowns:  make(map[string]time.Time),
		LastTick:   now,
		Inventory:  item.NewInventory(capacity),
	}
}

// IsJailed reports whether the player is behind bars at now.
func (p *Player) IsJailed(now time.Time) bool {
	return now.Before(p.JailedUntil)
}

// IsHospitalized reports whether the player is recovering at now.
func (p *Player) IsHospitalized(now time.Time) bool {
	return now.Before(p.HospitalUntil)
}

// IsTraveling reports whether the player is on the road at now.
func (p *Player) IsTraveling(now time.Time) bool {
	return p.TravelTo != "" && now.Before(p.ArrivesAt)
}

// CooldownRemaining returns how long until key may be used again.
func (p *Player) CooldownRemaining(key string, now time.Time) time.Duration {
	until, ok := p.Cooldowns[key]
	if !ok || !now.Before(until) {
		return 0
	}
	return until.Sub(now)
}

// SetCooldown blocks key for d from now.
func (p *Player) SetCooldown(key string, d time.Duration, now time.Time) {
	if p.Cooldowns == nil {
		p.Cooldowns = make(map[string]time.Time)
	}
	p.Cooldowns[key] = now.Add(d)
}

// PruneCooldowns drops expired cooldown entries.
func (p *Player) PruneCooldowns(now time.Time) {
	for k, until := range p.Cooldowns {
		if !now.Before(until) {
			delete(p.Cooldowns, k)
		}
	}
}

// SkillLevel returns the learned level of a skill.
func (p *Player) SkillLevel(id string) int {
	return p.Skills[id]
}

// Stat returns a stat by name and whether the name is known.
func (p *Player) Stat(name string) (int, bool) {
	switch name {
	case StatStrength:
		return p.Stats.Strength, true
	case StatStealth:
		return p.Stats.Stealth, true
	case StatDriving:
		return p.Stats.Driving, true
	case StatCharisma:
		return p.Stats.Charisma, true
	case StatIntelligence:
		return p.Stats.Intelligence, true
	}
	return 0, false
}

// RaiseStat increases a stat by one, capped at MaxStat. Returns the new value.
func (p *Player) RaiseStat(name string) (int, bool) {
	var s *int
	switch name {
	case StatStrength:
		s = &p.Stats.Strength
	case StatStealth:
		s = &p.Stats.Stealth
	case StatDriving:
		s = &p.Stats.Driving
	case StatCharisma:
		s = &p.Stats.Charisma
	case StatIntelligence:
		s = &p.Stats.Intelligence
	default:
		return 0, false
	}
	if *s < MaxStat {
		*s++
	}
	return *s, true
}

// Spend removes cash if the player has enough.
func (p *Player) Spend(amount int) bool {
	if amount < 0 || p.Cash < amount {
		return false
	}
	p.Cash -= amount
	return true
}

// UseStamina removes stamina if the player has enough.
func (p *Player) UseStamina(amount int) bool {
	if p.Stamina < float64(amount) {
		return false
	}
	p.Stamina -= float64(amount)
	return true
}

// AddHeat raises heat, capped at MaxHeat.
func (p *Player) AddHeat(h float64) {
	p.Heat += h
	if p.Heat > MaxHeat {
		p.Heat = MaxHeat
	}
	if p.Heat < 0 {
		p.Heat = 0
	}
}

// Damage lowers health and reports whether the player went down.
func (p *Player) Damage(amount int) bool {
	p.Health -= float64(amount)
	if p.Health <= 0 {
		p.Health = 0
		return true
	}
	return false
}

// Vehicle returns a pointer to a garage entry.
func (p *Player) Vehicle(id string) *Vehicle {
	for i := range p.Garage {
		if p.Garage[i].ID == id {
			return &p.Garage[i]
		}
	}
	return nil
}

// RemoveVehicle takes a car out of the garage.
func (p *Player) RemoveVehicle(id string) (Vehicle, bool) {
	for i, v := range p.Garage {
		if v.ID == id {
			p.Garage = append(p.Garage[:i], p.Garage[i+1:]...)
			return v, true
		}
	}
	return Vehicle{}, false
}

// Business returns a pointer to an owned business.
func (p *Player) Business(id string) *OwnedBusiness {
	for i := range p.Businesses {
		if p.Businesses[i].ID == id {
			return &p.Businesses[i]
		}
	}
	return nil
}

// OwnsBusinessType reports whether the player already owns a business of the given catalog ID.
func (p *Player) OwnsBusinessType(businessID string) bool {
	for _, b := range p.Businesses {
		if b.BusinessID == businessID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the engine lock.
func (p *Player) Clone() Player {
	c := *p
	c.Skills = make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		c.Skills[k] = v
	}
	c.Cooldowns = make(map[string]time.Time, len(p.Cooldowns))
	for k, v := range p.Cooldowns {
		c.Cooldowns[k] = v
	}
	c.Garage = append([]Vehicle(nil), p.Garage...)
	c.Businesses = append([]OwnedBusiness(nil), p.Businesses...)
	c.Inventory = p.Inventory.Clone()
	return c
}

// Deposit moves cash into the bank, keeping fee. Returns false if cash is short.
func (p *Player) Deposit(amount, fee int) bool {
	if amount <= 0 || fee < 0 || fee > amount || p.Cash < amount {
		return false
	}
	p.Cash -= amount
	p.Bank += amount - fee
	return true
}

// Withdraw moves money from the bank to cash.
func (p *Player) Withdraw(amount int) bool {
	if amount <= 0 || p.Bank < amount {
		return false
	}
	p.Bank -= amount
	p.Cash += amount
	return true
}
