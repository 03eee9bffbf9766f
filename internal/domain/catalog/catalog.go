// Package catalog holds the balance tables of the game: ranks, crimes, vehicles,
// goods, cities, businesses, heists, skills, territories and the casino.
// This package is PURE and must NOT import any infrastructure packages.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Skill IDs with hard-wired effects in the engine.
const (
	SkillCrimeMastery = "crime_mastery" // +crime chance per level
	SkillGreed        = "greed"         // +reward pct per level
	SkillFastHands    = "fast_hands"    // -cooldown pct per level
	SkillLawyer       = "lawyer"        // -jail time pct per level
	SkillWheelman     = "wheelman"      // +vehicle theft chance per level
	SkillBigGarage    = "big_garage"    // +garage slots per level
	SkillSmuggler     = "smuggler"      // +carry capacity per level
	SkillMastermind   = "mastermind"    // +heist chance per level
	SkillIronLungs    = "iron_lungs"    // +max stamina per level
	SkillSilverTongue = "silver_tongue" // +sale price pct per level
)

// Rank is a progression tier unlocked by accumulated criminal XP.
type Rank struct {
	Name  string `yaml:"name" json:"name"`
	MinXP int    `yaml:"min_xp" json:"min_xp"`
}

// Crime is a repeatable solo crime.
type Crime struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	MinRank     int           `yaml:"min_rank" json:"min_rank"`
	Stat        string        `yaml:"stat" json:"stat"`
	BaseChance  float64       `yaml:"base_chance" json:"base_chance"`
	StatWeight  float64       `yaml:"stat_weight" json:"stat_weight"`
	MinReward   int           `yaml:"min_reward" json:"min_reward"`
	MaxReward   int           `yaml:"max_reward" json:"max_reward"`
	XP          int           `yaml:"xp" json:"xp"`
	Heat        float64       `yaml:"heat" json:"heat"`
	StaminaCost int           `yaml:"stamina_cost" json:"stamina_cost"`
	Cooldown    time.Duration `yaml:"cooldown" json:"cooldown"`
	JailChance  float64       `yaml:"jail_chance" json:"jail_chance"`
	JailTime    time.Duration `yaml:"jail_time" json:"jail_time"`
	Damage      int           `yaml:"damage" json:"damage"`
}

// VehicleTier is a class of target for grand theft auto.
type VehicleTier struct {
	ID           string        `yaml:"id" json:"id"`
	Name         string        `yaml:"name" json:"name"`
	MinRank      int           `yaml:"min_rank" json:"min_rank"`
	BaseChance   float64       `yaml:"base_chance" json:"base_chance"`
	StaminaCost  int           `yaml:"stamina_cost" json:"stamina_cost"`
	Cooldown     time.Duration `yaml:"cooldown" json:"cooldown"`
	JailChance   float64       `yaml:"jail_chance" json:"jail_chance"`
	JailTime     time.Duration `yaml:"jail_time" json:"jail_time"`
	XP           int           `yaml:"xp" json:"xp"`
	Heat         float64       `yaml:"heat" json:"heat"`
	MinCondition int           `yaml:"min_condition" json:"min_condition"`
	MaxCondition int           `yaml:"max_condition" json:"max_condition"`
	Models       []string      `yaml:"models" json:"models"`
}

// VehicleModel is a stealable car.
type VehicleModel struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Value    int    `yaml:"value" json:"value"`
	Speed    int    `yaml:"speed" json:"speed"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// Good is a smuggling commodity.
type Good struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	BasePrice  int     `yaml:"base_price" json:"base_price"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
	Risk       float64 `yaml:"risk" json:"risk"`
}

// City is a travel destination with its own market.
type City struct {
	ID             string             `yaml:"id" json:"id"`
	Name           string             `yaml:"name" json:"name"`
	TravelCost     int                `yaml:"travel_cost" json:"travel_cost"`
	TravelTime     time.Duration      `yaml:"travel_time" json:"travel_time"`
	PriceModifiers map[string]float64 `yaml:"price_modifiers" json:"price_modifiers"`
}

// Business is a front that earns passive income and may produce goods.
type Business struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	MinRank       int     `yaml:"min_rank" json:"min_rank"`
	Cost          int     `yaml:"cost" json:"cost"`
	UpgradeBase   int     `yaml:"upgrade_base" json:"upgrade_base"`
	MaxLevel      int     `yaml:"max_level" json:"max_level"`
	IncomePerHour int     `yaml:"income_per_hour" json:"income_per_hour"`
	ProducesGood  string  `yaml:"produces_good" json:"produces_good,omitempty"`
	UnitsPerHour  float64 `yaml:"units_per_hour" json:"units_per_hour,omitempty"`
	StorageHours  float64 `yaml:"storage_hours" json:"storage_hours"`
}

// PrepOption is a purchasable heist preparation.
type PrepOption struct {
	ID    string  `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Cost  int     `yaml:"cost" json:"cost"`
	Bonus float64 `yaml:"bonus" json:"bonus"`
}

// Heist is a multi-stage job with optional preparation.
type Heist struct {
	ID              string        `yaml:"id" json:"id"`
	Name            string        `yaml:"name" json:"name"`
	MinRank         int           `yaml:"min_rank" json:"min_rank"`
	BaseChance      float64       `yaml:"base_chance" json:"base_chance"`
	StaminaCost     int           `yaml:"stamina_cost" json:"stamina_cost"`
	Cooldown        time.Duration `yaml:"cooldown" json:"cooldown"`
	MinPayout       int           `yaml:"min_payout" json:"min_payout"`
	MaxPayout       int           `yaml:"max_payout" json:"max_payout"`
	XP              int           `yaml:"xp" json:"xp"`
	Heat            float64       `yaml:"heat" json:"heat"`
	JailChance      float64       `yaml:"jail_chance" json:"jail_chance"`
	JailTime        time.Duration `yaml:"jail_time" json:"jail_time"`
	RequiresVehicle bool          `yaml:"requires_vehicle" json:"requires_vehicle"`
	Stages          []string      `yaml:"stages" json:"stages"`
	Prep            []PrepOption  `yaml:"prep" json:"prep"`
}

// Skill is a node in the skill tree.
type Skill struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	MaxLevel  int      `yaml:"max_level" json:"max_level"`
	PointCost int      `yaml:"point_cost" json:"point_cost"`
	Amount    float64  `yaml:"amount" json:"amount"`
	Requires  []string `yaml:"requires" json:"requires,omitempty"`
}

// NPCFamily is a rival family that exists from the start of the world.
type NPCFamily struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Territory is a contested zone of the city.
type Territory struct {
	ID             string  `yaml:"id" json:"id"`
	Name           string  `yaml:"name" json:"name"`
	Controller     string  `yaml:"controller" json:"controller"`
	MaxInfluence   int     `yaml:"max_influence" json:"max_influence"`
	StartInfluence int     `yaml:"start_influence" json:"start_influence"`
	IncomeBonusPct float64 `yaml:"income_bonus_pct" json:"income_bonus_pct"`
	CrimeBonusPct  float64 `yaml:"crime_bonus_pct" json:"crime_bonus_pct"`
	RegenPerHour   float64 `yaml:"regen_per_hour" json:"regen_per_hour"`
}

// SlotSymbol is one weighted face of a slot reel.
type SlotSymbol struct {
	ID     string `yaml:"id" json:"id"`
	Weight int    `yaml:"weight" json:"weight"`
	Payout int    `yaml:"payout" json:"payout"` // multiplier for three of a kind
}

// Casino holds betting limits and the slot paytable.
type Casino struct {
	MinBet        int          `yaml:"min_bet" json:"min_bet"`
	MaxBetPerRank int          `yaml:"max_bet_per_rank" json:"max_bet_per_rank"`
	HouseEdge     float64      `yaml:"house_edge" json:"house_edge"`
	Reels         int          `yaml:"reels" json:"reels"`
	PairPayout    int          `yaml:"pair_payout" json:"pair_payout"`
	Symbols       []SlotSymbol `yaml:"symbols" json:"symbols"`
}

// Regen holds the passive per-minute rates applied on every tick.
type Regen struct {
	StaminaPerMinute   float64       `yaml:"stamina_per_minute" json:"stamina_per_minute"`
	HealthPerMinute    float64       `yaml:"health_per_minute" json:"health_per_minute"`
	HeatDecayPerMinute float64       `yaml:"heat_decay_per_minute" json:"heat_decay_per_minute"`
	MaxCatchUp         time.Duration `yaml:"max_catch_up" json:"max_catch_up"`
	HospitalTime       time.Duration `yaml:"hospital_time" json:"hospital_time"`
	BailPerMinute      int           `yaml:"bail_per_minute" json:"bail_per_minute"`
}

// Limits holds the remaining scalar tunables.
type Limits struct {
	StartingCash        int           `yaml:"starting_cash" json:"starting_cash"`
	StartingCity        string        `yaml:"starting_city" json:"starting_city"`
	BaseStamina         int           `yaml:"base_stamina" json:"base_stamina"`
	BaseGarage          int           `yaml:"base_garage" json:"base_garage"`
	BaseCapacity        int           `yaml:"base_capacity" json:"base_capacity"`
	SellRate            float64       `yaml:"sell_rate" json:"sell_rate"`
	BankFeePct          float64       `yaml:"bank_fee_pct" json:"bank_fee_pct"`
	PointsPerRank       int           `yaml:"points_per_rank" json:"points_per_rank"`
	StartingSkillPoints int           `yaml:"starting_skill_points" json:"starting_skill_points"`
	TrainStamina        int           `yaml:"train_stamina" json:"train_stamina"`
	TrainCost           int           `yaml:"train_cost" json:"train_cost"`
	TrainCooldown       time.Duration `yaml:"train_cooldown" json:"train_cooldown"`
	TurfStamina         int           `yaml:"turf_stamina" json:"turf_stamina"`
	TurfCooldown        time.Duration `yaml:"turf_cooldown" json:"turf_cooldown"`
	TurfDamageHealth    int           `yaml:"turf_damage_health" json:"turf_damage_health"`
	ConquestInfluence   int           `yaml:"conquest_influence" json:"conquest_influence"`
	FortifyCostPerPoint int           `yaml:"fortify_cost_per_point" json:"fortify_cost_per_point"`
	FamilyCost          int           `yaml:"family_cost" json:"family_cost"`
	FamilyMinRank       int           `yaml:"family_min_rank" json:"family_min_rank"`
	BustJailTime        time.Duration `yaml:"bust_jail_time" json:"bust_jail_time"`
}

// Catalog is the complete set of balance tables.
type Catalog struct {
	Ranks         []Rank         `yaml:"ranks" json:"ranks"`
	Crimes        []Crime        `yaml:"crimes" json:"crimes"`
	VehicleTiers  []VehicleTier  `yaml:"vehicle_tiers" json:"vehicle_tiers"`
	VehicleModels []VehicleModel `yaml:"vehicle_models" json:"vehicle_models"`
	Goods         []Good         `yaml:"goods" json:"goods"`
	Cities        []City         `yaml:"cities" json:"cities"`
	Businesses    []Business     `yaml:"businesses" json:"businesses"`
	Heists        []Heist        `yaml:"heists" json:"heists"`
	Skills        []Skill        `yaml:"skills" json:"skills"`
	NPCFamilies   []NPCFamily    `yaml:"npc_families" json:"npc_families"`
	Territories   []Territory    `yaml:"territories" json:"territories"`
	Casino        Casino         `yaml:"casino" json:"casino"`
	Regen         Regen          `yaml:"regen" json:"regen"`
	Limits        Limits         `yaml:"limits" json:"limits"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MaxRank returns the highest rank index.
func (c *Catalog) MaxRank() int {
	return len(c.Ranks) - 1
}

func (c *Catalog) Crime(id string) (Crime, bool) {
	for _, v := range c.Crimes {
		if v.ID == id {
			return v, true
		}
	}
	return Crime{}, false
}

func (c *Catalog) Tier(id string) (VehicleTier, bool) {
	for _, v := range c.VehicleTiers {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleTier{}, false
}

func (c *Catalog) Model(id string) (VehicleModel, bool) {
	for _, v := range c.VehicleModels {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleModel{}, false
}

func (c *Catalog) Good(id string) (Good, bool) {
	for _, v := range c.Goods {
		if v.ID == id {
			return v, true
		}
	}
	return Good{}, false
}

func (c *Catalog) City(id string) (City, bool) {
	for _, v := range c.Cities {
		if v.ID == id {
			return v, true
		}
	}
	return City{}, false
}

func (c *Catalog) Business(id string) (Business, bool) {
	for _, v := range c.Businesses {
		if v.ID == id {
			return v, true
		}
	}
	return Business{}, false
}

func (c *Catalog) Heist(id string) (Heist, bool) {
	for _, v := range c.Heists {
		if v.ID == id {
			return v, true
		}
	}
	return Heist{}, false
}

func (c *Catalog) Skill(id string) (Skill, bool) {
	for _, v := range c.Skills {
		if v.ID == id {
			return v, true
		}
	}
	return Skill{}, false
}

func (c *Catalog) Territory(id string) (Territory, bool) {
	for _, v := range c.Territories {
		if v.ID == id {
			return v, true
		}
	}
	return Territory{}, false
}

// PrepOption returns a preparation option of the heist.
func (h Heist) PrepOption(id string) (PrepOption, bool) {
	for _, p := range h.Prep {
		if p.ID == id {
			return p, true
		}
	}
	return PrepOption{}, false
}
