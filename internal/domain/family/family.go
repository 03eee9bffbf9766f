// Package family defines player guilds and the territories they fight over.
// This package is PURE and must NOT import any infrastructure packages.
package family

import "time"

// Member is a player's membership record.
type Member struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Donated  int64     `json:"donated"`
	JoinedAt time.Time `json:"joined_at"`
}

// Family is a guild led by its biggest donor.
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Members   []Member  `json:"members"`
	Treasury  int64     `json:"treasury"`
	DonID     string    `json:"don_id"`
	NPC       bool      `json:"npc"`
}

// New creates an empty family.
func New(id, name string, now time.Time) *Family {
	return &Family{ID: id, Name: name, CreatedAt: now}
}

// HasMember reports whether playerID belongs to the family.
func (f *Family) HasMember(playerID string) bool {
	return f.member(playerID) != nil
}

func (f *Family) member(playerID string) *Member {
	for i := range f.Members {
		if f.Members[i].PlayerID == playerID {
			return &f.Members[i]
		}
	}
	return nil
}

// AddMember adds a player. Returns false if already a member.
func (f *Family) AddMember(playerID, name string, now time.Time) bool {
	if f.HasMember(playerID) {
		return false
	}
	f.Members = append(f.Members, Member{PlayerID: playerID, Name: name, JoinedAt: now})
	return true
}

// RemoveMember removes a player. Returns false if not a member.
func (f *Family) RemoveMember(playerID string) bool {
	for i, m := range f.Members {
		if m.PlayerID == playerID {
			f.Members = append(f.Members[:i], f.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Donate credits amount to the member and the treasury.
func (f *Family) Donate(playerID string, amount int64) bool {
	m := f.member(playerID)
	if m == nil || amount <= 0 {
		return false
	}
	m.Donated += amount
	f.Treasury += amount
	return true
}

// RecomputeDon sets the Don to the member with the largest total donation.
// Ties go to the earliest joiner. Returns true when the Don changed.
func (f *Family) RecomputeDon() bool {
	prev := f.DonID
	f.DonID = ""
	var best *Member
	for i := range f.Members {
		m := &f.Members[i]
		if best == nil ||
			m.Donated > best.Donated ||
			(m.Donated == best.Donated && m.JoinedAt.Before(best.JoinedAt)) {
			best = m
		}
	}
	if best != nil {
		f.DonID = best.PlayerID
	}
	return f.DonID != prev
}

// Territory is a contested zone; influence at zero hands it to the attacker.
type Territory struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ControllerID   string    `json:"controller_id"`
	Influence      int       `json:"influence"`
	MaxInfluence   int       `json:"max_influence"`
	IncomeBonusPct float64   `json:"income_bonus_pct"`
	CrimeBonusPct  float64   `json:"crime_bonus_pct"`
	RegenPerHour   float64   `json:"regen_per_hour"`
	RegenCarry     float64   `json:"regen_carry"`
	LastChange     time.Time `json:"last_change"`
	LastTick       time.Time `json:"last_tick"`
}

// Bonuses are the family-wide modifiers from held territory.
type Bonuses struct {
	IncomePct float64 `json:"income_pct"`
	CrimePct  float64 `json:"crime_pct"`
	Held      int     `json:"held"`
}

// BonusesFor sums the bonuses of every territory controlled by familyID.
func BonusesFor(familyID string, territories []*Territory) Bonuses {
	var b Bonuses
	if familyID == "" {
		return b
	}
	for _, t := range territories {
		if t.ControllerID == familyID {
			b.IncomePct += t.IncomeBonusPct
			b.CrimePct += t.CrimeBonusPct
			b.Held++
		}
	}
	return b
}
