package engine

import (
	"sort"
	"time"

	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
)

// Leaderboards.
const (
	BoardXP       = "xp"
	BoardCash     = "cash"
	BoardNetWorth = "networth"
	BoardCrimes   = "crimes"
	BoardCasino   = "casino"
)

// LeaderboardEntry is one row of a leaderboard.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	RankName string `json:"rank_name"`
	Value    int64  `json:"value"`
}

// WorldState is everything needed to rebuild the engine after a restart.
type WorldState struct {
	Players     []player.Player               `json:"players"`
	Families    []family.Family               `json:"families"`
	Territories []family.Territory            `json:"territories"`
	Markets     map[string]map[string]float64 `json:"markets"`
	Tick        int64                         `json:"tick"`
}

// Player returns a deep copy of a player brought up to date with the clock.
func (e *Engine) Player(playerID string) (player.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, _, err := e.settled(playerID)
	if err != nil {
		return player.Player{}, err
	}
	return p.Clone(), nil
}

// BailQuote returns the current bail price, zero when not jailed.
func (e *Engine) BailQuote(playerID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.settled(playerID)
	if err != nil {
		return 0, err
	}
	if !p.IsJailed(now) {
		return 0, nil
	}
	return e.jailSystem.Quote(p, now), nil
}

// Players returns copies of every player sorted by name.
func (e *Engine) Players() []player.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]player.Player, 0, len(e.w.players))
	for _, p := range e.w.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Families lists every family.
func (e *Engine) Families() []FamilyView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.familySystem.Views()
}

// Family returns one family.
func (e *Engine) Family(familyID string) (FamilyView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.w.families[familyID]
	if !ok {
		return FamilyView{}, ErrFamilyNotFound
	}
	return e.familySystem.view(f), nil
}

// Territories returns copies of every territory sorted by ID.
func (e *Engine) Territories() []family.Territory {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := e.turfSystem.sortedTerritories()
	out := make([]family.Territory, len(ts))
	for i, t := range ts {
		out[i] = *t
	}
	return out
}

// Profile is the public face of a player, safe to show to anyone.
type Profile struct {
	PlayerID     string        `json:"player_id"`
	Name         string        `json:"name"`
	Rank         int           `json:"rank"`
	RankName     string        `json:"rank_name"`
	XP           int           `json:"xp"`
	NetWorth     int64         `json:"net_worth"`
	City         string        `json:"city"`
	FamilyID     string        `json:"family_id,omitempty"`
	FamilyName   string        `json:"family_name,omitempty"`
	Jailed       bool          `json:"jailed"`
	Hospitalized bool          `json:"hospitalized"`
	Record       player.Record `json:"record"`

	// FreshUntil is when the time-dependent fields may next change on their
	// own: a release, an arrival, or business accrual moving net worth.
	FreshUntil time.Time `json:"-"`
}

// ProfileFreshness bounds how long a profile's net worth is taken as current.
const ProfileFreshness = 30 * time.Second

// Profile returns a player's public profile.
func (e *Engine) Profile(playerID string) (Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.settled(playerID)
	if err != nil {
		return Profile{}, err
	}
	pr := Profile{
		PlayerID:     p.ID,
		Name:         p.Name,
		Rank:         p.Rank,
		RankName:     e.w.cat.Ranks[p.Rank].Name,
		XP:           p.XP,
		NetWorth:     e.netWorth(p),
		City:         p.City,
		FamilyID:     p.FamilyID,
		Jailed:       p.IsJailed(now),
		Hospitalized: p.IsHospitalized(now),
		Record:       p.Record,
		FreshUntil:   now.Add(ProfileFreshness),
	}
	for _, until := range []time.Time{p.JailedUntil, p.HospitalUntil, p.ArrivesAt} {
		if until.After(now) && until.Before(pr.FreshUntil) {
			pr.FreshUntil = until
		}
	}
	if f, ok := e.w.families[p.FamilyID]; ok {
		pr.FamilyName = f.Name
	}
	return pr, nil
}

// TickNumber returns the last processed tick.
func (e *Engine) TickNumber() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.tick
}

func (e *Engine) netWorth(p *player.Player) int64 {
	total := int64(p.Cash) + int64(p.Bank)
	for _, v := range p.Garage {
		if m, ok := e.w.cat.Model(v.ModelID); ok {
			total += int64(m.Value * v.Condition / 100)
		}
	}
	for _, ob := range p.Businesses {
		if b, ok := e.w.cat.Business(ob.BusinessID); ok {
			total += int64(b.Cost)
		}
	}
	return total
}

// Leaderboard ranks players by a metric. Ties are broken by name.
func (e *Engine) Leaderboard(by string, n int) ([]LeaderboardEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var value func(p *player.Player) int64
	switch by {
	case BoardXP, "":
		value = func(p *player.Player) int64 { return int64(p.XP) }
	case BoardCash:
		value = func(p *player.Player) int64 { return int64(p.Cash) + int64(p.Bank) }
	case BoardNetWorth:
		value = e.netWorth
	case BoardCrimes:
		value = func(p *player.Player) int64 { return int64(p.Record.CrimesSucceeded) }
	case BoardCasino:
		value = func(p *player.Player) int64 { return p.Record.CasinoNet }
	default:
		return nil, ErrUnknownBoard
	}

	rows := make([]LeaderboardEntry, 0, len(e.w.players))
	for _, p := range e.w.players {
		rows = append(rows, LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			RankName: e.w.cat.Ranks[p.Rank].Name,
			Value:    value(p),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Name < rows[j].Name
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows, nil
}
