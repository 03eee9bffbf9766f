package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
)

var t0 = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	e     *Engine
	clock *fakeClock
	roll  *rules.FixedRoller
	log   *events.EventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{
		clock: &fakeClock{now: t0},
		roll:  rules.NewFixedRoller(0.5),
		log:   events.NewEventLog(0),
	}
	h.e = NewEngine(cat, h.log, logger.NewNopLogger(), Options{Roller: h.roll, Clock: h.clock.Now})
	h.e.SeedWorld()
	return h
}

// newPlayer creates a player and returns the live record for direct setup.
func (h *harness) newPlayer(t *testing.T, name string) *player.Player {
	t.Helper()
	p, err := h.e.CreatePlayer(name)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	return h.e.w.players[p.ID]
}

func (h *harness) count(t events.EventType) int {
	n := 0
	for _, e := range h.log.Recent(0) {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestCreatePlayer(t *testing.T) {
	h := newHarness(t)
	p, err := h.e.CreatePlayer("Tony")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cash != 500 || p.City != "new_york" || p.SkillPoints != 1 || p.MaxStamina != 100 {
		t.Errorf("unexpected starting player: %+v", p)
	}
	if _, err := h.e.CreatePlayer("tony"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
	if _, err := h.e.CreatePlayer(" "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if _, err := h.e.Player("nope"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestPlayerQueryReturnsCopy(t *testing.T) {
	h := newHarness(t)
	live := h.newPlayer(t, "Tony")
	view, _ := h.e.Player(live.ID)
	view.Cash = 1_000_000
	view.Skills["greed"] = 5
	if live.Cash != 500 || live.Skills["greed"] != 0 {
		t.Errorf("query result must not alias engine state")
	}
}

func TestTickRegeneratesAndCapsCatchUp(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Stamina = 50
	p.Heat = 20

	h.clock.Advance(10 * time.Minute)
	h.e.Tick()
	if p.Stamina != 60 {
		t.Errorf("expected stamina 60 after 10m, got %.2f", p.Stamina)
	}
	if p.Heat != 15 {
		t.Errorf("expected heat 15 after 10m, got %.2f", p.Heat)
	}
	if h.e.TickNumber() != 1 {
		t.Errorf("expected tick 1, got %d", h.e.TickNumber())
	}

	// Controlled territory regenerates, capped at the catch-up window.
	li := h.e.w.territories["little_italy"]
	li.Influence = 100
	h.clock.Advance(48 * time.Hour)
	h.e.Tick()
	if li.Influence != 100+480 {
		t.Errorf("expected influence 580 after capped catch-up, got %d", li.Influence)
	}
	// Unclaimed territory does not regenerate.
	if harlem := h.e.w.territories["harlem"]; harlem.Influence != 300 {
		t.Errorf("unclaimed territory should not regenerate, got %d", harlem.Influence)
	}
}

func TestMarketDriftStaysInBand(t *testing.T) {
	h := newHarness(t)
	h.roll.Reset(1.0)
	for i := 0; i < 50; i++ {
		h.clock.Advance(time.Minute)
		h.e.Tick()
	}
	quotes, err := h.e.MarketPrices("new_york")
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	for _, q := range quotes {
		g, _ := h.e.Catalog().Good(q.GoodID)
		c, _ := h.e.Catalog().City("new_york")
		ceiling := int(2*float64(g.BasePrice)*c.PriceModifiers[g.ID] + 0.5)
		if q.Price > ceiling {
			t.Errorf("%s drifted above band: %d > %d", q.GoodID, q.Price, ceiling)
		}
	}
	if _, err := h.e.MarketPrices("atlantis"); !errors.Is(err, ErrUnknownCity) {
		t.Errorf("expected ErrUnknownCity, got %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	h := newHarness(t)
	a := h.newPlayer(t, "Alpha")
	b := h.newPlayer(t, "Bravo")
	c := h.newPlayer(t, "Charlie")
	a.XP, b.XP, c.XP = 50, 300, 50

	rows, err := h.e.Leaderboard(BoardXP, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Bravo" || rows[1].Name != "Alpha" || rows[1].Position != 2 {
		t.Errorf("unexpected leaderboard %+v", rows)
	}
	if _, err := h.e.Leaderboard("style", 10); !errors.Is(err, ErrUnknownBoard) {
		t.Errorf("expected ErrUnknownBoard, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Bank = 1000
	p.JailedUntil = t0.Add(time.Minute)

	pr, err := h.e.Profile(p.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if pr.Name != "Tony" || pr.NetWorth != 1500 || !pr.Jailed || pr.FamilyName != "" {
		t.Errorf("unexpected profile %+v", pr)
	}
	if _, err := h.e.Profile("ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Cash = 4242
	h.e.Tick()
	ws := h.e.Snapshot()

	h2 := newHarness(t)
	h2.e.Restore(ws)
	got, err := h2.e.Player(p.ID)
	if err != nil {
		t.Fatalf("restored player missing: %v", err)
	}
	if got.Cash != 4242 {
		t.Errorf("expected cash 4242, got %d", got.Cash)
	}
	if len(h2.e.Territories()) != len(h.e.Catalog().Territories) {
		t.Errorf("territories not restored")
	}
	if h2.e.TickNumber() != 1 {
		t.Errorf("expected tick 1 after restore, got %d", h2.e.TickNumber())
	}
	h2.e.Tick()
	if h2.e.TickNumber() != 2 {
		t.Errorf("tick counter should resume, got %d", h2.e.TickNumber())
	}
}

func TestEventSequenceStrictlyIncreasing(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	h.roll.Reset(0.0)
	h.e.CommitCrime(p.ID, "pickpocket")
	h.e.Tick()
	var last uint64
	for _, e := range h.log.Recent(0) {
		if e.Seq <= last {
			t.Fatalf("sequence went from %d to %d", last, e.Seq)
		}
		last = e.Seq
	}
}

func TestImportPlayer(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	exported := p.Clone()

	if _, err := h.e.ImportPlayer(exported); !errors.Is(err, ErrPlayerExists) {
		t.Errorf("expected ErrPlayerExists, got %v", err)
	}
	exported.ID = "other"
	if _, err := h.e.ImportPlayer(exported); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}

	exported.Name = "Paulie"
	exported.FamilyID = "gone"
	exported.Cash = 777
	h.clock.Advance(time.Hour)
	got, err := h.e.ImportPlayer(exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.ID != "other" || got.Cash != 777 || got.FamilyID != "" || !got.LastTick.Equal(t0.Add(time.Hour)) {
		t.Errorf("unexpected import %+v", got)
	}
}

func TestImportPlayerRepairsForgedCareer(t *testing.T) {
	h := newHarness(t)
	forged := h.newPlayer(t, "Tony").Clone()
	forged.ID, forged.Name = "forged", "Sonny"
	forged.Stats.Strength = 500
	forged.Stats.Stealth = -3
	forged.Health = 999
	forged.Stamina = 5000
	forged.Heat = -20
	forged.Rank = 5
	forged.XP = 450
	forged.SkillPoints = 999

	got, err := h.e.ImportPlayer(forged)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Stats.Strength != player.MaxStat || got.Stats.Stealth != 0 {
		t.Errorf("stats not clamped: %+v", got.Stats)
	}
	if got.Health != player.MaxHealth || got.Heat != 0 {
		t.Errorf("health %.0f heat %.0f", got.Health, got.Heat)
	}
	if got.Stamina != float64(got.MaxStamina) || got.MaxStamina != 100 {
		t.Errorf("stamina %.0f/%d", got.Stamina, got.MaxStamina)
	}
	// 450 XP is Hustler (rank 2): 1 starting point plus 3 per rank.
	if got.Rank != 2 || got.SkillPoints != 7 {
		t.Errorf("rank %d points %d, want 2 and 7", got.Rank, got.SkillPoints)
	}
}

func TestImportPlayerRefusesBrokenCareer(t *testing.T) {
	cases := []struct {
		name  string
		forge func(p *player.Player)
	}{
		{"negative cash", func(p *player.Player) { p.Cash = -1000 }},
		{"negative bank", func(p *player.Player) { p.Bank = -1 }},
		{"negative xp", func(p *player.Player) { p.XP = -5 }},
		{"unknown city", func(p *player.Player) { p.City = "atlantis" }},
		{"unknown skill", func(p *player.Player) { p.Skills["telekinesis"] = 1 }},
		{"skill over max", func(p *player.Player) { p.Skills["greed"] = 9 }},
		{"more skills than rank earned", func(p *player.Player) {
			p.Skills["lawyer"] = 5
		}},
		{"unknown good", func(p *player.Player) { p.Inventory.Goods["gold_bars"] = 1 }},
		{"overloaded", func(p *player.Player) { p.Inventory.Goods["cigarettes"] = 5000 }},
		{"unknown car", func(p *player.Player) {
			p.Garage = append(p.Garage, player.Vehicle{ID: "v1", ModelID: "batmobile"})
		}},
		{"unknown business", func(p *player.Player) {
			p.Businesses = append(p.Businesses, player.OwnedBusiness{ID: "b1", BusinessID: "mint", Level: 1})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			p := h.newPlayer(t, "Tony").Clone()
			p.ID, p.Name = "forged", "Sonny"
			tc.forge(&p)
			if _, err := h.e.ImportPlayer(p); !errors.Is(err, ErrInvalidCareer) {
				t.Errorf("expected ErrInvalidCareer, got %v", err)
			}
			if _, err := h.e.Player("forged"); !errors.Is(err, ErrPlayerNotFound) {
				t.Errorf("refused import must not register the player, got %v", err)
			}
		})
	}
}
