package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

func TestCrimeSuccess(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")

	// success roll, then reward roll at the bottom of the range
	h.roll.Reset(0.5, 0.0)
	res, err := h.e.CommitCrime(p.ID, "pickpocket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Chance-0.71) > 1e-9 {
		t.Errorf("expected chance 0.71, got %.4f", res.Chance)
	}
	if !res.Success || res.Reward != 10 || res.XP != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	if p.Cash != 510 || p.Stamina != 95 || p.Heat != 0.5 || p.XP != 3 {
		t.Errorf("unexpected player state cash=%d stamina=%.1f heat=%.1f xp=%d", p.Cash, p.Stamina, p.Heat, p.XP)
	}
	if h.count(events.EventTypeCrimeCommitted) != 1 {
		t.Errorf("expected one CRIME_COMMITTED event")
	}
}

func TestCrimeCooldownRefusalLeavesPlayerUnchanged(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	h.roll.Reset(0.0)
	if _, err := h.e.CommitCrime(p.ID, "pickpocket"); err != nil {
		t.Fatalf("first crime: %v", err)
	}
	before := p.Clone()

	h.clock.Advance(10 * time.Second)
	_, err := h.e.CommitCrime(p.ID, "pickpocket")
	var cd *CooldownError
	if !errors.As(err, &cd) || !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if cd.Remaining != 20*time.Second {
		t.Errorf("expected 20s remaining, got %s", cd.Remaining)
	}
	if p.Cash != before.Cash || p.XP != before.XP {
		t.Errorf("refused crime changed the player")
	}

	h.clock.Advance(20 * time.Second)
	if _, err := h.e.CommitCrime(p.ID, "pickpocket"); err != nil {
		t.Errorf("cooldown should have expired: %v", err)
	}
}

func TestCrimeGates(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")

	if _, err := h.e.CommitCrime(p.ID, "jaywalking"); !errors.Is(err, ErrUnknownCrime) {
		t.Errorf("expected ErrUnknownCrime, got %v", err)
	}
	if _, err := h.e.CommitCrime(p.ID, "mugging"); !errors.Is(err, ErrRankTooLow) {
		t.Errorf("expected ErrRankTooLow, got %v", err)
	}
	p.Stamina = 2
	if _, err := h.e.CommitCrime(p.ID, "pickpocket"); !errors.Is(err, ErrNotEnoughStamina) {
		t.Errorf("expected ErrNotEnoughStamina, got %v", err)
	}
	if p.Stamina != 2 {
		t.Errorf("refusal spent stamina")
	}
	if _, err := h.e.CommitCrime("ghost", "pickpocket"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestCrimeFailureJailAndBail(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")

	// failure roll, then arrest roll
	h.roll.Reset(0.9, 0.0)
	res, err := h.e.CommitCrime(p.ID, "pickpocket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !res.Jailed || res.JailedFor != 2*time.Minute || res.XP != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := h.e.CommitCrime(p.ID, "shoplift"); !errors.Is(err, ErrJailed) {
		t.Errorf("expected ErrJailed, got %v", err)
	}

	quote, _ := h.e.BailQuote(p.ID)
	if quote != 200 {
		t.Errorf("expected bail 200, got %d", quote)
	}
	bail, err := h.e.PostBail(p.ID)
	if err != nil {
		t.Fatalf("bail: %v", err)
	}
	if bail.Cost != 200 || p.Cash != 300 || p.IsJailed(h.clock.now) {
		t.Errorf("unexpected bail outcome %+v cash=%d", bail, p.Cash)
	}
	if _, err := h.e.PostBail(p.ID); !errors.Is(err, ErrNotJailed) {
		t.Errorf("expected ErrNotJailed, got %v", err)
	}
}

func TestJailReleaseIsLazyAndEmittedOnce(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	h.roll.Reset(0.9, 0.0)
	h.e.CommitCrime(p.ID, "pickpocket")

	h.clock.Advance(2 * time.Minute)
	if _, err := h.e.Player(p.ID); err != nil {
		t.Fatal(err)
	}
	h.e.Tick()
	if _, err := h.e.Player(p.ID); err != nil {
		t.Fatal(err)
	}
	if n := h.count(events.EventTypeReleased); n != 1 {
		t.Errorf("expected exactly one RELEASED event, got %d", n)
	}
	if !p.JailedUntil.IsZero() {
		t.Errorf("jail timer should be cleared")
	}
}

func TestLawyerShortensSentence(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Skills["lawyer"] = 3
	h.roll.Reset(0.9, 0.0)
	res, _ := h.e.CommitCrime(p.ID, "pickpocket")
	if res.JailedFor != 84*time.Second {
		t.Errorf("expected 2m*0.7=84s, got %s", res.JailedFor)
	}
}

func TestFastHandsShortensCooldown(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Skills["fast_hands"] = 5
	h.roll.Reset(0.0)
	h.e.CommitCrime(p.ID, "pickpocket")
	if got := p.CooldownRemaining(crimeKey("pickpocket"), h.clock.now); got != 21*time.Second {
		t.Errorf("expected 21s cooldown, got %s", got)
	}
}

func TestCrimeInjuryHospitalizes(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Health = 1

	// failure, no arrest
	h.roll.Reset(0.99, 0.99)
	res, err := h.e.CommitCrime(p.ID, "shoplift")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Hospitalized || p.Health != 0 {
		t.Fatalf("expected hospitalization, got %+v health=%.1f", res, p.Health)
	}
	if _, err := h.e.CommitCrime(p.ID, "pickpocket"); !errors.Is(err, ErrHospitalized) {
		t.Errorf("expected ErrHospitalized, got %v", err)
	}

	h.clock.Advance(10 * time.Minute)
	got, _ := h.e.Player(p.ID)
	if got.Health != 50 || !got.HospitalUntil.IsZero() {
		t.Errorf("expected discharge at 50 health, got %.1f", got.Health)
	}
}

func TestRankUpGrantsSkillPointsOnce(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.XP = 98

	h.roll.Reset(0.0)
	res, _ := h.e.CommitCrime(p.ID, "pickpocket")
	if !res.RankUp || p.Rank != 1 || p.SkillPoints != 4 {
		t.Errorf("expected promotion to rank 1 with 4 points, got rank=%d points=%d", p.Rank, p.SkillPoints)
	}
	h.clock.Advance(time.Minute)
	res, _ = h.e.CommitCrime(p.ID, "pickpocket")
	if res.RankUp || p.SkillPoints != 4 {
		t.Errorf("points granted twice for one rank")
	}
	if h.count(events.EventTypeRankUp) != 1 {
		t.Errorf("expected one RANK_UP event")
	}
}

func TestCrimeChanceAlwaysClamped(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	for _, c := range h.e.Catalog().Crimes {
		for _, heat := range []float64{0, 100} {
			for _, stat := range []int{0, 100} {
				p.Heat = heat
				p.Stats.Stealth, p.Stats.Strength, p.Stats.Charisma, p.Stats.Intelligence = stat, stat, stat, stat
				p.Rank = 9
				ch := h.e.crimeSystem.Chance(p, c)
				if ch < rules.MinCrimeChance || ch > rules.MaxCrimeChance {
					t.Errorf("%s chance %.3f out of range", c.ID, ch)
				}
			}
		}
	}
}
