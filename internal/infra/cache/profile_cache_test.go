package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/cosanostra-game/server/internal/engine"
)

func TestProfileLoadsOnceUntilInvalidated(t *testing.T) {
	c := NewProfileCache(Options{})
	loads := 0
	load := func(id string) (engine.Profile, error) {
		loads++
		return engine.Profile{PlayerID: id, XP: loads}, nil
	}

	for i := 0; i < 3; i++ {
		p, err := c.Profile("p1", load)
		if err != nil || p.XP != 1 {
			t.Fatalf("unexpected profile %+v %v", p, err)
		}
	}
	if loads != 1 {
		t.Errorf("expected one load, got %d", loads)
	}

	c.InvalidatePlayer("p1")
	if p, _ := c.Profile("p1", load); p.XP != 2 {
		t.Errorf("expected a reload after invalidation, got %+v", p)
	}
}

func TestProfileReloadsWhenNoLongerFresh(t *testing.T) {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	c := NewProfileCache(Options{Clock: func() time.Time { return now }})
	loads := 0
	load := func(id string) (engine.Profile, error) {
		loads++
		return engine.Profile{PlayerID: id, Jailed: loads == 1, FreshUntil: now.Add(2 * time.Minute)}, nil
	}

	c.Profile("p1", load)
	now = now.Add(time.Minute)
	if p, _ := c.Profile("p1", load); !p.Jailed || loads != 1 {
		t.Errorf("expected the cached profile within its window, got %+v after %d loads", p, loads)
	}
	now = now.Add(24 * time.Hour)
	if p, _ := c.Profile("p1", load); p.Jailed || loads != 2 {
		t.Errorf("expected a reload once the release time passed, got %+v after %d loads", p, loads)
	}
}

func TestProfileErrorsAreNotCached(t *testing.T) {
	c := NewProfileCache(Options{})
	boom := errors.New("boom")
	if _, err := c.Profile("p1", func(string) (engine.Profile, error) { return engine.Profile{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("errors should not be cached")
	}
}

func TestLeaderboardExpires(t *testing.T) {
	c := NewProfileCache(Options{LeaderboardTTL: 20 * time.Millisecond})
	loads := 0
	load := func(by string, n int) ([]engine.LeaderboardEntry, error) {
		loads++
		return []engine.LeaderboardEntry{{Position: 1, Name: by}}, nil
	}

	c.Leaderboard("xp", 10, load)
	c.Leaderboard("xp", 10, load)
	c.Leaderboard("cash", 10, load)
	if loads != 2 {
		t.Errorf("expected one load per board, got %d", loads)
	}

	c.InvalidatePlayer("p1")
	c.Leaderboard("xp", 10, load)
	if loads != 2 {
		t.Errorf("player invalidation should not touch boards")
	}

	time.Sleep(60 * time.Millisecond)
	c.Leaderboard("xp", 10, load)
	if loads != 3 {
		t.Errorf("expected a reload after the TTL, got %d loads", loads)
	}
}
