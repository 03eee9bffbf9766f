// Package cache provides in-process caching for hot read paths.
// The engine stays the source of truth; entries here are disposable.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cosanostra-game/server/internal/engine"
)

const (
	DefaultProfileTTL     = 15 * time.Minute
	DefaultLeaderboardTTL = 30 * time.Second
)

// Options sizes the cache.
type Options struct {
	Size           int
	ProfileTTL     time.Duration
	LeaderboardTTL time.Duration
	// Clock is compared against a profile's FreshUntil. It must be the
	// engine's clock. Defaults to time.Now.
	Clock func() time.Time
}

// ProfileCache caches public profiles and leaderboards.
type ProfileCache struct {
	profiles *expirable.LRU[string, engine.Profile]
	boards   *expirable.LRU[string, []engine.LeaderboardEntry]
	clock    func() time.Time
}

// NewProfileCache creates a cache. Zero options fall back to defaults.
func NewProfileCache(opts Options) *ProfileCache {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	if opts.ProfileTTL <= 0 {
		opts.ProfileTTL = DefaultProfileTTL
	}
	if opts.LeaderboardTTL <= 0 {
		opts.LeaderboardTTL = DefaultLeaderboardTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ProfileCache{
		clock:    opts.Clock,
		profiles: expirable.NewLRU[string, engine.Profile](opts.Size, nil, opts.ProfileTTL),
		boards:   expirable.NewLRU[string, []engine.LeaderboardEntry](64, nil, opts.LeaderboardTTL),
	}
}

// Profile returns the cached profile, loading it on a miss or once the
// profile's FreshUntil has passed.
func (c *ProfileCache) Profile(playerID string, load func(string) (engine.Profile, error)) (engine.Profile, error) {
	if p, ok := c.profiles.Get(playerID); ok && (p.FreshUntil.IsZero() || c.clock().Before(p.FreshUntil)) {
		return p, nil
	}
	p, err := load(playerID)
	if err != nil {
		return engine.Profile{}, err
	}
	c.profiles.Add(playerID, p)
	return p, nil
}

// Leaderboard returns a cached board, loading it on a miss. Boards are
// never invalidated, only expired.
func (c *ProfileCache) Leaderboard(by string, n int, load func(string, int) ([]engine.LeaderboardEntry, error)) ([]engine.LeaderboardEntry, error) {
	key := boardKey(by, n)
	if rows, ok := c.boards.Get(key); ok {
		return rows, nil
	}
	rows, err := load(by, n)
	if err != nil {
		return nil, err
	}
	c.boards.Add(key, rows)
	return rows, nil
}

// InvalidatePlayer drops a player's cached profile.
func (c *ProfileCache) InvalidatePlayer(playerID string) {
	c.profiles.Remove(playerID)
}

// Purge empties the cache.
func (c *ProfileCache) Purge() {
	c.profiles.Purge()
	c.boards.Purge()
}

// Len reports cached profiles and boards.
func (c *ProfileCache) Len() (profiles, boards int) {
	return c.profiles.Len(), c.boards.Len()
}

// boardKey generates the key for a leaderboard page.
func boardKey(by string, n int) string {
	return fmt.Sprintf("board:%s:%d", by, n)
}
