// Package config reads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cosanostra-game/server/internal/infra/storage"
	"github.com/cosanostra-game/server/internal/platform/optimization"
)

// Config is everything cmd/mafia-server needs to wire the process.
type Config struct {
	Addr string

	DBDialect   storage.Dialect
	SQLitePath  string
	PostgresDSN string

	TuningPath string

	TickRate       time.Duration
	SaveEvery      time.Duration
	ActionRate     float64
	ActionBurst    int
	EventRetention int

	Profile string
	Tuning  *optimization.Config
}

// Load reads envFile when it exists (variables already set win) and then
// parses the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses configuration through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Addr:        get("MAFIA_ADDR", ":8080"),
		SQLitePath:  get("DB_SQLITE_PATH", filepath.Join("data", "mafia.db")),
		PostgresDSN: get("DB_POSTGRES_DSN", get("DATABASE_URL", "")),
		TuningPath:  get("MAFIA_TUNING_PATH", ""),
		Profile:     get("MAFIA_PROFILE", optimization.ProfileDefault),
	}

	var err error
	if cfg.DBDialect, err = storage.ParseDialect(get("DB_DIALECT", "sqlite")); err != nil {
		return cfg, fmt.Errorf("DB_DIALECT: %w", err)
	}
	if cfg.DBDialect == storage.DialectPostgres && cfg.PostgresDSN == "" {
		return cfg, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
	}
	if cfg.TickRate, err = parseDuration("MAFIA_TICK_RATE", get("MAFIA_TICK_RATE", "1m")); err != nil {
		return cfg, err
	}
	if cfg.SaveEvery, err = parseDuration("MAFIA_SAVE_EVERY", get("MAFIA_SAVE_EVERY", "10s")); err != nil {
		return cfg, err
	}
	if cfg.ActionRate, err = strconv.ParseFloat(get("MAFIA_ACTION_RATE", "5"), 64); err != nil || cfg.ActionRate <= 0 {
		return cfg, fmt.Errorf("MAFIA_ACTION_RATE: must be a positive number")
	}
	if cfg.ActionBurst, err = parsePositiveInt("MAFIA_ACTION_BURST", get("MAFIA_ACTION_BURST", "10")); err != nil {
		return cfg, err
	}
	if cfg.EventRetention, err = parsePositiveInt("MAFIA_EVENT_RETENTION", get("MAFIA_EVENT_RETENTION", "5000")); err != nil {
		return cfg, err
	}
	if cfg.Tuning, err = optimization.ForProfile(cfg.Profile); err != nil {
		return cfg, fmt.Errorf("MAFIA_PROFILE: %w", err)
	}
	return cfg, nil
}

// StorageOptions converts the database settings for storage.Open.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Dialect:      c.DBDialect,
		SQLitePath:   c.SQLitePath,
		PostgresDSN:  c.PostgresDSN,
		MaxOpenConns: c.Tuning.DBMaxOpenConns,
		MaxIdleConns: c.Tuning.DBMaxIdleConns,
	}
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func parsePositiveInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: must be a positive integer, got %q", key, v)
	}
	return n, nil
}
