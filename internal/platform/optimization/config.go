// Package optimization provides concurrency tuning profiles for the server.
package optimization

import (
	"fmt"
	"runtime"
	"strings"
)

// Profile names accepted by ForProfile.
const (
	ProfileDefault = "default"
	ProfileStress  = "stress"
	ProfileLow     = "low"
)

// Config holds tuned buffer and pool sizes.
type Config struct {
	// Channel buffer sizes
	EventPersistBuffer     int
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Caches
	ProfileCacheSize int

	// Rate limiting
	HTTPRequestsPerSecond float64
	HTTPBurst             int
	MaxClients            int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventPersistBuffer:     1024,
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		ProfileCacheSize: 4096,

		HTTPRequestsPerSecond: 20,
		HTTPBurst:             40,
		MaxClients:            1000,
	}
}

// StressTestConfig returns aggressive settings for load testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventPersistBuffer:     4096,
		BroadcastChannelBuffer: 1024,
		ClientSendBuffer:       256,

		DBMaxOpenConns: numCPU * 8,
		DBMaxIdleConns: numCPU * 4,

		ProfileCacheSize: 16384,

		HTTPRequestsPerSecond: 500,
		HTTPBurst:             1000,
		MaxClients:            5000,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		EventPersistBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,

		ProfileCacheSize: 256,

		HTTPRequestsPerSecond: 5,
		HTTPBurst:             10,
		MaxClients:            50,
	}
}

// ForProfile returns the named profile.
func ForProfile(name string) (*Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStress:
		return StressTestConfig(), nil
	case ProfileLow:
		return LowResourceConfig(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreasePersistBuffer   bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	IncreaseRateLimit       bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.IncreasePersistBuffer = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - enlarge the event persist buffer")
		}
	}

	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	if actions, ok := metrics["actions"].(map[string]interface{}); ok {
		total, _ := actions["total"].(int64)
		limited, _ := actions["rate_limited"].(int64)
		if total > 100 && limited*10 > total {
			rec.IncreaseRateLimit = true
			rec.Notes = append(rec.Notes, "More than 10% of requests rate limited - raise the HTTP limit")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreasePersistBuffer {
		config.EventPersistBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	if rec.IncreaseRateLimit {
		config.HTTPRequestsPerSecond *= 1.5
		config.HTTPBurst *= 2
	}
	return config
}
