// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Action outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeRefused = "refused"
	OutcomeError   = "error"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Action metrics
	ActionsTotal     int64
	ActionLatencySum int64
	RateLimited      int64
	actions          map[string]map[string]int64 // action -> outcome -> count

	// Persistence
	Saves          int64
	SaveErrors     int64
	SaveLatencyMax int64
	LastSaveTime   time.Time

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = newCollector()

func newCollector() *Collector {
	return &Collector{StartTime: time.Now(), actions: make(map[string]map[string]int64)}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordAction records one dispatched command and its outcome.
func (c *Collector) RecordAction(action, outcome string, latency time.Duration) {
	atomic.AddInt64(&c.ActionsTotal, 1)
	atomic.AddInt64(&c.ActionLatencySum, int64(latency))

	c.mu.Lock()
	byOutcome, ok := c.actions[action]
	if !ok {
		byOutcome = make(map[string]int64)
		c.actions[action] = byOutcome
	}
	byOutcome[outcome]++
	c.mu.Unlock()
}

// RecordRateLimited records a request dropped by a rate limiter.
func (c *Collector) RecordRateLimited() {
	atomic.AddInt64(&c.RateLimited, 1)
}

// RecordSave records a world save.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.Saves, 1)
	storeMax(&c.SaveLatencyMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
		return
	}
	c.mu.Lock()
	c.LastSaveTime = time.Now()
	c.mu.Unlock()
}

// ActionCount returns how many times action ended with outcome.
func (c *Collector) ActionCount(action, outcome string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actions[action][outcome]
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	actionsTotal := atomic.LoadInt64(&c.ActionsTotal)

	// Calculate averages
	var tickAvg, eventAvg, actionAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}
	if actionsTotal > 0 {
		actionAvg = float64(atomic.LoadInt64(&c.ActionLatencySum)) / float64(actionsTotal) / 1e6
	}

	byAction := make(map[string]map[string]int64, len(c.actions))
	for a, outcomes := range c.actions {
		m := make(map[string]int64, len(outcomes))
		for o, n := range outcomes {
			m[o] = n
		}
		byAction[a] = m
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"actions": map[string]interface{}{
			"total":          actionsTotal,
			"avg_latency_ms": actionAvg,
			"rate_limited":   atomic.LoadInt64(&c.RateLimited),
			"by_action":      byAction,
		},

		"saves": map[string]interface{}{
			"count":          atomic.LoadInt64(&c.Saves),
			"errors":         atomic.LoadInt64(&c.SaveErrors),
			"max_latency_ms": float64(atomic.LoadInt64(&c.SaveLatencyMax)) / 1e6,
			"last_save":      c.LastSaveTime.Format(time.RFC3339),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP mafia_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE mafia_tick_count counter\n")
		fmt.Fprintf(w, "mafia_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP mafia_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE mafia_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "mafia_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Event metrics
		fmt.Fprintf(w, "# HELP mafia_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE mafia_events_written counter\n")
		fmt.Fprintf(w, "mafia_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP mafia_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE mafia_event_write_errors counter\n")
		fmt.Fprintf(w, "mafia_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP mafia_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE mafia_ws_connections gauge\n")
		fmt.Fprintf(w, "mafia_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP mafia_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE mafia_ws_messages_total counter\n")
		fmt.Fprintf(w, "mafia_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "mafia_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		// Action metrics
		fmt.Fprintf(w, "# HELP mafia_actions_total Dispatched commands by action and outcome\n")
		fmt.Fprintf(w, "# TYPE mafia_actions_total counter\n")
		c.mu.RLock()
		names := make([]string, 0, len(c.actions))
		for a := range c.actions {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			for _, o := range []string{OutcomeOK, OutcomeRefused, OutcomeError} {
				if n, ok := c.actions[a][o]; ok {
					fmt.Fprintf(w, "mafia_actions_total{action=%q,outcome=%q} %d\n", a, o, n)
				}
			}
		}
		c.mu.RUnlock()
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP mafia_rate_limited_total Requests dropped by rate limiting\n")
		fmt.Fprintf(w, "# TYPE mafia_rate_limited_total counter\n")
		fmt.Fprintf(w, "mafia_rate_limited_total %d\n\n", atomic.LoadInt64(&c.RateLimited))

		// Persistence
		fmt.Fprintf(w, "# HELP mafia_saves_total World saves\n")
		fmt.Fprintf(w, "# TYPE mafia_saves_total counter\n")
		fmt.Fprintf(w, "mafia_saves_total %d\n\n", atomic.LoadInt64(&c.Saves))

		fmt.Fprintf(w, "# HELP mafia_save_errors_total Failed world saves\n")
		fmt.Fprintf(w, "# TYPE mafia_save_errors_total counter\n")
		fmt.Fprintf(w, "mafia_save_errors_total %d\n", atomic.LoadInt64(&c.SaveErrors))
	}
}
