package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
)

// DefaultTickRate defines how often the world updates when not configured.
const DefaultTickRate = 1 * time.Minute

// TimeTickPayload is the data attached to each TimeTickEvent.
type TimeTickPayload struct {
	TickNumber int64     `json:"tick_number"`
	At         time.Time `json:"at"`
}

// Ticker manages the game loop heartbeat.
// It does NOT know about players or businesses - only time progression.
type Ticker struct {
	mu         sync.Mutex
	eventLog   *events.EventLog
	logger     *logger.Logger
	rate       time.Duration
	clock      func() time.Time
	tickNumber int64
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTicker creates a new world ticker.
func NewTicker(eventLog *events.EventLog, log *logger.Logger, rate time.Duration, clock func() time.Time) *Ticker {
	return &Ticker{
		eventLog: eventLog,
		logger:   log,
		rate:     rate,
		clock:    clock,
		stopChan: make(chan struct{}),
	}
}

// Start begins the game loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine Ticker started every " + t.rate.String())

	ticker := time.NewTicker(t.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// SetTickNumber resumes counting from a restored world.
func (t *Ticker) SetTickNumber(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickNumber = n
}

// TickNumber returns the number of ticks emitted so far.
func (t *Ticker) TickNumber() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickNumber
}

// tick emits a single TIME_TICK event. Subsystems react when it is processed.
func (t *Ticker) tick() {
	t.mu.Lock()
	t.tickNumber++
	n := t.tickNumber
	t.mu.Unlock()

	now := t.clock()
	t.eventLog.Append(events.GameEvent{
		Timestamp: now,
		Type:      events.EventTypeTimeTick,
		ActorID:   events.SystemActor,
		Payload:   TimeTickPayload{TickNumber: n, At: now},
	})
	t.logger.Event("TIME_TICK", events.SystemActor, "Tick "+strconv.FormatInt(n, 10))
}
