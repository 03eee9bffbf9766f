package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
)

// Options configures an Engine. Zero values fall back to production defaults.
type Options struct {
	Roller   rules.Roller
	Clock    func() time.Time
	TickRate time.Duration
}

// Engine is the central orchestrator that wires the event log to the game mechanics.
type Engine struct {
	mu       sync.Mutex
	procMu   sync.Mutex
	eventLog *events.EventLog
	logger   *logger.Logger
	ticker   *Ticker
	clock    func() time.Time
	w        *world

	// Sub-systems
	crimeSystem    *CrimeSystem
	vehicleSystem  *VehicleSystem
	travelSystem   *TravelSystem
	businessSystem *BusinessSystem
	heistSystem    *HeistSystem
	casinoSystem   *CasinoSystem
	skillSystem    *SkillSystem
	jailSystem     *JailSystem
	familySystem   *FamilySystem
	turfSystem     *TurfSystem
	regenSystem    *RegenSystem

	// State
	lastProcessedSeq uint64
}

// NewEngine initializes the core game systems and dependencies.
func NewEngine(cat *catalog.Catalog, eventLog *events.EventLog, log *logger.Logger, opts Options) *Engine {
	if opts.Roller == nil {
		opts.Roller = rules.NewRoller(time.Now().UnixNano())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}

	w := newWorld(cat, opts.Roller)
	base := system{w: w, eventLog: eventLog, logger: log}

	e := &Engine{
		eventLog: eventLog,
		logger:   log,
		ticker:   NewTicker(eventLog, log, opts.TickRate, opts.Clock),
		clock:    opts.Clock,
		w:        w,

		crimeSystem:    &CrimeSystem{base},
		vehicleSystem:  &VehicleSystem{base},
		travelSystem:   &TravelSystem{base},
		businessSystem: &BusinessSystem{base},
		heistSystem:    &HeistSystem{base},
		casinoSystem:   &CasinoSystem{base},
		skillSystem:    &SkillSystem{base},
		jailSystem:     &JailSystem{base},
		familySystem:   &FamilySystem{base},
		turfSystem:     &TurfSystem{base},
		regenSystem:    &RegenSystem{base},

		lastProcessedSeq: eventLog.LastSeq(),
	}
	e.travelSystem.initMarkets()
	return e
}

// Start spawns the Ticker and the EventProcessor loop.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting rules engine...")

	// Start the world clock
	go e.ticker.Start(ctx)

	// Start the event processing loop
	go e.processEvents(ctx)
}

// Catalog returns the balance tables the engine runs on.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.w.cat
}

// GetEventLog exposes the event log.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Tick emits a TIME_TICK immediately and processes it synchronously.
func (e *Engine) Tick() {
	e.ticker.tick()
	e.ProcessPending()
}

// ProcessPending dispatches every event appended since the last call.
func (e *Engine) ProcessPending() {
	e.procMu.Lock()
	defer e.procMu.Unlock()

	for _, event := range e.eventLog.Since(e.lastProcessedSeq) {
		e.dispatch(event)
		e.lastProcessedSeq = event.Seq
	}
}

// processEvents polls the EventLog and dispatches new events to subsystems.
func (e *Engine) processEvents(ctx context.Context) {
	pollInterval := time.NewTicker(100 * time.Millisecond)
	defer pollInterval.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("EventProcessor stopped.")
			return
		case <-pollInterval.C:
			e.ProcessPending()
		}
	}
}

// dispatch routes a GameEvent to the subsystems that react to it.
func (e *Engine) dispatch(event events.GameEvent) {
	switch event.Type {
	case events.EventTypeTimeTick:
		if payload, ok := event.Payload.(TimeTickPayload); ok {
			e.HandleTick(payload)
		}
	}
}

// HandleTick applies one clock tick to the whole world.
func (e *Engine) HandleTick(payload TimeTickPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := payload.At
	if now.IsZero() {
		now = e.clock()
	}
	e.regenSystem.OnTimeTick(payload.TickNumber, now)
}

// lookup returns the live player record.
func (e *Engine) lookup(playerID string) (*player.Player, error) {
	p, ok := e.w.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// settled returns the player brought up to date with the clock.
func (e *Engine) settled(playerID string) (*player.Player, time.Time, error) {
	p, err := e.lookup(playerID)
	if err != nil {
		return nil, time.Time{}, err
	}
	now := e.clock()
	e.regenSystem.settle(p, now)
	return p, now, nil
}

// active returns a settled player who is free to act.
func (e *Engine) active(playerID string) (*player.Player, time.Time, error) {
	p, now, err := e.settled(playerID)
	if err != nil {
		return nil, now, err
	}
	switch {
	case p.IsJailed(now):
		return nil, now, ErrJailed
	case p.IsHospitalized(now):
		return nil, now, ErrHospitalized
	case p.IsTraveling(now):
		return nil, now, ErrTraveling
	}
	return p, now, nil
}
