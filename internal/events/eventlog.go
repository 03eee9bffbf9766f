// Package events provides the append-only event log of the game.
// Every command outcome and every clock tick is recorded here; the live feed,
// the career history endpoint and the storage layer all read from it.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePlayerCreated    EventType = "PLAYER_CREATED"
	EventTypeCrimeCommitted   EventType = "CRIME_COMMITTED"
	EventTypeVehicleStolen    EventType = "VEHICLE_STOLEN"
	EventTypeVehicleSold      EventType = "VEHICLE_SOLD"
	EventTypeVehicleRepaired  EventType = "VEHICLE_REPAIRED"
	EventTypeGoodsBought      EventType = "GOODS_BOUGHT"
	EventTypeGoodsSold        EventType = "GOODS_SOLD"
	EventTypeSmugglerBusted   EventType = "SMUGGLER_BUSTED"
	EventTypeTravelStarted    EventType = "TRAVEL_STARTED"
	EventTypeTravelArrived    EventType = "TRAVEL_ARRIVED"
	EventTypeBusinessBought   EventType = "BUSINESS_BOUGHT"
	EventTypeBusinessUpgraded EventType = "BUSINESS_UPGRADED"
	EventTypeBusinessCollect  EventType = "BUSINESS_COLLECTED"
	EventTypeHeistExecuted    EventType = "HEIST_EXECUTED"
	EventTypeCasinoPlayed     EventType = "CASINO_PLAYED"
	EventTypeSkillLearned     EventType = "SKILL_LEARNED"
	EventTypeStatTrained      EventType = "STAT_TRAINED"
	EventTypeBankDeposit      EventType = "BANK_DEPOSIT"
	EventTypeBankWithdraw     EventType = "BANK_WITHDRAW"
	EventTypeFamilyCreated    EventType = "FAMILY_CREATED"
	EventTypeFamilyJoined     EventType = "FAMILY_JOINED"
	EventTypeFamilyLeft       EventType = "FAMILY_LEFT"
	EventTypeFamilyDisbanded  EventType = "FAMILY_DISBANDED"
	EventTypeFamilyDonation   EventType = "FAMILY_DONATION"
	EventTypeDonChanged       EventType = "DON_CHANGED"
	EventTypeTurfAttacked     EventType = "TURF_ATTACKED"
	EventTypeTurfConquered    EventType = "TURF_CONQUERED"
	EventTypeTurfFortified    EventType = "TURF_FORTIFIED"
	EventTypeJailed           EventType = "JAILED"
	EventTypeReleased         EventType = "RELEASED"
	EventTypeBailPosted       EventType = "BAIL_POSTED"
	EventTypeHospitalized     EventType = "HOSPITALIZED"
	EventTypeDischarged       EventType = "DISCHARGED"
	EventTypeRankUp           EventType = "RANK_UP"
	EventTypeTimeTick         EventType = "TIME_TICK"
)

// SystemActor is the actor of events not caused by a player.
const SystemActor = "SYSTEM"

// worldEvents are broadcast to every connected client.
var worldEvents = map[EventType]bool{
	EventTypeTurfConquered:   true,
	EventTypeDonChanged:      true,
	EventTypeFamilyCreated:   true,
	EventTypeFamilyDisbanded: true,
	EventTypeTimeTick:        true,
}

// IsWorldEvent reports whether t concerns everyone rather than one player.
func IsWorldEvent(t EventType) bool {
	return worldEvents[t]
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	Seq       uint64      `json:"seq"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`            // Who performed the action
	TargetID  string      `json:"target_id,omitempty"` // What was affected (optional)
	Payload   interface{} `json:"payload"`             // Event-specific data
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
// Only the newest retention events are kept in memory; the persister holds the rest.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	seq       uint64
	retention int

	persistCh chan GameEvent
	persistWG sync.WaitGroup
	onError   func(GameEvent, error)
}

// NewEventLog creates a new event log. retention <= 0 keeps everything.
func NewEventLog(retention int) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		retention: retention,
	}
}

// AttachPersister writes every subsequent event through to p from a background
// goroutine. onError is called for each failed write and may be nil.
func (el *EventLog) AttachPersister(p EventPersister, buffer int, onError func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.persistCh != nil {
		return
	}
	el.persistCh = make(chan GameEvent, buffer)
	el.onError = onError
	el.persistWG.Add(1)
	go func(ch <-chan GameEvent) {
		defer el.persistWG.Done()
		for e := range ch {
			if err := p.Append(e); err != nil && el.onError != nil {
				el.onError(e, err)
			}
		}
	}(el.persistCh)
}

// Close stops the persister after flushing queued events.
func (el *EventLog) Close() {
	el.mu.Lock()
	ch := el.persistCh
	el.persistCh = nil
	el.mu.Unlock()
	if ch != nil {
		close(ch)
		el.persistWG.Wait()
	}
}

// Restore sets the sequence counter, e.g. after loading persisted history.
func (el *EventLog) Restore(lastSeq uint64) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if lastSeq > el.seq {
		el.seq = lastSeq
	}
}

// Append stamps the event with the next sequence number (and an ID and timestamp
// when missing) and adds it to the log. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	el.seq++
	event.Seq = el.seq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.events = append(el.events, event)
	if el.retention > 0 && len(el.events) > el.retention {
		drop := len(el.events) - el.retention
		el.events = append(el.events[:0:0], el.events[drop:]...)
	}

	if el.persistCh != nil {
		el.persistCh <- event
	}
	return event
}

// Since returns the retained events with a sequence number greater than seq.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	i := sort.Search(len(el.events), func(i int) bool { return el.events[i].Seq > seq })
	out := make([]GameEvent, len(el.events)-i)
	copy(out, el.events[i:])
	return out
}

// Recent returns up to the n newest events, oldest first.
func (el *EventLog) Recent(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n <= 0 || n > len(el.events) {
		n = len(el.events)
	}
	out := make([]GameEvent, n)
	copy(out, el.events[len(el.events)-n:])
	return out
}

// LastSeq returns the sequence number of the newest event.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.seq
}

// GetByActor returns all retained events performed by or targeting a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID || e.TargetID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of retained events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
