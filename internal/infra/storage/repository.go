// Package storage provides the persistence layer for the game server.
// It stores the world as JSON documents per entity plus the append-only
// event ledger, on SQLite or PostgreSQL.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cosanostra-game/server/internal/engine"
)

// StoredEvent mirrors events.GameEvent with the payload already encoded.
type StoredEvent struct {
	Seq       uint64          `json:"seq" db:"seq"`
	ID        string          `json:"id" db:"id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	ActorID   string          `json:"actor_id" db:"actor_id"`
	TargetID  string          `json:"target_id" db:"target_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}

// WorldRepository saves and loads the whole world.
type WorldRepository interface {
	// SaveWorld writes a snapshot in one transaction.
	SaveWorld(ctx context.Context, ws engine.WorldState) error

	// LoadWorld reads the last saved snapshot. An empty database yields an
	// empty snapshot and no error.
	LoadWorld(ctx context.Context) (engine.WorldState, error)
}

// EventRepository defines the interface for the event ledger.
type EventRepository interface {
	// AppendEvent adds an event. Appending a sequence number twice is a no-op.
	AppendEvent(ctx context.Context, event StoredEvent) error

	// EventsByActor returns the latest limit events where the actor or target
	// is actorID, oldest first.
	EventsByActor(ctx context.Context, actorID string, limit int) ([]StoredEvent, error)

	// EventsSince returns up to limit events with seq greater than seq.
	EventsSince(ctx context.Context, seq uint64, limit int) ([]StoredEvent, error)

	// LastEventSeq returns the highest stored sequence number, or 0.
	LastEventSeq(ctx context.Context) (uint64, error)
}

var (
	_ WorldRepository = (*SQLRepository)(nil)
	_ EventRepository = (*SQLRepository)(nil)
)
