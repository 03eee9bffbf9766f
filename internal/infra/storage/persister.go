package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cosanostra-game/server/internal/events"
)

// EventPersister writes the in-memory event log through to the ledger.
type EventPersister struct {
	repo    EventRepository
	timeout time.Duration
}

// NewEventPersister wraps repo for events.EventLog.AttachPersister.
func NewEventPersister(repo EventRepository) *EventPersister {
	return &EventPersister{repo: repo, timeout: 5 * time.Second}
}

// Append implements events.EventPersister.
func (p *EventPersister) Append(e events.GameEvent) error {
	stored, err := ToStored(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.AppendEvent(ctx, stored)
}

// ToStored encodes an event's payload for storage.
func ToStored(e events.GameEvent) (StoredEvent, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return StoredEvent{
		Seq:       e.Seq,
		ID:        e.ID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payload,
	}, nil
}

var _ events.EventPersister = (*EventPersister)(nil)
