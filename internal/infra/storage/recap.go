package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cosanostra-game/server/internal/events"
)

// Impact classifies a recap line.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactNeutral  = "NEUTRAL"
)

// RecapEvent is one line of the "while you were away" screen.
type RecapEvent struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"`
	Impact    string    `json:"impact"`
}

// Reconstructor builds recaps of what happened to a player from the ledger.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap builder.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// GenerateRecap lists events involving playerID after since, oldest first.
// At most limit events are considered.
func (r *Reconstructor) GenerateRecap(ctx context.Context, playerID string, since time.Time, limit int) ([]RecapEvent, error) {
	stored, err := r.eventRepo.EventsByActor(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for player: %w", err)
	}

	var recap []RecapEvent
	for _, e := range stored {
		if !e.Timestamp.After(since) {
			continue
		}
		recap = append(recap, RecapEvent{
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			Summary:   summarizeEvent(e, playerID),
			Impact:    determineImpact(e),
		})
	}
	return recap, nil
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e StoredEvent, observerID string) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeJailed:
		return "You were locked up."
	case events.EventTypeReleased:
		return "You walked out of jail."
	case events.EventTypeBailPosted:
		return "Your lawyer posted bail."
	case events.EventTypeHospitalized:
		return "You were taken to the hospital."
	case events.EventTypeDischarged:
		return "The doctors let you go."
	case events.EventTypeTravelArrived:
		return "Your flight landed."
	case events.EventTypeSmugglerBusted:
		return "Customs found your stash."
	case events.EventTypeRankUp:
		return "You were promoted."
	case events.EventTypeTurfConquered:
		if e.ActorID == observerID {
			return "You took a territory for the family."
		}
		return "A territory changed hands."
	case events.EventTypeDonChanged:
		if e.ActorID == observerID {
			return "You are now the Don."
		}
		return "Your family has a new Don."
	case events.EventTypeFamilyJoined:
		return "You joined a family."
	case events.EventTypeBusinessCollect:
		return "You emptied the till."
	default:
		return "Business as usual."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e StoredEvent) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeJailed, events.EventTypeHospitalized, events.EventTypeSmugglerBusted:
		return ImpactNegative
	case events.EventTypeReleased, events.EventTypeDischarged, events.EventTypeRankUp,
		events.EventTypeTurfConquered, events.EventTypeTravelArrived:
		return ImpactPositive
	default:
		return ImpactNeutral
	}
}
