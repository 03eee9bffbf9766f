package protocol

import (
	"encoding/json"

	"github.com/cosanostra-game/server/internal/events"
)

// ActionMessage (client -> server)
type ActionMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ResultMessage (server -> client) answers one ActionMessage.
type ResultMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Action    string      `json:"action,omitempty"`
	OK        bool        `json:"ok"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// EventMessage (server -> client) pushes a game event.
type EventMessage struct {
	Type  string           `json:"type"`
	Event events.GameEvent `json:"event"`
}

// Outcome wraps a command result with its flavor text.
type Outcome struct {
	Result    interface{} `json:"result"`
	Narrative string      `json:"narrative,omitempty"`
}

func NewResult(requestID, action string, data interface{}) ResultMessage {
	return ResultMessage{Type: TypeResult, RequestID: requestID, Action: action, OK: true, Data: data}
}

func NewError(requestID, action, code, msg string) ResultMessage {
	return ResultMessage{Type: TypeResult, RequestID: requestID, Action: action, Code: code, Error: msg}
}

func NewEvent(e events.GameEvent) EventMessage {
	return EventMessage{Type: TypeEvent, Event: e}
}

// Payloads, one per action that takes arguments.

type CreatePlayerPayload struct {
	Name string `json:"name"`
}

type CrimePayload struct {
	CrimeID string `json:"crime_id"`
}

type StealVehiclePayload struct {
	TierID string `json:"tier_id"`
}

type VehiclePayload struct {
	VehicleID string `json:"vehicle_id"`
}

type MarketPayload struct {
	City string `json:"city,omitempty"`
}

type TradePayload struct {
	GoodID string `json:"good_id"`
	Qty    int    `json:"qty"`
}

type TravelPayload struct {
	City string `json:"city"`
}

type BuyBusinessPayload struct {
	BusinessID string `json:"business_id"`
}

type OwnedBusinessPayload struct {
	OwnedID string `json:"owned_id"`
}

type HeistPayload struct {
	HeistID   string   `json:"heist_id"`
	Prep      []string `json:"prep,omitempty"`
	VehicleID string   `json:"vehicle_id,omitempty"`
}

type CasinoPayload struct {
	Game   string `json:"game"`
	Bet    int    `json:"bet"`
	Choice string `json:"choice,omitempty"`
}

type SkillPayload struct {
	SkillID string `json:"skill_id"`
}

type TrainPayload struct {
	Stat string `json:"stat"`
}

type AmountPayload struct {
	Amount int `json:"amount"`
}

type CreateFamilyPayload struct {
	Name string `json:"name"`
}

type JoinFamilyPayload struct {
	FamilyID string `json:"family_id"`
}

type TerritoryPayload struct {
	TerritoryID string `json:"territory_id"`
}

type FortifyPayload struct {
	TerritoryID string `json:"territory_id"`
	Cash        int    `json:"cash"`
}
