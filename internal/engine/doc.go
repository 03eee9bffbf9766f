// Package engine contains the rules engine and the game loop.
//
// The Engine owns every player, family, territory and market under one lock.
// Commands validate against the current state, roll, apply and emit an event
// to the EventLog. The Ticker only emits TIME_TICK events; the engine's event
// processor reacts to them with regeneration, accrual, releases and drift.
package engine
