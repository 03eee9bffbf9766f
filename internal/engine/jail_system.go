package engine

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// JailPayload describes an arrest.
type JailPayload struct {
	Reason string    `json:"reason"`
	Until  time.Time `json:"until"`
}

// HospitalPayload describes a hospital stay.
type HospitalPayload struct {
	Until time.Time `json:"until"`
}

// RankUpPayload describes a promotion.
type RankUpPayload struct {
	Rank        int    `json:"rank"`
	RankName    string `json:"rank_name"`
	PointsGiven int    `json:"points_given"`
}

// BailResult is the outcome of posting bail.
type BailResult struct {
	Cost int `json:"cost"`
	Cash int `json:"cash"`
}

// JailSystem handles bail. Releases happen in settle when sentences run out.
type JailSystem struct {
	system
}

// Quote returns the bail price for the remaining sentence.
func (js *JailSystem) Quote(p *player.Player, now time.Time) int {
	return rules.BailCost(p.JailedUntil.Sub(now), p.Rank, js.w.cat.Regen.BailPerMinute)
}

// PostBail buys the player out of jail.
func (js *JailSystem) PostBail(p *player.Player, now time.Time) (BailResult, error) {
	if !p.IsJailed(now) {
		return BailResult{}, ErrNotJailed
	}
	cost := js.Quote(p, now)
	if !p.Spend(cost) {
		return BailResult{}, ErrNotEnoughCash
	}
	p.JailedUntil = time.Time{}
	js.emit(now, events.EventTypeBailPosted, p.ID, "", BailResult{Cost: cost, Cash: p.Cash})
	js.logger.Event("BAIL_POSTED", p.ID, "Bailed out")
	return BailResult{Cost: cost, Cash: p.Cash}, nil
}
