package engine

import (
	"math"
	"sort"
	"time"

	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/platform/metrics"
)

// RegenSystem applies the passage of time: vitals, business accrual,
// releases, territory influence regeneration and market drift.
type RegenSystem struct {
	system
}

// OnTimeTick settles every player, regenerates held territory and drifts prices.
func (rs *RegenSystem) OnTimeTick(tickNumber int64, now time.Time) {
	start := time.Now()

	ids := make([]string, 0, len(rs.w.players))
	for id := range rs.w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rs.settle(rs.w.players[id], now)
	}

	for _, t := range rs.sortedTerritories() {
		elapsed := rs.catchUp(t.LastTick, now)
		if now.After(t.LastTick) {
			t.LastTick = now
		}
		if t.ControllerID == "" || elapsed <= 0 || t.Influence >= t.MaxInfluence {
			t.RegenCarry = 0
			continue
		}
		gain := t.RegenPerHour*elapsed.Hours() + t.RegenCarry
		whole := math.Floor(gain)
		t.RegenCarry = gain - whole
		t.Influence = rules.ApplyInfluence(t.Influence, int(whole), t.MaxInfluence)
	}

	rs.driftMarkets()
	if tickNumber > rs.w.tick {
		rs.w.tick = tickNumber
	}
	metrics.Get().RecordTick(time.Since(start))
}

func (rs *RegenSystem) driftMarkets() {
	for _, c := range rs.w.cat.Cities {
		prices := rs.w.markets[c.ID]
		for _, g := range rs.w.cat.Goods {
			base := marketBase(g.BasePrice, c.PriceModifiers[g.ID])
			prices[g.ID] = rules.DriftPrice(prices[g.ID], base, g.Volatility, rs.w.roll.Float64())
		}
	}
}
