package engine

import (
	"math"
	"sort"
	"time"

	"github.com/cosanostra-game/server/internal/domain/item"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// MarketQuote is the price of one good in one city.
type MarketQuote struct {
	GoodID string  `json:"good_id"`
	Name   string  `json:"name"`
	Price  int     `json:"price"`
	Risk   float64 `json:"risk"`
}

// TradeResult is the outcome of buying or selling goods.
type TradeResult struct {
	City      string `json:"city"`
	GoodID    string `json:"good_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Total     int    `json:"total"`
	Held      int    `json:"held"`
	Cash      int    `json:"cash"`
}

// TravelResult is the outcome of leaving for another city.
type TravelResult struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	Cost        int           `json:"cost"`
	ArrivesAt   time.Time     `json:"arrives_at"`
	BustChance  float64       `json:"bust_chance"`
	Busted      bool          `json:"busted"`
	Confiscated []item.Stack  `json:"confiscated,omitempty"`
	JailedFor   time.Duration `json:"jailed_for"`
}

// TravelPayload describes a departure or arrival.
type TravelPayload struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ArrivesAt time.Time `json:"arrives_at,omitempty"`
}

// TravelSystem runs the city markets and moves players between cities.
// A departure with contraband rolls once for a customs bust.
type TravelSystem struct {
	system
}

func marketBase(basePrice int, modifier float64) float64 {
	if modifier <= 0 {
		modifier = 1
	}
	return float64(basePrice) * modifier
}

// initMarkets sets every missing price to its city baseline.
func (ts *TravelSystem) initMarkets() {
	for _, c := range ts.w.cat.Cities {
		prices, ok := ts.w.markets[c.ID]
		if !ok {
			prices = make(map[string]float64)
			ts.w.markets[c.ID] = prices
		}
		for _, g := range ts.w.cat.Goods {
			if prices[g.ID] <= 0 {
				prices[g.ID] = marketBase(g.BasePrice, c.PriceModifiers[g.ID])
			}
		}
	}
}

func (ts *TravelSystem) price(city, goodID string) int {
	return int(math.Round(ts.w.markets[city][goodID]))
}

// Prices lists a city's market sorted by good ID.
func (ts *TravelSystem) Prices(cityID string) ([]MarketQuote, error) {
	if _, ok := ts.w.cat.City(cityID); !ok {
		return nil, ErrUnknownCity
	}
	out := make([]MarketQuote, 0, len(ts.w.cat.Goods))
	for _, g := range ts.w.cat.Goods {
		out = append(out, MarketQuote{GoodID: g.ID, Name: g.Name, Price: ts.price(cityID, g.ID), Risk: g.Risk})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoodID < out[j].GoodID })
	return out, nil
}

// Buy purchases goods at the local market price.
func (ts *TravelSystem) Buy(p *player.Player, goodID string, qty int, now time.Time) (TradeResult, error) {
	if qty <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	if _, ok := ts.w.cat.Good(goodID); !ok {
		return TradeResult{}, ErrUnknownGood
	}
	unit := ts.price(p.City, goodID)
	total := unit * qty
	if p.Cash < total {
		return TradeResult{}, ErrNotEnoughCash
	}
	ts.refreshCapacity(p)
	if err := p.Inventory.Add(goodID, qty); err != nil {
		return TradeResult{}, ErrNoCapacity
	}
	p.Spend(total)

	res := TradeResult{City: p.City, GoodID: goodID, Quantity: qty, UnitPrice: unit, Total: total, Held: p.Inventory.Count(goodID), Cash: p.Cash}
	ts.emit(now, events.EventTypeGoodsBought, p.ID, goodID, res)
	return res, nil
}

// Sell sells goods at the local market price.
func (ts *TravelSystem) Sell(p *player.Player, goodID string, qty int, now time.Time) (TradeResult, error) {
	if qty <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	if _, ok := ts.w.cat.Good(goodID); !ok {
		return TradeResult{}, ErrUnknownGood
	}
	if err := p.Inventory.Remove(goodID, qty); err != nil {
		return TradeResult{}, ErrNotEnoughGoods
	}
	unit := ts.price(p.City, goodID)
	p.Cash += unit * qty

	res := TradeResult{City: p.City, GoodID: goodID, Quantity: qty, UnitPrice: unit, Total: unit * qty, Held: p.Inventory.Count(goodID), Cash: p.Cash}
	ts.emit(now, events.EventTypeGoodsSold, p.ID, goodID, res)
	return res, nil
}

// BustChance is the customs risk of leaving with the current inventory.
func (ts *TravelSystem) BustChance(p *player.Player) float64 {
	risk := 0.0
	for _, st := range p.Inventory.Stacks() {
		if g, ok := ts.w.cat.Good(st.GoodID); ok {
			risk += float64(st.Quantity) * g.Risk
		}
	}
	return rules.BustChance(risk, p.Inventory.Capacity, p.Stats.Stealth)
}

// Travel buys a ticket and leaves for another city.
func (ts *TravelSystem) Travel(p *player.Player, cityID string, now time.Time) (TravelResult, error) {
	c, ok := ts.w.cat.City(cityID)
	if !ok {
		return TravelResult{}, ErrUnknownCity
	}
	if p.City == cityID {
		return TravelResult{}, ErrAlreadyThere
	}
	if !p.Spend(c.TravelCost) {
		return TravelResult{}, ErrNotEnoughCash
	}
	ts.refreshCapacity(p)

	res := TravelResult{From: p.City, To: cityID, Cost: c.TravelCost}
	if p.Inventory.Used() > 0 {
		res.BustChance = ts.BustChance(p)
		if ts.w.roll.Float64() < res.BustChance {
			res.Busted = true
			res.Confiscated = p.Inventory.Clear()
			p.Record.TimesBusted++
			res.JailedFor = ts.jail(p, ts.w.cat.Limits.BustJailTime, "Busted by customs", now)
			ts.emit(now, events.EventTypeSmugglerBusted, p.ID, cityID, res)
			ts.logger.Event("SMUGGLER_BUSTED", p.ID, "Leaving "+p.City)
			return res, nil
		}
	}

	p.TravelTo = cityID
	p.ArrivesAt = now.Add(c.TravelTime)
	res.ArrivesAt = p.ArrivesAt
	ts.emit(now, events.EventTypeTravelStarted, p.ID, cityID, TravelPayload{From: p.City, To: cityID, ArrivesAt: p.ArrivesAt})
	ts.logger.Event("TRAVEL", p.ID, p.City+" -> "+cityID)
	return res, nil
}
