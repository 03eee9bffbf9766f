package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

// BusinessResult is the outcome of buying or upgrading a business.
type BusinessResult struct {
	OwnedID    string `json:"owned_id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Cost       int    `json:"cost"`
	Cash       int    `json:"cash"`
}

// CollectResult is what a collection moved into the player's hands.
type CollectResult struct {
	OwnedID string `json:"owned_id"`
	Cash    int    `json:"cash"`
	GoodID  string `json:"good_id,omitempty"`
	Units   int    `json:"units"`
	Left    int    `json:"left"` // units that did not fit
}

// BusinessSystem runs the fronts: purchases, upgrades and collection.
// Accrual itself happens in settle.
type BusinessSystem struct {
	system
}

// Buy purchases one business of a catalog type. Each type can be owned once.
func (bs *BusinessSystem) Buy(p *player.Player, businessID string, now time.Time) (BusinessResult, error) {
	b, ok := bs.w.cat.Business(businessID)
	if !ok {
		return BusinessResult{}, ErrUnknownBusiness
	}
	if p.Rank < b.MinRank {
		return BusinessResult{}, ErrRankTooLow
	}
	if p.OwnsBusinessType(b.ID) {
		return BusinessResult{}, ErrAlreadyOwned
	}
	if !p.Spend(b.Cost) {
		return BusinessResult{}, ErrNotEnoughCash
	}
	ob := player.OwnedBusiness{
		ID:          uuid.NewString(),
		BusinessID:  b.ID,
		Level:       1,
		LastAccrued: now,
		PurchasedAt: now,
	}
	p.Businesses = append(p.Businesses, ob)

	res := BusinessResult{OwnedID: ob.ID, BusinessID: b.ID, Name: b.Name, Level: 1, Cost: b.Cost, Cash: p.Cash}
	bs.emit(now, events.EventTypeBusinessBought, p.ID, ob.ID, res)
	bs.logger.Event("BUSINESS_BOUGHT", p.ID, b.Name)
	return res, nil
}

// Upgrade raises a business one level.
func (bs *BusinessSystem) Upgrade(p *player.Player, ownedID string, now time.Time) (BusinessResult, error) {
	ob := p.Business(ownedID)
	if ob == nil {
		return BusinessResult{}, ErrUnknownBusiness
	}
	b, _ := bs.w.cat.Business(ob.BusinessID)
	if ob.Level >= b.MaxLevel {
		return BusinessResult{}, ErrMaxLevel
	}
	cost := rules.UpgradeCost(b.UpgradeBase, ob.Level)
	if !p.Spend(cost) {
		return BusinessResult{}, ErrNotEnoughCash
	}
	ob.Level++

	res := BusinessResult{OwnedID: ob.ID, BusinessID: b.ID, Name: b.Name, Level: ob.Level, Cost: cost, Cash: p.Cash}
	bs.emit(now, events.EventTypeBusinessUpgraded, p.ID, ob.ID, res)
	return res, nil
}

// Collect empties the till into cash and moves whole produced units into the
// inventory as far as capacity allows.
func (bs *BusinessSystem) Collect(p *player.Player, ownedID string, now time.Time) (CollectResult, error) {
	ob := p.Business(ownedID)
	if ob == nil {
		return CollectResult{}, ErrUnknownBusiness
	}
	b, _ := bs.w.cat.Business(ob.BusinessID)
	bs.refreshCapacity(p)

	cash := int(math.Floor(ob.Till))
	units := int(math.Floor(ob.Produced))
	if b.ProducesGood == "" {
		units = 0
	}
	fit := units
	if free := p.Inventory.Free(); fit > free {
		fit = free
	}
	if cash <= 0 && fit <= 0 {
		return CollectResult{}, ErrNothingToCollect
	}

	if fit > 0 {
		if err := p.Inventory.Add(b.ProducesGood, fit); err != nil {
			return CollectResult{}, fmt.Errorf("%w: %v", ErrNoCapacity, err)
		}
		ob.Produced -= float64(fit)
	}
	ob.Till -= float64(cash)
	p.Cash += cash

	res := CollectResult{OwnedID: ob.ID, Cash: cash, GoodID: b.ProducesGood, Units: fit, Left: units - fit}
	bs.emit(now, events.EventTypeBusinessCollect, p.ID, ob.ID, res)
	return res, nil
}
