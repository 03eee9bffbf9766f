package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/cosanostra-game/server/internal/domain/family"
)

func TestBusinessLifecycle(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")

	if _, err := h.e.BuyBusiness(p.ID, "laundromat"); !errors.Is(err, ErrRankTooLow) {
		t.Fatalf("expected ErrRankTooLow, got %v", err)
	}
	p.Rank = 1
	p.Cash = 10000

	res, err := h.e.BuyBusiness(p.ID, "laundromat")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if p.Cash != 5000 || res.Level != 1 {
		t.Errorf("unexpected purchase %+v cash=%d", res, p.Cash)
	}
	if _, err := h.e.BuyBusiness(p.ID, "laundromat"); !errors.Is(err, ErrAlreadyOwned) {
		t.Errorf("expected ErrAlreadyOwned, got %v", err)
	}
	if _, err := h.e.CollectBusiness(p.ID, res.OwnedID); !errors.Is(err, ErrNothingToCollect) {
		t.Errorf("expected ErrNothingToCollect, got %v", err)
	}

	h.clock.Advance(2 * time.Hour)
	col, err := h.e.CollectBusiness(p.ID, res.OwnedID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if col.Cash != 600 || p.Cash != 5600 {
		t.Errorf("expected 600 after 2h, got %+v cash=%d", col, p.Cash)
	}

	up, err := h.e.UpgradeBusiness(p.ID, res.OwnedID)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if up.Cost != 4000 || up.Level != 2 || p.Cash != 1600 {
		t.Errorf("unexpected upgrade %+v cash=%d", up, p.Cash)
	}
	p.Business(res.OwnedID).Level = 5
	if _, err := h.e.UpgradeBusiness(p.ID, res.OwnedID); !errors.Is(err, ErrMaxLevel) {
		t.Errorf("expected ErrMaxLevel, got %v", err)
	}
}

func TestBusinessTillIsCapped(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Rank = 1
	p.Cash = 5000
	res, _ := h.e.BuyBusiness(p.ID, "laundromat")

	h.clock.Advance(20 * time.Hour)
	h.e.Tick()
	col, err := h.e.CollectBusiness(p.ID, res.OwnedID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if col.Cash != 3600 {
		t.Errorf("expected till capped at 12h (3600), got %d", col.Cash)
	}
}

func TestProductionFillsInventory(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Rank = 2
	p.Cash = 15000
	res, err := h.e.BuyBusiness(p.ID, "still")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	h.clock.Advance(time.Hour)
	col, err := h.e.CollectBusiness(p.ID, res.OwnedID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if col.Units != 4 || col.GoodID != "liquor" || p.Inventory.Count("liquor") != 4 {
		t.Errorf("expected 4 liquor, got %+v", col)
	}

	_ = p.Inventory.Add("cigarettes", 15)
	h.clock.Advance(time.Hour)
	col, _ = h.e.CollectBusiness(p.ID, res.OwnedID)
	if col.Units != 1 || col.Left != 3 {
		t.Errorf("expected 1 unit to fit and 3 left behind, got %+v", col)
	}
}

func TestCollectWithFullInventoryKeepsProduction(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Rank = 2
	p.Cash = 15000
	res, err := h.e.BuyBusiness(p.ID, "still")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := p.Inventory.Add("cigarettes", p.Inventory.Free()); err != nil {
		t.Fatalf("fill inventory: %v", err)
	}
	cash := p.Cash

	h.clock.Advance(time.Hour)
	if _, err := h.e.CollectBusiness(p.ID, res.OwnedID); !errors.Is(err, ErrNothingToCollect) {
		t.Fatalf("expected ErrNothingToCollect, got %v", err)
	}
	if p.Cash != cash || p.Inventory.Count("liquor") != 0 || p.Business(res.OwnedID).Produced < 4 {
		t.Errorf("refused collection changed the player: cash %d liquor %d produced %.1f",
			p.Cash, p.Inventory.Count("liquor"), p.Business(res.OwnedID).Produced)
	}

	_ = p.Inventory.Remove("cigarettes", 2)
	col, err := h.e.CollectBusiness(p.ID, res.OwnedID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if col.Units != 2 || col.Left != 2 || p.Inventory.Free() != 0 {
		t.Errorf("expected 2 units to fit, got %+v", col)
	}
}

func TestTerritoryBonusRaisesIncome(t *testing.T) {
	h := newHarness(t)
	p := h.newPlayer(t, "Tony")
	p.Rank = 1
	p.Cash = 5000
	f := family.New("F1", "Corleone", t0)
	f.AddMember(p.ID, p.Name, t0)
	h.e.RegisterFamily(f)
	p.FamilyID = f.ID
	// docks: +8% income
	h.e.w.territories["docks"].ControllerID = f.ID

	res, _ := h.e.BuyBusiness(p.ID, "laundromat")
	h.clock.Advance(time.Hour)
	col, _ := h.e.CollectBusiness(p.ID, res.OwnedID)
	if col.Cash != 324 {
		t.Errorf("expected 300*1.08=324, got %d", col.Cash)
	}
}
