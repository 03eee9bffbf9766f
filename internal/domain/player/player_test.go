package player

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewPlayer(t *testing.T) {
	p := New("P1", "Tony", "new_york", 500, 100, 20, t0)
	if p.Cash != 500 || p.Stamina != 100 || p.Health != MaxHealth {
		t.Errorf("unexpected starting vitals: %+v", p)
	}
	if p.Inventory.Capacity != 20 {
		t.Errorf("expected capacity 20, got %d", p.Inventory.Capacity)
	}
	if s, ok := p.Stat(StatStealth); !ok || s != 5 {
		t.Errorf("expected stealth 5, got %d", s)
	}
}

func TestTimers(t *testing.T) {
	p := New("P1", "Tony", "new_york", 0, 100, 20, t0)
	p.JailedUntil = t0.Add(time.Minute)
	if !p.IsJailed(t0) || p.IsJailed(t0.Add(time.Minute)) {
		t.Errorf("jail boundary wrong")
	}
	p.TravelTo = "chicago"
	p.ArrivesAt = t0.Add(time.Minute)
	if !p.IsTraveling(t0) || p.IsTraveling(t0.Add(2*time.Minute)) {
		t.Errorf("travel boundary wrong")
	}

	p.SetCooldown("crime:pickpocket", 30*time.Second, t0)
	if got := p.CooldownRemaining("crime:pickpocket", t0.Add(10*time.Second)); got != 20*time.Second {
		t.Errorf("expected 20s remaining, got %s", got)
	}
	p.PruneCooldowns(t0.Add(time.Minute))
	if len(p.Cooldowns) != 0 {
		t.Errorf("expired cooldowns should be pruned")
	}
}

func TestSpendAndStaminaRefuseWithoutChange(t *testing.T) {
	p := New("P1", "Tony", "new_york", 50, 10, 20, t0)
	if p.Spend(51) || p.Cash != 50 {
		t.Errorf("overspend must be refused")
	}
	if p.UseStamina(11) || p.Stamina != 10 {
		t.Errorf("stamina overuse must be refused")
	}
	if !p.Spend(50) || p.Cash != 0 {
		t.Errorf("exact spend should succeed")
	}
}

func TestRaiseStatCaps(t *testing.T) {
	p := New("P1", "Tony", "new_york", 0, 10, 20, t0)
	p.Stats.Driving = MaxStat
	if v, _ := p.RaiseStat(StatDriving); v != MaxStat {
		t.Errorf("stat must cap at %d, got %d", MaxStat, v)
	}
	if _, ok := p.RaiseStat("luck"); ok {
		t.Errorf("unknown stat should be rejected")
	}
}

func TestDamageAndHeat(t *testing.T) {
	p := New("P1", "Tony", "new_york", 0, 10, 20, t0)
	if p.Damage(40) {
		t.Errorf("40 damage should not drop a healthy player")
	}
	if !p.Damage(70) || p.Health != 0 {
		t.Errorf("expected player down at 0 health, got %.1f", p.Health)
	}
	p.AddHeat(150)
	if p.Heat != MaxHeat {
		t.Errorf("heat must cap at %d", MaxHeat)
	}
}

func TestBanking(t *testing.T) {
	p := New("P1", "Tony", "new_york", 1000, 10, 20, t0)
	if !p.Deposit(1000, 20) || p.Cash != 0 || p.Bank != 980 {
		t.Errorf("unexpected balances cash=%d bank=%d", p.Cash, p.Bank)
	}
	if p.Withdraw(981) {
		t.Errorf("overdraw must be refused")
	}
	if !p.Withdraw(980) || p.Cash != 980 || p.Bank != 0 {
		t.Errorf("unexpected balances cash=%d bank=%d", p.Cash, p.Bank)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := New("P1", "Tony", "new_york", 0, 10, 20, t0)
	p.Skills["greed"] = 1
	p.Garage = append(p.Garage, Vehicle{ID: "V1", ModelID: "sedan", Condition: 50})
	_ = p.Inventory.Add("liquor", 3)

	c := p.Clone()
	c.Skills["greed"] = 5
	c.Garage[0].Condition = 99
	_ = c.Inventory.Add("liquor", 3)

	if p.Skills["greed"] != 1 || p.Garage[0].Condition != 50 || p.Inventory.Count("liquor") != 3 {
		t.Errorf("clone shares state with original")
	}
}
