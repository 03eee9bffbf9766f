package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/events"
)

// CreatePlayer starts a new career.
func (e *Engine) CreatePlayer(name string) (player.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 24 {
		return player.Player{}, ErrInvalidName
	}
	for _, p := range e.w.players {
		if strings.EqualFold(p.Name, name) {
			return player.Player{}, ErrNameTaken
		}
	}

	lim := e.w.cat.Limits
	now := e.clock()
	p := player.New(uuid.NewString(), name, lim.StartingCity, lim.StartingCash, lim.BaseStamina, lim.BaseCapacity, now)
	p.SkillPoints = lim.StartingSkillPoints
	e.w.players[p.ID] = p

	e.regenSystem.emit(now, events.EventTypePlayerCreated, p.ID, "", map[string]string{"name": p.Name})
	e.logger.Event("PLAYER_CREATED", p.ID, p.Name)
	return p.Clone(), nil
}

// CommitCrime attempts a solo crime.
func (e *Engine) CommitCrime(playerID, crimeID string) (CrimeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return CrimeResult{}, err
	}
	return e.crimeSystem.Commit(p, crimeID, now)
}

// StealVehicle attempts to steal a car from a tier.
func (e *Engine) StealVehicle(playerID, tierID string) (VehicleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return VehicleResult{}, err
	}
	return e.vehicleSystem.Steal(p, tierID, now)
}

// SellVehicle fences a car from the garage.
func (e *Engine) SellVehicle(playerID, vehicleID string) (SaleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return SaleResult{}, err
	}
	return e.vehicleSystem.Sell(p, vehicleID, now)
}

// RepairVehicle restores a car to full condition.
func (e *Engine) RepairVehicle(playerID, vehicleID string) (RepairResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return RepairResult{}, err
	}
	return e.vehicleSystem.Repair(p, vehicleID, now)
}

// MarketPrices lists a city's current prices.
func (e *Engine) MarketPrices(cityID string) ([]MarketQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.travelSystem.Prices(cityID)
}

// BuyGoods buys contraband in the player's current city.
func (e *Engine) BuyGoods(playerID, goodID string, qty int) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return TradeResult{}, err
	}
	return e.travelSystem.Buy(p, goodID, qty, now)
}

// SellGoods sells contraband in the player's current city.
func (e *Engine) SellGoods(playerID, goodID string, qty int) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return TradeResult{}, err
	}
	return e.travelSystem.Sell(p, goodID, qty, now)
}

// Travel leaves for another city.
func (e *Engine) Travel(playerID, cityID string) (TravelResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return TravelResult{}, err
	}
	return e.travelSystem.Travel(p, cityID, now)
}

// BuyBusiness purchases a front.
func (e *Engine) BuyBusiness(playerID, businessID string) (BusinessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return BusinessResult{}, err
	}
	return e.businessSystem.Buy(p, businessID, now)
}

// UpgradeBusiness raises an owned business one level.
func (e *Engine) UpgradeBusiness(playerID, ownedID string) (BusinessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return BusinessResult{}, err
	}
	return e.businessSystem.Upgrade(p, ownedID, now)
}

// CollectBusiness empties an owned business.
func (e *Engine) CollectBusiness(playerID, ownedID string) (CollectResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return CollectResult{}, err
	}
	return e.businessSystem.Collect(p, ownedID, now)
}

// PlanHeist quotes a heist without committing to it.
func (e *Engine) PlanHeist(playerID, heistID string, prepIDs []string, vehicleID string) (HeistQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, _, err := e.settled(playerID)
	if err != nil {
		return HeistQuote{}, err
	}
	return e.heistSystem.Plan(p, heistID, prepIDs, vehicleID)
}

// ExecuteHeist runs a heist.
func (e *Engine) ExecuteHeist(playerID, heistID string, prepIDs []string, vehicleID string) (HeistResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return HeistResult{}, err
	}
	return e.heistSystem.Execute(p, heistID, prepIDs, vehicleID, now)
}

// PlayCasino places a bet.
func (e *Engine) PlayCasino(playerID, game string, bet int, choice string) (CasinoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return CasinoResult{}, err
	}
	return e.casinoSystem.Play(p, game, bet, choice, now)
}

// LearnSkill buys the next level of a skill.
func (e *Engine) LearnSkill(playerID, skillID string) (SkillResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return SkillResult{}, err
	}
	return e.skillSystem.Learn(p, skillID, now)
}

// Train raises a stat.
func (e *Engine) Train(playerID, stat string) (TrainResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return TrainResult{}, err
	}
	return e.skillSystem.Train(p, stat, now)
}

// Deposit moves cash into the bank.
func (e *Engine) Deposit(playerID string, amount int) (BankResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return BankResult{}, err
	}
	return e.skillSystem.Deposit(p, amount, now)
}

// Withdraw moves bank money to cash.
func (e *Engine) Withdraw(playerID string, amount int) (BankResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return BankResult{}, err
	}
	return e.skillSystem.Withdraw(p, amount, now)
}

// PostBail buys a jailed player out. It is the only command allowed in jail.
func (e *Engine) PostBail(playerID string) (BailResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.settled(playerID)
	if err != nil {
		return BailResult{}, err
	}
	return e.jailSystem.PostBail(p, now)
}

// CreateFamily founds a family.
func (e *Engine) CreateFamily(playerID, name string) (FamilyView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return FamilyView{}, err
	}
	return e.familySystem.Create(p, name, now)
}

// JoinFamily joins a player family.
func (e *Engine) JoinFamily(playerID, familyID string) (FamilyView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return FamilyView{}, err
	}
	return e.familySystem.Join(p, familyID, now)
}

// LeaveFamily leaves the player's family.
func (e *Engine) LeaveFamily(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return err
	}
	return e.familySystem.Leave(p, now)
}

// Donate gives cash to the player's family.
func (e *Engine) Donate(playerID string, amount int) (DonationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return DonationResult{}, err
	}
	return e.familySystem.Donate(p, amount, now)
}

// AttackTerritory attacks a territory for the player's family.
func (e *Engine) AttackTerritory(playerID, territoryID string) (TurfResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return TurfResult{}, err
	}
	return e.turfSystem.Attack(p, territoryID, now)
}

// FortifyTerritory spends cash on a held territory's influence.
func (e *Engine) FortifyTerritory(playerID, territoryID string, cash int) (FortifyResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, now, err := e.active(playerID)
	if err != nil {
		return FortifyResult{}, err
	}
	return e.turfSystem.Fortify(p, territoryID, cash, now)
}
