// Package api exposes the engine over HTTP and routes action commands for both
// the HTTP and WebSocket transports.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/infra/cache"
	"github.com/cosanostra-game/server/internal/narrative"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/protocol"
)

// Dispatcher turns an action name and its JSON payload into an engine command.
type Dispatcher struct {
	engine *engine.Engine
	cache  *cache.ProfileCache
	logger *logger.Logger
}

// NewDispatcher creates a dispatcher. cache may be nil.
func NewDispatcher(eng *engine.Engine, c *cache.ProfileCache, log *logger.Logger) *Dispatcher {
	return &Dispatcher{engine: eng, cache: c, logger: log}
}

// StatusView is the answer to a status action.
type StatusView struct {
	Player    interface{} `json:"player"`
	BailQuote int         `json:"bail_quote,omitempty"`
}

// Dispatch runs one action for playerID. For create_player the playerID is ignored
// and the new player's ID is in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, playerID, action string, payload json.RawMessage) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := d.route(playerID, action, payload)

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
		d.invalidate(playerID, action, out)
	case IsRefusal(err):
		outcome = metrics.OutcomeRefused
	default:
		outcome = metrics.OutcomeError
		d.logger.Errorf("action %s for %s failed: %v", action, playerID, err)
	}
	metrics.Get().RecordAction(action, outcome, time.Since(start))
	return out, err
}

func (d *Dispatcher) invalidate(playerID, action string, out interface{}) {
	if d.cache == nil {
		return
	}
	switch action {
	case protocol.ActionStatus, protocol.ActionMarket, protocol.ActionPlanHeist:
		return
	case protocol.ActionCreateFamily, protocol.ActionJoinFamily, protocol.ActionLeaveFamily,
		protocol.ActionDonate, protocol.ActionAttackTerritory:
		// Don and membership changes show on other members' profiles.
		d.cache.Purge()
	default:
		d.cache.InvalidatePlayer(playerID)
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidMessage, err)
	}
	return nil
}

func (d *Dispatcher) route(playerID, action string, payload json.RawMessage) (interface{}, error) {
	e := d.engine
	switch action {
	case protocol.ActionCreatePlayer:
		var p protocol.CreatePlayerPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.CreatePlayer(p.Name)

	case protocol.ActionStatus:
		p, err := e.Player(playerID)
		if err != nil {
			return nil, err
		}
		bail, err := e.BailQuote(playerID)
		if err != nil {
			return nil, err
		}
		return StatusView{Player: p, BailQuote: bail}, nil

	case protocol.ActionCrime:
		var p protocol.CrimePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		r, err := e.CommitCrime(playerID, p.CrimeID)
		if err != nil {
			return nil, err
		}
		return protocol.Outcome{Result: r, Narrative: narrative.Crime(r)}, nil

	case protocol.ActionStealVehicle:
		var p protocol.StealVehiclePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		r, err := e.StealVehicle(playerID, p.TierID)
		if err != nil {
			return nil, err
		}
		return protocol.Outcome{Result: r, Narrative: narrative.Vehicle(r)}, nil

	case protocol.ActionSellVehicle:
		var p protocol.VehiclePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.SellVehicle(playerID, p.VehicleID)

	case protocol.ActionRepairVehicle:
		var p protocol.VehiclePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.RepairVehicle(playerID, p.VehicleID)

	case protocol.ActionMarket:
		var p protocol.MarketPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		city := p.City
		if city == "" {
			pl, err := e.Player(playerID)
			if err != nil {
				return nil, err
			}
			city = pl.City
		}
		return e.MarketPrices(city)

	case protocol.ActionBuyGoods, protocol.ActionSellGoods:
		var p protocol.TradePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if action == protocol.ActionBuyGoods {
			return e.BuyGoods(playerID, p.GoodID, p.Qty)
		}
		return e.SellGoods(playerID, p.GoodID, p.Qty)

	case protocol.ActionTravel:
		var p protocol.TravelPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.Travel(playerID, p.City)

	case protocol.ActionBuyBusiness:
		var p protocol.BuyBusinessPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.BuyBusiness(playerID, p.BusinessID)

	case protocol.ActionUpgradeBusiness, protocol.ActionCollectBusiness:
		var p protocol.OwnedBusinessPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if action == protocol.ActionUpgradeBusiness {
			return e.UpgradeBusiness(playerID, p.OwnedID)
		}
		return e.CollectBusiness(playerID, p.OwnedID)

	case protocol.ActionPlanHeist, protocol.ActionHeist:
		var p protocol.HeistPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if action == protocol.ActionPlanHeist {
			return e.PlanHeist(playerID, p.HeistID, p.Prep, p.VehicleID)
		}
		r, err := e.ExecuteHeist(playerID, p.HeistID, p.Prep, p.VehicleID)
		if err != nil {
			return nil, err
		}
		return protocol.Outcome{Result: r, Narrative: narrative.Heist(r)}, nil

	case protocol.ActionCasino:
		var p protocol.CasinoPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		r, err := e.PlayCasino(playerID, p.Game, p.Bet, p.Choice)
		if err != nil {
			return nil, err
		}
		return protocol.Outcome{Result: r, Narrative: narrative.Casino(r)}, nil

	case protocol.ActionLearnSkill:
		var p protocol.SkillPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.LearnSkill(playerID, p.SkillID)

	case protocol.ActionTrain:
		var p protocol.TrainPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.Train(playerID, p.Stat)

	case protocol.ActionDeposit, protocol.ActionWithdraw:
		var p protocol.AmountPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if action == protocol.ActionDeposit {
			return e.Deposit(playerID, p.Amount)
		}
		return e.Withdraw(playerID, p.Amount)

	case protocol.ActionBail:
		return e.PostBail(playerID)

	case protocol.ActionCreateFamily:
		var p protocol.CreateFamilyPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.CreateFamily(playerID, p.Name)

	case protocol.ActionJoinFamily:
		var p protocol.JoinFamilyPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.JoinFamily(playerID, p.FamilyID)

	case protocol.ActionLeaveFamily:
		if err := e.LeaveFamily(playerID); err != nil {
			return nil, err
		}
		return map[string]bool{"left": true}, nil

	case protocol.ActionDonate:
		var p protocol.AmountPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.Donate(playerID, p.Amount)

	case protocol.ActionAttackTerritory:
		var p protocol.TerritoryPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.AttackTerritory(playerID, p.TerritoryID)

	case protocol.ActionFortifyTerritory:
		var p protocol.FortifyPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return e.FortifyTerritory(playerID, p.TerritoryID, p.Cash)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}
