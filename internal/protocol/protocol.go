// Package protocol defines the JSON messages exchanged with clients over
// HTTP and WebSocket.
package protocol

import "encoding/json"

const Version = "1.0"

// Outbound message types.
const (
	TypeResult = "RESULT"
	TypeEvent  = "EVENT"
)

// Action types. An inbound message's type is the action it requests.
const (
	ActionCreatePlayer     = "create_player"
	ActionStatus           = "status"
	ActionCrime            = "crime"
	ActionStealVehicle     = "steal_vehicle"
	ActionSellVehicle      = "sell_vehicle"
	ActionRepairVehicle    = "repair_vehicle"
	ActionMarket           = "market"
	ActionBuyGoods         = "buy_goods"
	ActionSellGoods        = "sell_goods"
	ActionTravel           = "travel"
	ActionBuyBusiness      = "buy_business"
	ActionUpgradeBusiness  = "upgrade_business"
	ActionCollectBusiness  = "collect_business"
	ActionPlanHeist        = "plan_heist"
	ActionHeist            = "heist"
	ActionCasino           = "casino"
	ActionLearnSkill       = "learn_skill"
	ActionTrain            = "train"
	ActionDeposit          = "deposit"
	ActionWithdraw         = "withdraw"
	ActionBail             = "bail"
	ActionCreateFamily     = "create_family"
	ActionJoinFamily       = "join_family"
	ActionLeaveFamily      = "leave_family"
	ActionDonate           = "donate"
	ActionAttackTerritory  = "attack_territory"
	ActionFortifyTerritory = "fortify_territory"
)

// Actions lists every action type in schema order.
var Actions = []string{
	ActionCreatePlayer, ActionStatus, ActionCrime, ActionStealVehicle, ActionSellVehicle,
	ActionRepairVehicle, ActionMarket, ActionBuyGoods, ActionSellGoods, ActionTravel,
	ActionBuyBusiness, ActionUpgradeBusiness, ActionCollectBusiness, ActionPlanHeist,
	ActionHeist, ActionCasino, ActionLearnSkill, ActionTrain, ActionDeposit, ActionWithdraw,
	ActionBail, ActionCreateFamily, ActionJoinFamily, ActionLeaveFamily, ActionDonate,
	ActionAttackTerritory, ActionFortifyTerritory,
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
