package engine

import (
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/events"
)

const trainKey = "train"

// SkillResult is the outcome of learning a skill level.
type SkillResult struct {
	SkillID    string `json:"skill_id"`
	Level      int    `json:"level"`
	Cost       int    `json:"cost"`
	PointsLeft int    `json:"points_left"`
}

// TrainResult is the outcome of a training session.
type TrainResult struct {
	Stat  string `json:"stat"`
	Value int    `json:"value"`
	Cost  int    `json:"cost"`
	Cash  int    `json:"cash"`
}

// BankResult is the outcome of a deposit or withdrawal.
type BankResult struct {
	Amount int `json:"amount"`
	Fee    int `json:"fee"`
	Cash   int `json:"cash"`
	Bank   int `json:"bank"`
}

// SkillSystem handles the skill tree, stat training and the bank.
type SkillSystem struct {
	system
}

// Learn buys the next level of a skill.
func (ss *SkillSystem) Learn(p *player.Player, skillID string, now time.Time) (SkillResult, error) {
	sk, ok := ss.w.cat.Skill(skillID)
	if !ok {
		return SkillResult{}, ErrUnknownSkill
	}
	lvl := p.SkillLevel(sk.ID)
	if lvl >= sk.MaxLevel {
		return SkillResult{}, ErrSkillMaxed
	}
	for _, req := range sk.Requires {
		if p.SkillLevel(req) < 1 {
			return SkillResult{}, ErrSkillLocked
		}
	}
	if p.SkillPoints < sk.PointCost {
		return SkillResult{}, ErrNotEnoughPoints
	}
	p.SkillPoints -= sk.PointCost
	if p.Skills == nil {
		p.Skills = make(map[string]int)
	}
	p.Skills[sk.ID] = lvl + 1

	switch sk.ID {
	case catalog.SkillIronLungs:
		p.MaxStamina = ss.maxStamina(p)
	case catalog.SkillSmuggler:
		ss.refreshCapacity(p)
	}

	res := SkillResult{SkillID: sk.ID, Level: lvl + 1, Cost: sk.PointCost, PointsLeft: p.SkillPoints}
	ss.emit(now, events.EventTypeSkillLearned, p.ID, sk.ID, res)
	ss.logger.Event("SKILL_LEARNED", p.ID, sk.Name)
	return res, nil
}

// Train raises a stat by one point.
func (ss *SkillSystem) Train(p *player.Player, stat string, now time.Time) (TrainResult, error) {
	cur, ok := p.Stat(stat)
	if !ok {
		return TrainResult{}, ErrUnknownStat
	}
	if cur >= player.MaxStat {
		return TrainResult{}, ErrStatMaxed
	}
	lim := ss.w.cat.Limits
	if err := checkCooldown(p, trainKey, now); err != nil {
		return TrainResult{}, err
	}
	if p.Stamina < float64(lim.TrainStamina) {
		return TrainResult{}, ErrNotEnoughStamina
	}
	if !p.Spend(lim.TrainCost) {
		return TrainResult{}, ErrNotEnoughCash
	}
	p.UseStamina(lim.TrainStamina)
	p.SetCooldown(trainKey, lim.TrainCooldown, now)
	v, _ := p.RaiseStat(stat)

	res := TrainResult{Stat: stat, Value: v, Cost: lim.TrainCost, Cash: p.Cash}
	ss.emit(now, events.EventTypeStatTrained, p.ID, stat, res)
	return res, nil
}

// Deposit moves cash into the bank, minus the deposit fee.
func (ss *SkillSystem) Deposit(p *player.Player, amount int, now time.Time) (BankResult, error) {
	if amount <= 0 {
		return BankResult{}, ErrInvalidAmount
	}
	fee := rules.BankFee(amount, ss.w.cat.Limits.BankFeePct)
	if !p.Deposit(amount, fee) {
		return BankResult{}, ErrNotEnoughCash
	}
	res := BankResult{Amount: amount, Fee: fee, Cash: p.Cash, Bank: p.Bank}
	ss.emit(now, events.EventTypeBankDeposit, p.ID, "", res)
	return res, nil
}

// Withdraw moves money from the bank to cash.
func (ss *SkillSystem) Withdraw(p *player.Player, amount int, now time.Time) (BankResult, error) {
	if amount <= 0 {
		return BankResult{}, ErrInvalidAmount
	}
	if !p.Withdraw(amount) {
		return BankResult{}, ErrNotEnoughCash
	}
	res := BankResult{Amount: amount, Cash: p.Cash, Bank: p.Bank}
	ss.emit(now, events.EventTypeBankWithdraw, p.ID, "", res)
	return res, nil
}
