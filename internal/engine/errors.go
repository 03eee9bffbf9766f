package engine

import (
	"errors"
	"fmt"
	"time"
)

// Refusals. A refused command leaves the world unchanged.
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrPlayerExists      = errors.New("player already exists")
	ErrNameTaken         = errors.New("name already taken")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidCareer     = errors.New("invalid career")
	ErrJailed            = errors.New("player is in jail")
	ErrNotJailed         = errors.New("player is not in jail")
	ErrHospitalized      = errors.New("player is in hospital")
	ErrTraveling         = errors.New("player is traveling")
	ErrOnCooldown        = errors.New("action on cooldown")
	ErrNotEnoughStamina  = errors.New("not enough stamina")
	ErrNotEnoughCash     = errors.New("not enough cash")
	ErrNotEnoughPoints   = errors.New("not enough skill points")
	ErrRankTooLow        = errors.New("rank too low")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownCrime      = errors.New("unknown crime")
	ErrUnknownTier       = errors.New("unknown vehicle tier")
	ErrUnknownVehicle    = errors.New("vehicle not in garage")
	ErrGarageFull        = errors.New("garage is full")
	ErrNoRepairNeeded    = errors.New("vehicle needs no repair")
	ErrUnknownGood       = errors.New("unknown good")
	ErrUnknownCity       = errors.New("unknown city")
	ErrAlreadyThere      = errors.New("already in that city")
	ErrNoCapacity        = errors.New("not enough carry capacity")
	ErrNotEnoughGoods    = errors.New("not enough goods")
	ErrUnknownBusiness   = errors.New("unknown business")
	ErrAlreadyOwned      = errors.New("business already owned")
	ErrMaxLevel          = errors.New("business at max level")
	ErrNothingToCollect  = errors.New("nothing to collect")
	ErrUnknownHeist      = errors.New("unknown heist")
	ErrUnknownPrep       = errors.New("unknown heist preparation")
	ErrVehicleRequired   = errors.New("heist requires a getaway vehicle")
	ErrUnknownGame       = errors.New("unknown casino game")
	ErrInvalidChoice     = errors.New("invalid casino choice")
	ErrBetOutOfRange     = errors.New("bet out of range")
	ErrUnknownSkill      = errors.New("unknown skill")
	ErrSkillMaxed        = errors.New("skill at max level")
	ErrSkillLocked       = errors.New("skill prerequisites not met")
	ErrUnknownStat       = errors.New("unknown stat")
	ErrStatMaxed         = errors.New("stat at max")
	ErrAlreadyInFamily   = errors.New("already in a family")
	ErrNotInFamily       = errors.New("not in a family")
	ErrFamilyNotFound    = errors.New("family not found")
	ErrFamilyNameTaken   = errors.New("family name taken")
	ErrFamilyClosed      = errors.New("family does not accept members")
	ErrUnknownTerritory  = errors.New("unknown territory")
	ErrOwnTerritory      = errors.New("territory already held by your family")
	ErrNotController     = errors.New("territory not held by your family")
	ErrInfluenceFull     = errors.New("territory influence already at max")
	ErrUnknownBoard      = errors.New("unknown leaderboard")
)

// CooldownError reports how long until an action is available again.
type CooldownError struct {
	Action    string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}
