package api

import (
	"errors"
	"net/http"

	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/infra/archive"
	"github.com/cosanostra-game/server/internal/protocol"
)

// ErrUnknownAction is returned for an action name the dispatcher does not route.
var ErrUnknownAction = errors.New("unknown action")

// ErrRateLimited is returned when a caller exceeds its request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

type errorClass struct {
	status int
	code   string
}

var (
	classNotFound   = errorClass{http.StatusNotFound, protocol.ErrNotFound}
	classBadRequest = errorClass{http.StatusUnprocessableEntity, protocol.ErrBadRequest}
	classBlocked    = errorClass{http.StatusConflict, protocol.ErrBlocked}
	classConflict   = errorClass{http.StatusConflict, protocol.ErrConflict}
	classNoResource = errorClass{http.StatusConflict, protocol.ErrNoResource}
	classCooldown   = errorClass{http.StatusTooManyRequests, protocol.ErrCooldown}
	classRateLimit  = errorClass{http.StatusTooManyRequests, protocol.ErrRateLimit}
	classInternal   = errorClass{http.StatusInternalServerError, protocol.ErrInternal}
)

var errorTable = []struct {
	classes errorClass
	errs    []error
}{
	{classNotFound, []error{
		engine.ErrPlayerNotFound, engine.ErrUnknownCrime, engine.ErrUnknownTier,
		engine.ErrUnknownVehicle, engine.ErrUnknownGood, engine.ErrUnknownCity,
		engine.ErrUnknownBusiness, engine.ErrUnknownHeist, engine.ErrUnknownPrep,
		engine.ErrUnknownSkill, engine.ErrFamilyNotFound, engine.ErrUnknownTerritory,
		engine.ErrUnknownBoard, ErrUnknownAction,
	}},
	{classBadRequest, []error{
		engine.ErrInvalidName, engine.ErrInvalidCareer, engine.ErrInvalidAmount, engine.ErrUnknownGame,
		engine.ErrInvalidChoice, engine.ErrBetOutOfRange, engine.ErrUnknownStat,
		engine.ErrVehicleRequired, protocol.ErrInvalidMessage,
		archive.ErrBadVersion, archive.ErrMismatch, archive.ErrTooLarge,
	}},
	{classBlocked, []error{
		engine.ErrJailed, engine.ErrHospitalized, engine.ErrTraveling, engine.ErrNotJailed,
	}},
	{classCooldown, []error{engine.ErrOnCooldown}},
	{classRateLimit, []error{ErrRateLimited}},
	{classNoResource, []error{
		engine.ErrNotEnoughStamina, engine.ErrNotEnoughCash, engine.ErrNotEnoughPoints,
		engine.ErrNoCapacity, engine.ErrNotEnoughGoods, engine.ErrGarageFull,
		engine.ErrNothingToCollect,
	}},
	{classConflict, []error{
		engine.ErrPlayerExists, engine.ErrNameTaken, engine.ErrRankTooLow,
		engine.ErrNoRepairNeeded, engine.ErrAlreadyThere, engine.ErrAlreadyOwned,
		engine.ErrMaxLevel, engine.ErrSkillMaxed, engine.ErrSkillLocked, engine.ErrStatMaxed,
		engine.ErrAlreadyInFamily, engine.ErrNotInFamily, engine.ErrFamilyNameTaken,
		engine.ErrFamilyClosed, engine.ErrOwnTerritory, engine.ErrNotController,
		engine.ErrInfluenceFull,
	}},
}

// classify maps an error to its HTTP status and protocol error code.
// Unrecognized errors are internal.
func classify(err error) errorClass {
	for _, row := range errorTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.classes
			}
		}
	}
	return classInternal
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	return classify(err).status
}

// CodeFor returns the protocol error code for err.
func CodeFor(err error) string {
	return classify(err).code
}

// IsRefusal reports whether err is a game rule refusal rather than a failure.
func IsRefusal(err error) bool {
	return err != nil && classify(err) != classInternal
}
