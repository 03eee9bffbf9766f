package protocol

// Error codes carried in RESULT messages.
const (
	ErrBadRequest = "E_BAD_REQUEST"
	ErrNotFound   = "E_NOT_FOUND"
	ErrConflict   = "E_CONFLICT"
	ErrBlocked    = "E_BLOCKED"
	ErrCooldown   = "E_COOLDOWN"
	ErrNoResource = "E_NO_RESOURCE"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest: {},
	ErrNotFound:   {},
	ErrConflict:   {},
	ErrBlocked:    {},
	ErrCooldown:   {},
	ErrNoResource: {},
	ErrRateLimit:  {},
	ErrInternal:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
