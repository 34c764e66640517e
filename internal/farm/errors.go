package farm

import (
	"fmt"
	"strings"
)

// ValidationError carries every configuration bound the input violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid farm config: " + strings.Join(e.Violations, "; ")
}

// AccessError means the actor tried to mutate a farm it does not own.
type AccessError struct {
	Actor  string
	FarmID string
}

func (e *AccessError) Error() string {
	if e.FarmID == "" {
		return fmt.Sprintf("actor %s is not the owner-token creator", e.Actor)
	}
	return fmt.Sprintf("actor %s does not own farm %s", e.Actor, e.FarmID)
}

// StateError codes. Stable machine-readable identifiers for every
// business-rule failure the farm subsystem can produce.
const (
	CodeFarmNotFound            = "farm_not_found"
	CodePositionNotFound        = "position_not_found"
	CodeFarmNotActive           = "farm_not_active"
	CodeFarmExpired             = "farm_expired"
	CodePositionLocked          = "position_locked"
	CodeInsufficientBalance     = "insufficient_balance"
	CodeInsufficientPool        = "insufficient_pool"
	CodeStakeBelowMinimum       = "stake_below_minimum"
	CodeStakeAboveMaximum       = "stake_above_maximum"
	CodePositionsOutstanding    = "positions_outstanding"
	CodeInvalidStatusTransition = "invalid_status_transition"
	CodeNothingToHarvest        = "nothing_to_harvest"
)

// StateError is an operation disallowed by current entity state. The state
// it describes is left unchanged by the failing operation.
type StateError struct {
	Code    string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound reports whether this error should surface as a missing resource
func (e *StateError) NotFound() bool {
	return e.Code == CodeFarmNotFound || e.Code == CodePositionNotFound
}

// NewStateError builds a StateError with a formatted message
func NewStateError(code, format string, args ...interface{}) *StateError {
	return &StateError{Code: code, Message: fmt.Sprintf(format, args...)}
}
