package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStopOrder  = errors.New("invalid stop order")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRouteNotEditable  = errors.New("route is not editable in its current status")
	ErrNoSuitableVehicle = errors.New("no suitable vehicle")
	ErrVersionConflict   = errors.New("route was modified concurrently")
)

// OpReorder names the explicit reorder operation in validation errors.
const OpReorder = "invalid stop order"

// ValidationError rejects caller input before any mutation happens.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidStopOrder && e.Op == OpReorder
}

// OracleError wraps a distance oracle failure. Degraded failures were absorbed
// by the caller and only reach logs; fatal ones abort the operation.
type OracleError struct {
	Op       string
	Degraded bool
	Err      error
}

func (e *OracleError) Error() string {
	kind := "fatal"
	if e.Degraded {
		kind = "degraded"
	}
	return fmt.Sprintf("oracle %s (%s): %v", e.Op, kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsOracleFailure reports whether err carries a *OracleError.
func IsOracleFailure(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe)
}
