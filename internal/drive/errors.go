package drive

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrNotActive           = errors.New("round is not accepting attendance")
	ErrTokenExpired        = errors.New("scan token expired")
	ErrTokenConsumed       = errors.New("scan token already used")
	ErrTokenNotFound       = errors.New("scan token not found")
	ErrDuplicateAttendance = errors.New("attendance already recorded")
	ErrNotEligible         = errors.New("student is not eligible for this round")
)

// StateError reports an illegal lifecycle transition. It unwraps to
// ErrInvalidState.
type StateError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is %s, cannot %s", e.Entity, e.Current, e.Requested)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

func stateErr(entity, current, requested string) error {
	return &StateError{Entity: entity, Current: current, Requested: requested}
}
