package engine

import (
	"errors"
	"fmt"
)

// Dispatch-level errors.
var (
	ErrNotAuthoritative = errors.New("session is not authoritative; use Replicate")
	ErrDispatchInFlight = errors.New("another action is still being dispatched")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// Reasons wrapped by IllegalCommandError.
var (
	ErrWrongPhase        = errors.New("wrong phase")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrNotOwner          = errors.New("player does not own the active entity")
	ErrAlreadyDeployed   = errors.New("player has already deployed")
	ErrInvalidDeployment = errors.New("invalid deployment")
	ErrNothingDeployed   = errors.New("no player has deployed")
	ErrInvalidPlacement  = errors.New("invalid obstacle placement")
	ErrNoPath            = errors.New("no path to destination")
	ErrCannotMove        = errors.New("entity cannot move that far")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrCannotAttack      = errors.New("cannot attack target")
	ErrUnknownSkill      = errors.New("entity does not have this skill")
	ErrCannotUseSkill    = errors.New("skill cannot be used")
)

// UnknownActionError is returned for an unregistered action type.
type UnknownActionError struct {
	Type string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action type %q", e.Type)
}

// IllegalCommandError is returned when a well-formed command breaks a game
// rule. Nothing was mutated.
type IllegalCommandError struct {
	Action string
	Err    error
}

func (e *IllegalCommandError) Error() string {
	return fmt.Sprintf("illegal %s: %v", e.Action, e.Err)
}

func (e *IllegalCommandError) Unwrap() error {
	return e.Err
}
