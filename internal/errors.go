package internal

import (
	"errors"
	"fmt"
)

var (
	ErrNotHost           = errors.New("only the host may perform this action")
	ErrNotOwner          = errors.New("players may only write their own fields")
	ErrNotTurnPlayer     = errors.New("only the turn player or host may select the theme")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrAlreadySubmitted  = errors.New("discussion vote already submitted")
	ErrTooManyRevisions  = errors.New("discussion revision may change only one placement")
	ErrTooManyPlayers    = errors.New("too many players for distinct secret numbers")
	ErrNoPlayers         = errors.New("no players in room")
	ErrHistoryMismatch   = errors.New("score history does not match game history")
	ErrRoomNotFound      = errors.New("room not found")
	ErrGameStarted       = errors.New("game already started")
	ErrColorTaken        = errors.New("color already taken")
)

// ValidationError carries a message meant for the player. No state changes
// when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
