package economy

import "github.com/pkg/errors"

// Every failed operation returns one of these (possibly wrapped, see errors.Cause)
// and leaves the session exactly as it was.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSubject      = errors.New("invalid subject")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrInsufficientPoints  = errors.New("insufficient points available")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("session was modified concurrently")
)
