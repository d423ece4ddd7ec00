package session

import "errors"

// ErrStateConflict is returned when a turn's index is not the next index of
// its session.
var ErrStateConflict = errors.New("turn index conflicts with session state")

// ErrInvalidTurn is returned for a nil turn or a turn whose session id does
// not match the session it is appended to.
var ErrInvalidTurn = errors.New("invalid turn")

// NotFoundError is returned when a session doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "session not found"
	}

	return "session not found: " + e.ID
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
