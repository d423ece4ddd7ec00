package session

import "fmt"

// Tail returns the most recent limit turns of turns, which must be in index
// order. A limit <= 0 returns turns unchanged.
func Tail(turns []*Turn, limit int) []*Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}

// CheckAppend validates turn as the next turn of s.
func CheckAppend(s *Session, turn *Turn) error {
	if turn == nil || turn.SessionID != s.ID {
		return ErrInvalidTurn
	}
	if turn.Index != s.TurnCount {
		return fmt.Errorf("%w: session %s expects index %d, got %d", ErrStateConflict, s.ID, s.TurnCount, turn.Index)
	}
	return nil
}
