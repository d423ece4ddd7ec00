package session

import "context"

// Driver persists sessions and their append-only turn logs.
//
// Drivers enforce the index invariant themselves: Append only accepts the
// turn whose Index equals the session's current TurnCount. Callers that need
// read-then-append consistency across a whole turn serialize through a
// Locker.
type Driver interface {
	// CreateIfAbsent returns the existing session for id, or creates it with
	// the given topic. An existing session keeps its original topic.
	CreateIfAbsent(ctx context.Context, id, topic string) (*Session, error)

	// Get returns a session by id, or NotFoundError.
	Get(ctx context.Context, id string) (*Session, error)

	// Append commits turn as the next turn of session id. It returns
	// NotFoundError for unknown sessions and ErrStateConflict when
	// turn.Index is not the session's TurnCount.
	Append(ctx context.Context, id string, turn *Turn) error

	// History returns the most recent limit turns in index order.
	// A limit <= 0 returns every turn.
	History(ctx context.Context, id string, limit int) ([]*Turn, error)

	// List returns every session, oldest first.
	List(ctx context.Context) ([]*Session, error)

	// Purge deletes a session and its turns.
	Purge(ctx context.Context, id string) error

	// Close releases any resources held by the driver.
	Close() error
}
