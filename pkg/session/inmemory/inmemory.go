// Package inmemory provides a session.Driver backed by process memory.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// Driver implements session.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex guarding sessions
	mu sync.RWMutex

	// sessions is keyed by session id
	sessions map[string]*entry

	now func() time.Time
}

type entry struct {
	session session.Session
	turns   []*session.Turn
}

// NewDriver creates a new in-memory session store.
func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// CreateIfAbsent returns the existing session or creates a new one.
func (d *Driver) CreateIfAbsent(_ context.Context, id, topic string) (*session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.sessions[id]; ok {
		s := e.session
		return &s, nil
	}

	e := &entry{session: session.Session{
		ID:        id,
		Topic:     topic,
		CreatedAt: d.now().UTC(),
	}}
	d.sessions[id] = e

	s := e.session
	return &s, nil
}

// Get retrieves a session by id.
func (d *Driver) Get(_ context.Context, id string) (*session.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.sessions[id]
	if !ok {
		return nil, session.NotFoundError{ID: id}
	}

	s := e.session
	return &s, nil
}

// Append commits turn as the next turn of session id.
func (d *Driver) Append(_ context.Context, id string, turn *session.Turn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.sessions[id]
	if !ok {
		return session.NotFoundError{ID: id}
	}

	if err := session.CheckAppend(&e.session, turn); err != nil {
		return err
	}

	t := turn.Clone()
	e.turns = append(e.turns, t)
	e.session.TurnCount++
	return nil
}

// History returns the most recent limit turns of session id.
func (d *Driver) History(_ context.Context, id string, limit int) ([]*session.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.sessions[id]
	if !ok {
		return nil, session.NotFoundError{ID: id}
	}

	tail := session.Tail(e.turns, limit)
	out := make([]*session.Turn, len(tail))
	for i, t := range tail {
		out[i] = t.Clone()
	}
	return out, nil
}

// List returns all sessions, oldest first.
func (d *Driver) List(_ context.Context) ([]*session.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*session.Session, 0, len(d.sessions))
	for _, e := range d.sessions {
		s := e.session
		out = append(out, &s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Purge deletes a session and its turns.
func (d *Driver) Purge(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[id]; !ok {
		return session.NotFoundError{ID: id}
	}
	delete(d.sessions, id)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
