// Package jsonl provides a session.Driver that keeps one append-only log file
// per session. Every line is a single JSON record; the first record describes
// the session and each following record is one committed turn. Logs are
// replayed when the driver opens, so sessions survive restarts.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

const (
	fileExt = ".jsonl"

	kindSession = "session"
	kindTurn    = "turn"

	// maxRecordBytes bounds a single log line.
	maxRecordBytes = 4 << 20
)

// record is one line of a session log.
type record struct {
	Kind    string           `json:"kind"`
	Session *session.Session `json:"session,omitempty"`
	Turn    *session.Turn    `json:"turn,omitempty"`
}

type entry struct {
	session session.Session
	turns   []*session.Turn
}

// Driver implements session.Driver on top of per-session JSONL files.
type Driver struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewDriver opens (creating if needed) dir and replays every session log in it.
func NewDriver(dir string, logger *slog.Logger) (*Driver, error) {
	if dir == "" {
		return nil, errors.New("jsonl driver requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session log dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Driver{
		dir:      dir,
		logger:   logger,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}

	if err := d.replay(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Driver) path(id string) string {
	return filepath.Join(d.dir, id+fileExt)
}

func (d *Driver) replay() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("reading session log dir: %w", err)
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}

		path := filepath.Join(d.dir, de.Name())
		e, err := d.replayFile(path)
		if err != nil {
			return fmt.Errorf("replaying %s: %w", de.Name(), err)
		}
		if e == nil {
			// The session record itself never made it to disk, so the id
			// was never created. Free it for CreateIfAbsent.
			d.logger.Warn("removing session log without a session record", "path", path)
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing empty session log %s: %w", de.Name(), err)
			}
			continue
		}
		d.sessions[e.session.ID] = e
	}

	d.logger.Debug("replayed session logs", "dir", d.dir, "sessions", len(d.sessions))
	return nil
}

// replayFile rebuilds one session. A torn final line, left by a crash in the
// middle of a write, is dropped and truncated away so the next append starts
// on a clean line.
func (d *Driver) replayFile(path string) (*entry, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		e      *entry
		offset int64
		r      = bufio.NewReaderSize(f, 64*1024)
	)

	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) == 0 && errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}

		torn := errors.Is(readErr, io.EOF) // no trailing newline
		var rec record
		if torn || len(line) > maxRecordBytes || sonic.Unmarshal(bytes.TrimSpace(line), &rec) != nil {
			if !torn {
				return nil, fmt.Errorf("corrupt record at offset %d", offset)
			}
			d.logger.Warn("dropping torn session log record", "path", path, "offset", offset)
			if err := f.Truncate(offset); err != nil {
				return nil, fmt.Errorf("truncating torn record: %w", err)
			}
			break
		}
		offset += int64(len(line))

		switch rec.Kind {
		case kindSession:
			if e != nil || rec.Session == nil {
				return nil, errors.New("unexpected session record")
			}
			s := *rec.Session
			s.TurnCount = 0
			e = &entry{session: s}

		case kindTurn:
			if e == nil || rec.Turn == nil {
				return nil, errors.New("turn record before session record")
			}
			if err := session.CheckAppend(&e.session, rec.Turn); err != nil {
				return nil, err
			}
			e.turns = append(e.turns, rec.Turn)
			e.session.TurnCount++

		default:
			return nil, fmt.Errorf("unknown record kind %q", rec.Kind)
		}
	}

	return e, nil
}

// writeRecord appends rec to the session log with a single write call and
// syncs it before returning.
func (d *Driver) writeRecord(id string, flags int, rec record) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", rec.Kind, err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(d.path(id), flags|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening session log: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing session log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing session log: %w", err)
	}

	return f.Close()
}

// CreateIfAbsent returns the existing session or creates its log file.
func (d *Driver) CreateIfAbsent(_ context.Context, id, topic string) (*session.Session, error) {
	if !session.ValidID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.sessions[id]; ok {
		s := e.session
		return &s, nil
	}

	s := session.Session{ID: id, Topic: topic, CreatedAt: d.now().UTC()}
	if err := d.writeRecord(id, os.O_CREATE|os.O_EXCL, record{Kind: kindSession, Session: &s}); err != nil {
		return nil, err
	}

	d.sessions[id] = &entry{session: s}
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

// Append writes turn to the session log and then makes it visible.
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
	if err := d.writeRecord(id, 0, record{Kind: kindTurn, Turn: t}); err != nil {
		return err
	}

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

// Purge removes the session log.
func (d *Driver) Purge(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[id]; !ok {
		return session.NotFoundError{ID: id}
	}

	if err := os.Remove(d.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session log: %w", err)
	}

	delete(d.sessions, id)
	return nil
}

// Close is a no-op; every write is synced before it returns.
func (d *Driver) Close() error {
	return nil
}
