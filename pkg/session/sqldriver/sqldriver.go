// Package sqldriver implements session.Driver over database/sql. The sqlite,
// postgres and libsql packages open a *sql.DB with their own driver and hand
// it to New along with their Dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name string

	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres", Numbered: true}
	LibSQL   = Dialect{Name: "libsql"}
)

// rebind rewrites "?" placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tutor_sessions (
		id         TEXT PRIMARY KEY,
		topic      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		turn_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS tutor_turns (
		session_id     TEXT NOT NULL REFERENCES tutor_sessions(id) ON DELETE CASCADE,
		idx            INTEGER NOT NULL,
		transcript     TEXT NOT NULL,
		corrected_form TEXT NOT NULL,
		reply_text     TEXT NOT NULL,
		explanation    TEXT NOT NULL,
		audio_url      TEXT NOT NULL,
		provenance     TEXT NOT NULL,
		status         TEXT NOT NULL,
		state          TEXT NOT NULL,
		topic          TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		PRIMARY KEY (session_id, idx)
	)`,
}

const turnColumns = `session_id, idx, transcript, corrected_form, reply_text, explanation,
	audio_url, provenance, status, state, topic, created_at`

// Driver implements session.Driver on a *sql.DB.
type Driver struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New migrates the schema and returns a driver that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Driver{db: db, dialect: dialect, now: time.Now}, nil
}

// DB exposes the underlying handle.
func (d *Driver) DB() *sql.DB {
	return d.db
}

func (d *Driver) q(query string) string {
	return d.dialect.rebind(query)
}

// timeLayout has a fixed width so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// CreateIfAbsent inserts the session unless it already exists.
func (d *Driver) CreateIfAbsent(ctx context.Context, id, topic string) (*session.Session, error) {
	_, err := d.db.ExecContext(ctx,
		d.q(`INSERT INTO tutor_sessions (id, topic, created_at, turn_count) VALUES (?, ?, ?, 0) ON CONFLICT (id) DO NOTHING`),
		id, topic, formatTime(d.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return d.Get(ctx, id)
}

// Get retrieves a session by id.
func (d *Driver) Get(ctx context.Context, id string) (*session.Session, error) {
	var (
		s       session.Session
		created string
	)

	err := d.db.QueryRowContext(ctx,
		d.q(`SELECT id, topic, created_at, turn_count FROM tutor_sessions WHERE id = ?`), id,
	).Scan(&s.ID, &s.Topic, &created, &s.TurnCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing session created_at: %w", err)
	}
	return &s, nil
}

// Append commits turn inside one transaction. The turn count is bumped with
// a compare-and-set so concurrent writers cannot both claim an index.
func (d *Driver) Append(ctx context.Context, id string, turn *session.Turn) error {
	if turn == nil || turn.SessionID != id {
		return session.ErrInvalidTurn
	}

	provenance, err := sonic.Marshal(turn.Provenance)
	if err != nil {
		return fmt.Errorf("encoding provenance: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		d.q(`UPDATE tutor_sessions SET turn_count = turn_count + 1 WHERE id = ? AND turn_count = ?`),
		id, turn.Index,
	)
	if err != nil {
		return fmt.Errorf("claiming turn index: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claiming turn index: %w", err)
	}
	if n != 1 {
		var count int
		err := tx.QueryRowContext(ctx, d.q(`SELECT turn_count FROM tutor_sessions WHERE id = ?`), id).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			return session.NotFoundError{ID: id}
		}
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		return fmt.Errorf("%w: session %s expects index %d, got %d", session.ErrStateConflict, id, count, turn.Index)
	}

	_, err = tx.ExecContext(ctx,
		d.q(`INSERT INTO tutor_turns (`+turnColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, turn.Index, turn.Transcript, turn.CorrectedForm, turn.ReplyText, turn.Explanation,
		turn.AudioURL, string(provenance), string(turn.Status), string(turn.State), turn.Topic,
		formatTime(turn.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing turn: %w", err)
	}
	return nil
}

// History returns the most recent limit turns of session id in index order.
func (d *Driver) History(ctx context.Context, id string, limit int) ([]*session.Turn, error) {
	if _, err := d.Get(ctx, id); err != nil {
		return nil, err
	}

	query := `SELECT ` + turnColumns + ` FROM tutor_turns WHERE session_id = ? ORDER BY idx DESC`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, d.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*session.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}

	// Rows arrive newest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func scanTurn(rows *sql.Rows) (*session.Turn, error) {
	var (
		t             session.Turn
		provenance    string
		status, state string
		created       string
	)

	err := rows.Scan(&t.SessionID, &t.Index, &t.Transcript, &t.CorrectedForm, &t.ReplyText,
		&t.Explanation, &t.AudioURL, &provenance, &status, &state, &t.Topic, &created)
	if err != nil {
		return nil, fmt.Errorf("scanning turn: %w", err)
	}

	if err := sonic.Unmarshal([]byte(provenance), &t.Provenance); err != nil {
		return nil, fmt.Errorf("decoding provenance: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing turn created_at: %w", err)
	}
	t.Status = session.Status(status)
	t.State = session.State(state)

	return &t, nil
}

// List returns all sessions, oldest first.
func (d *Driver) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, topic, created_at, turn_count FROM tutor_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var (
			s       session.Session
			created string
		)
		if err := rows.Scan(&s.ID, &s.Topic, &created, &s.TurnCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parsing session created_at: %w", err)
		}
		out = append(out, &s)
	}

	return out, rows.Err()
}

// Purge deletes a session and its turns.
func (d *Driver) Purge(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning purge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, d.q(`DELETE FROM tutor_turns WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}

	res, err := tx.ExecContext(ctx, d.q(`DELETE FROM tutor_sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.NotFoundError{ID: id}
	}

	return tx.Commit()
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}
