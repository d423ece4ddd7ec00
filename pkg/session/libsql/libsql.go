//go:build libsql

// Package libsql provides a session driver for libSQL and Turso databases.
//
// go-libsql links its own copy of SQLite, which collides with
// mattn/go-sqlite3 at link time, so the driver is only built with the
// "libsql" build tag.
package libsql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql" // registers the "libsql" database/sql driver

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/sqldriver"
)

// Driver implements session.Driver using libSQL.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver opens a libSQL database. url is either a local "file:" URL or a
// remote "libsql://host?authToken=..." URL.
func NewDriver(ctx context.Context, url string) (*Driver, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	drv, err := sqldriver.New(ctx, db, sqldriver.LibSQL)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: drv}, nil
}
