// Package sessionutils builds a session.Driver from configuration.
package sessionutils

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/inmemory"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/jsonl"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/postgres"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/sqlite"
)

type NewDriverOpts struct {
	// Driver is one of "memory", "jsonl", "sqlite", "postgres", "libsql".
	Driver      string
	SQLitePath  string
	JSONLDir    string
	PostgresDSN string
	LibSQLURL   string

	// BaseDir resolves relative file paths, usually the .tutor/ directory.
	BaseDir string

	Logger *slog.Logger
}

func (o *NewDriverOpts) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || o.BaseDir == "" || p == ":memory:" {
		return p
	}
	return filepath.Join(o.BaseDir, p)
}

// NewDriver returns the session driver selected by o.Driver.
func NewDriver(ctx context.Context, o *NewDriverOpts) (session.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch o.Driver {
	case "", "memory":
		logger.Info("using in-memory session store")
		return inmemory.NewDriver(), nil

	case "jsonl":
		dir := o.JSONLDir
		if dir == "" {
			dir = "sessions"
		}
		dir = o.resolve(dir)
		logger.Info("using jsonl session store", "dir", dir)
		return jsonl.NewDriver(dir, logger)

	case "sqlite":
		path := o.SQLitePath
		if path == "" {
			path = "tutor.sqlite"
		}
		path = o.resolve(path)
		logger.Info("using SQLite session store", "path", path)
		return sqlite.NewDriver(ctx, path)

	case "postgres":
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres session store requires storage.postgres_dsn")
		}
		logger.Info("using PostgreSQL session store")
		return postgres.NewDriver(ctx, o.PostgresDSN)

	case "libsql":
		if o.LibSQLURL == "" {
			return nil, fmt.Errorf("libsql session store requires storage.libsql_url")
		}
		logger.Info("using libSQL session store")
		return newLibSQL(ctx, o.LibSQLURL)

	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", o.Driver)
	}
}
