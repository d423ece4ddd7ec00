//go:build !libsql

package sessionutils

import (
	"context"
	"errors"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// ErrLibSQLDisabled is returned when the binary was built without the
// "libsql" build tag.
var ErrLibSQLDisabled = errors.New("libsql session store not compiled in (rebuild with -tags libsql)")

func newLibSQL(context.Context, string) (session.Driver, error) {
	return nil, ErrLibSQLDisabled
}
