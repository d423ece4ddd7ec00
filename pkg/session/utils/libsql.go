//go:build libsql

package sessionutils

import (
	"context"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/libsql"
)

func newLibSQL(ctx context.Context, url string) (session.Driver, error) {
	return libsql.NewDriver(ctx, url)
}
