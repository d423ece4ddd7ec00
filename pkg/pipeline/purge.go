package pipeline

import (
	"context"
	"fmt"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// Purge deletes a session, its turns and its audio. It waits for any running
// turn of the session to finish first.
func (o *Orchestrator) Purge(ctx context.Context, id string) error {
	if !session.ValidID(id) {
		return fmt.Errorf("%w: malformed session id %q", ErrInvalidInput, id)
	}

	unlock := o.locker.Lock(id)
	defer unlock()

	if err := o.sessions.Purge(ctx, id); err != nil {
		return err
	}

	if store := o.tts.Store(); store != nil {
		if err := store.RemoveSession(id); err != nil {
			return err
		}
	}

	o.logger.Info("session purged", "session_id", id)
	return nil
}
