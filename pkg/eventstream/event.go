package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCommitted is emitted after a turn is appended to its session.
	EventTypeTurnCommitted = "tutor.turn.committed"
)

// TurnCommittedEvent is a transport-neutral event payload for a committed turn.
type TurnCommittedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Timing        TurnTiming   `json:"timing"`
	Turn          session.Turn `json:"turn"`
}

// EventSource identifies the service that committed the turn.
type EventSource struct {
	Service  string `json:"service"`
	Instance string `json:"instance,omitempty"`
}

// TurnTiming captures how long each pipeline stage took.
type TurnTiming struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	STTMs       int64     `json:"stt_ms"`
	TutorMs     int64     `json:"tutor_ms"`
	TTSMs       int64     `json:"tts_ms"`
}

// NewTurnCommittedEvent wraps a committed turn in a v1 event with a fresh id.
func NewTurnCommittedEvent(source EventSource, timing TurnTiming, turn *session.Turn) *TurnCommittedEvent {
	return &TurnCommittedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCommitted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Timing:        timing,
		Turn:          *turn,
	}
}
