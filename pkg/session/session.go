// Package session holds conversation state: sessions, their committed turns
// and the drivers that persist them.
package session

import (
	"regexp"
	"slices"
	"time"
)

// Status is the user facing outcome of a committed turn.
type Status string

const (
	// StatusOK is a turn where every stage produced its primary output.
	StatusOK Status = "ok"

	// StatusPartial is a turn that returned text but degraded somewhere:
	// a templated reply or missing audio.
	StatusPartial Status = "partial"

	// StatusFailed is a turn where no transcript could be produced.
	StatusFailed Status = "failed"
)

// State is the terminal pipeline state a turn was committed from.
type State string

const (
	StateCommitted   State = "committed"
	StateFailedAtSTT State = "failed_at_stt"
)

// ReplyFormat records how the reply text was produced.
type ReplyFormat string

const (
	// FormatStructured is a reply parsed from the marker grammar.
	FormatStructured ReplyFormat = "structured"

	// FormatUnstructured is a reply with no usable ANTWORT section; the raw
	// model output became the reply.
	FormatUnstructured ReplyFormat = "unstructured"

	// FormatTemplate is a canned reply used when the LLM runtime failed.
	FormatTemplate ReplyFormat = "template"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is a well formed session id.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Session is one tutoring conversation.
type Session struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`

	// TurnCount is the number of committed turns, which is also the index the
	// next turn must carry.
	TurnCount int `json:"turn_count"`
}

// StageFailure records one engine failure seen while producing a turn.
type StageFailure struct {
	Stage  string `json:"stage"`
	Engine string `json:"engine,omitempty"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// Provenance records which engines served a turn.
type Provenance struct {
	STTEngine   string         `json:"stt_engine,omitempty"`
	TutorEngine string         `json:"tutor_engine,omitempty"`
	TTSEngine   string         `json:"tts_engine,omitempty"`
	ReplyFormat ReplyFormat    `json:"reply_format,omitempty"`
	Failures    []StageFailure `json:"failures,omitempty"`
}

// Degraded reports whether any stage fell back or failed.
func (p Provenance) Degraded() bool {
	return len(p.Failures) > 0 || p.ReplyFormat == FormatTemplate
}

// Turn is one committed request/response cycle. Turns are never modified
// after Append.
type Turn struct {
	SessionID     string     `json:"session_id"`
	Index         int        `json:"index"`
	Transcript    string     `json:"transcript"`
	CorrectedForm string     `json:"corrected_form"`
	ReplyText     string     `json:"reply_text"`
	Explanation   string     `json:"explanation,omitempty"`
	AudioURL      string     `json:"audio_url,omitempty"`
	Provenance    Provenance `json:"provenance"`
	Status        Status     `json:"status"`
	State         State      `json:"state"`
	Topic         string     `json:"topic"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Clone returns a deep copy of t that shares no memory with it.
func (t *Turn) Clone() *Turn {
	c := *t
	c.Provenance.Failures = slices.Clone(t.Provenance.Failures)
	return &c
}
