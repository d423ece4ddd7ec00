// Package pipeline runs one conversation turn: speech-to-text, the tutor
// reply and text-to-speech, then commits the turn to the session store.
//
// Engine failures never surface as errors from RunTurn. They degrade the turn
// and are recorded in its provenance. Only invalid input, store conflicts and
// caller cancellation are returned as errors, and in those cases nothing is
// committed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/artifact"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
)

// ErrInvalidInput is returned for requests rejected before any engine runs.
var ErrInvalidInput = errors.New("invalid turn input")

const (
	// DefaultLanguage is the transcription language hint.
	DefaultLanguage = "de"

	// DefaultVoice is the voice requested from text-to-speech engines.
	DefaultVoice = "alloy"
)

// Request is one learner utterance.
type Request struct {
	SessionID string

	// Topic is required when SessionID names a session that does not exist
	// yet. It is ignored for existing sessions.
	Topic string

	// Audio is a mono WAV clip.
	Audio []byte
}

// EventSink receives committed turn events. *worker.Pool implements it.
type EventSink interface {
	Enqueue(event *eventstream.TurnCommittedEvent) bool
}

// Config configures an Orchestrator.
type Config struct {
	Sessions session.Driver
	STT      *stt.Adapter
	Tutor    *tutor.Client
	TTS      *tts.Adapter

	// Locker serializes turns per session. A new Locker is used when nil.
	Locker *session.Locker

	// Events is optional.
	Events EventSink

	// Source identifies this service in turn events.
	Source eventstream.EventSource

	Language string
	Voice    string

	// HistoryLimit caps the prior turns handed to the tutor. Zero uses the
	// tutor client's limit.
	HistoryLimit int

	Logger *slog.Logger
}

// Orchestrator runs turns.
type Orchestrator struct {
	sessions session.Driver
	locker   *session.Locker
	stt      *stt.Adapter
	tutor    *tutor.Client
	tts      *tts.Adapter
	events   EventSink
	source   eventstream.EventSource

	language     string
	voice        string
	historyLimit int

	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator.
func New(c Config) (*Orchestrator, error) {
	if c.Sessions == nil || c.STT == nil || c.Tutor == nil || c.TTS == nil {
		return nil, errors.New("pipeline requires a session driver and stt, tutor and tts adapters")
	}

	o := &Orchestrator{
		sessions:     c.Sessions,
		locker:       c.Locker,
		stt:          c.STT,
		tutor:        c.Tutor,
		tts:          c.TTS,
		events:       c.Events,
		source:       c.Source,
		language:     c.Language,
		voice:        c.Voice,
		historyLimit: c.HistoryLimit,
		logger:       c.Logger,
		now:          time.Now,
	}

	if o.locker == nil {
		o.locker = session.NewLocker()
	}
	if o.language == "" {
		o.language = DefaultLanguage
	}
	if o.voice == "" {
		o.voice = DefaultVoice
	}
	if o.historyLimit <= 0 {
		o.historyLimit = c.Tutor.HistoryLimit()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.source.Service == "" {
		o.source.Service = "tutor"
	}

	return o, nil
}

// Sessions returns the session store.
func (o *Orchestrator) Sessions() session.Driver {
	return o.sessions
}

// RunTurn processes one utterance and returns the committed turn.
//
// Turns for the same session run one at a time. If ctx is cancelled before
// the turn is committed, any audio written for it is removed and ctx.Err()
// is returned.
func (o *Orchestrator) RunTurn(ctx context.Context, req Request) (*session.Turn, error) {
	if !session.ValidID(req.SessionID) {
		return nil, fmt.Errorf("%w: malformed session id %q", ErrInvalidInput, req.SessionID)
	}

	clip, err := audio.Decode(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := o.locker.Lock(req.SessionID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := o.sessions.Get(ctx, req.SessionID)
	switch {
	case session.IsNotFound(err):
		if req.Topic == "" {
			return nil, fmt.Errorf("%w: unknown session %q needs a topic", ErrInvalidInput, req.SessionID)
		}
		sess = nil
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	}

	run := &turnRun{
		started: o.now(),
		turn: &session.Turn{
			SessionID: req.SessionID,
			Topic:     req.Topic,
		},
	}
	if sess != nil {
		run.turn.Index = sess.TurnCount
		run.turn.Topic = sess.Topic
	}

	logger := o.logger.With("session_id", req.SessionID, "turn_index", run.turn.Index)
	logger.Debug("turn received", "clip_duration", clip.Duration)

	var history []*session.Turn
	if sess != nil && sess.TurnCount > 0 {
		history, err = o.sessions.History(ctx, req.SessionID, o.historyLimit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("loading history: %w", err)
		}
	}

	o.run(ctx, run, clip, history)

	if err := ctx.Err(); err != nil {
		o.discardAudio(run, logger)
		logger.Info("turn cancelled before commit", "error", err)
		return nil, err
	}

	// The commit must not be torn by a cancellation that arrives mid-write.
	commitCtx := context.WithoutCancel(ctx)

	if sess == nil {
		if _, err := o.sessions.CreateIfAbsent(commitCtx, req.SessionID, req.Topic); err != nil {
			o.discardAudio(run, logger)
			return nil, fmt.Errorf("creating session: %w", err)
		}
	}

	run.turn.CreatedAt = o.now().UTC()
	if err := o.sessions.Append(commitCtx, req.SessionID, run.turn); err != nil {
		o.discardAudio(run, logger)
		return nil, fmt.Errorf("committing turn: %w", err)
	}

	logger.Info("turn committed",
		"status", run.turn.Status,
		"state", run.turn.State,
		"stt_engine", run.turn.Provenance.STTEngine,
		"tts_engine", run.turn.Provenance.TTSEngine,
		"reply_format", run.turn.Provenance.ReplyFormat,
		"failures", len(run.turn.Provenance.Failures),
	)

	o.publish(run)

	return run.turn, nil
}

// turnRun carries one turn through the stages.
type turnRun struct {
	turn     *session.Turn
	artifact *artifact.Artifact

	started  time.Time
	sttDur   time.Duration
	tutorDur time.Duration
	ttsDur   time.Duration
}

func (o *Orchestrator) run(ctx context.Context, r *turnRun, clip audio.Clip, history []*session.Turn) {
	t := r.turn
	prov := &t.Provenance

	// received -> transcribed
	start := o.now()
	transcript := o.stt.Transcribe(ctx, clip, o.language)
	r.sttDur = o.now().Sub(start)
	prov.Failures = append(prov.Failures, stageFailures("stt", transcript.Attempts)...)

	if !transcript.OK() {
		t.Status = session.StatusFailed
		t.State = session.StateFailedAtSTT
		return
	}
	prov.STTEngine = transcript.Engine
	t.Transcript = transcript.Value.Text

	// transcribed -> reasoned
	start = o.now()
	reply := o.tutor.Ask(ctx, t.Transcript, t.Topic, history)
	r.tutorDur = o.now().Sub(start)
	prov.Failures = append(prov.Failures, stageFailures("tutor", reply.Attempts)...)

	value := reply.Value
	if reply.OK() {
		prov.TutorEngine = reply.Engine
	} else {
		value = tutor.FallbackReply(t.Topic, t.Transcript, t.Index)
	}
	t.CorrectedForm = value.CorrectedForm
	t.ReplyText = value.ReplyText
	t.Explanation = value.Explanation
	prov.ReplyFormat = value.Format

	// reasoned -> synthesized
	key := artifact.Key{SessionID: t.SessionID, Index: t.Index}
	o.clearStaleAudio(key)

	start = o.now()
	speech := o.tts.Synthesize(ctx, key, t.ReplyText, o.voice)
	r.ttsDur = o.now().Sub(start)
	prov.Failures = append(prov.Failures, stageFailures("tts", speech.Attempts)...)

	if speech.OK() {
		prov.TTSEngine = speech.Engine
		t.AudioURL = speech.Value.URL
		r.artifact = &speech.Value
	}

	t.State = session.StateCommitted
	t.Status = session.StatusOK
	if prov.ReplyFormat == session.FormatTemplate || t.AudioURL == "" {
		t.Status = session.StatusPartial
	}
}

// clearStaleAudio removes audio left at key by a turn that never committed.
// The caller holds the session lock and key's index is not committed yet, so
// the file cannot belong to another turn.
func (o *Orchestrator) clearStaleAudio(key artifact.Key) {
	store := o.tts.Store()
	if store == nil || !store.Exists(key) {
		return
	}
	if err := store.Remove(key); err != nil {
		o.logger.Warn("could not remove stale audio", "key", key.Name(), "error", err)
		return
	}
	o.logger.Info("removed stale audio from an uncommitted turn", "key", key.Name())
}

func (o *Orchestrator) discardAudio(r *turnRun, logger *slog.Logger) {
	if r.artifact == nil {
		return
	}
	if err := o.tts.Store().Remove(r.artifact.Key); err != nil {
		logger.Warn("could not remove audio of uncommitted turn", "key", r.artifact.Key.Name(), "error", err)
	}
	r.artifact = nil
}

func (o *Orchestrator) publish(r *turnRun) {
	if o.events == nil {
		return
	}

	completed := o.now()
	timing := eventstream.TurnTiming{
		StartedAt:   r.started.UTC(),
		CompletedAt: completed.UTC(),
		DurationMs:  completed.Sub(r.started).Milliseconds(),
		STTMs:       r.sttDur.Milliseconds(),
		TutorMs:     r.tutorDur.Milliseconds(),
		TTSMs:       r.ttsDur.Milliseconds(),
	}

	o.events.Enqueue(eventstream.NewTurnCommittedEvent(o.source, timing, r.turn))
}

func stageFailures(stage string, attempts []*engine.Failure) []session.StageFailure {
	out := make([]session.StageFailure, 0, len(attempts))
	for _, f := range attempts {
		out = append(out, session.StageFailure{
			Stage:  stage,
			Engine: f.Engine,
			Kind:   string(f.Kind),
			Error:  f.Err.Error(),
		})
	}
	return out
}
