// Package tts turns the tutor's reply text into a stored audio artifact by
// walking an ordered list of text-to-speech engines.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/artifact"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
)

// Engine is one text-to-speech backend.
type Engine interface {
	engine.Named

	// Synthesize returns WAV audio for text. Engines that have no notion of
	// the requested voice use their own configured voice.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Config configures an Adapter.
type Config struct {
	Engines []Engine

	// Timeout bounds each engine call.
	Timeout time.Duration

	// Store receives the synthesized audio.
	Store *artifact.Store

	Logger *slog.Logger
}

// Adapter tries each configured engine in order and writes the first usable
// audio to the artifact store.
type Adapter struct {
	chain  engine.Chain[Engine]
	store  *artifact.Store
	logger *slog.Logger
}

// NewAdapter creates a text-to-speech adapter.
func NewAdapter(c Config) *Adapter {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Adapter{
		chain: engine.Chain[Engine]{
			Engines: c.Engines,
			Timeout: c.Timeout,
			Stage:   "tts",
			Logger:  logger,
		},
		store:  c.Store,
		logger: logger,
	}
}

// Engines returns the configured engines in fallback order.
func (a *Adapter) Engines() []Engine {
	return a.chain.Engines
}

// Store returns the artifact store audio is written to.
func (a *Adapter) Store() *artifact.Store {
	return a.store
}

// Synthesize speaks text and stores the audio at key. Exactly one artifact is
// written on success and none on failure.
func (a *Adapter) Synthesize(ctx context.Context, key artifact.Key, text, voice string) engine.Result[artifact.Artifact] {
	text = strings.TrimSpace(text)
	if text == "" {
		return engine.Failed[artifact.Artifact]("", fmt.Errorf("nothing to synthesize: %w", engine.ErrMalformedOutput))
	}

	res := engine.Run(ctx, a.chain,
		func(ctx context.Context, e Engine) ([]byte, error) {
			return e.Synthesize(ctx, text, voice)
		},
		func(data []byte) error {
			if len(data) == 0 {
				return fmt.Errorf("empty audio: %w", engine.ErrMalformedOutput)
			}
			return nil
		},
	)
	if !res.OK() {
		return engine.Result[artifact.Artifact]{Failure: res.Failure, Attempts: res.Attempts}
	}

	if a.store == nil {
		f := engine.NewFailure(res.Engine, fmt.Errorf("no artifact store configured"))
		return engine.Result[artifact.Artifact]{Failure: f, Attempts: append(res.Attempts, f)}
	}

	art, err := a.store.Create(key, res.Value)
	if err != nil {
		f := engine.NewFailure(res.Engine, fmt.Errorf("storing audio: %w", err))
		a.logger.Error("could not store synthesized audio", "key", key.Name(), "error", err)
		return engine.Result[artifact.Artifact]{Failure: f, Attempts: append(res.Attempts, f)}
	}

	return engine.Result[artifact.Artifact]{Value: art, Engine: res.Engine, Attempts: res.Attempts}
}
