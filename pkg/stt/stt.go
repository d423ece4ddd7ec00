// Package stt turns a recorded clip into a transcript by walking an ordered
// list of speech-to-text engines.
package stt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
)

// Input is what an engine transcribes: the validated clip plus a file holding
// the same bytes for engines that only read from disk.
type Input struct {
	Clip audio.Clip
	Path string
}

// Engine is one speech-to-text backend.
type Engine interface {
	engine.Named

	// Transcribe returns the raw transcript of in. An empty transcript is
	// treated as a failure by the Adapter.
	Transcribe(ctx context.Context, in Input, language string) (string, error)
}

// Transcript is a successful transcription.
type Transcript struct {
	Text     string
	Language string
}

// Config configures an Adapter.
type Config struct {
	Engines []Engine

	// Timeout bounds each engine call.
	Timeout time.Duration

	// TempDir holds the clip file handed to engines. Empty means os.TempDir().
	TempDir string

	Logger *slog.Logger
}

// Adapter tries each configured engine in order and never retries one.
type Adapter struct {
	chain   engine.Chain[Engine]
	tempDir string
}

// NewAdapter creates a speech-to-text adapter.
func NewAdapter(c Config) *Adapter {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Adapter{
		chain: engine.Chain[Engine]{
			Engines: c.Engines,
			Timeout: c.Timeout,
			Stage:   "stt",
			Logger:  logger,
		},
		tempDir: c.TempDir,
	}
}

// Engines returns the configured engines in fallback order.
func (a *Adapter) Engines() []Engine {
	return a.chain.Engines
}

// Transcribe runs the engine chain over clip. The clip file written for the
// engines is removed before returning.
func (a *Adapter) Transcribe(ctx context.Context, clip audio.Clip, language string) engine.Result[Transcript] {
	path, err := a.writeClip(clip)
	if err != nil {
		return engine.Failed[Transcript]("", err)
	}
	defer os.Remove(path)

	in := Input{Clip: clip, Path: path}

	res := engine.Run(ctx, a.chain,
		func(ctx context.Context, e Engine) (string, error) {
			text, err := e.Transcribe(ctx, in, language)
			return strings.TrimSpace(text), err
		},
		func(text string) error {
			if text == "" {
				return fmt.Errorf("empty transcript: %w", engine.ErrMalformedOutput)
			}
			return nil
		},
	)

	return engine.Result[Transcript]{
		Value:    Transcript{Text: res.Value, Language: language},
		Engine:   res.Engine,
		Failure:  res.Failure,
		Attempts: res.Attempts,
	}
}

func (a *Adapter) writeClip(clip audio.Clip) (string, error) {
	f, err := os.CreateTemp(a.tempDir, "tutor-clip-*.wav")
	if err != nil {
		return "", fmt.Errorf("creating clip file: %w", err)
	}

	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing clip file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing clip file: %w", err)
	}

	return f.Name(), nil
}
