// Package openai transcribes clips through an OpenAI-compatible
// /audio/transcriptions endpoint. Pointing BaseURL at a local
// faster-whisper server keeps transcription offline.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
)

// Name is the engine identifier recorded in turn provenance.
const Name = "openai"

// Config configures the OpenAI-compatible transcription engine.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Engine calls the transcription endpoint with go-openai.
type Engine struct {
	client *goopenai.Client
	model  string
}

// New creates an OpenAI-compatible transcription engine.
func New(c Config) (*Engine, error) {
	if c.BaseURL == "" {
		return nil, errors.New("openai stt engine requires a base URL")
	}
	if c.Model == "" {
		c.Model = goopenai.Whisper1
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL

	return &Engine{
		client: goopenai.NewClientWithConfig(cfg),
		model:  c.Model,
	}, nil
}

func (e *Engine) Name() string {
	return Name
}

// Check lists models to verify the endpoint answers and the key is accepted.
func (e *Engine) Check(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	return nil
}

// Transcribe uploads the clip and returns the transcript text.
func (e *Engine) Transcribe(ctx context.Context, in stt.Input, language string) (string, error) {
	name := "clip.wav"
	if in.Path != "" {
		name = filepath.Base(in.Path)
	}

	resp, err := e.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:       e.model,
		FilePath:    name,
		Reader:      bytes.NewReader(in.Clip.Data),
		Language:    language,
		Format:      goopenai.AudioResponseFormatJSON,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	return resp.Text, nil
}
