// Package openai synthesizes speech through an OpenAI-compatible
// /audio/speech endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"
)

// Name is the engine identifier recorded in turn provenance.
const Name = "openai"

// DefaultVoice is used when a request names no voice.
const DefaultVoice = "alloy"

// Config configures the OpenAI-compatible speech engine.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
}

// Engine calls the speech endpoint with go-openai and requests WAV output.
type Engine struct {
	client *goopenai.Client
	model  goopenai.SpeechModel
	voice  string
}

// New creates an OpenAI-compatible speech engine.
func New(c Config) (*Engine, error) {
	if c.BaseURL == "" {
		return nil, errors.New("openai tts engine requires a base URL")
	}
	if c.Model == "" {
		c.Model = string(goopenai.TTSModel1)
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL

	return &Engine{
		client: goopenai.NewClientWithConfig(cfg),
		model:  goopenai.SpeechModel(c.Model),
		voice:  c.Voice,
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

// Synthesize returns WAV audio for text spoken by voice.
func (e *Engine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = e.voice
	}

	resp, err := e.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          e.model,
		Input:          text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}
	return data, nil
}
