// Package tutor asks a local language model for the tutor's reply to a
// learner utterance and parses the answer into its corrected form, reply and
// explanation.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// DefaultHistoryLimit is the number of prior turns included in a prompt.
const DefaultHistoryLimit = 5

// Generator is a text completion backend.
type Generator interface {
	engine.Named

	// Generate returns the raw completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures a Client.
type Config struct {
	Generator Generator

	// Prompt supplies the system instruction. Nil uses DefaultSystemPrompt.
	Prompt PromptSource

	// Timeout bounds the generate call.
	Timeout time.Duration

	// HistoryLimit caps the prior turns sent with each prompt.
	HistoryLimit int

	Logger *slog.Logger
}

// Client produces tutor replies. The generator is called at most once per Ask.
type Client struct {
	chain        engine.Chain[Generator]
	prompt       PromptSource
	historyLimit int
	logger       *slog.Logger
}

// NewClient creates a tutor client.
func NewClient(c Config) *Client {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	prompt := c.Prompt
	if prompt == nil {
		prompt = StaticPrompt("")
	}

	limit := c.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var engines []Generator
	if c.Generator != nil {
		engines = []Generator{c.Generator}
	}

	return &Client{
		chain: engine.Chain[Generator]{
			Engines: engines,
			Timeout: c.Timeout,
			Stage:   "tutor",
			Logger:  logger,
		},
		prompt:       prompt,
		historyLimit: limit,
		logger:       logger,
	}
}

// Generator returns the configured generator, or nil.
func (c *Client) Generator() Generator {
	if len(c.chain.Engines) == 0 {
		return nil
	}
	return c.chain.Engines[0]
}

// HistoryLimit returns the number of prior turns sent with each prompt.
func (c *Client) HistoryLimit() int {
	return c.historyLimit
}

// Ask requests the tutor reply to transcript. history is the prior turns of
// the session in index order; only the most recent HistoryLimit are used.
//
// An unreachable or slow model, or an empty completion, yields a failed
// result. Callers fall back to FallbackReply.
func (c *Client) Ask(ctx context.Context, transcript, topic string, history []*session.Turn) engine.Result[Reply] {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		name := ""
		if g := c.Generator(); g != nil {
			name = g.Name()
		}
		return engine.Failed[Reply](name, fmt.Errorf("empty transcript: %w", engine.ErrMalformedOutput))
	}

	prompt := BuildPrompt(c.prompt.SystemPrompt(), topic, session.Tail(history, c.historyLimit), transcript)

	c.logger.Debug("asking tutor model",
		"topic", topic,
		"history", min(len(history), c.historyLimit),
		"prompt_chars", len(prompt),
	)

	return engine.Run(ctx, c.chain,
		func(ctx context.Context, g Generator) (Reply, error) {
			raw, err := g.Generate(ctx, prompt)
			if err != nil {
				return Reply{}, err
			}
			return ParseReply(raw, transcript)
		},
		nil,
	)
}
