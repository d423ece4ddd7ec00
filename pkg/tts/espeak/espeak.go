// Package espeak synthesizes speech offline with the espeak-ng CLI.
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Name is the engine identifier recorded in turn provenance.
const Name = "espeak"

// Config configures the espeak engine.
type Config struct {
	// Binary is the executable name or path. Defaults to "espeak-ng".
	Binary string

	// Voice is the espeak voice. Defaults to "de".
	Voice string
}

// Engine runs espeak-ng and captures the WAV it writes to stdout.
type Engine struct {
	binary string
	voice  string
}

// New creates an espeak engine.
func New(c Config) *Engine {
	if c.Binary == "" {
		c.Binary = "espeak-ng"
	}
	if c.Voice == "" {
		c.Voice = "de"
	}
	return &Engine{binary: c.Binary, voice: c.Voice}
}

func (e *Engine) Name() string {
	return Name
}

// Check reports whether the binary is on PATH.
func (e *Engine) Check(_ context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%s not found: %w", e.binary, err)
	}
	return nil
}

// Synthesize speaks text with the configured espeak voice. The requested
// voice names an OpenAI voice and is ignored.
func (e *Engine) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	// "--" keeps text starting with a dash from being read as a flag.
	cmd := exec.CommandContext(ctx, e.binary, "-v", e.voice, "--stdout", "--", text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("espeak failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}
