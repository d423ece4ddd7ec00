// Package whispercli runs the openai-whisper command line tool.
package whispercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
)

// Name is the engine identifier recorded in turn provenance.
const Name = "whisper-cli"

// Config configures the whisper CLI engine.
type Config struct {
	// Binary is the executable name or path. Defaults to "whisper".
	Binary string

	// Model is the whisper model size (tiny, base, small, ...).
	Model string
}

// Engine transcribes clips by invoking the whisper CLI.
type Engine struct {
	binary string
	model  string
}

// New creates a whisper CLI engine.
func New(c Config) *Engine {
	if c.Binary == "" {
		c.Binary = "whisper"
	}
	if c.Model == "" {
		c.Model = "base"
	}
	return &Engine{binary: c.Binary, model: c.Model}
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

// Transcribe runs whisper into a scratch directory and reads back <stem>.txt.
func (e *Engine) Transcribe(ctx context.Context, in stt.Input, language string) (string, error) {
	if in.Path == "" {
		return "", errors.New("whisper-cli needs a clip file")
	}

	outDir, err := os.MkdirTemp("", "tutor-whisper-*")
	if err != nil {
		return "", fmt.Errorf("creating whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		in.Path,
		"--model", e.model,
		"--output_format", "txt",
		"--output_dir", outDir,
		"--fp16", "False",
		"--verbose", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	stem := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
	text, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return "", fmt.Errorf("reading whisper transcript: %w", err)
	}

	return strings.TrimSpace(string(text)), nil
}
