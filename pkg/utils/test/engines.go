package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
)

// mockCall is the behaviour shared by the mock engines: an optional delay
// that honours the context, a canned error and a call counter.
type mockCall struct {
	mu    sync.Mutex
	calls int
}

func (m *mockCall) record(ctx context.Context, delay time.Duration) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Calls returns how often the engine was invoked.
func (m *mockCall) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSTTEngine is a speech-to-text engine returning a fixed transcript.
type MockSTTEngine struct {
	mockCall

	EngineName string
	Text       string
	Err        error
	Delay      time.Duration

	// SawPath is the clip file path of the last call.
	SawPath string
}

func (m *MockSTTEngine) Name() string {
	return m.EngineName
}

func (m *MockSTTEngine) Transcribe(ctx context.Context, in stt.Input, _ string) (string, error) {
	m.mu.Lock()
	m.SawPath = in.Path
	m.mu.Unlock()

	if err := m.record(ctx, m.Delay); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// MockTTSEngine is a text-to-speech engine returning fixed audio.
// Nil Audio returns a short silent WAV clip.
type MockTTSEngine struct {
	mockCall

	EngineName string
	Audio      []byte
	Err        error
	Delay      time.Duration

	lastText string
}

func (m *MockTTSEngine) Name() string {
	return m.EngineName
}

func (m *MockTTSEngine) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	m.lastText = text
	m.mu.Unlock()

	if err := m.record(ctx, m.Delay); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Audio == nil {
		return SilentWAV(), nil
	}
	return m.Audio, nil
}

// LastText returns the text of the most recent call.
func (m *MockTTSEngine) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

// MockGenerator is a language model returning a fixed completion.
type MockGenerator struct {
	mockCall

	EngineName string
	Response   string
	Err        error
	Delay      time.Duration

	prompts []string
}

func (m *MockGenerator) Name() string {
	if m.EngineName == "" {
		return "ollama"
	}
	return m.EngineName
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := m.record(ctx, m.Delay); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// SilentWAV returns 100ms of 16 kHz mono silence.
func SilentWAV() []byte {
	return audio.EncodePCM16(make([]int16, 1600), 16000)
}
