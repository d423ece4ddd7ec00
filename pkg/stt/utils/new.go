// Package sttutils builds speech-to-text engines from configuration.
package sttutils

import (
	"fmt"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt/openai"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt/whispercli"
)

type NewEnginesOpts struct {
	// Engines is the fallback order, e.g. ["whisper-cli", "openai"].
	Engines []string

	WhisperBinary string
	WhisperModel  string

	OpenAIAPIKey string
	OpenAITarget string
	OpenAIModel  string
}

// NewEngines builds the engines named in o.Engines, in order.
func NewEngines(o *NewEnginesOpts) ([]stt.Engine, error) {
	if len(o.Engines) == 0 {
		return nil, fmt.Errorf("no speech-to-text engines configured")
	}

	engines := make([]stt.Engine, 0, len(o.Engines))
	seen := make(map[string]bool, len(o.Engines))

	for _, name := range o.Engines {
		if seen[name] {
			return nil, fmt.Errorf("speech-to-text engine listed twice: %s", name)
		}
		seen[name] = true

		switch name {
		case whispercli.Name:
			engines = append(engines, whispercli.New(whispercli.Config{
				Binary: o.WhisperBinary,
				Model:  o.WhisperModel,
			}))

		case openai.Name:
			e, err := openai.New(openai.Config{
				APIKey:  o.OpenAIAPIKey,
				BaseURL: o.OpenAITarget,
				Model:   o.OpenAIModel,
			})
			if err != nil {
				return nil, err
			}
			engines = append(engines, e)

		default:
			return nil, fmt.Errorf("unsupported speech-to-text engine: %s", name)
		}
	}

	return engines, nil
}
