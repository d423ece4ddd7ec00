// Package ttsutils builds text-to-speech engines from configuration.
package ttsutils

import (
	"fmt"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts/espeak"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts/openai"
)

type NewEnginesOpts struct {
	// Engines is the fallback order, e.g. ["openai", "espeak"].
	Engines []string

	Voice string

	OpenAIAPIKey string
	OpenAITarget string
	OpenAIModel  string

	EspeakBinary string
	EspeakVoice  string
}

// NewEngines builds the engines named in o.Engines, in order.
func NewEngines(o *NewEnginesOpts) ([]tts.Engine, error) {
	if len(o.Engines) == 0 {
		return nil, fmt.Errorf("no text-to-speech engines configured")
	}

	engines := make([]tts.Engine, 0, len(o.Engines))
	seen := make(map[string]bool, len(o.Engines))

	for _, name := range o.Engines {
		if seen[name] {
			return nil, fmt.Errorf("text-to-speech engine listed twice: %s", name)
		}
		seen[name] = true

		switch name {
		case openai.Name:
			e, err := openai.New(openai.Config{
				APIKey:  o.OpenAIAPIKey,
				BaseURL: o.OpenAITarget,
				Model:   o.OpenAIModel,
				Voice:   o.Voice,
			})
			if err != nil {
				return nil, err
			}
			engines = append(engines, e)

		case espeak.Name:
			engines = append(engines, espeak.New(espeak.Config{
				Binary: o.EspeakBinary,
				Voice:  o.EspeakVoice,
			}))

		default:
			return nil, fmt.Errorf("unsupported text-to-speech engine: %s", name)
		}
	}

	return engines, nil
}
