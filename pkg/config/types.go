package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent tutor configuration stored as config.toml
// in the .tutor/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	STT         STTConfig         `toml:"stt"`
	Tutor       TutorConfig       `toml:"tutor"`
	TTS         TTSConfig         `toml:"tts"`
	Artifacts   ArtifactsConfig   `toml:"artifacts"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig selects and configures the session store driver.
type StorageConfig struct {
	// Driver is one of "memory", "jsonl", "sqlite", "postgres", "libsql".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	JSONLDir    string `toml:"jsonl_dir,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	LibSQLURL   string `toml:"libsql_url,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen      string `toml:"listen,omitempty"`
	TurnTimeout string `toml:"turn_timeout,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// tutor server (e.g. tutor turn, tutor history). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// STTConfig configures the speech-to-text engine chain.
type STTConfig struct {
	Engines      []string `toml:"engines,omitempty"`
	Language     string   `toml:"language,omitempty"`
	Timeout      string   `toml:"timeout,omitempty"`
	WhisperModel string   `toml:"whisper_model,omitempty"`
	OpenAITarget string   `toml:"openai_target,omitempty"`
	OpenAIModel  string   `toml:"openai_model,omitempty"`
}

// TutorConfig configures the LLM runtime used for corrections and replies.
type TutorConfig struct {
	Target       string `toml:"target,omitempty"`
	Model        string `toml:"model,omitempty"`
	Timeout      string `toml:"timeout,omitempty"`
	HistoryLimit int    `toml:"history_limit,omitempty"`
	PromptPath   string `toml:"prompt_path,omitempty"`
}

// TTSConfig configures the text-to-speech engine chain.
type TTSConfig struct {
	Engines      []string `toml:"engines,omitempty"`
	Voice        string   `toml:"voice,omitempty"`
	Timeout      string   `toml:"timeout,omitempty"`
	OpenAITarget string   `toml:"openai_target,omitempty"`
	OpenAIModel  string   `toml:"openai_model,omitempty"`
	EspeakVoice  string   `toml:"espeak_voice,omitempty"`
}

// ArtifactsConfig holds where synthesized audio is written.
type ArtifactsConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// EventStreamConfig configures publication of committed turns.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error { *field(c) = SplitList(v); return nil },
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.jsonl_dir":    stringKey(func(c *Config) *string { return &c.Storage.JSONLDir }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.libsql_url":   stringKey(func(c *Config) *string { return &c.Storage.LibSQLURL }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.turn_timeout":  durationKey("api.turn_timeout", func(c *Config) *string { return &c.API.TurnTimeout }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"stt.engines":       listKey(func(c *Config) *[]string { return &c.STT.Engines }),
	"stt.language":      stringKey(func(c *Config) *string { return &c.STT.Language }),
	"stt.timeout":       durationKey("stt.timeout", func(c *Config) *string { return &c.STT.Timeout }),
	"stt.whisper_model": stringKey(func(c *Config) *string { return &c.STT.WhisperModel }),
	"stt.openai_target": stringKey(func(c *Config) *string { return &c.STT.OpenAITarget }),
	"stt.openai_model":  stringKey(func(c *Config) *string { return &c.STT.OpenAIModel }),

	"tutor.target":  stringKey(func(c *Config) *string { return &c.Tutor.Target }),
	"tutor.model":   stringKey(func(c *Config) *string { return &c.Tutor.Model }),
	"tutor.timeout": durationKey("tutor.timeout", func(c *Config) *string { return &c.Tutor.Timeout }),
	"tutor.history_limit": {
		get: func(c *Config) string {
			if c.Tutor.HistoryLimit == 0 {
				return ""
			}
			return strconv.Itoa(c.Tutor.HistoryLimit)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for tutor.history_limit: %w", err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for tutor.history_limit: %d is negative", n)
			}
			c.Tutor.HistoryLimit = n
			return nil
		},
	},
	"tutor.prompt_path": stringKey(func(c *Config) *string { return &c.Tutor.PromptPath }),

	"tts.engines":       listKey(func(c *Config) *[]string { return &c.TTS.Engines }),
	"tts.voice":         stringKey(func(c *Config) *string { return &c.TTS.Voice }),
	"tts.timeout":       durationKey("tts.timeout", func(c *Config) *string { return &c.TTS.Timeout }),
	"tts.openai_target": stringKey(func(c *Config) *string { return &c.TTS.OpenAITarget }),
	"tts.openai_model":  stringKey(func(c *Config) *string { return &c.TTS.OpenAIModel }),
	"tts.espeak_voice":  stringKey(func(c *Config) *string { return &c.TTS.EspeakVoice }),

	"artifacts.dir": stringKey(func(c *Config) *string { return &c.Artifacts.Dir }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  listKey(func(c *Config) *[]string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

// SplitList splits a comma separated value into trimmed, non-empty items.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
