package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TUTOR_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TUTOR_API_LISTEN, TUTOR_TUTOR_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TUTOR_STT_TIMEOUT, TUTOR_STORAGE_DRIVER, etc.
	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.jsonl_dir", d.Storage.JSONLDir)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.libsql_url", d.Storage.LibSQLURL)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.turn_timeout", d.API.TurnTimeout)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Speech-to-text
	v.SetDefault("stt.engines", d.STT.Engines)
	v.SetDefault("stt.language", d.STT.Language)
	v.SetDefault("stt.timeout", d.STT.Timeout)
	v.SetDefault("stt.whisper_model", d.STT.WhisperModel)
	v.SetDefault("stt.openai_target", d.STT.OpenAITarget)
	v.SetDefault("stt.openai_model", d.STT.OpenAIModel)

	// Tutor
	v.SetDefault("tutor.target", d.Tutor.Target)
	v.SetDefault("tutor.model", d.Tutor.Model)
	v.SetDefault("tutor.timeout", d.Tutor.Timeout)
	v.SetDefault("tutor.history_limit", d.Tutor.HistoryLimit)
	v.SetDefault("tutor.prompt_path", d.Tutor.PromptPath)

	// Text-to-speech
	v.SetDefault("tts.engines", d.TTS.Engines)
	v.SetDefault("tts.voice", d.TTS.Voice)
	v.SetDefault("tts.timeout", d.TTS.Timeout)
	v.SetDefault("tts.openai_target", d.TTS.OpenAITarget)
	v.SetDefault("tts.openai_model", d.TTS.OpenAIModel)
	v.SetDefault("tts.espeak_voice", d.TTS.EspeakVoice)

	// Artifacts
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

// GetList reads a list key from v. Values coming from the environment or a
// flag arrive as one comma separated string and are split here.
func GetList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, SplitList(item)...)
	}
	return out
}
