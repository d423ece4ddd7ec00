package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .tutor/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"storage.driver",
		"storage.sqlite_path",
		"storage.jsonl_dir",
		"storage.postgres_dsn",
		"storage.libsql_url",
		"api.listen",
		"api.turn_timeout",
		"client.api_target",
		"stt.engines",
		"stt.language",
		"stt.timeout",
		"stt.whisper_model",
		"stt.openai_target",
		"stt.openai_model",
		"tutor.target",
		"tutor.model",
		"tutor.timeout",
		"tutor.history_limit",
		"tutor.prompt_path",
		"tts.engines",
		"tts.voice",
		"tts.timeout",
		"tts.openai_target",
		"tts.openai_model",
		"tts.espeak_voice",
		"artifacts.dir",
		"eventstream.provider",
		"eventstream.brokers",
		"eventstream.topic",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .tutor/ directory.
// If the file does not exist, returns DefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
// If overrideDir is non-empty, it is used instead of the default .tutor/ location.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from DefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fillString(&cfg.Storage.Driver, d.Storage.Driver)
	fillString(&cfg.API.Listen, d.API.Listen)
	fillString(&cfg.API.TurnTimeout, d.API.TurnTimeout)
	fillString(&cfg.Client.APITarget, d.Client.APITarget)

	fillList(&cfg.STT.Engines, d.STT.Engines)
	fillString(&cfg.STT.Language, d.STT.Language)
	fillString(&cfg.STT.Timeout, d.STT.Timeout)
	fillString(&cfg.STT.WhisperModel, d.STT.WhisperModel)
	fillString(&cfg.STT.OpenAITarget, d.STT.OpenAITarget)
	fillString(&cfg.STT.OpenAIModel, d.STT.OpenAIModel)

	fillString(&cfg.Tutor.Target, d.Tutor.Target)
	fillString(&cfg.Tutor.Model, d.Tutor.Model)
	fillString(&cfg.Tutor.Timeout, d.Tutor.Timeout)
	if cfg.Tutor.HistoryLimit == 0 {
		cfg.Tutor.HistoryLimit = d.Tutor.HistoryLimit
	}

	fillList(&cfg.TTS.Engines, d.TTS.Engines)
	fillString(&cfg.TTS.Voice, d.TTS.Voice)
	fillString(&cfg.TTS.Timeout, d.TTS.Timeout)
	fillString(&cfg.TTS.OpenAITarget, d.TTS.OpenAITarget)
	fillString(&cfg.TTS.OpenAIModel, d.TTS.OpenAIModel)
	fillString(&cfg.TTS.EspeakVoice, d.TTS.EspeakVoice)

	fillString(&cfg.Artifacts.Dir, d.Artifacts.Dir)

	fillString(&cfg.EventStream.Provider, d.EventStream.Provider)
	fillString(&cfg.EventStream.Topic, d.EventStream.Topic)
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillList(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), def...)
	}
}

// SaveConfig persists the configuration to config.toml in the target .tutor/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named engine preset.
// Supported presets: "offline", "cloud", "local-server".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "offline":
		// Everything runs on this machine: whisper CLI, Ollama, espeak-ng.
		cfg.STT.Engines = []string{"whisper-cli"}
		cfg.TTS.Engines = []string{"espeak"}
		return cfg, nil

	case "cloud":
		cfg.STT.Engines = []string{"openai", "whisper-cli"}
		cfg.TTS.Engines = []string{"openai", "espeak"}
		return cfg, nil

	case "local-server":
		// OpenAI-compatible speech servers (e.g. faster-whisper, piper)
		// listening next to Ollama.
		cfg.STT.OpenAITarget = "http://localhost:8000/v1"
		cfg.TTS.OpenAITarget = "http://localhost:8000/v1"
		cfg.STT.Engines = []string{"openai", "whisper-cli"}
		cfg.TTS.Engines = []string{"openai", "espeak"}
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: offline, cloud, local-server)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"offline", "cloud", "local-server"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentConfigVersion.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
