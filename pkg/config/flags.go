package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "tutor turn", "tutor history" and "tutor status").
type Flag struct {
	// Name is the long flag name (e.g. "tutor-model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "tutor.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen        = "listen"
	FlagAPITarget     = "api-target"
	FlagStorage       = "storage"
	FlagSQLite        = "sqlite"
	FlagJSONLDir      = "jsonl-dir"
	FlagPostgres      = "postgres"
	FlagLibSQL        = "libsql"
	FlagSTTEngines    = "stt-engines"
	FlagTutorTarget   = "tutor-target"
	FlagTutorModel    = "tutor-model"
	FlagHistoryLimit  = "history-limit"
	FlagPromptPath    = "prompt"
	FlagTTSEngines    = "tts-engines"
	FlagVoice         = "voice"
	FlagArtifactsDir  = "artifacts-dir"
	FlagEventProvider = "eventstream"
	FlagKafkaBrokers  = "kafka-brokers"
)

// Flags is the registry of every flag shared across tutor commands.
var Flags = FlagSet{
	FlagListen:        {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:     {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Tutor API server URL"},
	FlagStorage:       {Name: "storage", ViperKey: "storage.driver", Description: "Session store driver (memory, jsonl, sqlite, postgres, libsql)"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagJSONLDir:      {Name: "jsonl-dir", ViperKey: "storage.jsonl_dir", Description: "Directory for append-only session logs"},
	FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagLibSQL:        {Name: "libsql", ViperKey: "storage.libsql_url", Description: "libSQL / Turso database URL"},
	FlagSTTEngines:    {Name: "stt-engines", ViperKey: "stt.engines", Description: "Ordered speech-to-text engines (comma separated)"},
	FlagTutorTarget:   {Name: "tutor-target", ViperKey: "tutor.target", Description: "Ollama runtime URL"},
	FlagTutorModel:    {Name: "tutor-model", Shorthand: "m", ViperKey: "tutor.model", Description: "Model used for corrections and replies"},
	FlagHistoryLimit:  {Name: "history-limit", ViperKey: "tutor.history_limit", Description: "Number of prior turns passed to the tutor"},
	FlagPromptPath:    {Name: "prompt", ViperKey: "tutor.prompt_path", Description: "System prompt file (reloaded on change)"},
	FlagTTSEngines:    {Name: "tts-engines", ViperKey: "tts.engines", Description: "Ordered text-to-speech engines (comma separated)"},
	FlagVoice:         {Name: "voice", ViperKey: "tts.voice", Description: "Voice identifier for the network TTS engine"},
	FlagArtifactsDir:  {Name: "artifacts-dir", ViperKey: "artifacts.dir", Description: "Directory for synthesized turn audio"},
	FlagEventProvider: {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagKafkaBrokers:  {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Kafka brokers (comma separated)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
// List keys are joined with commas.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	if list, ok := v.Get(viperKey).([]string); ok {
		return strings.Join(list, ",")
	}
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
