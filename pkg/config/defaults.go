package config

const (
	defaultStorageDriver = "memory"
	defaultAPIListen     = ":8081"

	// defaultTurnTimeout stays below the client's request timeout.
	defaultTurnTimeout = "170s"

	defaultClientAPITarget = "http://localhost:8081"

	defaultLanguage     = "de"
	defaultSTTTimeout   = "30s"
	defaultWhisperModel = "base"
	defaultOpenAITarget = "https://api.openai.com/v1"
	defaultSTTModel     = "whisper-1"

	defaultTutorTarget  = "http://localhost:11434"
	defaultTutorModel   = "llama3"
	defaultTutorTimeout = "60s"
	defaultHistoryLimit = 5

	defaultTTSTimeout  = "20s"
	defaultTTSVoice    = "alloy"
	defaultTTSModel    = "tts-1"
	defaultEspeakVoice = "de"

	defaultArtifactsDir = "audio"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "tutor.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen:      defaultAPIListen,
			TurnTimeout: defaultTurnTimeout,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		STT: STTConfig{
			Engines:      []string{"whisper-cli", "openai"},
			Language:     defaultLanguage,
			Timeout:      defaultSTTTimeout,
			WhisperModel: defaultWhisperModel,
			OpenAITarget: defaultOpenAITarget,
			OpenAIModel:  defaultSTTModel,
		},
		Tutor: TutorConfig{
			Target:       defaultTutorTarget,
			Model:        defaultTutorModel,
			Timeout:      defaultTutorTimeout,
			HistoryLimit: defaultHistoryLimit,
		},
		TTS: TTSConfig{
			Engines:      []string{"openai", "espeak"},
			Voice:        defaultTTSVoice,
			Timeout:      defaultTTSTimeout,
			OpenAITarget: defaultOpenAITarget,
			OpenAIModel:  defaultTTSModel,
			EspeakVoice:  defaultEspeakVoice,
		},
		Artifacts: ArtifactsConfig{
			Dir: defaultArtifactsDir,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
