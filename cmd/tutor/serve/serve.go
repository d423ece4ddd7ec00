// Package servecmder provides the serve command that runs the tutor API.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/artifact"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/credentials"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	eventstreamutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/utils"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/worker"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/logger"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	sessionutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/utils"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
	sttutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt/utils"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts"
	ttsutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts/utils"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
)

type serveCommander struct {
	flags config.FlagSet

	listen        string
	storage       string
	sqlitePath    string
	jsonlDir      string
	postgresDSN   string
	libsqlURL     string
	sttEngines    string
	tutorTarget   string
	tutorModel    string
	historyLimit  int
	promptPath    string
	ttsEngines    string
	voice         string
	artifactsDir  string
	eventProvider string
	kafkaBrokers  string

	settings settings

	logFile string

	debug     bool
	configDir string
	logger    *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagJSONLDir,
	config.FlagPostgres,
	config.FlagLibSQL,
	config.FlagSTTEngines,
	config.FlagTutorTarget,
	config.FlagTutorModel,
	config.FlagHistoryLimit,
	config.FlagPromptPath,
	config.FlagTTSEngines,
	config.FlagVoice,
	config.FlagArtifactsDir,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
}

const serveLongDesc string = `Run the tutor API server.

Each turn is transcribed, corrected and answered by the local model, then
spoken back. Engines are tried in the configured order and a turn degrades
instead of failing when one is unavailable.

Configuration is read from flags, TUTOR_* environment variables and
config.toml in the .tutor/ directory, in that order.

Examples:
  tutor serve
  tutor serve --tutor-model llama3.1 --storage sqlite
  tutor serve --stt-engines openai --tts-engines espeak`

const serveShortDesc string = "Run the tutor API server"

// serveDeps are the long lived parts built from configuration.
type serveDeps struct {
	sessions session.Driver
	prompt   *tutor.PromptFile
	pool     *worker.Pool
	server   *api.Server
}

func (d *serveDeps) close(logger *slog.Logger) {
	if d.pool != nil {
		if err := d.pool.Close(); err != nil {
			logger.Warn("closing event publisher", "error", err)
		}
	}
	if d.prompt != nil {
		_ = d.prompt.Close()
	}
	if d.sessions != nil {
		if err := d.sessions.Close(); err != nil {
			logger.Warn("closing session store", "error", err)
		}
	}
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)
			cmder.load(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorage, &cmder.storage)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagJSONLDir, &cmder.jsonlDir)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLibSQL, &cmder.libsqlURL)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSTTEngines, &cmder.sttEngines)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTutorTarget, &cmder.tutorTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTutorModel, &cmder.tutorModel)
	config.AddIntFlag(cmd, cmder.flags, config.FlagHistoryLimit, &cmder.historyLimit)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPromptPath, &cmder.promptPath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTTSEngines, &cmder.ttsEngines)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVoice, &cmder.voice)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArtifactsDir, &cmder.artifactsDir)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file (relative paths live in the .tutor directory)")

	return cmd
}

// settings are the config keys that have no flag.
type settings struct {
	language     string
	whisperModel string
	sttTarget    string
	sttModel     string
	sttTimeout   time.Duration
	tutorTimeout time.Duration
	ttsTarget    string
	ttsModel     string
	ttsTimeout   time.Duration
	espeakVoice  string
	kafkaTopic   string
	turnTimeout  time.Duration
}

func (c *serveCommander) load(v *viper.Viper) {
	c.listen = v.GetString("api.listen")
	c.storage = v.GetString("storage.driver")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.jsonlDir = v.GetString("storage.jsonl_dir")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.libsqlURL = v.GetString("storage.libsql_url")
	c.sttEngines = joinList(config.GetList(v, "stt.engines"))
	c.tutorTarget = v.GetString("tutor.target")
	c.tutorModel = v.GetString("tutor.model")
	c.historyLimit = v.GetInt("tutor.history_limit")
	c.promptPath = v.GetString("tutor.prompt_path")
	c.ttsEngines = joinList(config.GetList(v, "tts.engines"))
	c.voice = v.GetString("tts.voice")
	c.artifactsDir = v.GetString("artifacts.dir")
	c.eventProvider = v.GetString("eventstream.provider")
	c.kafkaBrokers = joinList(config.GetList(v, "eventstream.brokers"))

	c.settings = settings{
		language:     v.GetString("stt.language"),
		whisperModel: v.GetString("stt.whisper_model"),
		sttTarget:    v.GetString("stt.openai_target"),
		sttModel:     v.GetString("stt.openai_model"),
		sttTimeout:   v.GetDuration("stt.timeout"),
		tutorTimeout: v.GetDuration("tutor.timeout"),
		ttsTarget:    v.GetString("tts.openai_target"),
		ttsModel:     v.GetString("tts.openai_model"),
		ttsTimeout:   v.GetDuration("tts.timeout"),
		espeakVoice:  v.GetString("tts.espeak_voice"),
		kafkaTopic:   v.GetString("eventstream.topic"),
		turnTimeout:  v.GetDuration("api.turn_timeout"),
	}
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger(nil)
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := c.build(ctx)
	if err != nil {
		return err
	}
	defer deps.close(c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := deps.server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return deps.server.Shutdown()
	}
}

// setupLogger builds the service logger for console output. With --log-file
// every record is also written as JSON to that file.
func (c *serveCommander) setupLogger(console io.Writer) (func(), error) {
	var consoleWriters []io.Writer
	if console != nil {
		consoleWriters = append(consoleWriters, console)
	}
	c.logger = logger.NewForService(c.debug, consoleWriters...)

	if c.logFile == "" {
		return func() {}, nil
	}

	path := c.logFile
	if !filepath.IsAbs(path) {
		baseDir, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving tutor dir: %w", err)
		}
		path = filepath.Join(baseDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLogger := logger.New(
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(f),
	)
	c.logger = logger.Multi(c.logger, fileLogger)

	return func() { _ = f.Close() }, nil
}

// build wires the session store, engines, event publisher and API server.
// On error everything built so far is closed.
func (c *serveCommander) build(ctx context.Context) (_ *serveDeps, err error) {
	if c.logger == nil {
		c.logger = logger.Nop()
	}

	baseDir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving tutor dir: %w", err)
	}

	deps := &serveDeps{}
	defer func() {
		if err != nil {
			deps.close(c.logger)
		}
	}()

	deps.sessions, err = sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{
		Driver:      c.storage,
		SQLitePath:  c.sqlitePath,
		JSONLDir:    c.jsonlDir,
		PostgresDSN: c.postgresDSN,
		LibSQLURL:   c.libsqlURL,
		BaseDir:     baseDir,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	openAIKey, err := c.openAIKey()
	if err != nil {
		return nil, err
	}

	sttEngines, err := sttutils.NewEngines(&sttutils.NewEnginesOpts{
		Engines:      config.SplitList(c.sttEngines),
		WhisperModel: c.settings.whisperModel,
		OpenAIAPIKey: openAIKey,
		OpenAITarget: c.settings.sttTarget,
		OpenAIModel:  c.settings.sttModel,
	})
	if err != nil {
		return nil, err
	}

	ttsEngines, err := ttsutils.NewEngines(&ttsutils.NewEnginesOpts{
		Engines:      config.SplitList(c.ttsEngines),
		Voice:        c.voice,
		OpenAIAPIKey: openAIKey,
		OpenAITarget: c.settings.ttsTarget,
		OpenAIModel:  c.settings.ttsModel,
		EspeakVoice:  c.settings.espeakVoice,
	})
	if err != nil {
		return nil, err
	}

	artifactsDir := c.artifactsDir
	if !filepath.IsAbs(artifactsDir) {
		artifactsDir = filepath.Join(baseDir, artifactsDir)
	}
	store, err := artifact.NewStore(artifactsDir)
	if err != nil {
		return nil, fmt.Errorf("creating audio store: %w", err)
	}

	var prompt tutor.PromptSource = tutor.StaticPrompt("")
	if c.promptPath != "" {
		deps.prompt, err = tutor.OpenPromptFile(ctx, c.promptPath, c.logger)
		if err != nil {
			return nil, err
		}
		prompt = deps.prompt
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Provider: c.eventProvider,
		Brokers:  config.SplitList(c.kafkaBrokers),
		Topic:    c.settings.kafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	deps.pool, err = worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	hostname, _ := os.Hostname()

	orch, err := pipeline.New(pipeline.Config{
		Sessions: deps.sessions,
		STT: stt.NewAdapter(stt.Config{
			Engines: sttEngines,
			Timeout: c.settings.sttTimeout,
			Logger:  c.logger,
		}),
		Tutor: tutor.NewClient(tutor.Config{
			Generator: tutor.NewOllama(tutor.OllamaConfig{
				BaseURL: c.tutorTarget,
				Model:   c.tutorModel,
			}),
			Prompt:       prompt,
			Timeout:      c.settings.tutorTimeout,
			HistoryLimit: c.historyLimit,
			Logger:       c.logger,
		}),
		TTS: tts.NewAdapter(tts.Config{
			Engines: ttsEngines,
			Timeout: c.settings.ttsTimeout,
			Store:   store,
			Logger:  c.logger,
		}),
		Events:   deps.pool,
		Source:   eventstream.EventSource{Service: "tutor", Instance: hostname},
		Language: c.settings.language,
		Voice:    c.voice,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, err
	}

	deps.server, err = api.NewServer(api.Config{
		ListenAddr:  c.listen,
		AudioDir:    store.Dir(),
		TurnTimeout: c.settings.turnTimeout,
	}, orch, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info("tutor configured",
		"stt_engines", c.sttEngines,
		"tutor_model", c.tutorModel,
		"tts_engines", c.ttsEngines,
		"storage", c.storage,
		"audio_dir", store.Dir(),
	)

	return deps, nil
}

// openAIKey is only required when a hosted engine is configured.
func (c *serveCommander) openAIKey() (string, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.ResolveKey(credentials.ProviderOpenAI)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	if key == "" && (contains(c.sttEngines, "openai") || contains(c.ttsEngines, "openai")) {
		c.logger.Warn("no OpenAI API key configured, hosted engines will fail and fall back",
			"hint", "run 'tutor auth openai' or set OPENAI_API_KEY")
	}
	return key, nil
}

func contains(list, name string) bool {
	return slices.Contains(config.SplitList(list), name)
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}
