package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api/mcp"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/artifact"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
)

// bodyLimit leaves room for the multipart framing around the largest clip.
const bodyLimit = audio.MaxClipBytes + 1<<20

// Server is the API server for running and inspecting tutoring turns.
type Server struct {
	config       Config
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
	app          *fiber.App
}

// NewServer creates a new API server around an orchestrator.
func NewServer(config Config, orchestrator *pipeline.Orchestrator, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		// Form values and params become session store keys and outlive
		// the request buffers.
		Immutable: true,
	})

	s := &Server{
		config:       config,
		orchestrator: orchestrator,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/status", s.handleStatus)
	app.Post("/turn", s.handleTurn)
	app.Get("/history/:session_id", s.handleHistory)
	app.Get("/sessions", s.handleListSessions)
	app.Delete("/sessions/:session_id", s.handlePurgeSession)

	if config.AudioDir != "" {
		app.Static(artifact.URLPrefix, config.AudioDir, fiber.Static{
			ByteRange: true,
		})
	}

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Sessions: orchestrator.Sessions(),
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
