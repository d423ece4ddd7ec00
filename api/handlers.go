package api

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TurnResponse is the result of POST /turn.
type TurnResponse struct {
	SessionID     string             `json:"session_id"`
	TurnIndex     int                `json:"turn_index"`
	Status        session.Status     `json:"status"`
	State         session.State      `json:"state"`
	Transcript    string             `json:"transcript"`
	CorrectedForm string             `json:"corrected_form"`
	ReplyText     string             `json:"reply_text"`
	Explanation   string             `json:"explanation,omitempty"`
	AudioURL      string             `json:"audio_url,omitempty"`
	Provenance    session.Provenance `json:"provenance"`
}

// HistoryResponse is the result of GET /history/:session_id.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Topic     string          `json:"topic"`
	Count     int             `json:"count"`
	Turns     []*session.Turn `json:"turns"`
}

// SessionsResponse is the result of GET /sessions.
type SessionsResponse struct {
	Count    int                `json:"count"`
	Sessions []*session.Session `json:"sessions"`
}

func newTurnResponse(t *session.Turn) TurnResponse {
	return TurnResponse{
		SessionID:     t.SessionID,
		TurnIndex:     t.Index,
		Status:        t.Status,
		State:         t.State,
		Transcript:    t.Transcript,
		CorrectedForm: t.CorrectedForm,
		ReplyText:     t.ReplyText,
		Explanation:   t.Explanation,
		AudioURL:      t.AudioURL,
		Provenance:    t.Provenance,
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus reports which engines are usable.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.orchestrator.Status(c.UserContext()))
}

// handleTurn runs one tutoring turn for an uploaded clip.
func (s *Server) handleTurn(c *fiber.Ctx) error {
	sessionID := c.FormValue("session_id")
	topic := c.FormValue("topic")

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	header, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "audio file required"})
	}
	if header.Size > audio.MaxClipBytes {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: audio.ErrTooLarge.Error()})
	}

	f, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not read audio file"})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, audio.MaxClipBytes+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not read audio file"})
	}

	ctx, cancel := s.turnContext(c)
	defer cancel()

	turn, err := s.orchestrator.RunTurn(ctx, pipeline.Request{
		SessionID: sessionID,
		Topic:     topic,
		Audio:     data,
	})
	if err != nil {
		return s.writeError(c, err, "turn failed")
	}

	return c.JSON(newTurnResponse(turn))
}

// turnContext bounds a turn by the configured turn timeout.
func (s *Server) turnContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if s.config.TurnTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), s.config.TurnTimeout)
}

// handleHistory returns the committed turns of a session, optionally only the
// most recent ?limit=N.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	id := c.Params("session_id")
	if !session.ValidID(id) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed session id"})
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		limit = n
	}

	ctx := c.UserContext()
	sessions := s.orchestrator.Sessions()

	sess, err := sessions.Get(ctx, id)
	if err != nil {
		return s.writeError(c, err, "failed to load session")
	}

	turns, err := sessions.History(ctx, id, limit)
	if err != nil {
		return s.writeError(c, err, "failed to load history")
	}
	if turns == nil {
		turns = []*session.Turn{}
	}

	return c.JSON(HistoryResponse{
		SessionID: sess.ID,
		Topic:     sess.Topic,
		Count:     len(turns),
		Turns:     turns,
	})
}

// handleListSessions returns every session.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.orchestrator.Sessions().List(c.UserContext())
	if err != nil {
		return s.writeError(c, err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}

	return c.JSON(SessionsResponse{Count: len(sessions), Sessions: sessions})
}

// handlePurgeSession deletes a session with its turns and audio.
func (s *Server) handlePurgeSession(c *fiber.Ctx) error {
	if err := s.orchestrator.Purge(c.UserContext(), c.Params("session_id")); err != nil {
		return s.writeError(c, err, "failed to purge session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// writeError maps request-level errors onto status codes. Anything
// unexpected is logged and reported with msg.
func (s *Server) writeError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case session.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrStateConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "request cancelled, nothing was committed"})
	default:
		s.logger.Error(msg, "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
	}
}
