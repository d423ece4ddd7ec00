package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

var (
	sessionHistoryToolName    = "session_history"
	sessionHistoryDescription = "Return the committed turns of a German tutoring session in order: what the learner said, the corrected form, the tutor's reply and the explanation of any correction."

	listSessionsToolName    = "list_sessions"
	listSessionsDescription = "List the German tutoring sessions with their topic and number of committed turns."
)

// SessionHistoryInput represents the input arguments for the session_history tool.
type SessionHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the tutoring session id"`
	Limit     int    `json:"limit,omitempty" jsonschema:"return only the most recent turns (default: all)"`
}

// SessionHistoryOutput represents the output of the session_history tool.
type SessionHistoryOutput struct {
	SessionID string          `json:"session_id"`
	Topic     string          `json:"topic"`
	Count     int             `json:"count"`
	Turns     []*session.Turn `json:"turns"`
}

// ListSessionsInput is empty; the tool takes no arguments.
type ListSessionsInput struct{}

// ListSessionsOutput represents the output of the list_sessions tool.
type ListSessionsOutput struct {
	Count    int                `json:"count"`
	Sessions []*session.Session `json:"sessions"`
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, nil
}

// handleSessionHistory returns the turns of one session.
func (s *Server) handleSessionHistory(ctx context.Context, _ *mcp.CallToolRequest, input SessionHistoryInput) (*mcp.CallToolResult, SessionHistoryOutput, error) {
	if !session.ValidID(input.SessionID) {
		return errorResult("session_id is missing or malformed"), SessionHistoryOutput{}, nil
	}

	sess, err := s.config.Sessions.Get(ctx, input.SessionID)
	if err != nil {
		return errorResult("Session lookup failed: %v", err), SessionHistoryOutput{}, nil
	}

	turns, err := s.config.Sessions.History(ctx, input.SessionID, input.Limit)
	if err != nil {
		s.config.Logger.Error("mcp session history failed", "session_id", input.SessionID, "error", err)
		return errorResult("History lookup failed: %v", err), SessionHistoryOutput{}, nil
	}
	if turns == nil {
		turns = []*session.Turn{}
	}

	output := SessionHistoryOutput{
		SessionID: sess.ID,
		Topic:     sess.Topic,
		Count:     len(turns),
		Turns:     turns,
	}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), SessionHistoryOutput{}, nil
	}
	return result, output, nil
}

// handleListSessions returns every session.
func (s *Server) handleListSessions(ctx context.Context, _ *mcp.CallToolRequest, _ ListSessionsInput) (*mcp.CallToolResult, ListSessionsOutput, error) {
	sessions, err := s.config.Sessions.List(ctx)
	if err != nil {
		s.config.Logger.Error("mcp list sessions failed", "error", err)
		return errorResult("Listing sessions failed: %v", err), ListSessionsOutput{}, nil
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}

	output := ListSessionsOutput{Count: len(sessions), Sessions: sessions}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), ListSessionsOutput{}, nil
	}
	return result, output, nil
}
