// Package client talks to a running tutor API server. The CLI commands use
// it to run turns and inspect sessions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
)

// DefaultTimeout covers a full turn with every engine falling back.
const DefaultTimeout = 3 * time.Minute

// ErrNotFound is returned when the server reports an unknown session.
var ErrNotFound = errors.New("session not found")

// Client is a tutor API client.
type Client struct {
	target string
	http   *http.Client
}

// New creates a Client for the server at target (e.g. http://localhost:8081).
func New(target string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		target: strings.TrimRight(target, "/"),
		http:   httpClient,
	}
}

// Target returns the server URL.
func (c *Client) Target() string {
	return c.target
}

// Turn uploads one WAV clip. An empty sessionID lets the server mint one.
func (c *Client) Turn(ctx context.Context, sessionID, topic string, clip []byte) (*api.TurnResponse, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if sessionID != "" {
		if err := w.WriteField("session_id", sessionID); err != nil {
			return nil, err
		}
	}
	if topic != "" {
		if err := w.WriteField("topic", topic); err != nil {
			return nil, err
		}
	}

	part, err := w.CreateFormFile("audio", "clip.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(clip); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/turn", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	out := &api.TurnResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the most recent limit turns of a session. A limit of zero
// returns all of them.
func (c *Client) History(ctx context.Context, sessionID string, limit int) (*api.HistoryResponse, error) {
	u := c.target + "/history/" + url.PathEscape(sessionID)
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	out := &api.HistoryResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sessions lists every session on the server.
func (c *Client) Sessions(ctx context.Context) (*api.SessionsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+"/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	out := &api.SessionsResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge deletes a session and its audio.
func (c *Client) Purge(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.target+"/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}

// Status reports engine availability.
func (c *Client) Status(ctx context.Context) (*pipeline.StatusReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	out := &pipeline.StatusReport{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Audio downloads a turn's audio from its URL path.
func (c *Client) Audio(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := strings.TrimSpace(string(body))
	var er api.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
}
