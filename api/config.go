// Package api provides the tutor's HTTP API: conversation turns, session
// history, engine status and the synthesized audio.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// AudioDir is served under /audio. Empty disables the static route.
	AudioDir string

	// TurnTimeout bounds one turn end to end. A turn that runs past it is
	// abandoned without a commit and answered with 503. Zero disables it.
	TurnTimeout time.Duration

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool
}
