// Package utils holds small helpers shared by the tutor commands and the
// build metadata injected with -ldflags.
package utils

// Set at build time, e.g.
// -X github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils.Version=v0.3.0
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
