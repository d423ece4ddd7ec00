package main

import (
	"os"

	tutorcmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor"
)

func main() {
	cmd := tutorcmder.NewTutorCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
