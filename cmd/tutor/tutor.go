// Package tutorcmder is the root of the tutor command tree.
package tutorcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/auth"
	configcmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/config"
	historycmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/history"
	initcmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/init"
	servecmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/serve"
	sessionscmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/sessions"
	statuscmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/status"
	turncmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/turn"
	versioncmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/version"
)

const tutorLongDesc string = `Tutor is a voice tutor for practicing spoken German.

Record a sentence, send it with "tutor turn", and get back a correction,
a reply that keeps the conversation going and the reply as speech.

Run the server:
  tutor serve          Run the API server

Talk to it:
  tutor turn           Send one recorded utterance
  tutor history        Show the turns of a session
  tutor sessions       List or purge sessions
  tutor status         Show engine availability

Set it up:
  tutor init           Create a local .tutor/ directory
  tutor config         Manage persistent configuration
  tutor auth           Store API keys for hosted engines`

const tutorShortDesc string = "Tutor - German voice tutor"

func NewTutorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tutor",
		Short:        tutorShortDesc,
		Long:         tutorLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .tutor/ directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(turncmder.NewTurnCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
