// Package turncmder provides the turn command that sends one recorded
// utterance to a running tutor server.
package turncmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/client"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

type turnCommander struct {
	flags config.FlagSet

	apiTarget string
	sessionID string
	topic     string
	newFlag   bool
	saveAudio string
	jsonOut   bool
	configDir string

	out io.Writer
}

const turnLongDesc string = `Send a recorded German utterance to the tutor.

The clip must be a mono WAV file of at most ten minutes. The tutor replies
with a corrected form of what you said, an answer that keeps the
conversation going and, when useful, a short explanation.

The session id returned by the server is remembered in .tutor/session.json
so the next "tutor turn" continues the same conversation. Use --new to
start over or --session to continue a specific one.

Examples:
  tutor turn clip.wav --topic restaurant
  tutor turn next.wav
  tutor turn clip.wav --new --topic travel --save-audio reply.wav`

const turnShortDesc string = "Send one utterance to the tutor"

func NewTurnCmd() *cobra.Command {
	cmder := &turnCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "turn <clip.wav>",
		Short: turnShortDesc,
		Long:  turnLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args[0])
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session to continue (default: the last one)")
	cmd.Flags().StringVarP(&cmder.topic, "topic", "t", "", "Conversation topic for a new session (e.g. restaurant, doctor, travel)")
	cmd.Flags().BoolVar(&cmder.newFlag, "new", false, "Start a new session")
	cmd.Flags().StringVar(&cmder.saveAudio, "save-audio", "", "Write the spoken reply to this file")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw turn as JSON")

	return cmd
}

func (c *turnCommander) run(ctx context.Context, clipPath string) error {
	clip, err := os.ReadFile(clipPath)
	if err != nil {
		return fmt.Errorf("reading clip: %w", err)
	}
	if _, err := audio.Decode(clip); err != nil {
		return fmt.Errorf("%s: %w", clipPath, err)
	}

	ddm := dotdir.NewManager()

	sessionID, topic := c.sessionID, c.topic
	if sessionID == "" && !c.newFlag {
		state, err := ddm.LoadSessionState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading session state: %w", err)
		}
		if state != nil {
			sessionID = state.ID
			if topic == "" {
				topic = state.Topic
			}
		}
	}
	if sessionID == "" && topic == "" {
		return fmt.Errorf("a new session needs a topic, use --topic")
	}

	cl := client.New(c.apiTarget, nil)

	var resp *api.TurnResponse
	err = cliui.Step(c.out, "Waiting for the tutor", func() error {
		var err error
		resp, err = cl.Turn(ctx, sessionID, topic, clip)
		return err
	})
	if err != nil {
		return err
	}

	if err := ddm.SaveSessionState(&dotdir.SessionState{
		ID:        resp.SessionID,
		Topic:     topic,
		LastTurn:  resp.TurnIndex,
		UpdatedAt: time.Now(),
	}, c.configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	if c.saveAudio != "" && resp.AudioURL != "" {
		data, err := cl.Audio(ctx, resp.AudioURL)
		if err != nil {
			return fmt.Errorf("downloading reply audio: %w", err)
		}
		if err := os.WriteFile(c.saveAudio, data, 0o644); err != nil {
			return fmt.Errorf("writing reply audio: %w", err)
		}
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	rendered, err := cliui.RenderMarkdown(RenderTurn(resp))
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

// RenderTurn formats a turn as markdown for the terminal.
func RenderTurn(t *api.TurnResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### Turn %d · %s\n\n", t.TurnIndex, t.SessionID)

	if t.State == session.StateFailedAtSTT {
		b.WriteString("Your clip could not be transcribed. Please try again.\n\n")
		writeFailures(&b, t.Provenance)
		return b.String()
	}

	fmt.Fprintf(&b, "**Du:** %s\n\n", t.Transcript)
	if t.CorrectedForm != "" && t.CorrectedForm != t.Transcript {
		fmt.Fprintf(&b, "**Korrigiert:** %s\n\n", t.CorrectedForm)
	}
	fmt.Fprintf(&b, "**Tutor:** %s\n\n", t.ReplyText)
	if t.Explanation != "" {
		fmt.Fprintf(&b, "> %s\n\n", t.Explanation)
	}

	if t.AudioURL == "" {
		b.WriteString("_No spoken reply for this turn._\n\n")
	}
	if t.Provenance.ReplyFormat == session.FormatTemplate {
		b.WriteString("_The language model was unavailable, this is a canned reply._\n\n")
	}
	writeFailures(&b, t.Provenance)

	return b.String()
}

func writeFailures(b *strings.Builder, p session.Provenance) {
	if len(p.Failures) == 0 {
		return
	}
	b.WriteString("| stage | engine | failure |\n|---|---|---|\n")
	for _, f := range p.Failures {
		fmt.Fprintf(b, "| %s | %s | %s |\n", f.Stage, f.Engine, f.Kind)
	}
	b.WriteString("\n")
}
