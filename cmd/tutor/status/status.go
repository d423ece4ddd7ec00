// Package statuscmder provides the status command that shows the active
// session and which engines the server can reach.
package statuscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/client"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
)

type statusCommander struct {
	flags config.FlagSet

	apiTarget string
	configDir string

	out io.Writer
}

const statusLongDesc string = `Show the active session and the availability of every engine.

The server probes each speech-to-text engine, the language model runtime
and each text-to-speech engine. Offline capable means at least one
speech-to-text and one text-to-speech engine answered; the tutor itself
falls back to canned replies when the model is down.

Examples:
  tutor status
  tutor status --api-target http://tutor.local:8081`

const statusShortDesc string = "Show the active session and engine availability"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	state, err := dotdir.NewManager().LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	fmt.Fprintln(c.out)
	if state == nil {
		fmt.Fprintf(c.out, "  %s No active session. The next turn starts a new one.\n", cliui.DimStyle.Render("●"))
	} else {
		fmt.Fprintf(c.out, "  %s  %s %s\n",
			cliui.KeyStyle.Render("Session:"),
			cliui.NameStyle.Render(state.ID),
			cliui.DimStyle.Render(fmt.Sprintf("(%s, last turn %d)", state.Topic, state.LastTurn)),
		)
	}

	report, err := client.New(c.apiTarget, nil).Status(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "  %s Server at %s is not reachable\n\n", cliui.FailMark, c.apiTarget)
		return err
	}

	printReport(c.out, report)
	return nil
}

func printReport(w io.Writer, r *pipeline.StatusReport) {
	fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Speech-to-text"))
	for _, e := range r.STT {
		printEngine(w, e)
	}

	fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Tutor"))
	printEngine(w, r.Tutor.EngineStatus)
	if len(r.Tutor.Models) > 0 {
		fmt.Fprintf(w, "      %s %v\n", cliui.KeyStyle.Render("models:"), r.Tutor.Models)
	}

	fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Text-to-speech"))
	for _, e := range r.TTS {
		printEngine(w, e)
	}

	mark := cliui.SuccessMark
	if !r.Offline {
		mark = cliui.FailMark
	}
	fmt.Fprintf(w, "\n  %s Offline capable\n\n", mark)
}

func printEngine(w io.Writer, e pipeline.EngineStatus) {
	if e.Available {
		fmt.Fprintf(w, "    %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(e.Name))
		return
	}
	fmt.Fprintf(w, "    %s %s %s\n", cliui.FailMark, cliui.NameStyle.Render(e.Name), cliui.DimStyle.Render(e.Error))
}
