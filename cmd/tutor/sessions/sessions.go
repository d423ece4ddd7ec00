// Package sessionscmder provides the sessions command for listing and
// purging tutoring sessions on a running server.
package sessionscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/client"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
)

type sessionsCommander struct {
	flags config.FlagSet

	apiTarget string
	purge     string
	configDir string

	out io.Writer
}

const sessionsLongDesc string = `List tutoring sessions, or purge one with its turns and audio.

Examples:
  tutor sessions
  tutor sessions --purge 6f1c2e4a`

const sessionsShortDesc string = "List or purge sessions"

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
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
			if cmder.purge != "" {
				return cmder.runPurge(cmd.Context())
			}
			return cmder.runList(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.purge, "purge", "", "Delete this session with its turns and audio")

	return cmd
}

func (c *sessionsCommander) runList(ctx context.Context) error {
	resp, err := client.New(c.apiTarget, nil).Sessions(ctx)
	if err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Fprintf(c.out, "\n  %s No sessions yet. Start one with 'tutor turn <clip.wav> --topic <topic>'.\n\n",
			cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d sessions", resp.Count)))
	for _, s := range resp.Sessions {
		fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
			cliui.NameStyle.Render(s.ID),
			cliui.ValueStyle.Render(s.Topic),
			cliui.DimStyle.Render(fmt.Sprintf("%d turns", s.TurnCount)),
			cliui.DimStyle.Render(s.CreatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *sessionsCommander) runPurge(ctx context.Context) error {
	if err := client.New(c.apiTarget, nil).Purge(ctx, c.purge); err != nil {
		return err
	}

	ddm := dotdir.NewManager()
	if state, err := ddm.LoadSessionState(c.configDir); err == nil && state != nil && state.ID == c.purge {
		if err := ddm.ClearSessionState(c.configDir); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "\n  %s Purged session %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(c.purge))
	return nil
}
