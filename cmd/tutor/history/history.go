// Package historycmder provides the history command that prints the
// committed turns of a session.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/client"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils"
)

const previewLen = 72

type historyCommander struct {
	flags config.FlagSet

	apiTarget string
	limit     int
	configDir string

	out io.Writer
}

const historyLongDesc string = `Show the turns of a tutoring session, oldest first.

Without an argument the session remembered by "tutor turn" is shown.

Examples:
  tutor history
  tutor history 6f1c2e4a --limit 5`

const historyShortDesc string = "Show the turns of a session"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
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

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return cmder.run(cmd.Context(), id)
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Only show the most recent turns (0 for all)")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, id string) error {
	if c.limit < 0 {
		return errors.New("--limit must not be negative")
	}

	if id == "" {
		state, err := dotdir.NewManager().LoadSessionState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading session state: %w", err)
		}
		if state == nil {
			return errors.New("no active session, pass a session id")
		}
		id = state.ID
	}

	hist, err := client.New(c.apiTarget, nil).History(ctx, id, c.limit)
	if err != nil {
		return err
	}

	printHistory(c.out, hist)
	return nil
}

func printHistory(w io.Writer, hist *api.HistoryResponse) {
	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(hist.SessionID))
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Topic:  "), cliui.ValueStyle.Render(hist.Topic))
	fmt.Fprintf(w, "  %s  %d\n\n", cliui.KeyStyle.Render("Turns:  "), hist.Count)

	for _, t := range hist.Turns {
		mark := cliui.SuccessMark
		switch t.Status {
		case session.StatusPartial:
			mark = cliui.WarnMark
		case session.StatusFailed:
			mark = cliui.FailMark
		}

		fmt.Fprintf(w, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%3d.", t.Index)),
			mark,
			utils.Truncate(t.Transcript, previewLen),
		)
		if t.ReplyText != "" {
			fmt.Fprintf(w, "       %s\n", cliui.DimStyle.Render(utils.Truncate(t.ReplyText, previewLen)))
		}
	}
	fmt.Fprintln(w)
}
