// Package initcmder provides the init command for creating a local .tutor
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
)

const dirName = ".tutor"

const initLongDesc string = `Initialize a new .tutor/ directory in the current working directory.

The local .tutor/ directory takes precedence over ~/.tutor/ for
configuration, credentials, session storage and turn audio.

Use --preset to write a config.toml for a common engine setup:
  offline        whisper CLI, Ollama and espeak-ng only
  cloud          hosted OpenAI speech engines, local engines as fallback
  local-server   OpenAI compatible speech servers on localhost:8000

Examples:
  tutor init
  tutor init --preset offline`

const initShortDesc string = "Initialize a local .tutor/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return runInit(cmd.OutOrStdout(), cwd, preset)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		"Engine preset to write ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(w io.Writer, parent, preset string) error {
	dir := filepath.Join(parent, dirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .tutor directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .tutor directory: %s\n", dir)
	}

	if preset == "" {
		return nil
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if _, err := os.Stat(cfger.GetTarget()); err == nil {
		return errors.New("config.toml already exists, use 'tutor config set' to change it")
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(preset),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
