package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Writes the key to config.toml in the .tutor/ directory. Durations are
validated (e.g. 30s, 2m) and list keys take comma separated values.

Examples:
  tutor config set tutor.model llama3.1
  tutor config set tts.engines espeak
  tutor config set stt.timeout 45s
  tutor config set eventstream.brokers kafka-1:9092,kafka-2:9092`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: validKeysCompletion,
	}

	return cmd
}

func runSet(w io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(w, cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
