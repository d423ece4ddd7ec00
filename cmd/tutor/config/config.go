// Package configcmder provides the config command for managing the persistent
// tutor configuration stored in the .tutor/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/cliui"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/config"
)

const configLongDesc string = `Manage persistent tutor configuration.

Configuration is stored as config.toml in the .tutor/ directory and provides
default values for command flags. CLI flags and TUTOR_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  storage.driver, api.listen, client.api_target,
  stt.engines, stt.timeout, tutor.model, tutor.history_limit,
  tts.engines, tts.voice, artifacts.dir, eventstream.provider

Use subcommands to get, set, or list configuration values:
  tutor config set <key> <value>    Set a configuration value
  tutor config get <key>            Get a configuration value
  tutor config list                 List all configuration values

Examples:
  tutor config set tutor.model llama3.1
  tutor config set stt.engines whisper-cli,openai
  tutor config get tts.engines
  tutor config list`

const configShortDesc string = "Manage persistent tutor configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validKeysCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}
