// Command earworm is a push-to-talk dictation tool: hold the hotkey, speak,
// review the preview, and the text is typed into the focused application.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"earworm/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "earworm:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "earworm",
		Short:         "Push-to-talk dictation with spoken commands and an editable preview",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Path to config file (default $EARWORM_CONFIG or ~/.config/earworm/config.yaml)")
	flags.StringP("model", "m", "", "Speech model name passed to the engine")
	flags.StringP("language", "l", "", "Spoken language code (empty lets the engine detect it)")
	flags.Bool("no-voice-commands", false, "Type command phrases literally")
	flags.Bool("no-punctuation", false, "Disable automatic punctuation and capitalization")
	flags.Bool("no-preview", false, "Type the transcript without a preview")
	flags.Duration("auto-accept", 0, "Accept the preview automatically after this delay")
	flags.Bool("remove-fillers", false, "Drop filler words such as um and uh")
	flags.String("listen", "", "Control server address")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newDaemonCmd(), newHistoryCmd(), newProcessCmd())
	return root
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("model") {
		cfg.Engine.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language") {
		cfg.Dictation.Language, _ = flags.GetString("language")
	}
	if on, _ := flags.GetBool("no-voice-commands"); on {
		cfg.Dictation.VoiceCommands = false
	}
	if on, _ := flags.GetBool("no-punctuation"); on {
		cfg.Dictation.SmartPunctuation = false
	}
	if on, _ := flags.GetBool("no-preview"); on {
		cfg.Preview.Enabled = false
	}
	if on, _ := flags.GetBool("remove-fillers"); on {
		cfg.Dictation.RemoveFillers = true
	}
	if flags.Changed("auto-accept") {
		delay, _ := flags.GetDuration("auto-accept")
		if delay < 0 {
			return fmt.Errorf("--auto-accept must not be negative, got %s", delay)
		}
		cfg.Preview.AutoAcceptDelay = delay.Truncate(time.Millisecond)
	}
	if flags.Changed("listen") {
		cfg.Control.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	return nil
}
