package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"earworm/internal/bootstrap"
	"earworm/internal/pipeline"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [words...]",
		Short: "Run a typed transcript through the pipeline and print the result",
		Example: "  earworm process hello comma world new paragraph next line period\n" +
			"  echo 'um so yeah' | earworm process --remove-fillers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			showActions, _ := cmd.Flags().GetBool("actions")

			text := strings.Join(args, " ")
			if len(args) == 0 {
				input, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				text = string(input)
			}

			pipe, err := bootstrap.BuildPipeline(cfg)
			if err != nil {
				return err
			}
			result, err := pipe.Build(pipeline.FromText(text))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Document.Text())
			if showActions {
				for _, action := range pipeline.Describe(result.Actions) {
					fmt.Fprintln(out, "  "+action)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("actions", false, "Print the action log after the text")
	return cmd
}
