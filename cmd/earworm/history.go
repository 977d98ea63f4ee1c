package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"earworm/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent dictation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			verbose, _ := cmd.Flags().GetBool("verbose")

			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RESOLVED\tOUTCOME\tTEXT")
			for _, e := range entries {
				text := e.FinalText
				if text == "" {
					text = "(" + e.RawText + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ResolvedAt.Local().Format("2006-01-02 15:04:05"), e.Outcome, oneLine(text))
				if verbose && len(e.Actions) > 0 {
					fmt.Fprintf(w, "\t\t%s\n", strings.Join(e.Actions, "; "))
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	cmd.Flags().BoolP("verbose", "v", false, "Show the action log of each session")
	return cmd
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
