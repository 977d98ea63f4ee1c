package main

import (
	"github.com/spf13/cobra"

	"earworm/internal/bootstrap"
	"earworm/internal/logging"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run headless; drive sessions through the control server",
		Long: "Run headless. A hotkey daemon (or anything that can make HTTP requests) drives\n" +
			"sessions with POST /ptt/down and /ptt/up, and watches events on /ws.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log, cmd.ErrOrStderr())

			services, err := bootstrap.Build(cfg, bootstrap.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer services.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			err = services.Control.ListenAndServe(ctx, cfg.Control.Listen)
			logger.Info("shutting down")
			return err
		},
	}
}
