package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"earworm/internal/bootstrap"
	"earworm/internal/logging"
	"earworm/internal/ports"
	"earworm/internal/tui"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Dictate with the terminal preview (space toggles recording)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}

func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.New(cfg.Log, logFile)

	sink := tui.NewSink()
	services, err := bootstrap.Build(cfg, bootstrap.Options{
		Logger: logger,
		Events: []ports.EventSink{sink},
	})
	if err != nil {
		return err
	}
	defer services.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	go func() {
		if err := services.Control.ListenAndServe(ctx, cfg.Control.Listen); err != nil {
			logger.Warn("control server stopped", "error", err)
		}
	}()

	program := tea.NewProgram(tui.New(services.Coordinator), tea.WithContext(ctx))
	sink.Attach(program)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

func openLogFile() (*os.File, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "earworm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "earworm.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

// signalContext is cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
