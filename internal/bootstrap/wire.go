package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"earworm/internal/audio"
	"earworm/internal/config"
	"earworm/internal/control"
	"earworm/internal/journal"
	"earworm/internal/notify"
	"earworm/internal/output"
	"earworm/internal/pipeline"
	"earworm/internal/ports"
	"earworm/internal/providers/whispercpp"
	"earworm/internal/retry"
	"earworm/internal/rules"
	"earworm/internal/usecase"
)

// Options selects the front ends and optional adapter overrides for Build.
type Options struct {
	Logger *slog.Logger

	// Events receive every session event next to the control hub.
	Events []ports.EventSink

	// Overrides; nil selects the adapter named in the config.
	Capture   ports.AudioCapture
	Engine    ports.SpeechEngine
	Committer ports.Committer
	Clipboard ports.Clipboard
}

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Coordinator *usecase.SessionCoordinator
	Pipeline    *pipeline.Pipeline
	Hub         *control.Hub
	Control     *control.Server

	// Journal is nil when the journal is disabled.
	Journal *journal.Store
}

// BuildPipeline compiles the lexicon and substitution rules into a pipeline.
func BuildPipeline(cfg config.Config) (*pipeline.Pipeline, error) {
	rulesEngine, err := rules.Load(rules.Source{Path: cfg.Rules.Path, Inline: cfg.Rules.Inline}, cfg.Rules.IterationLimit)
	if err != nil {
		return nil, err
	}
	lex, err := cfg.Lexicon()
	if err != nil {
		return nil, err
	}

	var rewriter pipeline.Rewriter
	if rulesEngine.Len() > 0 {
		rewriter = rulesEngine
	}
	return pipeline.New(lex, cfg.PipelineOptions(), rewriter), nil
}

// Build wires all backend dependencies for the current runtime.
func Build(cfg config.Config, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pipe, err := BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	capture := opts.Capture
	if capture == nil {
		capture = newCapture(cfg.Audio, logger)
	}

	engine := opts.Engine
	if engine == nil {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = cfg.Engine.MaxAttempts
		engine = whispercpp.NewClient(whispercpp.Config{
			BaseURL: cfg.Engine.URL,
			Model:   cfg.Engine.Model,
			Timeout: cfg.Engine.Timeout,
			Retry:   retryCfg,
		}, logger)
	}

	committer := opts.Committer
	if committer == nil {
		committer = output.NewCommitter(output.Config{
			UseClipboard:     cfg.Output.UseClipboard,
			RestoreClipboard: cfg.Output.RestoreClipboard,
			TypingDelay:      cfg.Output.TypingDelay,
			PasteSettle:      cfg.Output.PasteSettle,
		}, logger)
	}

	clipboard := opts.Clipboard
	if clipboard == nil {
		clipboard = output.NewClipboard()
	}

	services := &Services{Config: cfg, Pipeline: pipe}

	var sessionJournal ports.Journal
	var history control.History
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		services.Journal = store
		sessionJournal = store
		history = store
	}

	services.Hub = control.NewHub(nil, logger.With("component", "control"))
	sinks := notify.Fanout{services.Hub}
	sinks = append(sinks, opts.Events...)
	if cfg.Notify.Enabled {
		sinks = append(sinks, notify.NewDesktop(logger))
	}

	services.Coordinator = usecase.NewSessionCoordinator(usecase.Dependencies{
		Audio:     capture,
		Engine:    engine,
		Builder:   pipe,
		Committer: committer,
		Clipboard: clipboard,
		Journal:   sessionJournal,
		Events:    sinks,
		Logger:    logger.With("component", "coordinator"),
	}, cfg.CoordinatorConfig())

	services.Hub.SetController(services.Coordinator)
	services.Control = control.NewServer(services.Hub, history, cfg.Control.Token, logger.With("component", "control"))

	logger.Info("earworm ready",
		"audio_source", cfg.Audio.Source,
		"engine", cfg.Engine.URL,
		"preview", cfg.Preview.Enabled,
		"voice_commands", cfg.Dictation.VoiceCommands,
		"journal", cfg.Journal.Enabled,
	)
	return services, nil
}

// Close stops the coordinator and releases the journal.
func (s *Services) Close() error {
	var errs []error
	if s.Coordinator != nil {
		s.Coordinator.Close()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newCapture(cfg config.AudioConfig, logger *slog.Logger) ports.AudioCapture {
	if cfg.Source == "portaudio" {
		return audio.NewPortAudioCapture(logger)
	}
	return audio.NewFFmpegCapture(cfg.RecorderCommand, logger)
}
