package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"earworm/internal/lexicon"
	"earworm/internal/pipeline"
	"earworm/internal/ports"
	"earworm/internal/punctuation"
	"earworm/internal/undo"
	"earworm/internal/usecase"
)

// Config stores runtime configuration. It is resolved once at startup and
// converted into the immutable option structs of the pipeline and coordinator.
type Config struct {
	Dictation DictationConfig `yaml:"dictation"`
	Preview   PreviewConfig   `yaml:"preview"`
	Commands  CommandsConfig  `yaml:"commands"`
	Rules     RulesConfig     `yaml:"rules"`
	Engine    EngineConfig    `yaml:"engine"`
	Audio     AudioConfig     `yaml:"audio"`
	Output    OutputConfig    `yaml:"output"`
	Session   SessionConfig   `yaml:"session"`
	Control   ControlConfig   `yaml:"control"`
	Journal   JournalConfig   `yaml:"journal"`
	Notify    NotifyConfig    `yaml:"notifications"`
	Log       LogConfig       `yaml:"log"`
}

type DictationConfig struct {
	VoiceCommands    bool          `yaml:"enable_voice_commands"`
	SmartPunctuation bool          `yaml:"enable_smart_punctuation"`
	AutoCapitalize   bool          `yaml:"auto_capitalize"`
	AutoPeriods      bool          `yaml:"auto_periods"`
	AutoQuestions    bool          `yaml:"auto_questions"`
	AutoCommas       bool          `yaml:"auto_commas"`
	RemoveFillers    bool          `yaml:"remove_fillers"`
	CommaPause       time.Duration `yaml:"comma_pause_threshold"`
	FillerWords      []string      `yaml:"filler_words"`
	QuestionWords    []string      `yaml:"question_words"`
	Language         string        `yaml:"language"`
}

type PreviewConfig struct {
	Enabled         bool          `yaml:"enable_preview"`
	AutoAcceptDelay time.Duration `yaml:"preview_auto_accept_delay"`
	HistoryCapacity int           `yaml:"history_capacity"`
}

// CommandOverride adds, replaces, or disables one spoken command phrase.
type CommandOverride struct {
	Phrase string `yaml:"phrase"`
	Action string `yaml:"action"`
	Value  string `yaml:"value"`
	Attach string `yaml:"attach"`
}

type CommandsConfig struct {
	File      string            `yaml:"file"`
	Overrides []CommandOverride `yaml:"overrides"`
}

type RulesConfig struct {
	Path           string   `yaml:"path"`
	Inline         []string `yaml:"inline"`
	IterationLimit int      `yaml:"iteration_limit"`
}

type EngineConfig struct {
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	AllowRemote bool          `yaml:"allow_remote"`
}

type AudioConfig struct {
	Source          string `yaml:"source"`
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
}

type OutputConfig struct {
	UseClipboard     bool          `yaml:"use_clipboard"`
	RestoreClipboard bool          `yaml:"restore_clipboard"`
	TypingDelay      time.Duration `yaml:"typing_delay"`
	PasteSettle      time.Duration `yaml:"paste_settle"`
}

type SessionConfig struct {
	ChunkSize         int           `yaml:"chunk_size"`
	MinRecording      time.Duration `yaml:"min_recording"`
	BusyPolicy        string        `yaml:"busy_policy"`
	StopTimeout       time.Duration `yaml:"stop_timeout"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	CommitTimeout     time.Duration `yaml:"commit_timeout"`
}

type ControlConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load resolves configuration from defaults, an optional YAML file, and
// EARWORM_* environment variables, in that order. An empty path looks for
// $EARWORM_CONFIG and then ~/.config/earworm/config.yaml; only an explicitly
// named file has to exist.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := defaults(home)

	required := true
	path = firstNonEmpty(path, os.Getenv("EARWORM_CONFIG"))
	if path == "" {
		path = filepath.Join(home, ".config", "earworm", "config.yaml")
		required = false
	}
	if err := cfg.readFile(path, required); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	if err := cfg.readCommandsFile(); err != nil {
		return Config{}, err
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults(home string) Config {
	defaultRules := filepath.Join(home, ".config", "earworm", "substitutions.rules")
	hyprRules := filepath.Join(home, ".config", "hypr", "whisper-substitutions.rules")

	return Config{
		Dictation: DictationConfig{
			VoiceCommands:    true,
			SmartPunctuation: true,
			AutoCapitalize:   true,
			AutoPeriods:      true,
			AutoQuestions:    true,
			AutoCommas:       true,
			CommaPause:       punctuation.DefaultCommaPause,
			Language:         "en",
		},
		Preview: PreviewConfig{
			Enabled:         true,
			HistoryCapacity: undo.DefaultCapacity,
		},
		Rules: RulesConfig{
			Path:           firstExisting(defaultRules, hyprRules),
			IterationLimit: 30,
		},
		Engine: EngineConfig{
			URL:         "http://127.0.0.1:8178",
			Timeout:     2 * time.Minute,
			MaxAttempts: 3,
		},
		Audio: AudioConfig{
			Source:          "ffmpeg",
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
		Output: OutputConfig{
			UseClipboard:     true,
			RestoreClipboard: true,
			PasteSettle:      150 * time.Millisecond,
		},
		Session: SessionConfig{
			ChunkSize:         4096,
			MinRecording:      300 * time.Millisecond,
			BusyPolicy:        string(usecase.BusyIgnore),
			StopTimeout:       3 * time.Second,
			TranscribeTimeout: 2 * time.Minute,
			CommitTimeout:     30 * time.Second,
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:7531",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".local", "share", "earworm", "journal.db"),
		},
		Notify: NotifyConfig{Enabled: true},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// readCommandsFile appends the overrides listed in commands.file.
func (c *Config) readCommandsFile() error {
	if c.Commands.File == "" {
		return nil
	}
	data, err := os.ReadFile(c.Commands.File)
	if err != nil {
		return fmt.Errorf("reading commands file: %w", err)
	}
	var overrides []CommandOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parsing commands file: %w", err)
	}
	c.Commands.Overrides = append(c.Commands.Overrides, overrides...)
	return nil
}

func (c *Config) applyEnv() {
	d := &c.Dictation
	d.VoiceCommands = envOrDefaultBool("EARWORM_VOICE_COMMANDS", d.VoiceCommands)
	d.SmartPunctuation = envOrDefaultBool("EARWORM_SMART_PUNCTUATION", d.SmartPunctuation)
	d.AutoCapitalize = envOrDefaultBool("EARWORM_AUTO_CAPITALIZE", d.AutoCapitalize)
	d.AutoPeriods = envOrDefaultBool("EARWORM_AUTO_PERIODS", d.AutoPeriods)
	d.AutoCommas = envOrDefaultBool("EARWORM_AUTO_COMMAS", d.AutoCommas)
	d.RemoveFillers = envOrDefaultBool("EARWORM_REMOVE_FILLERS", d.RemoveFillers)
	d.CommaPause = envOrDefaultDuration("EARWORM_COMMA_PAUSE", d.CommaPause)
	d.Language = envOrDefault("EARWORM_LANGUAGE", d.Language)

	c.Preview.Enabled = envOrDefaultBool("EARWORM_PREVIEW", c.Preview.Enabled)
	c.Preview.AutoAcceptDelay = envOrDefaultDuration("EARWORM_AUTO_ACCEPT_DELAY", c.Preview.AutoAcceptDelay)

	c.Rules.Path = envOrDefault("EARWORM_RULES_FILE", c.Rules.Path)
	c.Rules.IterationLimit = envOrDefaultInt("EARWORM_RULE_ITERATION_LIMIT", c.Rules.IterationLimit)
	c.Commands.File = envOrDefault("EARWORM_COMMANDS_FILE", c.Commands.File)

	c.Engine.URL = envOrDefault("EARWORM_ENGINE_URL", c.Engine.URL)
	c.Engine.Model = envOrDefault("EARWORM_MODEL", c.Engine.Model)

	c.Audio.Source = envOrDefault("EARWORM_AUDIO_SOURCE", c.Audio.Source)
	c.Audio.RecorderCommand = envOrDefault("EARWORM_FFMPEG_COMMAND", c.Audio.RecorderCommand)
	c.Audio.InputFormat = envOrDefault("EARWORM_AUDIO_INPUT_FORMAT", c.Audio.InputFormat)
	c.Audio.InputDevice = firstNonEmpty(
		os.Getenv("EARWORM_AUDIO_INPUT_DEVICE"),
		os.Getenv("WHISPER_PULSE_SOURCE"),
		c.Audio.InputDevice,
	)
	c.Audio.SampleRate = envOrDefaultInt("EARWORM_SAMPLE_RATE", c.Audio.SampleRate)
	c.Audio.Channels = envOrDefaultInt("EARWORM_CHANNELS", c.Audio.Channels)

	c.Output.UseClipboard = envOrDefaultBool("EARWORM_USE_CLIPBOARD", c.Output.UseClipboard)
	c.Output.TypingDelay = envOrDefaultDuration("EARWORM_TYPING_DELAY", c.Output.TypingDelay)

	c.Session.ChunkSize = envOrDefaultInt("EARWORM_AUDIO_CHUNK_SIZE", c.Session.ChunkSize)
	c.Session.MinRecording = envOrDefaultDuration("EARWORM_MIN_RECORDING", c.Session.MinRecording)
	c.Session.BusyPolicy = envOrDefault("EARWORM_BUSY_POLICY", c.Session.BusyPolicy)

	c.Control.Listen = envOrDefault("EARWORM_LISTEN", c.Control.Listen)
	c.Control.Token = envOrDefault("EARWORM_CONTROL_TOKEN", c.Control.Token)

	c.Journal.Enabled = envOrDefaultBool("EARWORM_JOURNAL", c.Journal.Enabled)
	c.Journal.Path = envOrDefault("EARWORM_JOURNAL_PATH", c.Journal.Path)
	c.Notify.Enabled = envOrDefaultBool("EARWORM_NOTIFICATIONS", c.Notify.Enabled)

	c.Log.Level = envOrDefault("EARWORM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("EARWORM_LOG_FORMAT", c.Log.Format)
}

func (c *Config) sanitize() {
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Rules.IterationLimit <= 0 {
		c.Rules.IterationLimit = 30
	}
	if c.Session.ChunkSize < 256 {
		c.Session.ChunkSize = 4096
	}
	if c.Dictation.CommaPause <= 0 {
		c.Dictation.CommaPause = punctuation.DefaultCommaPause
	}
	if c.Preview.AutoAcceptDelay < 0 {
		c.Preview.AutoAcceptDelay = 0
	}
	if c.Preview.HistoryCapacity <= 0 {
		c.Preview.HistoryCapacity = undo.DefaultCapacity
	}
	if c.Engine.MaxAttempts <= 0 {
		c.Engine.MaxAttempts = 1
	}
	c.Audio.Source = strings.ToLower(c.Audio.Source)
	c.Session.BusyPolicy = strings.ToLower(c.Session.BusyPolicy)
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch usecase.BusyPolicy(c.Session.BusyPolicy) {
	case usecase.BusyIgnore, usecase.BusyQueue:
	default:
		return fmt.Errorf("busy_policy must be ignore or queue, got %q", c.Session.BusyPolicy)
	}
	switch c.Audio.Source {
	case "ffmpeg", "portaudio":
	default:
		return fmt.Errorf("audio source must be ffmpeg or portaudio, got %q", c.Audio.Source)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}

	u, err := url.Parse(c.Engine.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid engine url %q", c.Engine.URL)
	}
	if !c.Engine.AllowRemote && !isLoopback(u.Hostname()) {
		return fmt.Errorf("engine url %q is not a loopback address; set engine.allow_remote to use it", c.Engine.URL)
	}
	return nil
}

// Lexicon compiles the default command table with the configured overrides.
func (c Config) Lexicon() (*lexicon.Lexicon, error) {
	overrides := make([]lexicon.Override, 0, len(c.Commands.Overrides))
	for _, o := range c.Commands.Overrides {
		overrides = append(overrides, lexicon.Override{Phrase: o.Phrase, Action: o.Action, Value: o.Value, Attach: o.Attach})
	}
	lex, err := lexicon.New(lexicon.DefaultEntries(), overrides)
	if err != nil {
		return nil, fmt.Errorf("command overrides: %w", err)
	}
	return lex, nil
}

// PipelineOptions returns the transcript pipeline configuration.
func (c Config) PipelineOptions() pipeline.Options {
	d := c.Dictation
	return pipeline.Options{
		VoiceCommands:    d.VoiceCommands,
		SmartPunctuation: d.SmartPunctuation,
		Heuristics: punctuation.Options{
			AutoCapitalize: d.AutoCapitalize,
			AutoPeriods:    d.AutoPeriods,
			AutoQuestions:  d.AutoQuestions,
			AutoCommas:     d.AutoCommas,
			RemoveFillers:  d.RemoveFillers,
			CommaPause:     d.CommaPause,
			Fillers:        d.FillerWords,
			QuestionWords:  d.QuestionWords,
		},
		HistoryCapacity: c.Preview.HistoryCapacity,
	}
}

// CoordinatorConfig returns the session lifecycle configuration.
func (c Config) CoordinatorConfig() usecase.Config {
	return usecase.Config{
		Audio: ports.AudioConfig{
			SampleRate:  c.Audio.SampleRate,
			Channels:    c.Audio.Channels,
			InputFormat: c.Audio.InputFormat,
			InputDevice: c.Audio.InputDevice,
		},
		ChunkSize:         c.Session.ChunkSize,
		Language:          c.Dictation.Language,
		MinRecording:      c.Session.MinRecording,
		EnablePreview:     c.Preview.Enabled,
		AutoAcceptDelay:   c.Preview.AutoAcceptDelay,
		BusyPolicy:        usecase.BusyPolicy(c.Session.BusyPolicy),
		HistoryCapacity:   c.Preview.HistoryCapacity,
		StopTimeout:       c.Session.StopTimeout,
		TranscribeTimeout: c.Session.TranscribeTimeout,
		CommitTimeout:     c.Session.CommitTimeout,
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envOrDefaultDuration accepts Go durations ("1.5s") or bare milliseconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
