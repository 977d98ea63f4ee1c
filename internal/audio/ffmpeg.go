package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"earworm/internal/ports"
)

const (
	defaultStartupGrace = 250 * time.Millisecond
	defaultStopGrace    = 1200 * time.Millisecond
	stderrLimit         = 4096
)

// FFmpegCapture records the microphone by running ffmpeg and reading raw
// s16le PCM from its stdout.
type FFmpegCapture struct {
	command      string
	startupGrace time.Duration
	stopGrace    time.Duration
	logger       *slog.Logger
}

func NewFFmpegCapture(command string, logger *slog.Logger) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FFmpegCapture{
		command:      command,
		startupGrace: defaultStartupGrace,
		stopGrace:    defaultStopGrace,
		logger:       logger.With("component", "ffmpeg"),
	}
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, c.command, ffmpegArgs(withDefaults(cfg))...)
	stderr := &tailBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	// A child left holding stdout after ffmpeg dies must not stall Wait.
	cmd.WaitDelay = c.stopGrace

	// exec copies ffmpeg's stdout into the pipe and Wait returns only once that
	// copy ends, so the reader drains everything ffmpeg flushes on interrupt
	// before the process is reaped.
	stdout, stdoutWriter := io.Pipe()
	cmd.Stdout = stdoutWriter
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		stdoutWriter.Close()
		exited <- err
		close(exited)
	}()

	// A bad device makes ffmpeg exit almost immediately.
	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, stderr.String())
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(c.startupGrace):
	}

	c.logger.Debug("capture started", "pid", cmd.Process.Pid, "device", cfg.InputDevice)
	return &ffmpegSession{
		stdout:    stdout,
		stderr:    stderr,
		process:   cmd.Process,
		exited:    exited,
		stopGrace: c.stopGrace,
	}, nil
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func ffmpegArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type ffmpegSession struct {
	stdout    *io.PipeReader
	stderr    *tailBuffer
	process   *os.Process
	exited    <-chan error
	stopGrace time.Duration

	stopOnce sync.Once
	stopErr  error
}

// Read returns PCM until ffmpeg has exited and its output is drained.
func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close abandons any unread audio and stops ffmpeg.
func (s *ffmpegSession) Close() error {
	_ = s.stdout.Close()
	return s.Stop()
}

// Stop interrupts ffmpeg so that it flushes what it captured and waits for
// the reader to drain that flush. ffmpeg is killed if it does not exit within
// the grace period, and unread output is dropped if nobody consumes it. It is
// safe to call repeatedly.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		exited, err := s.await()
		if !exited {
			_ = s.process.Kill()
			exited, err = s.await()
		}
		if !exited {
			_ = s.stdout.Close()
			err = <-s.exited
		}

		s.stopErr = ignoreExitStatus(err)
		if s.stopErr != nil {
			if detail := s.stderr.String(); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})
	return s.stopErr
}

func (s *ffmpegSession) await() (bool, error) {
	timer := time.NewTimer(s.stopGrace)
	defer timer.Stop()
	select {
	case err := <-s.exited:
		return true, err
	case <-timer.C:
		return false, nil
	}
}

// ignoreExitStatus treats a non-zero exit as normal: ffmpeg reports one when
// interrupted. Output cut off after the wait delay is not an error either.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf))
}
