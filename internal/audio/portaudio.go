//go:build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"earworm/internal/ports"
)

const framesPerBuffer = 1024

// PortAudioCapture records from the default input device through PortAudio.
type PortAudioCapture struct {
	logger *slog.Logger
}

func NewPortAudioCapture(logger *slog.Logger) *PortAudioCapture {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PortAudioCapture{logger: logger.With("component", "portaudio")}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	in := make([]int16, framesPerBuffer*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), framesPerBuffer, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	pr, pw := io.Pipe()
	s := &portAudioSession{
		stream: stream,
		reader: pr,
		writer: pw,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: c.logger,
	}
	go s.capture(ctx, in)

	c.logger.Debug("capture started", "sampleRate", cfg.SampleRate, "channels", cfg.Channels)
	return s, nil
}

type portAudioSession struct {
	stream *portaudio.Stream
	reader *io.PipeReader
	writer *io.PipeWriter
	stop   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	stopOnce sync.Once
}

// capture copies each buffer PortAudio fills into the pipe as s16le bytes.
func (s *portAudioSession) capture(ctx context.Context, in []int16) {
	defer close(s.done)
	defer func() {
		_ = s.stream.Stop()
		_ = s.stream.Close()
		_ = portaudio.Terminate()
	}()

	out := make([]byte, len(in)*2)
	for {
		select {
		case <-s.stop:
			_ = s.writer.Close()
			return
		case <-ctx.Done():
			_ = s.writer.CloseWithError(ctx.Err())
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.logger.Debug("input overflowed")
				continue
			}
			_ = s.writer.CloseWithError(fmt.Errorf("reading from stream: %w", err))
			return
		}
		for i, sample := range in {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
		}
		if _, err := s.writer.Write(out); err != nil {
			return
		}
	}
}

func (s *portAudioSession) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

// Stop ends capture after the buffer in flight. It is safe to call repeatedly.
func (s *portAudioSession) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-time.After(time.Second):
		return errors.New("portaudio stream did not stop in time")
	}
}

func (s *portAudioSession) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.reader.Close()
}
