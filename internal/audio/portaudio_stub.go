//go:build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"

	"earworm/internal/ports"
)

// ErrPortAudioUnavailable is returned when the binary was built without PortAudio.
var ErrPortAudioUnavailable = errors.New("portaudio capture not available: rebuild with -tags portaudio")

// PortAudioCapture stub when portaudio is not available.
type PortAudioCapture struct{}

func NewPortAudioCapture(_ *slog.Logger) *PortAudioCapture {
	return &PortAudioCapture{}
}

func (c *PortAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	return nil, ErrPortAudioUnavailable
}
