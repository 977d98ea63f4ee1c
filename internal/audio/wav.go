package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"earworm/internal/domain"
)

// EncodeWAV wraps a captured s16le clip in a WAV container. The encoder needs
// a seekable writer, so the file is built in a temp file and read back.
func EncodeWAV(clip domain.AudioClip) ([]byte, error) {
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return nil, fmt.Errorf("invalid clip format: %d Hz, %d channels", clip.SampleRate, clip.Channels)
	}
	if len(clip.PCM) < 2 {
		return nil, errors.New("clip has no samples")
	}

	f, err := os.CreateTemp("", "earworm-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, clip.SampleRate, 16, clip.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: clip.Channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           make([]int, len(clip.PCM)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(clip.PCM[i*2:])))
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, fmt.Errorf("read temp wav: %w", err)
	}
	return data, nil
}
