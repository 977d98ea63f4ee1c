package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-audio/wav"

	"earworm/internal/domain"
)

func TestEncodeWAVRoundTripsSamples(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 1200, -1200, 32767, -32768}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	data, err := EncodeWAV(domain.AudioClip{PCM: pcm, SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Contains(data[:16], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:16])
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("unexpected format: %d Hz %d ch %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Fatalf("sample %d: want %d, got %d", i, s, buf.Data[i])
		}
	}
}

func TestEncodeWAVRejectsEmptyClip(t *testing.T) {
	t.Parallel()

	if _, err := EncodeWAV(domain.AudioClip{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error for empty clip")
	}
	if _, err := EncodeWAV(domain.AudioClip{PCM: []byte{1, 2}}); err == nil {
		t.Fatal("expected error for missing format")
	}
}
