package ports

import (
	"context"
	"errors"
	"io"

	"earworm/internal/domain"
)

// ErrEmptyTranscript is returned by a SpeechEngine that recognized nothing.
var ErrEmptyTranscript = errors.New("engine returned an empty transcript")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session producing s16le PCM.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// SpeechEngine turns one recorded clip into a transcript. It is slow and must
// never be called from the event loop.
type SpeechEngine interface {
	Transcribe(ctx context.Context, clip domain.AudioClip, language string) (domain.RawTranscript, error)
}

// Committer delivers final text to the focused application.
type Committer interface {
	Commit(ctx context.Context, text string) error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	PreviewChanged(view domain.PreviewView)
	FinalTranscript(raw string, final string)
	SessionError(code domain.ErrorCode, detail string)
}

// Journal persists resolved sessions.
type Journal interface {
	Record(ctx context.Context, entry domain.JournalEntry) error
}
