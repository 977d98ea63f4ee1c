package usecase

import (
	"bytes"
	"context"
	"sync"
	"time"

	"earworm/internal/domain"
	"earworm/internal/ports"
)

// recording is the capture half of a session.
type recording struct {
	cancel   context.CancelFunc
	audio    ports.AudioSession
	pcm      *pcmBuffer
	pumpDone chan struct{}
}

// pcmBuffer collects captured audio. The pump goroutine writes, the event loop
// reads once the pump has finished.
type pcmBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *pcmBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// session is everything the loop knows about the current dictation cycle.
type session struct {
	id        string
	startedAt time.Time
	rec       *recording

	transcribeCancel context.CancelFunc
	raw              domain.RawTranscript
	actions          []string
	finalText        string
}

// Loop messages. Requests come from public methods and carry a reply channel;
// the rest are posted by goroutines the loop started.
type (
	opKind uint8

	request struct {
		op     opKind
		text   string
		action domain.Action
		reply  chan error
	}

	transcribed struct {
		sessionID string
		raw       domain.RawTranscript
		err       error
	}

	timerFired struct {
		sessionID string
		gen       uint64
	}

	delivered struct {
		sessionID string
		text      string
		outcome   domain.Outcome
		result    delivery
	}
)

const (
	opHotkeyDown opKind = iota + 1
	opHotkeyUp
	opAccept
	opCopy
	opCancel
	opReRecord
	opEdit
	opApply
	opUndo
	opRedo
)

func (k opKind) String() string {
	switch k {
	case opHotkeyDown:
		return "hotkey_down"
	case opHotkeyUp:
		return "hotkey_up"
	case opAccept:
		return "accept"
	case opCopy:
		return "copy"
	case opCancel:
		return "cancel"
	case opReRecord:
		return "rerecord"
	case opEdit:
		return "edit"
	case opApply:
		return "apply"
	case opUndo:
		return "undo"
	case opRedo:
		return "redo"
	default:
		return "unknown"
	}
}
