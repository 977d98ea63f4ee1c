package domain

import (
	"strings"
	"time"
)

// SessionState models the push-to-talk lifecycle.
type SessionState string

const (
	SessionStateIdle         SessionState = "idle"
	SessionStateRecording    SessionState = "recording"
	SessionStateTranscribing SessionState = "transcribing"
	SessionStatePreviewing   SessionState = "previewing"
	SessionStateAccepted     SessionState = "accepted"
	SessionStateCancelled    SessionState = "cancelled"
	SessionStateReRecording  SessionState = "rerecording"
	SessionStateFailed       SessionState = "failed"
)

// Terminal reports whether the state resolves a session.
func (s SessionState) Terminal() bool {
	switch s {
	case SessionStateAccepted, SessionStateCancelled, SessionStateReRecording, SessionStateFailed:
		return true
	default:
		return false
	}
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted  SessionStateReason = "recording_restarted"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonNoAudio             SessionStateReason = "no_audio"
	SessionReasonPreviewReady        SessionStateReason = "preview_ready"
	SessionReasonPreviewAccepted     SessionStateReason = "preview_accepted"
	SessionReasonPreviewSkipped      SessionStateReason = "preview_skipped"
	SessionReasonTranscriptCommitted SessionStateReason = "transcript_committed"
	SessionReasonTranscriptCopied    SessionStateReason = "transcript_copied"
	SessionReasonCommitFailed        SessionStateReason = "commit_failed"
	SessionReasonAutoAccepted        SessionStateReason = "auto_accepted"
	SessionReasonPreviewCancelled    SessionStateReason = "preview_cancelled"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonTranscriptionCancel SessionStateReason = "transcription_cancelled"
	SessionReasonReRecordRequested   SessionStateReason = "rerecord_requested"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonRulesFailed         SessionStateReason = "rules_failed"
	SessionReasonCaptureFailed       SessionStateReason = "capture_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeCapture       ErrorCode = "capture"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeAudioStream   ErrorCode = "audio_stream"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeRules         ErrorCode = "rules"
	ErrorCodeCommit        ErrorCode = "commit"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodeJournal       ErrorCode = "journal"
)

// Outcome is how a session was resolved.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeAutoAccepted Outcome = "auto_accepted"
	OutcomeCopied       Outcome = "copied"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeReRecorded   Outcome = "rerecorded"
	OutcomeFailed       Outcome = "failed"
	OutcomeCommitFailed Outcome = "commit_failed"
)

// Token is one recognized spoken unit.
type Token struct {
	Text       string        `json:"text"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Confidence float64       `json:"confidence"`
}

// RawTranscript is the engine output for one recording. It is never mutated after creation.
type RawTranscript struct {
	Tokens   []Token `json:"tokens"`
	Language string  `json:"language,omitempty"`
}

// Text joins the token texts with single spaces.
func (t RawTranscript) Text() string {
	parts := make([]string, 0, len(t.Tokens))
	for _, token := range t.Tokens {
		if text := strings.TrimSpace(token.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the transcript has no usable tokens.
func (t RawTranscript) Empty() bool {
	return t.Text() == ""
}

// AudioClip is the PCM buffer captured for one recording (signed 16-bit little endian).
type AudioClip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration returns the playback length of the clip.
func (c AudioClip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.PCM) / (2 * c.Channels)
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// PreviewView is the UI-facing snapshot of an active preview.
type PreviewView struct {
	SessionID    string    `json:"sessionId"`
	Text         string    `json:"text"`
	RawText      string    `json:"rawText"`
	CanUndo      bool      `json:"canUndo"`
	CanRedo      bool      `json:"canRedo"`
	AutoAcceptAt time.Time `json:"autoAcceptAt,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	State       SessionState `json:"state"`
	Active      bool         `json:"active"`
	SessionID   string       `json:"sessionId,omitempty"`
	PendingText string       `json:"pendingText,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// JournalEntry records how one session was resolved.
type JournalEntry struct {
	SessionID  string    `json:"sessionId"`
	StartedAt  time.Time `json:"startedAt"`
	ResolvedAt time.Time `json:"resolvedAt"`
	Outcome    Outcome   `json:"outcome"`
	RawText    string    `json:"rawText"`
	FinalText  string    `json:"finalText"`
	Actions    []string  `json:"actions,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}
