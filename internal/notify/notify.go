// Package notify fans session events out to several sinks and raises desktop
// notifications for the ones a user should not miss.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"earworm/internal/domain"
	"earworm/internal/ports"
)

const title = "Earworm"

// Fanout forwards every event to each sink in order.
type Fanout []ports.EventSink

func (f Fanout) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	for _, sink := range f {
		sink.SessionStateChanged(state, reason)
	}
}

func (f Fanout) PreviewChanged(view domain.PreviewView) {
	for _, sink := range f {
		sink.PreviewChanged(view)
	}
}

func (f Fanout) FinalTranscript(raw string, final string) {
	for _, sink := range f {
		sink.FinalTranscript(raw, final)
	}
}

func (f Fanout) SessionError(code domain.ErrorCode, detail string) {
	for _, sink := range f {
		sink.SessionError(code, detail)
	}
}

// Desktop is an EventSink that shows desktop notifications.
type Desktop struct {
	notify func(title string, message string) error
	logger *slog.Logger
}

func NewDesktop(logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Desktop{
		notify: func(title string, message string) error { return beeep.Notify(title, message, "") },
		logger: logger.With("component", "notify"),
	}
}

func (d *Desktop) SessionStateChanged(_ domain.SessionState, reason domain.SessionStateReason) {
	switch reason {
	case domain.SessionReasonTranscriptCopied:
		d.send("Transcript copied to clipboard")
	case domain.SessionReasonCommitFailed:
		d.send("Could not type the transcript; it is on the clipboard")
	case domain.SessionReasonNoTranscript:
		d.send("Nothing was recognized")
	}
}

func (d *Desktop) PreviewChanged(domain.PreviewView) {}

func (d *Desktop) FinalTranscript(string, string) {}

func (d *Desktop) SessionError(code domain.ErrorCode, detail string) {
	switch code {
	case domain.ErrorCodeCommit, domain.ErrorCodeClipboard:
		// Reported through the commit_failed transition.
		return
	}
	if detail == "" {
		d.send(fmt.Sprintf("%s error", code))
		return
	}
	d.send(fmt.Sprintf("%s error: %s", code, detail))
}

func (d *Desktop) send(message string) {
	if err := d.notify(title, message); err != nil {
		d.logger.Debug("notification failed", "error", err)
	}
}
