package usecase

import (
	"context"
	"log/slog"

	"earworm/internal/domain"
	"earworm/internal/ports"
)

type deliveryMode uint8

const (
	deliverTyped deliveryMode = iota
	deliverClipboard
)

// delivery is what happened to accepted text.
type delivery struct {
	reason  domain.SessionStateReason
	pending string
	err     error
}

type transcriptFinalizer struct {
	committer ports.Committer
	clipboard ports.Clipboard
	events    ports.EventSink
	logger    *slog.Logger
}

func newTranscriptFinalizer(committer ports.Committer, clipboard ports.Clipboard, events ports.EventSink, logger *slog.Logger) transcriptFinalizer {
	return transcriptFinalizer{committer: committer, clipboard: clipboard, events: events, logger: logger}
}

// Finalize hands text to the focused application, or only to the clipboard.
// A failed commit falls back to the clipboard and keeps the text pending so
// that it is never silently lost.
func (f transcriptFinalizer) Finalize(ctx context.Context, text string, mode deliveryMode) delivery {
	if mode == deliverClipboard {
		if err := f.clipboard.SetText(ctx, text); err != nil {
			f.logger.Warn("clipboard write failed", "error", err)
			f.events.SessionError(domain.ErrorCodeClipboard, "transcript ready but clipboard write failed")
			return delivery{reason: domain.SessionReasonCommitFailed, pending: text, err: err}
		}
		return delivery{reason: domain.SessionReasonTranscriptCopied}
	}

	err := f.committer.Commit(ctx, text)
	if err == nil {
		return delivery{reason: domain.SessionReasonTranscriptCommitted}
	}

	f.logger.Warn("commit failed", "error", err)
	detail := "typing was rejected; the text is kept for copying"
	if clipErr := f.clipboard.SetText(ctx, text); clipErr == nil {
		detail = "typing was rejected; the text was copied to the clipboard"
	} else {
		f.logger.Warn("clipboard fallback failed", "error", clipErr)
	}
	f.events.SessionError(domain.ErrorCodeCommit, detail)
	return delivery{reason: domain.SessionReasonCommitFailed, pending: text, err: err}
}
