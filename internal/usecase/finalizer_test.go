package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"earworm/internal/domain"
)

func TestTranscriptFinalizerTypedSuccess(t *testing.T) {
	t.Parallel()

	committer := &fakeCommitter{}
	clipboard := &fakeClipboard{}
	f := newTranscriptFinalizer(committer, clipboard, &fakeEventSink{}, slog.New(slog.DiscardHandler))

	result := f.Finalize(context.Background(), "final", deliverTyped)
	if result.err != nil || result.reason != domain.SessionReasonTranscriptCommitted || result.pending != "" {
		t.Fatalf("unexpected delivery: %+v", result)
	}
	if clipboard.last() != "" {
		t.Fatal("successful commit must not touch the clipboard")
	}
}

func TestTranscriptFinalizerCommitFallsBackToClipboard(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	clipboard := &fakeClipboard{}
	f := newTranscriptFinalizer(&fakeCommitter{err: errors.New("denied")}, clipboard, events, slog.New(slog.DiscardHandler))

	result := f.Finalize(context.Background(), "final", deliverTyped)
	if result.err == nil || result.reason != domain.SessionReasonCommitFailed || result.pending != "final" {
		t.Fatalf("unexpected delivery: %+v", result)
	}
	if clipboard.last() != "final" {
		t.Fatalf("expected clipboard fallback, got %q", clipboard.last())
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeCommit {
		t.Fatalf("expected commit error event, got %+v", errs)
	}
}

func TestTranscriptFinalizerClipboardFailure(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newTranscriptFinalizer(&fakeCommitter{}, &fakeClipboard{err: errors.New("clipboard")}, events, slog.New(slog.DiscardHandler))

	result := f.Finalize(context.Background(), "final", deliverClipboard)
	if result.err == nil || result.reason != domain.SessionReasonCommitFailed || result.pending != "final" {
		t.Fatalf("unexpected delivery: %+v", result)
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeClipboard {
		t.Fatalf("expected clipboard error event, got %+v", errs)
	}
}
