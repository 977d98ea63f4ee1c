package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"earworm/internal/bootstrap"
	"earworm/internal/config"
	"earworm/internal/domain"
	"earworm/internal/logging"
	"earworm/internal/ports"
	"earworm/internal/usecase"
)

const (
	eventSession = "earworm:session"
	eventPreview = "earworm:preview"
	eventFinal   = "earworm:final"
	eventError   = "earworm:error"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	services *bootstrap.Services
	cfg      config.Config
	bootErr  error
}

func NewApp() *App {
	return &App{logger: slog.New(slog.DiscardHandler)}
}

func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	cfg, err := config.Load("")
	if err != nil {
		a.fail(err)
		return
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log, os.Stderr)

	services, err := bootstrap.Build(cfg, bootstrap.Options{
		Logger:    a.logger,
		Events:    []ports.EventSink{a},
		Clipboard: &wailsClipboard{app: a},
	})
	if err != nil {
		a.fail(err)
		return
	}
	a.services = services

	go func() {
		if err := services.Control.ListenAndServe(a.ctx, cfg.Control.Listen); err != nil {
			a.logger.Warn("control server stopped", "error", err)
		}
	}()
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
}

func (a *App) fail(err error) {
	a.bootErr = err
	a.SessionError(domain.ErrorCodeStartup, err.Error())
}

// PTTDown is sent by the frontend when the push-to-talk key goes down.
func (a *App) PTTDown() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.HotkeyDown(a.ctx) })
}

// PTTUp is sent when the push-to-talk key is released.
func (a *App) PTTUp() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.HotkeyUp(a.ctx) })
}

// Accept types the previewed text into the focused application.
func (a *App) Accept() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.Accept(a.ctx) })
}

// Copy puts the previewed text on the clipboard without typing it.
func (a *App) Copy() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.Copy(a.ctx) })
}

// Cancel discards the recording, the pending transcription, or the preview.
func (a *App) Cancel() error {
	_, err := a.do(func(c *usecase.SessionCoordinator) error { return c.Cancel(a.ctx) })
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return nil
	}
	return err
}

func (a *App) ReRecord() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.ReRecord(a.ctx) })
}

// Edit replaces the preview text; the change can be undone.
func (a *App) Edit(text string) (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.Edit(a.ctx, text) })
}

func (a *App) Undo() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.Undo(a.ctx) })
}

func (a *App) Redo() (domain.Status, error) {
	return a.do(func(c *usecase.SessionCoordinator) error { return c.Redo(a.ctx) })
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateFailed, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.services.Coordinator.Status()
}

// GetPreview returns the open preview, or nil.
func (a *App) GetPreview() *domain.PreviewView {
	if a.services == nil {
		return nil
	}
	view, ok := a.services.Coordinator.Preview()
	if !ok {
		return nil
	}
	return &view
}

// GetHistory returns the most recent resolved sessions.
func (a *App) GetHistory(limit int) ([]domain.JournalEntry, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if a.services.Journal == nil {
		return nil, nil
	}
	return a.services.Journal.List(a.ctx, limit)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"engine":           a.cfg.Engine.URL,
		"model":            a.cfg.Engine.Model,
		"language":         a.cfg.Dictation.Language,
		"rulesFile":        a.cfg.Rules.Path,
		"audioSource":      a.cfg.Audio.Source,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"controlAddress":   a.cfg.Control.Listen,
	}
}

func (a *App) do(op func(c *usecase.SessionCoordinator) error) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := op(a.services.Coordinator); err != nil {
		return a.services.Coordinator.Status(), err
	}
	return a.services.Coordinator.Status(), nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// PreviewChanged emits the editable preview.
func (a *App) PreviewChanged(view domain.PreviewView) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPreview, view)
}

// FinalTranscript emits the text that was delivered.
func (a *App) FinalTranscript(raw string, final string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFinal, map[string]string{
		"raw":   raw,
		"final": final,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous draft discarded"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonNoAudio:
		return "Recording too short"
	case domain.SessionReasonPreviewReady:
		return "Review the transcript"
	case domain.SessionReasonPreviewAccepted, domain.SessionReasonPreviewSkipped, domain.SessionReasonAutoAccepted:
		return "Typing..."
	case domain.SessionReasonTranscriptCommitted:
		return "Transcript typed"
	case domain.SessionReasonTranscriptCopied:
		return "Transcript copied to clipboard"
	case domain.SessionReasonCommitFailed:
		return "Typing failed; transcript is on the clipboard"
	case domain.SessionReasonPreviewCancelled, domain.SessionReasonRecordingDiscarded, domain.SessionReasonTranscriptionCancel:
		return "Discarded"
	case domain.SessionReasonReRecordRequested:
		return "Re-recording"
	case domain.SessionReasonNoTranscript:
		return "No transcript captured"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonRulesFailed:
		return "Rules processing failed"
	case domain.SessionReasonCaptureFailed:
		return "Microphone unavailable"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Microphone error"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeCommit:
		return "Typing failed"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeJournal:
		return "History not saved"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// wailsClipboard writes through the Wails runtime, which only accepts the
// application context.
type wailsClipboard struct {
	app *App
}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return runtime.ClipboardSetText(c.app.ctx, text)
}
