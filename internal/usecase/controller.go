package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"earworm/internal/domain"
	"earworm/internal/pipeline"
	"earworm/internal/ports"
	"earworm/internal/preview"
)

var (
	ErrNoActiveSession = errors.New("no active dictation session")
	ErrBusy            = errors.New("a dictation session is already in progress")
	ErrNotPreviewing   = errors.New("no preview is open")
	ErrClosed          = errors.New("session coordinator is closed")
)

const journalTimeout = 2 * time.Second

// BusyPolicy decides what a hotkey press does while a session is in progress.
type BusyPolicy string

const (
	BusyIgnore BusyPolicy = "ignore"
	BusyQueue  BusyPolicy = "queue"
)

// Config controls the session lifecycle. It is fixed at construction.
type Config struct {
	Audio             ports.AudioConfig
	ChunkSize         int
	Language          string
	MinRecording      time.Duration
	EnablePreview     bool
	AutoAcceptDelay   time.Duration
	BusyPolicy        BusyPolicy
	HistoryCapacity   int
	StopTimeout       time.Duration
	TranscribeTimeout time.Duration
	CommitTimeout     time.Duration
}

// TranscriptBuilder turns a raw transcript into a document.
type TranscriptBuilder interface {
	Build(raw domain.RawTranscript) (pipeline.Result, error)
}

// Dependencies are the collaborators of a SessionCoordinator. Journal is optional.
type Dependencies struct {
	Audio     ports.AudioCapture
	Engine    ports.SpeechEngine
	Builder   TranscriptBuilder
	Committer ports.Committer
	Clipboard ports.Clipboard
	Journal   ports.Journal
	Events    ports.EventSink
	Logger    *slog.Logger
	NewID     func() string
	Now       func() time.Time
}

// SessionCoordinator runs the push-to-talk state machine. All session state
// is owned by one goroutine; public methods send it requests and wait.
type SessionCoordinator struct {
	deps      Dependencies
	cfg       Config
	logger    *slog.Logger
	finalizer transcriptFinalizer

	inbox     chan any
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	state    domain.SessionState
	current  *session
	preview  *preview.Session
	timer    *time.Timer
	timerGen uint64
	queued   bool
	pending  string

	mu     sync.Mutex
	status domain.Status
	view   *domain.PreviewView
}

// NewSessionCoordinator starts the event loop. Call Close to stop it.
func NewSessionCoordinator(deps Dependencies, cfg Config) *SessionCoordinator {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.MinRecording < 0 {
		cfg.MinRecording = 0
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 3 * time.Second
	}
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 2 * time.Minute
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 30 * time.Second
	}
	if cfg.BusyPolicy != BusyQueue {
		cfg.BusyPolicy = BusyIgnore
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &SessionCoordinator{
		deps:      deps,
		cfg:       cfg,
		logger:    deps.Logger.With("component", "coordinator"),
		finalizer: newTranscriptFinalizer(deps.Committer, deps.Clipboard, deps.Events, deps.Logger),
		inbox:     make(chan any, 64),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     domain.SessionStateIdle,
		status:    domain.Status{State: domain.SessionStateIdle},
	}
	go c.run()
	return c
}

// HotkeyDown starts recording. It returns ErrBusy while another session is in
// progress unless the busy policy queued the press.
func (c *SessionCoordinator) HotkeyDown(ctx context.Context) error {
	return c.call(ctx, request{op: opHotkeyDown})
}

// HotkeyUp ends recording and starts transcription.
func (c *SessionCoordinator) HotkeyUp(ctx context.Context) error {
	return c.call(ctx, request{op: opHotkeyUp})
}

// Accept commits the previewed text.
func (c *SessionCoordinator) Accept(ctx context.Context) error {
	return c.call(ctx, request{op: opAccept})
}

// Copy puts the previewed text on the clipboard without typing it.
func (c *SessionCoordinator) Copy(ctx context.Context) error {
	return c.call(ctx, request{op: opCopy})
}

// Cancel discards the session while recording, transcribing, or previewing.
func (c *SessionCoordinator) Cancel(ctx context.Context) error {
	return c.call(ctx, request{op: opCancel})
}

// ReRecord discards the preview and starts a fresh recording.
func (c *SessionCoordinator) ReRecord(ctx context.Context) error {
	return c.call(ctx, request{op: opReRecord})
}

// Edit replaces the previewed text.
func (c *SessionCoordinator) Edit(ctx context.Context, text string) error {
	return c.call(ctx, request{op: opEdit, text: text})
}

// Apply performs a structured edit on the preview.
func (c *SessionCoordinator) Apply(ctx context.Context, action domain.Action) error {
	return c.call(ctx, request{op: opApply, action: action})
}

func (c *SessionCoordinator) Undo(ctx context.Context) error {
	return c.call(ctx, request{op: opUndo})
}

func (c *SessionCoordinator) Redo(ctx context.Context) error {
	return c.call(ctx, request{op: opRedo})
}

// Status returns the current backend status.
func (c *SessionCoordinator) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Preview returns the open preview, if any.
func (c *SessionCoordinator) Preview() (domain.PreviewView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return domain.PreviewView{}, false
	}
	return *c.view, true
}

// Close stops the event loop and tears down any live capture.
func (c *SessionCoordinator) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
}

func (c *SessionCoordinator) call(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case c.inbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// post delivers a message from a helper goroutine. It never blocks past Close.
func (c *SessionCoordinator) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.ctx.Done():
	}
}

func (c *SessionCoordinator) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return
		case msg := <-c.inbox:
			c.dispatch(msg)
		}
	}
}

func (c *SessionCoordinator) dispatch(msg any) {
	switch m := msg.(type) {
	case request:
		m.reply <- c.handleRequest(m)
	case transcribed:
		c.handleTranscribed(m)
	case timerFired:
		c.handleTimer(m)
	case delivered:
		c.handleDelivered(m)
	default:
		c.logger.Error("unknown loop message", "type", fmt.Sprintf("%T", msg))
	}
}

func (c *SessionCoordinator) handleRequest(req request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("request panicked", "op", req.op, "panic", r)
			err = fmt.Errorf("%s: internal error: %v", req.op, r)
		}
	}()

	switch req.op {
	case opHotkeyDown:
		return c.hotkeyDown()
	case opHotkeyUp:
		return c.hotkeyUp()
	case opAccept, opCopy:
		return c.acceptPreview(req.op == opCopy)
	case opCancel:
		return c.cancelSession()
	case opReRecord:
		return c.reRecord()
	case opEdit, opApply, opUndo, opRedo:
		return c.editPreview(req)
	default:
		return fmt.Errorf("unknown operation %d", req.op)
	}
}

func (c *SessionCoordinator) hotkeyDown() error {
	if c.state == domain.SessionStateIdle {
		return c.startRecording(domain.SessionReasonRecordingStarted)
	}
	if c.cfg.BusyPolicy == BusyQueue && c.state != domain.SessionStateRecording {
		c.queued = true
		c.logger.Info("hotkey press queued", "state", c.state)
		return nil
	}
	c.logger.Debug("hotkey press ignored", "state", c.state)
	return ErrBusy
}

func (c *SessionCoordinator) hotkeyUp() error {
	if c.state != domain.SessionStateRecording {
		if c.queued {
			c.queued = false
			c.logger.Info("queued hotkey press released before it could start")
		}
		return nil
	}

	s := c.current
	clip := c.finishCapture(s)
	if len(clip.PCM) == 0 || clip.Duration() < c.cfg.MinRecording {
		c.logger.Info("recording too short to transcribe", "session", s.id, "duration", clip.Duration())
		c.current = nil
		c.transition(domain.SessionStateIdle, domain.SessionReasonNoAudio)
		c.afterIdle()
		return nil
	}

	c.transition(domain.SessionStateTranscribing, domain.SessionReasonTranscribing)

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.TranscribeTimeout)
	s.transcribeCancel = cancel
	id := s.id
	go func() {
		defer cancel()
		raw, err := c.deps.Engine.Transcribe(ctx, clip, c.cfg.Language)
		c.post(transcribed{sessionID: id, raw: raw, err: err})
	}()
	return nil
}

func (c *SessionCoordinator) startRecording(reason domain.SessionStateReason) error {
	recCtx, cancel := context.WithCancel(c.ctx)
	audio, err := c.deps.Audio.Start(recCtx, c.cfg.Audio)
	if err != nil {
		cancel()
		c.logger.Error("audio capture failed to start", "error", err)
		c.deps.Events.SessionError(domain.ErrorCodeCapture, err.Error())
		return fmt.Errorf("start audio capture: %w", err)
	}

	rec := &recording{
		cancel:   cancel,
		audio:    audio,
		pcm:      &pcmBuffer{},
		pumpDone: make(chan struct{}),
	}
	c.current = &session{id: c.deps.NewID(), startedAt: c.deps.Now(), rec: rec}
	c.pending = ""

	go pumpAudioChunks(rec.audio, rec.pcm, c.cfg.ChunkSize, c.deps.Events, rec.pumpDone)

	c.logger.Info("recording started", "session", c.current.id)
	c.transition(domain.SessionStateRecording, reason)
	return nil
}

// finishCapture stops the microphone and returns everything it captured.
func (c *SessionCoordinator) finishCapture(s *session) domain.AudioClip {
	rec := s.rec
	s.rec = nil
	if rec == nil {
		return domain.AudioClip{}
	}
	if err := drainCapture(rec.audio, rec.pumpDone, c.cfg.StopTimeout); err != nil {
		c.logger.Warn("audio capture did not stop cleanly", "session", s.id, "error", err)
		c.deps.Events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	rec.cancel()
	_ = rec.audio.Close()
	return domain.AudioClip{
		PCM:        rec.pcm.Bytes(),
		SampleRate: c.cfg.Audio.SampleRate,
		Channels:   c.cfg.Audio.Channels,
	}
}

func (c *SessionCoordinator) handleTranscribed(msg transcribed) {
	s := c.current
	if s == nil || s.id != msg.sessionID || c.state != domain.SessionStateTranscribing {
		c.logger.Debug("dropping stale transcription", "session", msg.sessionID)
		return
	}
	s.transcribeCancel = nil

	if msg.err != nil || msg.raw.Empty() {
		reason := domain.SessionReasonTranscriptionFailed
		detail := "transcription failed"
		if msg.err == nil || errors.Is(msg.err, ports.ErrEmptyTranscript) {
			reason = domain.SessionReasonNoTranscript
			detail = "engine returned no text"
		} else {
			detail = msg.err.Error()
		}
		c.logger.Warn("transcription failed", "session", s.id, "detail", detail)
		c.deps.Events.SessionError(domain.ErrorCodeTranscription, detail)
		c.terminate(domain.SessionStateFailed, reason, domain.OutcomeFailed, detail)
		return
	}
	s.raw = msg.raw

	built, err := c.deps.Builder.Build(msg.raw)
	if err != nil {
		c.logger.Warn("transcript pipeline failed", "session", s.id, "error", err)
		c.deps.Events.SessionError(domain.ErrorCodeRules, err.Error())
		c.terminate(domain.SessionStateFailed, domain.SessionReasonRulesFailed, domain.OutcomeFailed, err.Error())
		return
	}
	s.actions = pipeline.Describe(built.Actions)

	if built.Document.Empty() {
		detail := "nothing left to type after processing"
		c.deps.Events.SessionError(domain.ErrorCodeTranscription, detail)
		c.terminate(domain.SessionStateFailed, domain.SessionReasonNoTranscript, domain.OutcomeFailed, detail)
		return
	}

	if !c.cfg.EnablePreview {
		c.accept(built.Document.Text(), domain.SessionReasonPreviewSkipped, domain.OutcomeAccepted, deliverTyped)
		return
	}

	c.preview = preview.New(s.id, msg.raw, built, c.cfg.HistoryCapacity)
	if c.cfg.AutoAcceptDelay > 0 {
		c.armTimer(s.id)
	}
	c.publishPreview()
	c.transition(domain.SessionStatePreviewing, domain.SessionReasonPreviewReady)
}

func (c *SessionCoordinator) acceptPreview(copyOnly bool) error {
	if c.state != domain.SessionStatePreviewing {
		return ErrNotPreviewing
	}

	var (
		text string
		err  error
	)
	if copyOnly {
		text, err = c.preview.Copy()
	} else {
		text, err = c.preview.Accept()
	}
	if err != nil {
		return err
	}
	c.stopTimer()

	if copyOnly {
		c.accept(text, domain.SessionReasonTranscriptCopied, domain.OutcomeCopied, deliverClipboard)
	} else {
		c.accept(text, domain.SessionReasonPreviewAccepted, domain.OutcomeAccepted, deliverTyped)
	}
	return nil
}

// accept enters Accepted and delivers text off the loop. The session stays
// Accepted until the delivered message comes back.
func (c *SessionCoordinator) accept(text string, reason domain.SessionStateReason, outcome domain.Outcome, mode deliveryMode) {
	s := c.current
	s.finalText = text
	c.setView(nil)
	c.transition(domain.SessionStateAccepted, reason)

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CommitTimeout)
	id := s.id
	go func() {
		defer cancel()
		result := c.finalizer.Finalize(ctx, text, mode)
		c.post(delivered{sessionID: id, text: text, outcome: outcome, result: result})
	}()
}

func (c *SessionCoordinator) handleDelivered(msg delivered) {
	s := c.current
	if s == nil || s.id != msg.sessionID || c.state != domain.SessionStateAccepted {
		c.logger.Debug("dropping stale delivery", "session", msg.sessionID)
		return
	}

	outcome, detail := msg.outcome, ""
	if msg.result.err != nil {
		outcome = domain.OutcomeCommitFailed
		detail = msg.result.err.Error()
		c.pending = msg.result.pending
	} else {
		c.deps.Events.FinalTranscript(s.raw.Text(), msg.text)
	}
	c.logger.Info("session resolved", "session", s.id, "outcome", outcome)

	c.record(outcome, detail)
	c.current = nil
	c.preview = nil
	c.transition(domain.SessionStateIdle, msg.result.reason)
	c.afterIdle()
}

func (c *SessionCoordinator) cancelSession() error {
	switch c.state {
	case domain.SessionStateRecording:
		c.finishCapture(c.current)
		c.terminate(domain.SessionStateCancelled, domain.SessionReasonRecordingDiscarded, domain.OutcomeCancelled, "")
	case domain.SessionStateTranscribing:
		if c.current.transcribeCancel != nil {
			c.current.transcribeCancel()
		}
		c.terminate(domain.SessionStateCancelled, domain.SessionReasonTranscriptionCancel, domain.OutcomeCancelled, "")
	case domain.SessionStatePreviewing:
		if err := c.preview.Cancel(); err != nil {
			return err
		}
		c.stopTimer()
		c.terminate(domain.SessionStateCancelled, domain.SessionReasonPreviewCancelled, domain.OutcomeCancelled, "")
	case domain.SessionStateIdle:
		return ErrNoActiveSession
	default:
		return ErrNotPreviewing
	}
	return nil
}

func (c *SessionCoordinator) reRecord() error {
	if c.state != domain.SessionStatePreviewing {
		return ErrNotPreviewing
	}
	if err := c.preview.ReRecord(); err != nil {
		return err
	}
	c.stopTimer()

	c.setView(nil)
	c.transition(domain.SessionStateReRecording, domain.SessionReasonReRecordRequested)
	c.record(domain.OutcomeReRecorded, "")
	c.current = nil
	c.preview = nil

	if err := c.startRecording(domain.SessionReasonRecordingRestarted); err != nil {
		c.transition(domain.SessionStateIdle, domain.SessionReasonCaptureFailed)
		c.afterIdle()
		return err
	}
	return nil
}

func (c *SessionCoordinator) editPreview(req request) error {
	if c.state != domain.SessionStatePreviewing {
		return ErrNotPreviewing
	}

	var err error
	switch req.op {
	case opEdit:
		err = c.preview.Edit(req.text)
	case opApply:
		if !req.action.Kind.Valid() {
			return fmt.Errorf("unknown action kind %d", req.action.Kind)
		}
		err = c.preview.Apply(req.action)
	case opUndo:
		_, err = c.preview.Undo()
	case opRedo:
		_, err = c.preview.Redo()
	}
	if err != nil {
		return err
	}

	c.stopTimer()
	c.publishPreview()
	return nil
}

func (c *SessionCoordinator) armTimer(sessionID string) {
	c.timerGen++
	gen := c.timerGen
	c.preview.ArmAutoAccept(c.deps.Now().Add(c.cfg.AutoAcceptDelay))
	c.timer = time.AfterFunc(c.cfg.AutoAcceptDelay, func() {
		c.post(timerFired{sessionID: sessionID, gen: gen})
	})
}

// stopTimer cancels the auto-accept. Bumping the generation also invalidates
// a firing that is already queued in the inbox.
func (c *SessionCoordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *SessionCoordinator) handleTimer(msg timerFired) {
	if c.state != domain.SessionStatePreviewing ||
		c.current == nil || c.current.id != msg.sessionID ||
		msg.gen != c.timerGen || !c.preview.AutoAcceptArmed() {
		c.logger.Debug("dropping stale auto-accept", "session", msg.sessionID)
		return
	}

	text, err := c.preview.Accept()
	if err != nil {
		c.logger.Warn("auto-accept failed", "error", err)
		return
	}
	c.timer = nil
	c.accept(text, domain.SessionReasonAutoAccepted, domain.OutcomeAutoAccepted, deliverTyped)
}

// terminate moves through a terminal state back to Idle.
func (c *SessionCoordinator) terminate(state domain.SessionState, reason domain.SessionStateReason, outcome domain.Outcome, detail string) {
	c.setView(nil)
	c.transition(state, reason)
	c.record(outcome, detail)
	c.current = nil
	c.preview = nil
	c.transition(domain.SessionStateIdle, reason)
	c.afterIdle()
}

// afterIdle honours a press queued while the machine was busy.
func (c *SessionCoordinator) afterIdle() {
	if !c.queued {
		return
	}
	c.queued = false
	if err := c.startRecording(domain.SessionReasonRecordingStarted); err != nil {
		c.logger.Warn("queued recording could not start", "error", err)
	}
}

func (c *SessionCoordinator) record(outcome domain.Outcome, detail string) {
	s := c.current
	if c.deps.Journal == nil || s == nil {
		return
	}

	entry := domain.JournalEntry{
		SessionID:  s.id,
		StartedAt:  s.startedAt,
		ResolvedAt: c.deps.Now(),
		Outcome:    outcome,
		RawText:    s.raw.Text(),
		FinalText:  s.finalText,
		Actions:    s.actions,
		Detail:     detail,
	}
	if c.preview != nil {
		entry.Actions = pipeline.Describe(c.preview.Actions())
	}

	ctx, cancel := context.WithTimeout(c.ctx, journalTimeout)
	defer cancel()
	if err := c.deps.Journal.Record(ctx, entry); err != nil {
		c.logger.Warn("journal write failed", "session", s.id, "error", err)
		c.deps.Events.SessionError(domain.ErrorCodeJournal, "failed to record session history")
	}
}

func (c *SessionCoordinator) transition(state domain.SessionState, reason domain.SessionStateReason) {
	c.state = state
	status := domain.Status{
		State:       state,
		Active:      state != domain.SessionStateIdle,
		PendingText: c.pending,
		Message:     string(reason),
	}
	if c.current != nil {
		status.SessionID = c.current.id
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	c.logger.Debug("session state changed", "state", state, "reason", reason, "session", status.SessionID)
	c.deps.Events.SessionStateChanged(state, reason)
}

func (c *SessionCoordinator) publishPreview() {
	view := c.preview.View()
	c.setView(&view)
	c.deps.Events.PreviewChanged(view)
}

func (c *SessionCoordinator) setView(view *domain.PreviewView) {
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
}

func (c *SessionCoordinator) shutdown() {
	c.stopTimer()
	if s := c.current; s != nil {
		if s.rec != nil {
			c.finishCapture(s)
		}
		if s.transcribeCancel != nil {
			s.transcribeCancel()
		}
	}
	c.current = nil
	c.preview = nil
}
