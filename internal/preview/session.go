package preview

import (
	"errors"
	"time"

	"earworm/internal/document"
	"earworm/internal/domain"
	"earworm/internal/pipeline"
	"earworm/internal/undo"
)

// ErrResolved is returned by every operation after the session has been decided.
var ErrResolved = errors.New("preview session already resolved")

// Resolution is the user's decision on a preview.
type Resolution uint8

const (
	Pending Resolution = iota
	Accepted
	Copied
	Cancelled
	ReRecord
)

func (r Resolution) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Copied:
		return "copied"
	case Cancelled:
		return "cancelled"
	case ReRecord:
		return "rerecord"
	default:
		return "pending"
	}
}

// Session owns the document and edit history of one preview. It is not safe
// for concurrent use; the coordinator's event loop is its only caller.
type Session struct {
	id         string
	raw        domain.RawTranscript
	doc        document.Document
	history    *undo.History[document.Document]
	actions    []domain.Action
	resolution Resolution
	autoAccept time.Time
}

// New starts a preview over a built document with a fresh history.
func New(id string, raw domain.RawTranscript, built pipeline.Result, historyCapacity int) *Session {
	return &Session{
		id:      id,
		raw:     raw,
		doc:     built.Document,
		history: undo.New[document.Document](historyCapacity),
		actions: append([]domain.Action(nil), built.Actions...),
	}
}

func (s *Session) ID() string { return s.id }

// ArmAutoAccept records when the auto-accept timer is due.
func (s *Session) ArmAutoAccept(at time.Time) {
	if s.resolution == Pending {
		s.autoAccept = at
	}
}

// AutoAcceptArmed reports whether an auto-accept may still fire.
func (s *Session) AutoAcceptArmed() bool {
	return s.resolution == Pending && !s.autoAccept.IsZero()
}

// Apply performs a structured edit. Undo and Redo are routed to the history.
func (s *Session) Apply(action domain.Action) error {
	if err := s.touch(); err != nil {
		return err
	}
	switch action.Kind {
	case domain.ActionUndo:
		s.doc, _ = s.history.Undo(s.doc)
	case domain.ActionRedo:
		s.doc, _ = s.history.Redo(s.doc)
	default:
		action = action.WithOrigin(domain.OriginManual)
		s.history.Record(s.doc)
		s.doc = s.doc.Apply(action)
	}
	s.actions = append(s.actions, action)
	return nil
}

// Edit replaces the text with what the user typed.
func (s *Session) Edit(text string) error {
	if err := s.touch(); err != nil {
		return err
	}
	if text == s.doc.Text() {
		return nil
	}
	s.history.Record(s.doc)
	s.doc = s.doc.WithText(text)
	return nil
}

// Undo reverts the last edit. It reports false when there was nothing to undo.
func (s *Session) Undo() (bool, error) {
	if err := s.touch(); err != nil {
		return false, err
	}
	var ok bool
	s.doc, ok = s.history.Undo(s.doc)
	return ok, nil
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() (bool, error) {
	if err := s.touch(); err != nil {
		return false, err
	}
	var ok bool
	s.doc, ok = s.history.Redo(s.doc)
	return ok, nil
}

// Accept resolves the session and returns the text to commit.
func (s *Session) Accept() (string, error) {
	return s.finish(Accepted)
}

// Copy resolves the session like Accept but the text goes to the clipboard only.
func (s *Session) Copy() (string, error) {
	return s.finish(Copied)
}

// Cancel resolves the session and discards the document.
func (s *Session) Cancel() error {
	_, err := s.finish(Cancelled)
	s.discard()
	return err
}

// ReRecord resolves the session so that a new recording can start. Nothing is carried over.
func (s *Session) ReRecord() error {
	_, err := s.finish(ReRecord)
	s.discard()
	return err
}

func (s *Session) finish(resolution Resolution) (string, error) {
	if s.resolution != Pending {
		return "", ErrResolved
	}
	s.resolution = resolution
	s.autoAccept = time.Time{}
	return s.doc.Text(), nil
}

func (s *Session) discard() {
	if s.resolution == Cancelled || s.resolution == ReRecord {
		s.doc = document.New()
		s.history = undo.New[document.Document](1)
	}
}

// touch rejects edits on resolved sessions and disarms the auto-accept.
func (s *Session) touch() error {
	if s.resolution != Pending {
		return ErrResolved
	}
	s.autoAccept = time.Time{}
	return nil
}

func (s *Session) Resolution() Resolution { return s.resolution }

func (s *Session) Text() string { return s.doc.Text() }

func (s *Session) Raw() domain.RawTranscript { return s.raw }

// Actions returns the pipeline log followed by the manual edits.
func (s *Session) Actions() []domain.Action {
	return append([]domain.Action(nil), s.actions...)
}

// View is the UI snapshot.
func (s *Session) View() domain.PreviewView {
	return domain.PreviewView{
		SessionID:    s.id,
		Text:         s.doc.Text(),
		RawText:      s.raw.Text(),
		CanUndo:      s.history.CanUndo(),
		CanRedo:      s.history.CanRedo(),
		AutoAcceptAt: s.autoAccept,
	}
}
