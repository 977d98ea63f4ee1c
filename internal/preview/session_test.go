package preview

import (
	"errors"
	"testing"
	"time"

	"earworm/internal/domain"
	"earworm/internal/lexicon"
	"earworm/internal/pipeline"
)

func newSession(t *testing.T, words ...string) *Session {
	t.Helper()
	tokens := make([]domain.Token, 0, len(words))
	for i, word := range words {
		start := time.Duration(i) * 250 * time.Millisecond
		tokens = append(tokens, domain.Token{Text: word, Start: start, End: start + 200*time.Millisecond})
	}
	raw := domain.RawTranscript{Tokens: tokens}
	built, err := pipeline.New(lexicon.Default(), pipeline.DefaultOptions(), nil).Build(raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return New("session-1", raw, built, 10)
}

func TestEditUndoRedo(t *testing.T) {
	t.Parallel()

	s := newSession(t, "hello", "world")
	if s.Text() != "Hello world." {
		t.Fatalf("unexpected initial text: %q", s.Text())
	}
	if s.View().CanUndo {
		t.Fatal("fresh preview should have nothing to undo")
	}

	if err := s.Edit("Hello there."); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.Apply(domain.InsertText("Bye")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Text() != "Hello there. Bye" {
		t.Fatalf("unexpected text: %q", s.Text())
	}

	for _, want := range []string{"Hello there.", "Hello world."} {
		ok, err := s.Undo()
		if err != nil || !ok {
			t.Fatalf("undo: ok=%v err=%v", ok, err)
		}
		if s.Text() != want {
			t.Fatalf("expected %q after undo, got %q", want, s.Text())
		}
	}
	if ok, _ := s.Undo(); ok {
		t.Fatal("expected empty undo stack")
	}

	if err := s.Apply(domain.Directive(domain.ActionRedo)); err != nil {
		t.Fatalf("redo action: %v", err)
	}
	if s.Text() != "Hello there." {
		t.Fatalf("unexpected text after redo: %q", s.Text())
	}
	if !s.View().CanRedo || !s.View().CanUndo {
		t.Fatalf("unexpected view: %+v", s.View())
	}
}

func TestEditWithSameTextIsNotRecorded(t *testing.T) {
	t.Parallel()

	s := newSession(t, "same")
	if err := s.Edit(s.Text()); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if s.View().CanUndo {
		t.Fatal("unchanged edit should not be recorded")
	}
}

func TestUserActionDisarmsAutoAccept(t *testing.T) {
	t.Parallel()

	s := newSession(t, "hi")
	s.ArmAutoAccept(time.Now().Add(time.Second))
	if !s.AutoAcceptArmed() {
		t.Fatal("expected armed auto-accept")
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.AutoAcceptArmed() {
		t.Fatal("any user action should disarm auto-accept")
	}
}

func TestResolutionIsFinal(t *testing.T) {
	t.Parallel()

	s := newSession(t, "ship", "it")
	s.ArmAutoAccept(time.Now().Add(time.Second))

	text, err := s.Accept()
	if err != nil || text != "Ship it." {
		t.Fatalf("accept: %q %v", text, err)
	}
	if s.AutoAcceptArmed() {
		t.Fatal("resolution must disarm auto-accept")
	}
	if _, err := s.Accept(); !errors.Is(err, ErrResolved) {
		t.Fatalf("second accept: %v", err)
	}
	if err := s.Edit("late"); !errors.Is(err, ErrResolved) {
		t.Fatalf("late edit: %v", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrResolved) {
		t.Fatalf("late cancel: %v", err)
	}
	if s.Resolution() != Accepted || s.Text() != "Ship it." {
		t.Fatalf("accepted session changed: %s %q", s.Resolution(), s.Text())
	}
}

func TestCancelAndReRecordDiscardDocument(t *testing.T) {
	t.Parallel()

	cancelled := newSession(t, "secret")
	if err := cancelled.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Text() != "" || cancelled.Resolution() != Cancelled {
		t.Fatalf("cancel kept text %q", cancelled.Text())
	}

	again := newSession(t, "retry")
	if err := again.ReRecord(); err != nil {
		t.Fatalf("rerecord: %v", err)
	}
	if again.Text() != "" || again.Resolution() != ReRecord {
		t.Fatalf("rerecord kept text %q", again.Text())
	}
}

func TestCopyResolves(t *testing.T) {
	t.Parallel()

	s := newSession(t, "copy", "me")
	text, err := s.Copy()
	if err != nil || text != "Copy me." || s.Resolution() != Copied {
		t.Fatalf("copy: %q %v %s", text, err, s.Resolution())
	}
}
