package output

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/micmonay/keybd_event"
)

func TestCommitTypesLettersAndPastesPunctuation(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "previous"}
	keys := &fakeKeys{}
	c := newCommitter(Config{RestoreClipboard: true, PasteSettle: 1}, clip, keys, slog.New(slog.DiscardHandler))

	if err := c.Commit(context.Background(), "Hi, 2"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	want := []press{
		{key: keybd_event.VK_H, shift: true},
		{key: keybd_event.VK_I},
		{key: keybd_event.VK_V, ctrl: true},
		{key: keybd_event.VK_SPACE},
		{key: keybd_event.VK_2},
	}
	got := keys.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d presses, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("press %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if writes := clip.snapshot(); len(writes) != 2 || writes[0] != "," || writes[1] != "previous" {
		t.Fatalf("expected punctuation paste then restore, got %q", writes)
	}
}

func TestCommitPasteModeUsesShortcut(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{}
	keys := &fakeKeys{}
	c := newCommitter(Config{UseClipboard: true, PasteSettle: 1}, clip, keys, slog.New(slog.DiscardHandler))

	if err := c.Commit(context.Background(), "Hello there."); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	got := keys.snapshot()
	if len(got) != 1 || got[0] != (press{key: keybd_event.VK_V, ctrl: true}) {
		t.Fatalf("expected a single paste shortcut, got %+v", got)
	}
	if writes := clip.snapshot(); len(writes) != 1 || writes[0] != "Hello there." {
		t.Fatalf("clipboard restore must be opt-in, got %q", writes)
	}
}

func TestCommitPasteFailureFallsBackToTyping(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{writeErr: errors.New("no display")}
	keys := &fakeKeys{}
	c := newCommitter(Config{UseClipboard: true, PasteSettle: 1}, clip, keys, slog.New(slog.DiscardHandler))

	if err := c.Commit(context.Background(), "ok"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if got := keys.snapshot(); len(got) != 2 {
		t.Fatalf("expected two typed keys, got %+v", got)
	}
}

func TestCommitWithoutKeyboard(t *testing.T) {
	t.Parallel()

	c := newCommitter(Config{}, &fakeClipboard{}, nil, slog.New(slog.DiscardHandler))
	if err := c.Commit(context.Background(), "text"); !errors.Is(err, errNoKeyboard) {
		t.Fatalf("expected errNoKeyboard, got %v", err)
	}
	if err := c.Commit(context.Background(), ""); err != nil {
		t.Fatalf("empty commit is a no-op, got %v", err)
	}
}

func TestCommitKeyError(t *testing.T) {
	t.Parallel()

	keys := &fakeKeys{err: errors.New("uinput closed")}
	c := newCommitter(Config{}, &fakeClipboard{}, keys, slog.New(slog.DiscardHandler))
	if err := c.Commit(context.Background(), "a"); err == nil {
		t.Fatal("expected key error")
	}
}

func TestCommitHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCommitter(Config{TypingDelay: 1}, &fakeClipboard{}, &fakeKeys{}, slog.New(slog.DiscardHandler))
	if err := c.Commit(ctx, "abc"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSplitRuns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []run
	}{
		{in: "", want: nil},
		{in: "abc", want: []run{{text: "abc", typeable: true}}},
		{in: "?!", want: []run{{text: "?!"}}},
		{in: "Hi, you.", want: []run{
			{text: "Hi", typeable: true},
			{text: ","},
			{text: " you", typeable: true},
			{text: "."},
		}},
		{in: "café", want: []run{{text: "caf", typeable: true}, {text: "é"}}},
	}

	for _, tc := range tests {
		got := splitRuns(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("%q: expected %+v, got %+v", tc.in, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: run %d expected %+v, got %+v", tc.in, i, tc.want[i], got[i])
			}
		}
	}
}

func TestClipboardSetText(t *testing.T) {
	t.Parallel()

	fake := &fakeClipboard{}
	c := &Clipboard{access: fake}
	if err := c.SetText(context.Background(), "copied"); err != nil {
		t.Fatalf("set text failed: %v", err)
	}
	if writes := fake.snapshot(); len(writes) != 1 || writes[0] != "copied" {
		t.Fatalf("unexpected writes: %q", writes)
	}

	fake.writeErr = errors.New("denied")
	if err := c.SetText(context.Background(), "again"); err == nil {
		t.Fatal("expected write error")
	}
}

type press struct {
	key   int
	shift bool
	ctrl  bool
}

type fakeKeys struct {
	mu      sync.Mutex
	err     error
	presses []press
}

func (k *fakeKeys) Press(shift bool, ctrl bool, key int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	k.presses = append(k.presses, press{key: key, shift: shift, ctrl: ctrl})
	return nil
}

func (k *fakeKeys) snapshot() []press {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]press(nil), k.presses...)
}

type fakeClipboard struct {
	mu       sync.Mutex
	content  string
	writeErr error
	writes   []string
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.content = text
	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeClipboard) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}
