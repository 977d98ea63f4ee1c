package punctuation

import (
	"testing"
	"time"

	"earworm/internal/domain"
)

type timedSpan struct {
	action domain.Action
	gap    time.Duration
}

// spans lays spans out back to back, each 200ms long, separated by gap.
func spans(items ...timedSpan) []domain.Span {
	out := make([]domain.Span, 0, len(items))
	var cursor time.Duration
	for _, item := range items {
		cursor += item.gap
		out = append(out, domain.Span{Action: item.action, Start: cursor, End: cursor + 200*time.Millisecond, Tokens: 1})
		cursor += 200 * time.Millisecond
	}
	return out
}

func word(text string) timedSpan { return timedSpan{action: domain.InsertText(text), gap: 50 * time.Millisecond} }

func pausedWord(text string) timedSpan {
	return timedSpan{action: domain.InsertText(text), gap: time.Second}
}

func command(action domain.Action, gap time.Duration) timedSpan {
	return timedSpan{action: action, gap: gap}
}

func TestCapitalizesSentenceStarts(t *testing.T) {
	t.Parallel()

	engine := New(DefaultOptions())
	got := engine.Annotate(spans(
		word("hello"),
		word("there"),
		command(domain.InsertPunctuation(".", domain.AttachLeft), 0),
		word("how"),
		word("are"),
		command(domain.InsertBreak(domain.BreakLine), 0),
		word("next"),
		word("done."),
		word("after"),
	))

	want := map[int]bool{0: true, 3: true, 6: true, 8: true}
	for i, annotated := range got {
		if annotated.Hints.Capitalize != want[i] {
			t.Fatalf("span %d (%s): capitalize=%v", i, annotated.Span.Action, annotated.Hints.Capitalize)
		}
	}
}

func TestCapitalizesPronounI(t *testing.T) {
	t.Parallel()

	got := New(DefaultOptions()).Annotate(spans(word("yes"), word("i"), word("think"), word("i'm"), word("in")))
	for i, wantCap := range []bool{true, true, false, true, false} {
		if got[i].Hints.Capitalize != wantCap {
			t.Fatalf("span %d: capitalize=%v", i, got[i].Hints.Capitalize)
		}
	}
}

func TestLiteralConsumesCapitalization(t *testing.T) {
	t.Parallel()

	got := New(DefaultOptions()).Annotate(spans(
		command(domain.LiteralEscape("period"), 0),
		word("is"),
	))
	if got[0].Hints.Capitalize || got[1].Hints.Capitalize {
		t.Fatalf("unexpected capitalization: %+v", got)
	}
}

func TestPauseCommas(t *testing.T) {
	t.Parallel()

	engine := New(DefaultOptions())
	got := engine.Annotate(spans(
		word("first"),
		pausedWord("second"),
		word("third"),
		command(domain.InsertPunctuation(";", domain.AttachLeft), time.Second),
		pausedWord("fourth"),
		word("fifth,"),
		pausedWord("sixth"),
	))

	want := map[int]bool{1: true}
	for i, annotated := range got {
		if annotated.Hints.CommaBefore != want[i] {
			t.Fatalf("span %d (%s): comma=%v", i, annotated.Span.Action, annotated.Hints.CommaBefore)
		}
	}
}

func TestCommaThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.CommaPause = 2 * time.Second
	got := New(opts).Annotate(spans(word("first"), pausedWord("second")))
	if got[1].Hints.CommaBefore {
		t.Fatal("1s pause should not reach a 2s threshold")
	}

	opts = DefaultOptions()
	opts.AutoCommas = false
	got = New(opts).Annotate(spans(word("first"), pausedWord("second")))
	if got[1].Hints.CommaBefore {
		t.Fatal("commas disabled")
	}
}

func TestFillerRemoval(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.RemoveFillers = true
	engine := New(opts)

	got := engine.Annotate(spans(
		word("um"),
		word("i"),
		word("like"),
		word("cats"),
		pausedWord("like"),
		pausedWord("Uh,"),
		word("dogs"),
	))

	wantDrop := map[int]bool{0: true, 4: true, 5: true}
	for i, annotated := range got {
		if annotated.Hints.Drop != wantDrop[i] {
			t.Fatalf("span %d (%s): drop=%v", i, annotated.Span.Action, annotated.Hints.Drop)
		}
	}
	if !got[1].Hints.Capitalize {
		t.Fatal("first kept word should be capitalized")
	}

	alone := engine.Annotate(spans(word("like")))
	if !alone[0].Hints.Drop {
		t.Fatal("a lone like should be dropped")
	}

	off := New(DefaultOptions()).Annotate(spans(word("um"), word("ok")))
	if off[0].Hints.Drop {
		t.Fatal("fillers kept when removal is off")
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	engine := New(DefaultOptions())
	cases := map[string]string{
		"":                                "",
		"   ":                             "",
		"hello world":                     ".",
		"Where is it":                     "?",
		"Does it work":                    "?",
		"Fine. how about now":             "?",
		"Is it raining? it is":            ".",
		"First line\nwhat about the next": "?",
	}
	for text, want := range cases {
		if got := engine.Terminal(text); got != want {
			t.Fatalf("Terminal(%q) = %q, want %q", text, got, want)
		}
	}

	opts := DefaultOptions()
	opts.AutoQuestions = false
	if got := New(opts).Terminal("where is it"); got != "." {
		t.Fatalf("expected period without question detection, got %q", got)
	}
	opts.AutoPeriods = false
	if got := New(opts).Terminal("hello"); got != "" {
		t.Fatalf("expected no mark, got %q", got)
	}
}
