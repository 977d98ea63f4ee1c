package lexicon

import (
	"strings"
	"testing"
	"time"

	"earworm/internal/domain"
)

func tokens(words ...string) []domain.Token {
	out := make([]domain.Token, 0, len(words))
	for i, word := range words {
		start := time.Duration(i) * 300 * time.Millisecond
		out = append(out, domain.Token{Text: word, Start: start, End: start + 250*time.Millisecond, Confidence: 0.9})
	}
	return out
}

func actions(spans []domain.Span) []domain.Action {
	out := make([]domain.Action, 0, len(spans))
	for _, span := range spans {
		out = append(out, span.Action)
	}
	return out
}

func TestResolvePunctuationSynonymsShareSymbol(t *testing.T) {
	t.Parallel()

	lex := Default()
	for _, phrase := range []string{"period", "full stop", "Full Stop", "PERIOD."} {
		spans := lex.Resolve(tokens(strings.Fields(phrase)...))
		if len(spans) != 1 {
			t.Fatalf("%q: expected one span, got %v", phrase, actions(spans))
		}
		got := spans[0].Action
		if got.Kind != domain.ActionInsertPunctuation || got.Symbol != "." {
			t.Fatalf("%q: expected period, got %s", phrase, got)
		}
	}
}

func TestResolveIsStableOnCanonicalSymbols(t *testing.T) {
	t.Parallel()

	lex := Default()
	for _, entry := range DefaultEntries() {
		if entry.Action.Kind != domain.ActionInsertPunctuation || strings.TrimSpace(entry.Action.Symbol) == "" {
			continue
		}
		for _, phrase := range entry.Phrases {
			first := lex.Resolve(tokens(strings.Fields(phrase)...))
			if len(first) != 1 {
				t.Fatalf("%q resolved to %v", phrase, actions(first))
			}
			again := lex.Resolve(tokens(first[0].Action.Symbol))
			if len(again) != 1 || again[0].Action.Symbol != first[0].Action.Symbol {
				t.Fatalf("%q: symbol %q re-resolved to %v", phrase, first[0].Action.Symbol, actions(again))
			}
		}
	}
}

func TestResolveLongestMatchWins(t *testing.T) {
	t.Parallel()

	lex := Default()
	spans := lex.Resolve(tokens("new", "paragraph", "new", "idea", "new", "line"))
	got := actions(spans)
	want := []domain.Action{
		domain.InsertBreak(domain.BreakParagraph),
		domain.InsertText("new"),
		domain.InsertText("idea"),
		domain.InsertBreak(domain.BreakLine),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("span %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if spans[0].Tokens != 2 || spans[0].Start != 0 || spans[0].End != 550*time.Millisecond {
		t.Fatalf("unexpected span bounds: %+v", spans[0])
	}
}

func TestResolveLiteralEscape(t *testing.T) {
	t.Parallel()

	lex := Default()
	cases := []struct {
		name  string
		words []string
		want  []domain.Action
	}{
		{
			name:  "single word command",
			words: []string{"literal", "period"},
			want:  []domain.Action{domain.LiteralEscape("period")},
		},
		{
			name:  "multi word command",
			words: []string{"literal", "new", "paragraph", "comma"},
			want: []domain.Action{
				domain.LiteralEscape("new paragraph"),
				domain.InsertPunctuation(",", domain.AttachLeft),
			},
		},
		{
			name:  "escaped escape word",
			words: []string{"literal", "literal", "period"},
			want: []domain.Action{
				domain.LiteralEscape("literal"),
				domain.InsertPunctuation(".", domain.AttachLeft),
			},
		},
		{
			name:  "plain word",
			words: []string{"literal", "banana", "comma"},
			want: []domain.Action{
				domain.LiteralEscape("banana"),
				domain.InsertPunctuation(",", domain.AttachLeft),
			},
		},
		{
			name:  "trailing escape word",
			words: []string{"hello", "literal"},
			want:  []domain.Action{domain.InsertText("hello"), domain.InsertText("literal")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := actions(lex.Resolve(tokens(tc.words...)))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("span %d: expected %s, got %s", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestResolveSplitsMultiWordTokens(t *testing.T) {
	t.Parallel()

	lex := Default()
	spans := lex.Resolve([]domain.Token{{Text: " hello comma world ", Start: 0, End: 900 * time.Millisecond}})
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %v", actions(spans))
	}
	if spans[1].Action.Symbol != "," || spans[1].Start != 300*time.Millisecond || spans[1].End != 600*time.Millisecond {
		t.Fatalf("unexpected middle span: %+v", spans[1])
	}
}

func TestDefaultTableCoversEveryPhraseKind(t *testing.T) {
	t.Parallel()

	bound := make(map[domain.ActionKind]bool)
	for _, entry := range DefaultEntries() {
		bound[entry.Action.Kind] = true
	}
	for _, kind := range domain.ActionKinds() {
		switch kind {
		case domain.ActionInsertText, domain.ActionLiteralEscape:
			continue
		}
		if !bound[kind] {
			t.Fatalf("no default phrase for %s", kind)
		}
	}
}

func TestNewRejectsDuplicatePhrases(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Phrases: []string{"stop"}, Action: domain.InsertPunctuation(".", domain.AttachLeft)},
		{Phrases: []string{"Stop"}, Action: domain.Directive(domain.ActionDeleteAll)},
	}
	if _, err := New(entries, nil); err == nil {
		t.Fatal("expected duplicate phrase error")
	}
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	lex, err := New(DefaultEntries(), []Override{
		{Phrase: "smiley face", Value: ":)"},
		{Phrase: "next line", Action: "insert_break", Value: "line"},
		{Phrase: "star", Action: "disabled"},
	})
	if err != nil {
		t.Fatalf("new lexicon: %v", err)
	}

	got := actions(lex.Resolve(tokens("smiley", "face", "star", "next", "line")))
	want := []domain.Action{
		domain.InsertText(":)"),
		domain.InsertText("star"),
		domain.InsertBreak(domain.BreakLine),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("span %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	for _, bad := range []Override{
		{Phrase: "", Value: "x"},
		{Phrase: "literal", Value: "x"},
		{Phrase: "zap", Action: "explode"},
		{Phrase: "zap", Action: "insert_break", Value: "page"},
	} {
		if _, err := New(DefaultEntries(), []Override{bad}); err == nil {
			t.Fatalf("expected error for override %+v", bad)
		}
	}
}

func TestPunctuationOverrideSpacing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		override Override
		want     domain.Attach
	}{
		{override: Override{Phrase: "open guillemet", Action: "insert_punctuation", Value: "«"}, want: domain.AttachRight},
		{override: Override{Phrase: "close guillemet", Action: "insert_punctuation", Value: "»"}, want: domain.AttachLeft},
		{override: Override{Phrase: "left round", Action: "insert_punctuation", Value: "("}, want: domain.AttachRight},
		{override: Override{Phrase: "stroke", Action: "insert_punctuation", Value: "/"}, want: domain.AttachBoth},
		{override: Override{Phrase: "arrow", Action: "insert_punctuation", Value: "->", Attach: "None"}, want: domain.AttachNone},
	}
	for _, tc := range tests {
		lex, err := New(DefaultEntries(), []Override{tc.override})
		if err != nil {
			t.Fatalf("%s: new lexicon: %v", tc.override.Phrase, err)
		}
		action, ok := lex.Lookup(tc.override.Phrase)
		if !ok || action.Symbol != tc.override.Value || action.Attach != tc.want {
			t.Fatalf("%s: expected %q attached %d, got %+v", tc.override.Phrase, tc.override.Value, tc.want, action)
		}
	}

	bad := Override{Phrase: "zap", Action: "insert_punctuation", Value: "^", Attach: "sideways"}
	if _, err := New(DefaultEntries(), []Override{bad}); err == nil {
		t.Fatal("expected error for unknown attach hint")
	}
}

func TestPassthroughKeepsCommandsAsText(t *testing.T) {
	t.Parallel()

	got := actions(Passthrough(tokens("hello", "comma", "world")))
	want := []domain.Action{domain.InsertText("hello"), domain.InsertText("comma"), domain.InsertText("world")}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("span %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
