package punctuation

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"earworm/internal/domain"
)

// DefaultCommaPause is the inter-word silence that implies a comma.
const DefaultCommaPause = 600 * time.Millisecond

var (
	defaultFillers         = []string{"um", "uh", "er", "ah", "hmm", "mm"}
	defaultIsolatedFillers = []string{"like"}
	defaultQuestionWords   = []string{
		"who", "what", "when", "where", "why", "how", "which", "whose",
		"is", "are", "was", "were", "can", "could", "would", "should", "will",
		"do", "does", "did",
	}
)

// Options toggles individual rules.
type Options struct {
	AutoCapitalize bool
	AutoPeriods    bool
	AutoQuestions  bool
	AutoCommas     bool
	RemoveFillers  bool
	CommaPause     time.Duration
	// Fillers are always dropped when RemoveFillers is on.
	Fillers []string
	// IsolatedFillers are dropped only when surrounded by pauses.
	IsolatedFillers []string
	QuestionWords   []string
}

// DefaultOptions enables every rule except filler removal.
func DefaultOptions() Options {
	return Options{
		AutoCapitalize:  true,
		AutoPeriods:     true,
		AutoQuestions:   true,
		AutoCommas:      true,
		CommaPause:      DefaultCommaPause,
		Fillers:         defaultFillers,
		IsolatedFillers: defaultIsolatedFillers,
		QuestionWords:   defaultQuestionWords,
	}
}

// Hints are the heuristic decisions for one span.
type Hints struct {
	Drop        bool
	Capitalize  bool
	CommaBefore bool
}

// Annotated pairs a span with its hints.
type Annotated struct {
	Span  domain.Span
	Hints Hints
}

// Engine applies the heuristics. It holds no per-call state.
type Engine struct {
	opts      Options
	fillers   map[string]struct{}
	isolated  map[string]struct{}
	questions map[string]struct{}
}

// New builds an Engine. Nil word lists fall back to the defaults; empty
// non-nil lists disable the rule's vocabulary.
func New(opts Options) *Engine {
	if opts.CommaPause <= 0 {
		opts.CommaPause = DefaultCommaPause
	}
	if opts.Fillers == nil {
		opts.Fillers = defaultFillers
	}
	if opts.IsolatedFillers == nil {
		opts.IsolatedFillers = defaultIsolatedFillers
	}
	if opts.QuestionWords == nil {
		opts.QuestionWords = defaultQuestionWords
	}
	return &Engine{
		opts:      opts,
		fillers:   wordSet(opts.Fillers),
		isolated:  wordSet(opts.IsolatedFillers),
		questions: wordSet(opts.QuestionWords),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Annotate computes hints for spans in order: filler removal first, then
// capitalization and pause commas over what remains. Positions holding an
// explicit command are never given a heuristic mark.
func (e *Engine) Annotate(spans []domain.Span) []Annotated {
	out := make([]Annotated, len(spans))
	for i, span := range spans {
		out[i].Span = span
	}
	if e.opts.RemoveFillers {
		e.markFillers(out)
	}

	capNext := true
	prev := -1
	for i := range out {
		if out[i].Hints.Drop {
			continue
		}
		action := out[i].Span.Action

		switch action.Kind {
		case domain.ActionInsertText:
			if e.opts.AutoCommas && prev >= 0 && e.pauseComma(out[prev].Span, out[i].Span) {
				out[i].Hints.CommaBefore = true
			}
			if e.opts.AutoCapitalize && hasLetter(action.Text) {
				if capNext || isPronounI(action.Text) {
					out[i].Hints.Capitalize = true
				}
				capNext = false
			}
			if endsSentence(action.Text) {
				capNext = true
			}
		case domain.ActionLiteralEscape:
			if e.opts.AutoCommas && prev >= 0 && e.pauseComma(out[prev].Span, out[i].Span) {
				out[i].Hints.CommaBefore = true
			}
			capNext = false
		case domain.ActionInsertPunctuation:
			if action.EndsSentence() {
				capNext = true
			}
		case domain.ActionInsertBreak, domain.ActionDeleteAll:
			capNext = true
		}
		prev = i
	}
	return out
}

// pauseComma reports whether a comma belongs between two adjacent text spans.
func (e *Engine) pauseComma(prev, next domain.Span) bool {
	if !isText(prev.Action) {
		return false
	}
	if next.Start-prev.End <= e.opts.CommaPause {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev.Action.Text)
	return !unicode.IsPunct(last)
}

func (e *Engine) markFillers(out []Annotated) {
	for i := range out {
		action := out[i].Span.Action
		if action.Kind != domain.ActionInsertText {
			continue
		}
		word := normalize(action.Text)
		if _, ok := e.fillers[word]; ok {
			out[i].Hints.Drop = true
			continue
		}
		if _, ok := e.isolated[word]; !ok {
			continue
		}
		pausedBefore := i == 0 || out[i].Span.Start-out[i-1].Span.End >= e.opts.CommaPause
		pausedAfter := i == len(out)-1 || out[i+1].Span.Start-out[i].Span.End >= e.opts.CommaPause
		if pausedBefore && pausedAfter {
			out[i].Hints.Drop = true
		}
	}
}

// Terminal picks the mark that closes text: "?" when its last sentence opens
// with a question word, "." otherwise, "" when periods are off or text is empty.
func (e *Engine) Terminal(text string) string {
	if !e.opts.AutoPeriods {
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !e.opts.AutoQuestions {
		return "."
	}
	sentence := text[strings.LastIndexAny(text, ".?!\n")+1:]
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return "."
	}
	if _, ok := e.questions[normalize(fields[0])]; ok {
		return "?"
	}
	return "."
}

func isText(action domain.Action) bool {
	return action.Kind == domain.ActionInsertText || action.Kind == domain.ActionLiteralEscape
}

func isPronounI(text string) bool {
	switch normalize(text) {
	case "i", "i'm", "i'll", "i've", "i'd":
		return true
	default:
		return false
	}
}

func endsSentence(text string) bool {
	last, _ := utf8.DecodeLastRuneInString(text)
	return last == '.' || last == '?' || last == '!'
}

func hasLetter(text string) bool {
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

func normalize(word string) string {
	word = strings.ReplaceAll(word, "’", "'")
	return strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		if key := normalize(word); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
