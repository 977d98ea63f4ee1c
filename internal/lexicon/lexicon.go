package lexicon

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"earworm/internal/domain"
)

// EscapeWord forces the span after it to be inserted as text.
const EscapeWord = "literal"

// Override adds, replaces, or disables one phrase. Action is a snake_case
// ActionKind name or "disabled"; Value carries the text, symbol, or break kind.
// Attach optionally sets symbol spacing (none, left, right or both).
type Override struct {
	Phrase string
	Action string
	Value  string
	Attach string
}

// Lexicon resolves spoken phrases to Actions. It is immutable once built and
// safe to share between sessions.
type Lexicon struct {
	phrases  map[string]domain.Action
	symbols  map[string]domain.Action
	maxWords int
}

// Default builds the lexicon from DefaultEntries.
func Default() *Lexicon {
	lex, err := New(DefaultEntries(), nil)
	if err != nil {
		panic(fmt.Sprintf("default lexicon: %v", err))
	}
	return lex
}

// New compiles entries and then applies overrides in order.
func New(entries []Entry, overrides []Override) (*Lexicon, error) {
	lex := &Lexicon{
		phrases: make(map[string]domain.Action),
		symbols: make(map[string]domain.Action),
	}

	for _, entry := range entries {
		if !entry.Action.Kind.Valid() {
			return nil, fmt.Errorf("entry %v has no action kind", entry.Phrases)
		}
		for _, phrase := range entry.Phrases {
			key := normalizePhrase(phrase)
			if key == "" {
				return nil, fmt.Errorf("empty phrase for %s", entry.Action)
			}
			if existing, ok := lex.phrases[key]; ok {
				return nil, fmt.Errorf("phrase %q mapped to both %s and %s", key, existing, entry.Action)
			}
			lex.phrases[key] = entry.Action
		}
		if entry.Action.Kind == domain.ActionInsertPunctuation {
			if _, ok := lex.symbols[entry.Action.Symbol]; !ok {
				lex.symbols[entry.Action.Symbol] = entry.Action
			}
		}
	}

	for _, override := range overrides {
		key := normalizePhrase(override.Phrase)
		if key == "" {
			return nil, fmt.Errorf("override for %q has an empty phrase", override.Phrase)
		}
		if key == EscapeWord {
			return nil, fmt.Errorf("phrase %q is reserved", EscapeWord)
		}
		if strings.EqualFold(strings.TrimSpace(override.Action), "disabled") {
			delete(lex.phrases, key)
			continue
		}
		action, err := lex.overrideAction(override)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", override.Phrase, err)
		}
		lex.phrases[key] = action
	}

	for key := range lex.phrases {
		lex.maxWords = max(lex.maxWords, len(strings.Fields(key)))
	}
	return lex, nil
}

func (l *Lexicon) overrideAction(o Override) (domain.Action, error) {
	name := strings.ToLower(strings.TrimSpace(o.Action))
	if name == "" {
		name = domain.ActionInsertText.String()
	}
	kind, ok := domain.ParseActionKind(name)
	if !ok {
		return domain.Action{}, fmt.Errorf("unknown action %q", o.Action)
	}

	switch kind {
	case domain.ActionInsertText:
		if o.Value == "" {
			return domain.Action{}, fmt.Errorf("insert_text needs a value")
		}
		return domain.InsertText(o.Value), nil
	case domain.ActionInsertPunctuation:
		if o.Value == "" {
			return domain.Action{}, fmt.Errorf("insert_punctuation needs a value")
		}
		attach, err := l.attachFor(o)
		if err != nil {
			return domain.Action{}, err
		}
		return domain.InsertPunctuation(o.Value, attach), nil
	case domain.ActionInsertBreak:
		brk, ok := domain.ParseBreakKind(strings.ToLower(strings.TrimSpace(o.Value)))
		if !ok {
			return domain.Action{}, fmt.Errorf("insert_break value must be line or paragraph, got %q", o.Value)
		}
		return domain.InsertBreak(brk), nil
	case domain.ActionLiteralEscape:
		return domain.Action{}, fmt.Errorf("literal_escape cannot be bound to a phrase")
	default:
		return domain.Directive(kind), nil
	}
}

// attachFor takes the explicit hint, then the spacing of a built-in symbol,
// and otherwise treats opening brackets and quotes as binding to what follows.
func (l *Lexicon) attachFor(o Override) (domain.Attach, error) {
	if hint := strings.ToLower(strings.TrimSpace(o.Attach)); hint != "" {
		attach, ok := domain.ParseAttach(hint)
		if !ok {
			return 0, fmt.Errorf("attach must be none, left, right or both, got %q", o.Attach)
		}
		return attach, nil
	}
	if known, ok := l.symbols[o.Value]; ok {
		return known.Attach, nil
	}
	if first, _ := utf8.DecodeRuneInString(o.Value); strings.ContainsRune(openingSymbols, first) {
		return domain.AttachRight, nil
	}
	return domain.AttachLeft, nil
}

const openingSymbols = "([{<«‹“‘„¿¡"

// Lookup resolves a whole phrase.
func (l *Lexicon) Lookup(phrase string) (domain.Action, bool) {
	action, ok := l.phrases[normalizePhrase(phrase)]
	return action, ok
}

// Match finds the longest phrase at the head of keys, which must already be
// normalized. It returns the Action and how many keys it consumed.
func (l *Lexicon) Match(keys []string) (domain.Action, int, bool) {
	limit := min(l.maxWords, len(keys))
	for n := limit; n > 0; n-- {
		if slices.Contains(keys[:n], "") {
			continue
		}
		if action, ok := l.phrases[strings.Join(keys[:n], " ")]; ok {
			return action, n, true
		}
	}
	return domain.Action{}, 0, false
}

// Resolve turns tokens into spans in time order. Every token lands in exactly
// one span; words matching no phrase become InsertText.
func (l *Lexicon) Resolve(tokens []domain.Token) []domain.Span {
	words := splitTokens(tokens)
	keys := make([]string, len(words))
	for i, word := range words {
		keys[i] = normalizeWord(word.Text)
	}

	spans := make([]domain.Span, 0, len(words))
	for i := 0; i < len(words); {
		if keys[i] == "" {
			spans = append(spans, newSpan(words[i:i+1], l.bareSymbol(words[i].Text)))
			i++
			continue
		}

		if keys[i] == EscapeWord && i+1 < len(words) {
			n := 1
			if keys[i+1] != EscapeWord {
				if _, matched, ok := l.Match(keys[i+1:]); ok {
					n = matched
				}
			}
			literal := domain.LiteralEscape(joinText(words[i+1 : i+1+n]))
			spans = append(spans, newSpan(words[i:i+1+n], literal))
			i += 1 + n
			continue
		}

		if action, n, ok := l.Match(keys[i:]); ok {
			spans = append(spans, newSpan(words[i:i+n], action))
			i += n
			continue
		}

		spans = append(spans, newSpan(words[i:i+1], domain.InsertText(strings.TrimSpace(words[i].Text))))
		i++
	}
	return spans
}

// Passthrough treats every word as text. Used when voice commands are off.
func Passthrough(tokens []domain.Token) []domain.Span {
	words := splitTokens(tokens)
	spans := make([]domain.Span, 0, len(words))
	for i := range words {
		spans = append(spans, newSpan(words[i:i+1], domain.InsertText(strings.TrimSpace(words[i].Text))))
	}
	return spans
}

func (l *Lexicon) bareSymbol(text string) domain.Action {
	text = strings.TrimSpace(text)
	if action, ok := l.symbols[text]; ok {
		return action
	}
	return domain.InsertText(text)
}

func newSpan(words []domain.Token, action domain.Action) domain.Span {
	return domain.Span{
		Action: action,
		Start:  words[0].Start,
		End:    words[len(words)-1].End,
		Tokens: len(words),
	}
}

func joinText(words []domain.Token) string {
	parts := make([]string, 0, len(words))
	for _, word := range words {
		parts = append(parts, strings.TrimSpace(word.Text))
	}
	return strings.Join(parts, " ")
}

// splitTokens breaks multi-word tokens into single words, spreading the
// token's time range evenly across them.
func splitTokens(tokens []domain.Token) []domain.Token {
	words := make([]domain.Token, 0, len(tokens))
	for _, token := range tokens {
		fields := strings.Fields(token.Text)
		if len(fields) == 1 {
			token.Text = fields[0]
			words = append(words, token)
			continue
		}
		step := (token.End - token.Start) / time.Duration(max(len(fields), 1))
		for i, field := range fields {
			words = append(words, domain.Token{
				Text:       field,
				Start:      token.Start + time.Duration(i)*step,
				End:        token.Start + time.Duration(i+1)*step,
				Confidence: token.Confidence,
			})
		}
	}
	return words
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

func normalizePhrase(phrase string) string {
	fields := strings.Fields(phrase)
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		if key := normalizeWord(field); key != "" {
			keys = append(keys, key)
		}
	}
	return strings.Join(keys, " ")
}
