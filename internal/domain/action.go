package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ActionKind tags the Action variant.
type ActionKind uint8

const (
	ActionInsertText ActionKind = iota + 1
	ActionInsertPunctuation
	ActionInsertBreak
	ActionDeleteLastChunk
	ActionDeleteAll
	ActionUndo
	ActionRedo
	ActionCapitalizeNext
	ActionUppercaseNext
	ActionLowercaseNext
	ActionSuppressNextSpace
	ActionLiteralEscape

	actionKindEnd
)

var actionKindNames = [...]string{
	"",
	"insert_text",
	"insert_punctuation",
	"insert_break",
	"delete_last_chunk",
	"delete_all",
	"undo",
	"redo",
	"capitalize_next",
	"uppercase_next",
	"lowercase_next",
	"suppress_next_space",
	"literal_escape",
}

// Fails to compile unless every ActionKind has exactly one name.
var _ = [1]struct{}{}[len(actionKindNames)-int(actionKindEnd)]

func (k ActionKind) String() string {
	if k == 0 || k >= actionKindEnd {
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
	return actionKindNames[k]
}

// Valid reports whether k is a declared variant.
func (k ActionKind) Valid() bool {
	return k > 0 && k < actionKindEnd
}

// ActionKinds lists every declared variant in declaration order.
func ActionKinds() []ActionKind {
	kinds := make([]ActionKind, 0, int(actionKindEnd)-1)
	for k := ActionInsertText; k < actionKindEnd; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// BreakKind distinguishes line and paragraph breaks.
type BreakKind uint8

const (
	BreakLine BreakKind = iota + 1
	BreakParagraph
)

func (b BreakKind) String() string {
	switch b {
	case BreakLine:
		return "line"
	case BreakParagraph:
		return "paragraph"
	default:
		return "none"
	}
}

// Attach controls spacing around an inserted symbol.
type Attach uint8

const (
	AttachNone  Attach = iota // spaced on both sides
	AttachLeft                // no space before
	AttachRight               // no space after
	AttachBoth                // no space on either side
)

// Origin records who produced an Action.
type Origin uint8

const (
	OriginSpoken Origin = iota
	OriginHeuristic
	OriginManual
)

func (o Origin) String() string {
	switch o {
	case OriginHeuristic:
		return "heuristic"
	case OriginManual:
		return "manual"
	default:
		return "spoken"
	}
}

// Action is one resolved edit. Only the fields relevant to Kind are set.
type Action struct {
	Kind   ActionKind
	Text   string
	Symbol string
	Attach Attach
	Break  BreakKind
	Origin Origin
}

func InsertText(text string) Action {
	return Action{Kind: ActionInsertText, Text: text}
}

func InsertPunctuation(symbol string, attach Attach) Action {
	return Action{Kind: ActionInsertPunctuation, Symbol: symbol, Attach: attach}
}

func InsertBreak(kind BreakKind) Action {
	return Action{Kind: ActionInsertBreak, Break: kind}
}

func LiteralEscape(text string) Action {
	return Action{Kind: ActionLiteralEscape, Text: text}
}

// Directive builds an Action whose variant carries no payload.
func Directive(kind ActionKind) Action {
	return Action{Kind: kind}
}

// WithOrigin returns a copy of a tagged with origin.
func (a Action) WithOrigin(origin Origin) Action {
	a.Origin = origin
	return a
}

// Mutating reports whether applying the action changes the document (and so must be recorded).
func (a Action) Mutating() bool {
	return a.Kind != ActionUndo && a.Kind != ActionRedo
}

// EndsSentence reports whether the action inserts sentence-ending punctuation.
func (a Action) EndsSentence() bool {
	return a.Kind == ActionInsertPunctuation && IsSentenceEnd(a.Symbol)
}

func (a Action) String() string {
	var payload string
	switch a.Kind {
	case ActionInsertText, ActionLiteralEscape:
		payload = strconv.Quote(a.Text)
	case ActionInsertPunctuation:
		payload = strconv.Quote(a.Symbol)
	case ActionInsertBreak:
		payload = a.Break.String()
	}
	if a.Origin != OriginSpoken {
		return fmt.Sprintf("%s(%s)@%s", a.Kind, payload, a.Origin)
	}
	return fmt.Sprintf("%s(%s)", a.Kind, payload)
}

// IsSentenceEnd reports whether symbol terminates a sentence.
func IsSentenceEnd(symbol string) bool {
	switch symbol {
	case ".", "?", "!":
		return true
	default:
		return false
	}
}

// ParseActionKind looks up a variant by its snake_case name.
func ParseActionKind(name string) (ActionKind, bool) {
	for k := ActionInsertText; k < actionKindEnd; k++ {
		if actionKindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// ParseAttach accepts "none", "left", "right" or "both".
func ParseAttach(name string) (Attach, bool) {
	switch name {
	case "none":
		return AttachNone, true
	case "left":
		return AttachLeft, true
	case "right":
		return AttachRight, true
	case "both":
		return AttachBoth, true
	default:
		return 0, false
	}
}

// ParseBreakKind accepts "line" or "paragraph".
func ParseBreakKind(name string) (BreakKind, bool) {
	switch name {
	case "line":
		return BreakLine, true
	case "paragraph":
		return BreakParagraph, true
	default:
		return 0, false
	}
}

// Span is one resolved token span: the Action it produced and the time it covers.
type Span struct {
	Action Action
	Start  time.Duration
	End    time.Duration
	Tokens int
}
