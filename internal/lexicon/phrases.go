package lexicon

import "earworm/internal/domain"

// Entry maps every phrase in Phrases to the same canonical Action.
type Entry struct {
	Phrases []string
	Action  domain.Action
}

func punct(symbol string, attach domain.Attach, phrases ...string) Entry {
	return Entry{Phrases: phrases, Action: domain.InsertPunctuation(symbol, attach)}
}

func directive(kind domain.ActionKind, phrases ...string) Entry {
	return Entry{Phrases: phrases, Action: domain.Directive(kind)}
}

// DefaultEntries is the built-in phrase table.
func DefaultEntries() []Entry {
	return []Entry{
		punct(".", domain.AttachLeft, "period", "full stop"),
		punct(",", domain.AttachLeft, "comma"),
		punct("?", domain.AttachLeft, "question mark"),
		punct("!", domain.AttachLeft, "exclamation mark", "exclamation point"),
		punct(":", domain.AttachLeft, "colon"),
		punct(";", domain.AttachLeft, "semicolon", "semi colon"),
		punct("...", domain.AttachLeft, "ellipsis", "dot dot dot"),
		punct("%", domain.AttachLeft, "percent sign", "percent"),
		punct("-", domain.AttachBoth, "hyphen", "dash"),
		punct("_", domain.AttachBoth, "underscore"),
		punct("@", domain.AttachBoth, "at sign", "at symbol"),
		punct("/", domain.AttachBoth, "forward slash", "slash"),
		punct(`\`, domain.AttachBoth, "backslash", "back slash"),
		punct("'", domain.AttachBoth, "single quote", "apostrophe"),
		punct("\t", domain.AttachBoth, "tab", "tab key"),
		punct("#", domain.AttachRight, "hashtag", "hash", "pound sign"),
		punct("$", domain.AttachRight, "dollar sign"),
		punct("&", domain.AttachNone, "ampersand", "and sign"),
		punct("*", domain.AttachNone, "asterisk", "star"),
		punct("+", domain.AttachNone, "plus sign"),
		punct("=", domain.AttachNone, "equals sign", "equal sign"),
		punct("|", domain.AttachNone, "vertical bar", "pipe"),
		punct("~", domain.AttachBoth, "tilde"),
		punct("<", domain.AttachNone, "less than", "left angle"),
		punct(">", domain.AttachNone, "greater than", "right angle"),
		punct(`"`, domain.AttachRight, "open quote", "begin quote", "quote"),
		punct(`"`, domain.AttachLeft, "close quote", "end quote", "unquote"),
		punct("(", domain.AttachRight, "open paren", "open parenthesis", "left paren"),
		punct(")", domain.AttachLeft, "close paren", "close parenthesis", "right paren"),
		punct("[", domain.AttachRight, "open bracket", "left bracket"),
		punct("]", domain.AttachLeft, "close bracket", "right bracket"),
		punct("{", domain.AttachRight, "open brace", "left brace"),
		punct("}", domain.AttachLeft, "close brace", "right brace"),

		{Phrases: []string{"new line", "newline", "line break"}, Action: domain.InsertBreak(domain.BreakLine)},
		{Phrases: []string{"new paragraph", "paragraph break"}, Action: domain.InsertBreak(domain.BreakParagraph)},

		directive(domain.ActionDeleteLastChunk, "delete that", "scratch that", "erase that"),
		directive(domain.ActionDeleteAll, "delete all", "clear all", "erase all", "start over"),
		directive(domain.ActionUndo, "undo", "undo that"),
		directive(domain.ActionRedo, "redo", "redo that"),
		directive(domain.ActionCapitalizeNext, "capitalize", "cap"),
		directive(domain.ActionUppercaseNext, "all caps", "uppercase", "all uppercase"),
		directive(domain.ActionLowercaseNext, "lowercase", "all lowercase", "no caps"),
		directive(domain.ActionSuppressNextSpace, "no space", "nospace"),
	}
}
