package document

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"earworm/internal/domain"
)

// SegmentKind classifies a Segment.
type SegmentKind uint8

const (
	SegmentText SegmentKind = iota + 1
	SegmentPunct
	SegmentBreak
)

// Segment is one rendered piece of the document.
type Segment struct {
	Kind          SegmentKind
	Text          string
	Attach        domain.Attach
	Chunk         int
	NoSpaceBefore bool
	Origin        domain.Origin
}

// Flags are the pending cursor-level formatting directives.
type Flags struct {
	Capitalize    bool
	Uppercase     bool
	Lowercase     bool
	SuppressSpace bool
}

// Document is the editable text of one session. It is a value: Apply and the
// other mutators return a new Document and never touch the receiver.
type Document struct {
	segments  []Segment
	flags     Flags
	openChunk int
	lastChunk int
}

// New returns an empty document.
func New() Document {
	return Document{}
}

// Apply returns the document with action applied. Undo and Redo are history
// operations and leave the document unchanged.
func (d Document) Apply(action domain.Action) Document {
	switch action.Kind {
	case domain.ActionInsertText:
		return d.insertWords(action.Text, action.Origin, false)
	case domain.ActionLiteralEscape:
		return d.insertWords(action.Text, action.Origin, true)
	case domain.ActionInsertPunctuation:
		return d.insertPunct(action)
	case domain.ActionInsertBreak:
		return d.insertBreak(action.Break, action.Origin)
	case domain.ActionDeleteLastChunk:
		return d.deleteLastChunk()
	case domain.ActionDeleteAll:
		return Document{lastChunk: d.lastChunk}
	case domain.ActionCapitalizeNext:
		d.flags.Capitalize = true
	case domain.ActionUppercaseNext:
		d.flags.Uppercase = true
		d.flags.Lowercase = false
	case domain.ActionLowercaseNext:
		d.flags.Lowercase = true
		d.flags.Uppercase = false
		d.flags.Capitalize = false
	case domain.ActionSuppressNextSpace:
		d.flags.SuppressSpace = true
	}
	return d
}

func (d Document) insertWords(text string, origin domain.Origin, standalone bool) Document {
	if text == "" {
		return d
	}
	text = d.flags.apply(text)
	chunk := d.openChunk
	if chunk == 0 || standalone {
		d.lastChunk++
		chunk = d.lastChunk
	}
	d.segments = append(slices.Clip(d.segments), Segment{
		Kind:          SegmentText,
		Text:          text,
		Chunk:         chunk,
		NoSpaceBefore: d.flags.SuppressSpace,
		Origin:        origin,
	})
	d.flags = Flags{}
	if standalone {
		d.openChunk = 0
	} else {
		d.openChunk = chunk
	}
	return d
}

func (d Document) insertPunct(action domain.Action) Document {
	if action.Symbol == "" {
		return d
	}
	seg := Segment{
		Kind:          SegmentPunct,
		Text:          action.Symbol,
		Attach:        action.Attach,
		NoSpaceBefore: d.flags.SuppressSpace,
		Origin:        action.Origin,
	}
	if action.Origin == domain.OriginHeuristic {
		seg.Chunk = d.openChunk
	} else {
		d.openChunk = 0
	}
	d.segments = append(slices.Clip(d.segments), seg)
	d.flags.SuppressSpace = false
	return d
}

func (d Document) insertBreak(kind domain.BreakKind, origin domain.Origin) Document {
	text := "\n"
	if kind == domain.BreakParagraph {
		text = "\n\n"
	}
	d.segments = append(slices.Clip(d.segments), Segment{Kind: SegmentBreak, Text: text, Origin: origin})
	d.openChunk = 0
	d.flags.SuppressSpace = false
	return d
}

func (d Document) deleteLastChunk() Document {
	last := 0
	for _, seg := range d.segments {
		if seg.Chunk > last {
			last = seg.Chunk
		}
	}
	if last == 0 {
		return d
	}
	d.segments = slices.DeleteFunc(slices.Clone(d.segments), func(seg Segment) bool {
		return seg.Chunk == last
	})
	if d.openChunk == last {
		d.openChunk = 0
	}
	return d
}

// AppendTerminal places heuristic sentence punctuation after the last
// non-break segment, joining the chunk of the text it closes.
func (d Document) AppendTerminal(symbol string) Document {
	index := d.lastContentIndex()
	if index < 0 {
		return d
	}
	seg := Segment{
		Kind:   SegmentPunct,
		Text:   symbol,
		Attach: domain.AttachLeft,
		Chunk:  d.segments[index].Chunk,
		Origin: domain.OriginHeuristic,
	}
	d.segments = slices.Insert(slices.Clone(d.segments), index+1, seg)
	return d
}

// EndsWithTerminal reports whether the last non-break segment ends a sentence.
func (d Document) EndsWithTerminal() bool {
	index := d.lastContentIndex()
	if index < 0 {
		return false
	}
	text := d.segments[index].Text
	last, _ := utf8.DecodeLastRuneInString(text)
	return last == '.' || last == '?' || last == '!'
}

// AtSentenceStart reports whether the next word opens a sentence.
func (d Document) AtSentenceStart() bool {
	if len(d.segments) == 0 || d.segments[len(d.segments)-1].Kind == SegmentBreak {
		return true
	}
	return d.EndsWithTerminal()
}

// LastContent returns the last segment that is not a break.
func (d Document) LastContent() (Segment, bool) {
	index := d.lastContentIndex()
	if index < 0 {
		return Segment{}, false
	}
	return d.segments[index], true
}

func (d Document) lastContentIndex() int {
	for i := len(d.segments) - 1; i >= 0; i-- {
		if d.segments[i].Kind != SegmentBreak {
			return i
		}
	}
	return -1
}

// WithText replaces the whole content with text typed by the user.
func (d Document) WithText(text string) Document {
	next := Document{lastChunk: d.lastChunk}
	if text == "" {
		return next
	}
	next.lastChunk++
	next.segments = []Segment{{Kind: SegmentText, Text: text, Chunk: next.lastChunk, Origin: domain.OriginManual}}
	return next
}

// RewriteChunks passes the joined text of every chunk through fn and replaces
// the chunk with the result.
func (d Document) RewriteChunks(fn func(string) (string, error)) (Document, error) {
	out := make([]Segment, 0, len(d.segments))
	for i := 0; i < len(d.segments); {
		seg := d.segments[i]
		if seg.Chunk == 0 || seg.Kind != SegmentText {
			out = append(out, seg)
			i++
			continue
		}
		j := i
		for j < len(d.segments) && d.segments[j].Chunk == seg.Chunk {
			j++
		}
		rewritten, err := fn(render(d.segments[i:j]))
		if err != nil {
			return d, err
		}
		out = append(out, Segment{
			Kind:          SegmentText,
			Text:          rewritten,
			Chunk:         seg.Chunk,
			NoSpaceBefore: seg.NoSpaceBefore,
			Origin:        seg.Origin,
		})
		i = j
	}
	d.segments = out
	return d, nil
}

// Text renders the document.
func (d Document) Text() string {
	return render(d.segments)
}

// Empty reports whether the document holds no words. Punctuation or breaks
// left behind after their text was deleted do not count.
func (d Document) Empty() bool {
	for _, seg := range d.segments {
		if seg.Kind == SegmentText && strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// Segments returns a copy of the segments.
func (d Document) Segments() []Segment {
	return slices.Clone(d.segments)
}

// Pending returns the formatting flags waiting for the next insertion.
func (d Document) Pending() Flags {
	return d.flags
}

// Equal reports whether two documents are identical, including pending state.
func (d Document) Equal(other Document) bool {
	return d.flags == other.flags &&
		d.openChunk == other.openChunk &&
		d.lastChunk == other.lastChunk &&
		slices.Equal(d.segments, other.segments)
}

func render(segments []Segment) string {
	var b strings.Builder
	glue := true
	for _, seg := range segments {
		if seg.Kind == SegmentBreak {
			b.WriteString(seg.Text)
			glue = true
			continue
		}
		if !glue && !seg.NoSpaceBefore && seg.Attach != domain.AttachLeft && seg.Attach != domain.AttachBoth {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text)
		glue = seg.Kind == SegmentPunct && (seg.Attach == domain.AttachRight || seg.Attach == domain.AttachBoth)
	}
	return b.String()
}

func (f Flags) apply(text string) string {
	switch {
	case f.Uppercase:
		return strings.ToUpper(text)
	case f.Lowercase:
		return strings.ToLower(text)
	case f.Capitalize:
		return Capitalize(text)
	default:
		return text
	}
}

// Capitalize upper-cases the first letter of text.
func Capitalize(text string) string {
	for i, r := range text {
		if unicode.IsLetter(r) {
			upper := unicode.ToUpper(r)
			if upper == r {
				return text
			}
			return text[:i] + string(upper) + text[i+utf8.RuneLen(r):]
		}
	}
	return text
}
