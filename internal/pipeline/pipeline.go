package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"earworm/internal/document"
	"earworm/internal/domain"
	"earworm/internal/lexicon"
	"earworm/internal/punctuation"
	"earworm/internal/undo"
)

// Rewriter transforms a finished run of dictated text.
type Rewriter interface {
	Apply(text string) (string, error)
}

// Options is the immutable configuration of a Pipeline.
type Options struct {
	VoiceCommands    bool
	SmartPunctuation bool
	Heuristics       punctuation.Options
	HistoryCapacity  int
}

// DefaultOptions enables voice commands and smart punctuation.
func DefaultOptions() Options {
	return Options{
		VoiceCommands:    true,
		SmartPunctuation: true,
		Heuristics:       punctuation.DefaultOptions(),
		HistoryCapacity:  undo.DefaultCapacity,
	}
}

// Result is the outcome of one Build.
type Result struct {
	Document document.Document
	Actions  []domain.Action
}

// Pipeline turns raw transcripts into documents. It keeps no per-call state
// and may be shared between sessions.
type Pipeline struct {
	opts       Options
	lexicon    *lexicon.Lexicon
	heuristics *punctuation.Engine
	rewriter   Rewriter
}

// New wires a pipeline. A nil lexicon selects the default table; a nil
// rewriter skips substitution rules.
func New(lex *lexicon.Lexicon, opts Options, rewriter Rewriter) *Pipeline {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Pipeline{
		opts:       opts,
		lexicon:    lex,
		heuristics: punctuation.New(opts.Heuristics),
		rewriter:   rewriter,
	}
}

// Options returns the pipeline configuration.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Build resolves raw into a document. Every mutation is logged in order,
// heuristic insertions tagged with OriginHeuristic.
func (p *Pipeline) Build(raw domain.RawTranscript) (Result, error) {
	var spans []domain.Span
	if p.opts.VoiceCommands {
		spans = p.lexicon.Resolve(raw.Tokens)
	} else {
		spans = lexicon.Passthrough(raw.Tokens)
	}

	var annotated []punctuation.Annotated
	if p.opts.SmartPunctuation {
		annotated = p.heuristics.Annotate(spans)
	} else {
		annotated = make([]punctuation.Annotated, len(spans))
		for i, span := range spans {
			annotated[i].Span = span
		}
	}

	doc := document.New()
	history := undo.New[document.Document](p.opts.HistoryCapacity)
	actions := make([]domain.Action, 0, len(annotated))

	for _, item := range annotated {
		if item.Hints.Drop {
			continue
		}
		action := item.Span.Action

		switch action.Kind {
		case domain.ActionUndo:
			doc, _ = history.Undo(doc)
			actions = append(actions, action)
			continue
		case domain.ActionRedo:
			doc, _ = history.Redo(doc)
			actions = append(actions, action)
			continue
		}

		group := make([]domain.Action, 0, 3)
		if item.Hints.CommaBefore {
			group = append(group, domain.InsertPunctuation(",", domain.AttachLeft).WithOrigin(domain.OriginHeuristic))
		}
		if item.Hints.Capitalize || p.opensSentence(doc, action) {
			group = append(group, domain.Directive(domain.ActionCapitalizeNext).WithOrigin(domain.OriginHeuristic))
		}
		group = append(group, action)

		history.Record(doc)
		for _, step := range group {
			doc = doc.Apply(step)
		}
		actions = append(actions, group...)
	}

	if p.opts.SmartPunctuation && p.needsTerminal(doc) {
		if mark := p.heuristics.Terminal(doc.Text()); mark != "" {
			doc = doc.AppendTerminal(mark)
			actions = append(actions, domain.InsertPunctuation(mark, domain.AttachLeft).WithOrigin(domain.OriginHeuristic))
		}
	}

	if p.rewriter != nil {
		rewritten, err := doc.RewriteChunks(p.rewriter.Apply)
		if err != nil {
			return Result{}, fmt.Errorf("apply substitution rules: %w", err)
		}
		doc = rewritten
	}

	return Result{Document: doc, Actions: actions}, nil
}

// opensSentence catches sentence starts the span-level hints cannot see, such
// as the word after a deleted chunk.
func (p *Pipeline) opensSentence(doc document.Document, action domain.Action) bool {
	return p.opts.SmartPunctuation &&
		p.opts.Heuristics.AutoCapitalize &&
		action.Kind == domain.ActionInsertText &&
		strings.IndexFunc(action.Text, unicode.IsLetter) >= 0 &&
		doc.AtSentenceStart()
}

// needsTerminal is false when the text is empty, already closed, or ends in
// punctuation the user spoke explicitly.
func (p *Pipeline) needsTerminal(doc document.Document) bool {
	if doc.Empty() || doc.EndsWithTerminal() {
		return false
	}
	last, ok := doc.LastContent()
	if !ok {
		return false
	}
	if last.Kind == document.SegmentPunct && last.Origin == domain.OriginSpoken {
		switch last.Text {
		case ")", "]", "}", `"`, "'":
			return true
		default:
			return false
		}
	}
	return true
}

// Describe renders an action log for diagnostics.
func Describe(actions []domain.Action) []string {
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, action.String())
	}
	return out
}
