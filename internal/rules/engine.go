package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultPassLimit caps how many times the rule set is re-run looking for a fixed point.
const DefaultPassLimit = 30

// ErrUnstable is returned when the rules keep changing the text after the pass limit.
var ErrUnstable = errors.New("substitution rules did not settle")

// Rule rewrites text once.
type Rule interface {
	Rewrite(input string) (output string, changed bool)
}

// Parser compiles one rule line.
type Parser interface {
	Accepts(line string) bool
	Parse(line string) (Rule, error)
}

// Source names where rule lines come from. Inline lines follow the file's.
type Source struct {
	Path   string
	Inline []string
}

// Engine applies substitution rules in order until the text stops changing.
// It is immutable and safe for concurrent use.
type Engine struct {
	rules     []Rule
	passLimit int
}

// Load reads src with the built-in parsers. A missing file is not an error.
func Load(src Source, passLimit int) (*Engine, error) {
	return LoadWithParsers(src, passLimit, DefaultParsers())
}

// LoadWithParsers is Load with a caller-supplied parser chain.
func LoadWithParsers(src Source, passLimit int, parsers []Parser) (*Engine, error) {
	var lines []string
	if path := strings.TrimSpace(src.Path); path != "" {
		contents, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read rules file %q: %w", path, err)
		default:
			lines = strings.Split(string(contents), "\n")
		}
	}
	lines = append(lines, src.Inline...)

	engine, err := Compile(lines, passLimit, parsers)
	if err != nil {
		if src.Path != "" {
			return nil, fmt.Errorf("rules %q: %w", src.Path, err)
		}
		return nil, err
	}
	return engine, nil
}

// Compile builds an engine from rule lines. Blank lines and # comments are skipped.
func Compile(lines []string, passLimit int, parsers []Parser) (*Engine, error) {
	if passLimit <= 0 {
		passLimit = DefaultPassLimit
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	compiled := make([]Rule, 0, len(lines))
	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		compiled = append(compiled, rule)
	}
	return &Engine{rules: compiled, passLimit: passLimit}, nil
}

func parseLine(line string, parsers []Parser) (Rule, error) {
	for _, parser := range parsers {
		if parser.Accepts(line) {
			return parser.Parse(line)
		}
	}
	return nil, fmt.Errorf("unsupported rule %q", line)
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply runs every rule over text, repeating until a pass changes nothing.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}
	for pass := 0; pass < e.passLimit; pass++ {
		dirty := false
		for _, rule := range e.rules {
			if next, changed := rule.Rewrite(text); changed {
				text = next
				dirty = true
			}
		}
		if !dirty {
			return text, nil
		}
	}
	return text, fmt.Errorf("%w after %d passes", ErrUnstable, e.passLimit)
}

// DefaultParsers tries sed-style rules first, then literal ones.
func DefaultParsers() []Parser {
	return []Parser{sedParser{}, literalParser{}}
}

type literalParser struct{}

func (literalParser) Accepts(line string) bool {
	return strings.Contains(line, "=>")
}

// Parse reads "from => to". The source matches case-insensitively and, where
// it begins or ends with a word character, only on word boundaries.
func (literalParser) Parse(line string) (Rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("literal rule needs a source phrase")
	}

	pattern := regexp.QuoteMeta(from)
	if isWordByte(from[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(from[len(from)-1]) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("literal %q: %w", from, err)
	}
	return literalRule{re: re, to: to}, nil
}

type literalRule struct {
	re *regexp.Regexp
	to string
}

func (r literalRule) Rewrite(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.to)
	return output, output != input
}

type sedParser struct{}

func (sedParser) Accepts(line string) bool {
	if len(line) < 4 || line[0] != 's' || isWordByte(line[1]) || line[1] == ' ' || line[1] == '\t' {
		return false
	}
	return strings.Count(line[2:], line[1:2]) >= 2
}

// Parse reads s<d>pattern<d>replacement<d>flags. Matching is case-insensitive
// unless the I flag is given; g replaces every match instead of the first.
func (sedParser) Parse(line string) (Rule, error) {
	delim := line[1]
	pattern, next, err := readField(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	replacement, next, err := readField(line, next, delim)
	if err != nil {
		return nil, fmt.Errorf("replacement: %w", err)
	}

	foldCase, global := true, false
	var mode strings.Builder
	for _, flag := range strings.TrimSpace(line[next:]) {
		switch flag {
		case 'i':
			foldCase = true
		case 'I':
			foldCase = false
		case 'g':
			global = true
		case 'm', 's':
			mode.WriteRune(flag)
		case ' ':
		default:
			return nil, fmt.Errorf("unknown flag %q", flag)
		}
	}
	if foldCase {
		mode.WriteByte('i')
	}
	if mode.Len() > 0 {
		pattern = "(?" + mode.String() + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	return sedRule{re: re, replacement: replacement, global: global}, nil
}

type sedRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r sedRule) Rewrite(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}
	match := r.re.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

// readField scans up to the next unescaped delim. Escapes other than \delim
// are kept for the regexp compiler.
func readField(line string, start int, delim byte) (string, int, error) {
	var b strings.Builder
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == delim:
			b.WriteByte(delim)
			i++
		case c == '\\' && i+1 < len(line):
			b.WriteByte(c)
			b.WriteByte(line[i+1])
			i++
		case c == delim:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.New("missing closing delimiter")
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
