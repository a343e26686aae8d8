// Package rules rewrites recognized speech into final text using a small
// line-oriented substitution language:
//
//	# comment
//	pull request => PR           whole-word phrase, case-insensitive
//	+ full stop => .             spoken punctuation, attached to the previous word
//	s/\bdeep\s*gram\b/Deepgram/g regex with optional i, g, m, s flags
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultIterationLimit bounds how many passes Apply makes before giving up.
const DefaultIterationLimit = 30

// ErrUnstable is returned when rules keep rewriting each other's output.
var ErrUnstable = errors.New("substitution rules did not settle")

type rewrite interface {
	Apply(input string) (output string, changed bool)
}

// Parser turns one rules line into a rewrite.
type Parser interface {
	CanParse(line string) bool
	Parse(line string) (rewrite, error)
}

// Engine applies an ordered rule list until the text stops changing.
type Engine struct {
	rules     []rewrite
	loopLimit int
}

// NewEngine loads rules from path. A blank or missing path yields an engine
// that returns text unchanged.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	return NewEngineWithParsers(path, loopLimit, DefaultParsers())
}

// NewEngineWithParsers lets callers add line formats.
func NewEngineWithParsers(path string, loopLimit int, parsers []Parser) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return newEngine(nil, loopLimit), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newEngine(nil, loopLimit), nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}
	defer file.Close()

	engine, err := Parse(file, loopLimit, parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return engine, nil
}

// Parse compiles rules read from r.
func Parse(r io.Reader, loopLimit int, parsers []Parser) (*Engine, error) {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	var compiled []rewrite
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		compiled = append(compiled, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return newEngine(compiled, loopLimit), nil
}

func newEngine(compiled []rewrite, loopLimit int) *Engine {
	if loopLimit <= 0 {
		loopLimit = DefaultIterationLimit
	}
	return &Engine{rules: compiled, loopLimit: loopLimit}
}

func parseLine(line string, parsers []Parser) (rewrite, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}

// Len reports how many rules were loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply rewrites text. When the rules have not settled after the iteration
// limit the partially rewritten text is returned with ErrUnstable.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.loopLimit; pass++ {
		changed := false
		for _, rule := range e.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return tidy(result), nil
		}
	}
	return tidy(result), fmt.Errorf("%w after %d passes", ErrUnstable, e.loopLimit)
}

var spaceRun = regexp.MustCompile(`[ \t]{2,}`)

func tidy(text string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// DefaultParsers returns the built-in line formats in match order.
func DefaultParsers() []Parser {
	return []Parser{regexParser{}, punctuationParser{}, phraseParser{}}
}

func splitArrow(line string) (string, string, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return "", "", errors.New("missing =>")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return "", "", errors.New("rule source cannot be empty")
	}
	return from, strings.TrimSpace(to), nil
}

// phrasePattern matches from as whole words with any run of spaces between them.
func phrasePattern(from string) string {
	words := strings.Fields(from)
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}
	return `(?i)(^|[^\pL\pN])(` + strings.Join(words, `\s+`) + `)($|[^\pL\pN])`
}

type phraseParser struct{}

func (phraseParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (phraseParser) Parse(line string) (rewrite, error) {
	from, to, err := splitArrow(line)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(phrasePattern(from))
	if err != nil {
		return nil, fmt.Errorf("invalid phrase: %w", err)
	}
	return phraseRule{re: re, replacement: to}, nil
}

type phraseRule struct {
	re          *regexp.Regexp
	replacement string
}

func (r phraseRule) Apply(input string) (string, bool) {
	output := replaceBounded(r.re, input, func(lead string) string {
		return lead + r.replacement
	})
	return output, output != input
}

type punctuationParser struct{}

func (punctuationParser) CanParse(line string) bool {
	return strings.HasPrefix(line, "+") && strings.Contains(line, "=>")
}

func (punctuationParser) Parse(line string) (rewrite, error) {
	from, to, err := splitArrow(strings.TrimPrefix(line, "+"))
	if err != nil {
		return nil, err
	}
	if to == "" {
		return nil, errors.New("punctuation rule needs a replacement")
	}
	re, err := regexp.Compile(`[ \t]*` + phrasePattern(from))
	if err != nil {
		return nil, fmt.Errorf("invalid phrase: %w", err)
	}
	return punctuationRule{re: re, mark: to}, nil
}

type punctuationRule struct {
	re   *regexp.Regexp
	mark string
}

func (r punctuationRule) Apply(input string) (string, bool) {
	output := replaceBounded(r.re, input, func(lead string) string {
		if strings.TrimSpace(lead) == "" {
			lead = ""
		}
		return lead + r.mark
	})
	return output, output != input
}

// replaceBounded rewrites every match of a phrase pattern. The trailing
// boundary is left in place so adjacent phrases sharing one separator all match.
func replaceBounded(re *regexp.Regexp, input string, build func(lead string) string) string {
	var out strings.Builder
	rest := input
	for {
		loc := re.FindStringSubmatchIndex(rest)
		if loc == nil {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:loc[0]])
		out.WriteString(build(rest[loc[2]:loc[3]]))
		rest = rest[loc[6]:]
	}
}
