// SPDX-License-Identifier: MPL-2.0

package tomlmatch

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	burntsushi "github.com/BurntSushi/toml"
	"github.com/pelletier/go-toml/v2"

	"github.com/fixedit/combine-files/internal/varexpand"
)

// ErrSyntax is returned when the document is not valid TOML.
var ErrSyntax = errors.New("invalid TOML")

// Separators allowed between array tokens: whitespace, newlines and comments.
const arraySep = `(?:[ \t\r\n]|#[^\n]*)*`

const (
	mlBasicPattern   = `"""(?:\\.|[^\\])*?"""(?:"{1,2})?`
	basicPattern     = `"(?:[^"\\\n]|\\.)*"`
	mlLiteralPattern = `'''.*?'''(?:'{1,2})?`
	literalPattern   = `'[^'\n]*'`
	integerPattern   = `[+-]?(?:0x[0-9A-Fa-f_]+|0o[0-7_]+|0b[01_]+|[0-9_]+)`
	floatPattern     = `[+-]?(?:inf|nan|[0-9_]+(?:\.[0-9_]+)?(?:[eE][+-]?[0-9_]+)?)`
	datetimePattern  = `(?:[0-9]{4}-[0-9]{2}-[0-9]{2}(?:[Tt ][0-9]{2}:[0-9]{2}(?::[0-9]{2})?(?:\.[0-9]+)?(?:[Zz]|[+-][0-9]{2}:[0-9]{2})?)?|[0-9]{2}:[0-9]{2}(?::[0-9]{2})?(?:\.[0-9]+)?)`
	// Inline tables are matched structurally up to two levels deep; string
	// contents may hold braces.
	tableInner   = `(?:[^{}"']|` + basicPattern + `|` + literalPattern + `)*`
	tablePattern = `\{(?:[^{}"']|` + basicPattern + `|` + literalPattern + `|\{` + tableInner + `\})*\}`
)

type (
	// Match is one located `key = value` binding in the searched text.
	Match struct {
		// Snippet is the matched text, from the key through the end of the value.
		Snippet string
		// Value is the decoded value of the binding.
		Value Value
		// StartLine and EndLine are the zero-based lines holding the first
		// and last character of Snippet.
		StartLine int
		EndLine   int
		// Indent is the number of characters between the start of the line
		// and the key.
		Indent int
		// Start and End are the byte offsets of Snippet in the searched text.
		Start int
		End   int
	}

	// SyntaxError reports a document that failed to parse.
	SyntaxError struct {
		// Line and Column are 1-based; zero when the parser gave no position.
		Line   int
		Column int
		// LineText is the text of the offending line.
		LineText string
		// Unresolved lists variable names still present as ${NAME} on the
		// offending line.
		Unresolved []string
		Err        error
	}

	// SearchResult holds the outcome of Search.
	SearchResult struct {
		Matches []Match
		// Unplaced holds the values the decoder bound to the key for which
		// no binding could be located in the text, such as dotted keys
		// (`a.script = ...`) or keys inside inline tables.
		Unplaced []Value
	}

	locator struct {
		text     string
		key      string
		values   []Value
		prefixOK map[int]bool
	}
)

// FindMatches returns every binding of key in text, in document order.
//
// The bindings considered are those the TOML decoder sees: at the top level,
// in tables and in array-of-tables entries. A candidate hit is kept only when
// the key is the first thing on its line, nothing but a comment follows the
// value, the line through the value decodes on its own to the same value, and
// the document before the line is itself valid TOML.
func FindMatches(text, key string) ([]Match, error) {
	res, err := Search(text, key)
	if err != nil {
		return nil, err
	}
	return res.Matches, nil
}

// Search is FindMatches that also reports the decoded values it could not
// place in the text.
func Search(text, key string) (SearchResult, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return SearchResult{}, newSyntaxError(text, err)
	}

	l := &locator{
		text:     text,
		key:      key,
		prefixOK: map[int]bool{},
	}
	if err := l.collect(doc); err != nil {
		return SearchResult{}, err
	}
	if len(l.values) == 0 {
		return SearchResult{}, nil
	}

	var patterns []string
	for _, v := range l.values {
		p := bindingPattern(key, v)
		if !slices.Contains(patterns, p) {
			patterns = append(patterns, p)
		}
	}

	seen := map[int]bool{}
	var res SearchResult
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return SearchResult{}, fmt.Errorf("compiling pattern for %q: %w", key, err)
		}
		for _, m := range l.search(re) {
			if seen[m.Start] {
				continue
			}
			seen[m.Start] = true
			res.Matches = append(res.Matches, m)
		}
	}
	slices.SortFunc(res.Matches, func(a, b Match) int { return a.Start - b.Start })

	for _, v := range l.values {
		if !slices.ContainsFunc(res.Matches, func(m Match) bool { return m.Value.Equal(v) }) {
			res.Unplaced = append(res.Unplaced, v)
		}
	}
	return res, nil
}

// Reverse returns matches in reverse document order, the order in which
// replacements must be applied so earlier lines keep their indexes.
func Reverse(matches []Match) []Match {
	out := slices.Clone(matches)
	slices.SortFunc(out, func(a, b Match) int { return b.Start - a.Start })
	return out
}

// collect records every value bound to the key in tables reachable from doc.
func (l *locator) collect(table map[string]any) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		raw := table[k]
		if k == l.key {
			v, err := FromAny(raw)
			if err != nil {
				return fmt.Errorf("decoding %q: %w", k, err)
			}
			if !slices.ContainsFunc(l.values, v.Equal) {
				l.values = append(l.values, v)
			}
		}

		switch x := raw.(type) {
		case map[string]any:
			if err := l.collect(x); err != nil {
				return err
			}
		case []map[string]any:
			for _, t := range x {
				if err := l.collect(t); err != nil {
					return err
				}
			}
		case []any:
			for _, e := range x {
				if t, ok := e.(map[string]any); ok {
					if err := l.collect(t); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// search scans the whole text with re. A rejected hit restarts the scan one
// byte later so that it cannot hide a real binding it overlaps.
func (l *locator) search(re *regexp.Regexp) []Match {
	var out []Match
	for pos := 0; pos < len(l.text); {
		loc := re.FindStringIndex(l.text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if m, ok := l.validate(start, end); ok {
			out = append(out, m)
			pos = end
			continue
		}
		pos = start + 1
	}
	return out
}

func (l *locator) validate(start, end int) (Match, bool) {
	lineStart := strings.LastIndexByte(l.text[:start], '\n') + 1
	indent := l.text[lineStart:start]
	if strings.Trim(indent, " \t") != "" {
		return Match{}, false
	}
	if !endsStatement(l.text[end:]) {
		return Match{}, false
	}

	fragment := map[string]any{}
	md, err := burntsushi.Decode(l.text[lineStart:end], &fragment)
	if err != nil || !md.IsDefined(l.key) {
		return Match{}, false
	}
	decoded, err := FromAny(fragment[l.key])
	if err != nil {
		return Match{}, false
	}
	idx := slices.IndexFunc(l.values, decoded.Equal)
	if idx < 0 {
		return Match{}, false
	}

	if !l.prefixParses(lineStart) {
		return Match{}, false
	}

	startLine := strings.Count(l.text[:start], "\n")
	return Match{
		Snippet:   l.text[start:end],
		Value:     l.values[idx],
		StartLine: startLine,
		EndLine:   startLine + strings.Count(l.text[start:end], "\n"),
		Indent:    len([]rune(indent)),
		Start:     start,
		End:       end,
	}, true
}

// prefixParses reports whether the document before offset is valid TOML,
// which is false when offset lies inside a multi-line string.
func (l *locator) prefixParses(offset int) bool {
	if ok, cached := l.prefixOK[offset]; cached {
		return ok
	}
	var discard map[string]any
	ok := toml.Unmarshal([]byte(l.text[:offset]), &discard) == nil
	l.prefixOK[offset] = ok
	return ok
}

// endsStatement reports whether rest starts with optional blanks followed by
// a comment, a line break or the end of the text.
func endsStatement(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	return rest == "" || rest[0] == '#' || rest[0] == '\n' || rest[0] == '\r'
}

func bindingPattern(key string, v Value) string {
	k := regexp.QuoteMeta(key)
	return `(?s)(?:` + k + `|"` + k + `"|'` + k + `')[ \t]*=[ \t]*(?:` + valuePattern(v) + `|` + regexp.QuoteMeta(v.String()) + `)`
}

// valuePattern widens the canonical rendering of v to the spellings TOML
// allows for it. Arrays keep their element structure so nesting is matched
// exactly.
func valuePattern(v Value) string {
	switch v.kind {
	case KindString:
		return `(?:` + mlBasicPattern + `|` + basicPattern + `|` + mlLiteralPattern + `|` + literalPattern + `)`
	case KindInteger:
		return integerPattern
	case KindFloat:
		return floatPattern
	case KindBoolean:
		if v.b {
			return `true`
		}
		return `false`
	case KindDatetime:
		return datetimePattern
	case KindTable:
		return tablePattern
	case KindArray:
		if len(v.elems) == 0 {
			return `\[` + arraySep + `\]`
		}
		var b strings.Builder
		b.WriteString(`\[` + arraySep)
		for i, e := range v.elems {
			if i > 0 {
				b.WriteString(`,` + arraySep)
			}
			b.WriteString(valuePattern(e) + arraySep)
		}
		b.WriteString(`(?:,` + arraySep + `)?\]`)
		return b.String()
	default:
		return regexp.QuoteMeta(v.String())
	}
}

func newSyntaxError(text string, err error) *SyntaxError {
	se := &SyntaxError{Err: err}

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		se.Line, se.Column = derr.Position()
		lines := strings.Split(text, "\n")
		if se.Line >= 1 && se.Line <= len(lines) {
			se.LineText = strings.TrimRight(lines[se.Line-1], "\r")
			se.Unresolved = varexpand.Unresolved(se.LineText)
		}
	}
	return se
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var b strings.Builder
	b.WriteString("invalid TOML")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.LineText != "" {
		fmt.Fprintf(&b, "\n  %d | %s", e.Line, e.LineText)
	}
	if len(e.Unresolved) > 0 {
		refs := make([]string, len(e.Unresolved))
		for i, name := range e.Unresolved {
			refs[i] = "${" + name + "}"
		}
		fmt.Fprintf(&b, "\nhint: the line still contains %s; supply a value for each unexpanded variable",
			strings.Join(refs, ", "))
	}
	return b.String()
}

// Unwrap returns ErrSyntax and the parser error.
func (e *SyntaxError) Unwrap() []error {
	return []error{ErrSyntax, e.Err}
}
