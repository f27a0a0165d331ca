// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fixedit/combine-files/internal/configtext"
	"github.com/fixedit/combine-files/internal/tomlmatch"
)

// Warning kinds.
const (
	// NonShellReference marks a command whose executable is not a .sh script.
	NonShellReference WarningKind = "non-shell-reference"
	// UnusableBinding marks a script or command binding whose value has a
	// shape that cannot be inlined.
	UnusableBinding WarningKind = "unusable-binding"
)

const (
	kindStarlark = "Starlark script"
	kindShell    = "shell script"
)

var (
	// ErrUnresolvedReference is returned when a referenced file does not
	// exist under the search root.
	ErrUnresolvedReference = errors.New("unresolved file reference")

	// ErrUnsupportedScriptContent is returned when a Starlark script contains
	// the ''' sequence that delimits the inline source block.
	ErrUnsupportedScriptContent = errors.New("script content cannot be inlined")

	// ErrUnsupportedArgument is returned when a command argument cannot be
	// passed through the shell wrapper.
	ErrUnsupportedArgument = errors.New("unsupported command argument")

	// ErrFileTooLarge is returned when a referenced file exceeds the size limit.
	ErrFileTooLarge = errors.New("referenced file too large")
)

type (
	// WarningKind classifies a non-fatal finding.
	WarningKind string

	// Warning is a non-fatal finding of an inlining pass. The binding it
	// refers to is left unchanged.
	Warning struct {
		Kind WarningKind
		// Line is the 1-based line of the binding in the authored text, or
		// zero when the binding could not be located.
		Line int
		// Reference is the value as authored, when it is a string.
		Reference string
		Message   string
	}

	// Result summarizes one inlining pass.
	Result struct {
		// Inlined counts the bindings that were replaced.
		Inlined  int
		Warnings []Warning
	}

	// UnresolvedReferenceError reports a reference that did not resolve to a
	// file under the search root.
	UnresolvedReferenceError struct {
		// Kind names the kind of file, e.g. "shell script".
		Kind string
		// Literal is the reference as authored.
		Literal string
		// Expanded is the reference after variable expansion.
		Expanded string
		Root     string
		// Line is the 1-based authored line of the binding.
		Line int
	}

	// UnsupportedContentError reports a script whose content cannot be
	// embedded in a TOML multi-line literal string.
	UnsupportedContentError struct {
		Path string
		Line int
	}
)

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("could not find %s %q in root path %q", e.Kind, e.Literal, e.Root)
	if e.Expanded != e.Literal {
		msg += fmt.Sprintf(" (expanded to %q)", e.Expanded)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Unwrap returns ErrUnresolvedReference.
func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// Error implements the error interface.
func (e *UnsupportedContentError) Error() string {
	return fmt.Sprintf("line %d: Starlark script %q contains triple single quotes ('''), which would end the inline source block early",
		e.Line, e.Path)
}

// Unwrap returns ErrUnsupportedScriptContent.
func (e *UnsupportedContentError) Unwrap() error {
	return ErrUnsupportedScriptContent
}

// resolve finds ref under root. Absolute references are used as they are.
func resolve(root, ref string) (string, bool) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, ref)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func readFile(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), limit)
	}
	return os.ReadFile(path)
}

// binding is a located match together with its position in the authored
// text and the authored text around it that a replacement must keep.
type binding struct {
	match tomlmatch.Match
	// line is the 1-based authored line of the binding.
	line int
	// authored is the value as written in the authored text, when the
	// authored lines decode on their own.
	authored tomlmatch.Value
	indent   string
	trailing string
}

func newBinding(content *configtext.Content, key string, m tomlmatch.Match) binding {
	b := binding{match: m, authored: m.Value}

	if orig, err := content.OriginalIndex(m.StartLine); err == nil {
		b.line = orig + 1
	}

	lines := content.ExpandedLines()
	b.indent = lines[m.StartLine][:len(lines[m.StartLine])-len(strings.TrimLeft(lines[m.StartLine], " \t"))]

	if text, err := content.OriginalLines(m.StartLine, m.EndLine); err == nil {
		found, err := tomlmatch.FindMatches(text, key)
		if err == nil && len(found) == 1 && found[0].Value.Kind() == m.Value.Kind() {
			b.authored = found[0].Value
			b.trailing = firstLine(text[found[0].End:])
			return b
		}
	}

	// The authored lines do not decode on their own; keep the expanded
	// remainder only when expansion left it untouched.
	rest := firstLine(content.Expanded()[m.End:])
	if last, err := content.OriginalLines(m.EndLine, m.EndLine); err == nil && strings.HasSuffix(last, rest) {
		b.trailing = rest
	}
	return b
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// replacement prefixes text with the binding's indentation and appends the
// text that followed the value on its last line.
func (b binding) replacement(text string) string {
	return b.indent + text + b.trailing
}

// unplacedWarnings reports values bound to key that could not be located
// in the text, e.g. `starlark.script = "a.star"`.
func unplacedWarnings(o options, key string, values []tomlmatch.Value) []Warning {
	out := make([]Warning, 0, len(values))
	for _, v := range values {
		ref, ok := v.AsString()
		if elems := v.Elems(); !ok && len(elems) > 0 {
			ref, _ = elems[0].AsString()
		}
		msg := fmt.Sprintf("skipping %s = %s: the key must start its own line (dotted keys and inline tables are not inlined)", key, v)
		o.logger.Warn(msg, "reference", ref)
		out = append(out, Warning{Kind: UnusableBinding, Reference: ref, Message: msg})
	}
	return out
}

func (b binding) warn(o options, kind WarningKind, ref, msg string) Warning {
	o.logger.Warn(msg, "line", b.line, "reference", ref)
	return Warning{Kind: kind, Line: b.line, Reference: ref, Message: msg}
}
