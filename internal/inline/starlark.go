// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"fmt"
	"strings"

	"github.com/fixedit/combine-files/internal/configtext"
	"github.com/fixedit/combine-files/internal/tomlmatch"
	"github.com/fixedit/combine-files/internal/varexpand"
)

const (
	scriptKey = "script"
	sourceKey = "source"

	// literalDelimiter opens and closes a TOML multi-line literal string.
	literalDelimiter = "'''"
)

// Scripts replaces every `script = "<path>"` binding in content with a
// `source = '''...'''` block holding the referenced Starlark file.
//
// Paths are expanded with vars and resolved relative to root. A missing file
// or a file containing ''' aborts the pass with an error; content may then
// hold the replacements made so far, so callers discard it.
func Scripts(content *configtext.Content, root string, vars varexpand.Vars, opts ...Option) (Result, error) {
	o := applyOptions(opts)

	found, err := tomlmatch.Search(content.Expanded(), scriptKey)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, m := range tomlmatch.Reverse(found.Matches) {
		b := newBinding(content, scriptKey, m)

		literal, ok := b.authored.AsString()
		if !ok {
			res.Warnings = append(res.Warnings, b.warn(o, UnusableBinding, "",
				fmt.Sprintf("skipping script binding with %s value", m.Value.Kind())))
			continue
		}
		expanded := varexpand.Expand(literal, vars)

		path, found := resolve(root, expanded)
		if !found {
			return res, &UnresolvedReferenceError{
				Kind:     kindStarlark,
				Literal:  literal,
				Expanded: expanded,
				Root:     root,
				Line:     b.line,
			}
		}

		data, err := readFile(path, o.maxFileSize)
		if err != nil {
			return res, fmt.Errorf("line %d: reading Starlark script %q: %w", b.line, literal, err)
		}
		source := strings.ToValidUTF8(string(data), "\uFFFD")
		if strings.Contains(source, literalDelimiter) {
			return res, &UnsupportedContentError{Path: literal, Line: b.line}
		}

		text := sourceKey + " = " + literalDelimiter + "\n" + source + literalDelimiter
		if err := content.ReplaceLines(m.StartLine, m.EndLine, b.replacement(text)); err != nil {
			return res, fmt.Errorf("line %d: inlining Starlark script %q: %w", b.line, literal, err)
		}

		o.logger.Debug("inlined Starlark script", "line", b.line, "script", literal, "path", path)
		res.Inlined++
	}
	res.Warnings = append(res.Warnings, unplacedWarnings(o, scriptKey, found.Unplaced)...)

	return res, nil
}
