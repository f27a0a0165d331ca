// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"mvdan.cc/sh/v3/syntax"

	"github.com/fixedit/combine-files/internal/configtext"
	"github.com/fixedit/combine-files/internal/tomlmatch"
	"github.com/fixedit/combine-files/internal/varexpand"
)

const (
	commandKey = "command"

	// HeredocMarker terminates the base64 payload inside the wrapper.
	HeredocMarker = "FIXEDIT_SCRIPT_EOF"

	shellSuffix = ".sh"
)

// Commands replaces every `command = ["<path>.sh", args...]` binding in
// content with a self-decoding `sh -c` wrapper around the referenced script.
//
// Commands whose first element does not end in .sh are left unchanged and
// reported as NonShellReference warnings. A missing script aborts the pass
// with an error; content may then hold the replacements made so far, so
// callers discard it.
func Commands(content *configtext.Content, root string, vars varexpand.Vars, opts ...Option) (Result, error) {
	o := applyOptions(opts)

	found, err := tomlmatch.Search(content.Expanded(), commandKey)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, m := range tomlmatch.Reverse(found.Matches) {
		b := newBinding(content, commandKey, m)

		elems := m.Value.Elems()
		if len(elems) == 0 {
			res.Warnings = append(res.Warnings, b.warn(o, UnusableBinding, "",
				fmt.Sprintf("skipping command binding with %s value", describe(m.Value))))
			continue
		}
		if _, ok := elems[0].AsString(); !ok {
			res.Warnings = append(res.Warnings, b.warn(o, UnusableBinding, "",
				fmt.Sprintf("skipping command whose executable is a %s", elems[0].Kind())))
			continue
		}

		literal := authoredExecutable(b)
		expanded := varexpand.Expand(literal, vars)

		if !strings.HasSuffix(expanded, shellSuffix) {
			res.Warnings = append(res.Warnings, b.warn(o, NonShellReference, literal,
				fmt.Sprintf("skipping %q (expanded: %q): not a shell script (%s)", literal, expanded, shellSuffix)))
			continue
		}

		path, found := resolve(root, expanded)
		if !found {
			return res, &UnresolvedReferenceError{
				Kind:     kindShell,
				Literal:  literal,
				Expanded: expanded,
				Root:     root,
				Line:     b.line,
			}
		}

		script, err := readFile(path, o.maxFileSize)
		if err != nil {
			return res, fmt.Errorf("line %d: reading shell script %q: %w", b.line, literal, err)
		}

		args := authoredArgs(b)
		text, err := WrapperCommand(script, args)
		if err != nil {
			return res, fmt.Errorf("line %d: inlining shell script %q: %w", b.line, literal, err)
		}
		if err := content.ReplaceLines(m.StartLine, m.EndLine, b.replacement(text)); err != nil {
			return res, fmt.Errorf("line %d: inlining shell script %q: %w", b.line, literal, err)
		}

		o.logger.Debug("inlined shell script", "line", b.line, "script", literal, "path", path, "args", len(args))
		res.Inlined++
	}
	res.Warnings = append(res.Warnings, unplacedWarnings(o, commandKey, found.Unplaced)...)

	return res, nil
}

// WrapperScript returns the POSIX shell program that decodes script into a
// private temporary file and runs it with args.
//
// The decoded script is never piped into sh: its standard input belongs to
// the data the agent feeds the command. openssl runs with -A so long base64
// lines are not wrapped.
func WrapperScript(script []byte, args []tomlmatch.Value) (string, error) {
	quoted := make([]string, 0, len(args))
	for i, arg := range args {
		word, err := shellWord(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i+1, err)
		}
		quoted = append(quoted, word)
	}

	var b strings.Builder
	b.WriteString("tmpfile=$(mktemp)\n")
	b.WriteString(`trap 'rm -f "$tmpfile"' EXIT` + "\n")
	b.WriteString(`openssl base64 -d -A <<'` + HeredocMarker + `' >"$tmpfile"` + "\n")
	b.WriteString(base64.StdEncoding.EncodeToString(script) + "\n")
	b.WriteString(HeredocMarker + "\n")
	b.WriteString(`sh "$tmpfile"`)
	for _, word := range quoted {
		b.WriteString(" " + word)
	}

	wrapper := b.String()
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(wrapper), "wrapper"); err != nil {
		return "", fmt.Errorf("generated wrapper is not valid shell: %w", err)
	}
	return wrapper, nil
}

// WrapperCommand returns the `command = [...]` binding that runs script
// through the wrapper. The program is written as a multi-line literal
// string; when an argument makes that impossible the array is rendered by
// the TOML encoder instead.
func WrapperCommand(script []byte, args []tomlmatch.Value) (string, error) {
	wrapper, err := WrapperScript(script, args)
	if err != nil {
		return "", err
	}

	if !strings.Contains(wrapper, literalDelimiter) {
		body := wrapper
		if strings.HasSuffix(body, "'") {
			body += "\n"
		}
		return commandKey + ` = ["sh", "-c", ` + literalDelimiter + "\n" + body + literalDelimiter + "]", nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any{commandKey: []string{"sh", "-c", wrapper}}); err != nil {
		return "", fmt.Errorf("encoding wrapper command: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// shellWord quotes one command argument for the wrapper's shell.
func shellWord(arg tomlmatch.Value) (string, error) {
	var s string
	switch arg.Kind() {
	case tomlmatch.KindString:
		s, _ = arg.AsString()
	case tomlmatch.KindInteger, tomlmatch.KindFloat, tomlmatch.KindBoolean, tomlmatch.KindDatetime:
		s = arg.String()
	default:
		return "", fmt.Errorf("%w: %s values cannot be passed to a script", ErrUnsupportedArgument, arg.Kind())
	}

	word, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedArgument, err)
	}
	return word, nil
}

// authoredExecutable returns the first command element as written in the
// authored text, falling back to its expanded form.
func authoredExecutable(b binding) string {
	if elems := b.authored.Elems(); len(elems) > 0 {
		if s, ok := elems[0].AsString(); ok {
			return s
		}
	}
	s, _ := b.match.Value.Elems()[0].AsString()
	return s
}

// authoredArgs returns the command arguments as written in the authored
// text, so variables are left for the agent to resolve. The expanded
// arguments are used when the authored binding did not decode to the same
// number of elements.
func authoredArgs(b binding) []tomlmatch.Value {
	expanded := b.match.Value.Elems()[1:]
	if authored := b.authored.Elems(); len(authored) == len(expanded)+1 {
		return authored[1:]
	}
	return expanded
}

func describe(v tomlmatch.Value) string {
	if v.Kind() == tomlmatch.KindArray {
		return "empty array"
	}
	return v.Kind().String()
}
