// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigFileNotFoundId Id = iota + 1
	UnresolvedReferenceId
	ConfigSyntaxErrorId
	UnsupportedScriptContentId
	MultiLineReplacementId
	InvalidVariableAssignmentId
	InvalidOptionsId
	OutputWriteFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue's Markdown for a terminal. stylePath names a
// glamour style ("dark", "light", "notty", ...) or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configFileNotFoundIssue = &Issue{
		id: ConfigFileNotFoundId,
		mdMsg: `
# Config fragment not found!

One of the files passed with ` + "`--config`" + ` does not exist or cannot be read.

## Things you can try:
- Check the path for typos; relative paths are resolved from the current directory
- List every fragment explicitly, in the order it should appear in the output:
~~~
$ combine-files --config agent.conf --config outputs/execd.conf --output combined.conf
~~~`,
	}

	unresolvedReferenceIssue = &Issue{
		id: UnresolvedReferenceId,
		mdMsg: `
# Referenced helper file not found!

A ` + "`script = \"...\"`" + ` or ` + "`command = [\"....sh\"]`" + ` entry points at a file that does not
exist under the file path root.

## Things you can try:
- Check which root was searched; it defaults to the current directory:
~~~
$ combine-files --file-path-root ./helpers ...
~~~
- If the path uses variables such as ` + "`${HELPER_FILES_DIR}`" + `, give them a value for this run:
~~~
$ combine-files --temporary-expand-var HELPER_FILES_DIR=. ...
~~~
- Variables are only used to find files; the combined output keeps the placeholders`,
	}

	configSyntaxErrorIssue = &Issue{
		id: ConfigSyntaxErrorId,
		mdMsg: `
# Config fragment is not valid TOML!

The fragment could not be parsed after variable expansion, so its script and
command entries cannot be located safely.

## Things you can try:
- Look at the reported line; a very common cause is a variable used outside a
  string, such as ` + "`interval = ${INTERVAL}`" + `, that was not expanded
- Provide the value for this run:
~~~
$ combine-files --temporary-expand-var INTERVAL=10s ...
~~~
- Or give the variable a default in the fragment: ` + "`${INTERVAL:-10s}`",
	}

	unsupportedScriptContentIssue = &Issue{
		id: UnsupportedScriptContentId,
		mdMsg: `
# Starlark script cannot be inlined!

Inlined scripts are written inside a TOML multi-line literal string, which is
delimited by three single quotes. A script containing ` + "`'''`" + ` would end that
string early and corrupt the rest of the configuration.

## Things you can try:
- Use double-quoted strings (` + "`\"\"\"`" + `) for multi-line strings in the script
- Leave this processor out of ` + "`--inline-starlark`" + ` runs and ship the script file`,
	}

	multiLineReplacementIssue = &Issue{
		id: MultiLineReplacementId,
		mdMsg: `
# Entry produced by a multi-line variable!

A ` + "`script`" + ` or ` + "`command`" + ` entry lies on a line whose variable expanded to several
lines. Only whole authored lines can be replaced, so the entry cannot be
inlined without rewriting the variable itself.

## Things you can try:
- Write the entry directly in the fragment instead of inside the variable
- Pass a single-line value for the variable`,
	}

	invalidVariableAssignmentIssue = &Issue{
		id: InvalidVariableAssignmentId,
		mdMsg: `
# Invalid variable assignment!

Variables are given as ` + "`NAME=value`" + `; everything after the first ` + "`=`" + ` is the value.

## Examples:
~~~
$ combine-files --temporary-expand-var HELPER_FILES_DIR=. ...
$ combine-files --temporary-expand-var 'ARGS=--mode fast' ...
~~~`,
	}

	invalidOptionsIssue = &Issue{
		id: InvalidOptionsId,
		mdMsg: `
# Invalid options!

The combination of flags, environment variables and settings file is incomplete
or inconsistent.

## Things you can try:
- At least one ` + "`--config`" + ` and an ` + "`--output`" + ` are required
- ` + "`--file-path-root`" + ` must be an existing directory
- Environment overrides use the ` + "`COMBINE_FILES_`" + ` prefix, e.g. ` + "`COMBINE_FILES_INLINE_STARLARK=true`",
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Could not write the combined config!

Nothing was written; the output is only replaced once the whole file is ready.

## Things you can try:
- Check that the output directory is writable
- Check free disk space on the target file system`,
	}

	issues = map[Id]*Issue{
		configFileNotFoundIssue.Id():        configFileNotFoundIssue,
		unresolvedReferenceIssue.Id():       unresolvedReferenceIssue,
		configSyntaxErrorIssue.Id():         configSyntaxErrorIssue,
		unsupportedScriptContentIssue.Id():  unsupportedScriptContentIssue,
		multiLineReplacementIssue.Id():      multiLineReplacementIssue,
		invalidVariableAssignmentIssue.Id(): invalidVariableAssignmentIssue,
		invalidOptionsIssue.Id():            invalidOptionsIssue,
		outputWriteFailedIssue.Id():         outputWriteFailedIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for issue := range maps.Values(issues) {
		out = append(out, issue)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
