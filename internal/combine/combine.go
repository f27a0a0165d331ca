// SPDX-License-Identifier: MPL-2.0

package combine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fixedit/combine-files/internal/configtext"
	"github.com/fixedit/combine-files/internal/gitmeta"
	"github.com/fixedit/combine-files/internal/inline"
	"github.com/fixedit/combine-files/internal/issue"
	"github.com/fixedit/combine-files/internal/tomlmatch"
	"github.com/fixedit/combine-files/internal/varexpand"
)

const bannerRule = "# ========================================"

type (
	// GitLookup reports the git metadata of a file, or false when the file
	// is not in a repository.
	GitLookup interface {
		Lookup(path string) (*gitmeta.Info, bool)
	}

	// Combiner merges fragments. The zero value combines without inlining,
	// resolves references against the working directory and adds no git
	// details.
	Combiner struct {
		// Root is the directory helper file references are resolved against.
		Root string
		// Vars are the temporary variables used to expand the fragments.
		Vars           varexpand.Vars
		InlineStarlark bool
		InlineShell    bool
		// Git enriches banners; nil disables the lookup.
		Git    GitLookup
		Logger *log.Logger
	}

	// Output is the result of a successful run.
	Output struct {
		Text            string
		Fragments       int
		ScriptsInlined  int
		CommandsInlined int
		Warnings        []Warning
	}

	// Warning is a non-fatal finding in one fragment.
	Warning struct {
		inline.Warning
		// Fragment is the path of the fragment as given.
		Fragment string
	}

	noGit struct{}
)

// NoGit is a GitLookup that never finds a repository.
var NoGit GitLookup = noGit{}

func (noGit) Lookup(string) (*gitmeta.Info, bool) { return nil, false }

// Combine processes paths in order and returns the combined document.
// The context is checked between fragments.
func (c *Combiner) Combine(ctx context.Context, paths []string) (*Output, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	git := c.Git
	if git == nil {
		git = NoGit
	}

	root, err := c.root()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("resolve file path root").
			WithResource(c.Root).
			WithIssue(issue.InvalidOptionsId).
			Wrap(err).
			BuildError()
	}

	out := &Output{}
	var b strings.Builder
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, res, err := c.fragment(root, path, logger.With("fragment", path))
		if err != nil {
			return nil, err
		}

		if out.Fragments > 0 {
			b.WriteString("\n")
		}
		b.WriteString(banner(root, path, git))
		b.WriteString(text)

		out.Fragments++
		out.ScriptsInlined += res.scripts
		out.CommandsInlined += res.commands
		out.Warnings = append(out.Warnings, res.warnings...)
	}

	out.Text = b.String()
	return out, nil
}

type fragmentResult struct {
	scripts  int
	commands int
	warnings []Warning
}

func (c *Combiner) fragment(root, path string, logger *log.Logger) (string, fragmentResult, error) {
	var res fragmentResult

	data, err := os.ReadFile(path)
	if err != nil {
		return "", res, issue.NewErrorContext().
			WithOperation("read config fragment").
			WithResource(path).
			WithSuggestion("Check the --config path; relative paths are resolved from the current directory").
			WithIssue(issue.ConfigFileNotFoundId).
			Wrap(err).
			BuildError()
	}
	raw := strings.ToValidUTF8(string(data), "\uFFFD")

	content := configtext.New(raw, c.Vars)
	opts := []inline.Option{inline.WithLogger(logger)}

	if c.InlineStarlark {
		r, err := inline.Scripts(content, root, c.Vars, opts...)
		if err != nil {
			return "", res, c.wrap(err, "inline Starlark scripts", path)
		}
		res.scripts = r.Inlined
		res.warnings = append(res.warnings, tagWarnings(path, r.Warnings)...)
	}
	if c.InlineShell {
		r, err := inline.Commands(content, root, c.Vars, opts...)
		if err != nil {
			return "", res, c.wrap(err, "inline shell scripts", path)
		}
		res.commands = r.Inlined
		res.warnings = append(res.warnings, tagWarnings(path, r.Warnings)...)
	}

	logger.Debug("processed fragment", "scripts", res.scripts, "commands", res.commands, "warnings", len(res.warnings))
	return content.Original(), res, nil
}

// wrap turns an inlining failure into an actionable error with suggestions
// matching its kind.
func (c *Combiner) wrap(err error, operation, path string) error {
	ec := issue.NewErrorContext().WithOperation(operation).WithResource(path).Wrap(err)

	var (
		syntaxErr *tomlmatch.SyntaxError
		refErr    *inline.UnresolvedReferenceError
	)
	switch {
	case errors.As(err, &syntaxErr):
		ec.WithIssue(issue.ConfigSyntaxErrorId)
		for _, name := range syntaxErr.Unresolved {
			ec.WithSuggestion(fmt.Sprintf("Provide ${%s} for this run with --temporary-expand-var %s=<value>", name, name))
		}
		if len(syntaxErr.Unresolved) == 0 {
			ec.WithSuggestion("Fix the TOML syntax at the reported line")
		}
	case errors.As(err, &refErr):
		ec.WithIssue(issue.UnresolvedReferenceId)
		for _, name := range varexpand.Unresolved(refErr.Expanded) {
			ec.WithSuggestion(fmt.Sprintf("Provide ${%s} for this run with --temporary-expand-var %s=<value>", name, name))
		}
		ec.WithSuggestion(fmt.Sprintf("Check that the file exists under %s or change --file-path-root", refErr.Root))
	case errors.Is(err, inline.ErrUnsupportedScriptContent):
		ec.WithIssue(issue.UnsupportedScriptContentId).
			WithSuggestion("Replace ''' in the Starlark script with \"\"\"")
	case errors.Is(err, configtext.ErrMultiLineReplacement):
		ec.WithIssue(issue.MultiLineReplacementId).
			WithSuggestion("Move the entry out of the multi-line variable")
	}

	return ec.BuildError()
}

func (c *Combiner) root() (string, error) {
	root := c.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// banner returns the comment block placed above a fragment.
func banner(root, path string, git GitLookup) string {
	var b strings.Builder
	b.WriteString(bannerRule + "\n")
	b.WriteString("# From: " + displayPath(root, path) + "\n")
	if info, ok := git.Lookup(path); ok && info != nil {
		b.WriteString("# Git: " + gitLine(info) + "\n")
	}
	b.WriteString(bannerRule + "\n\n")
	return b.String()
}

func gitLine(info *gitmeta.Info) string {
	commit := info.ShortCommit()
	if commit == "" {
		commit = "no commits"
	}
	return fmt.Sprintf("%s/%s @ %s (%s)", info.RepoName, info.PathInRepo, commit, info.Status)
}

// displayPath returns path relative to root when it lies below root, and
// path as given otherwise.
func displayPath(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(realPath(root), realPath(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

func tagWarnings(path string, warnings []inline.Warning) []Warning {
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, Warning{Warning: w, Fragment: path})
	}
	return out
}
