// SPDX-License-Identifier: MPL-2.0

package combine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fixedit/combine-files/internal/gitmeta"
	"github.com/fixedit/combine-files/internal/inline"
	"github.com/fixedit/combine-files/internal/issue"
	"github.com/fixedit/combine-files/internal/testutil"
	"github.com/fixedit/combine-files/internal/tomlmatch"
	"github.com/fixedit/combine-files/internal/varexpand"
)

type fakeGit map[string]*gitmeta.Info

func (f fakeGit) Lookup(path string) (*gitmeta.Info, bool) {
	info, ok := f[filepath.Base(path)]
	return info, ok
}

func TestCombine_Banners(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"config1.conf": "# Config 1",
		"config2.conf": "# Config 2",
	})

	c := &Combiner{Root: root}
	out, err := c.Combine(context.Background(), []string{
		filepath.Join(root, "config1.conf"),
		filepath.Join(root, "config2.conf"),
	})
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}

	want := "# ========================================\n" +
		"# From: config1.conf\n" +
		"# ========================================\n" +
		"\n" +
		"# Config 1\n" +
		"# ========================================\n" +
		"# From: config2.conf\n" +
		"# ========================================\n" +
		"\n" +
		"# Config 2"
	if diff := cmp.Diff(want, out.Text); diff != "" {
		t.Errorf("Combine() text mismatch (-want +got):\n%s", diff)
	}
	if out.Fragments != 2 {
		t.Errorf("Fragments = %d, want 2", out.Fragments)
	}
}

func TestCombine_PathOutsideRootKeptAsGiven(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	other := t.TempDir()
	testutil.WriteFiles(t, other, map[string]string{"agent.conf": "[agent]\n"})
	path := filepath.Join(other, "agent.conf")

	out, err := (&Combiner{Root: root}).Combine(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}
	if !strings.Contains(out.Text, "# From: "+path+"\n") {
		t.Errorf("banner does not name %s:\n%s", path, out.Text)
	}
}

func TestCombine_GitBannerLine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"a.conf": "a = 1\n",
		"b.conf": "b = 1\n",
		"c.conf": "c = 1\n",
	})

	git := fakeGit{
		"a.conf": {RepoName: "configs", PathInRepo: "site/a.conf", Commit: "0123456789abcdef0123", Status: gitmeta.StatusModified},
		"b.conf": {RepoName: "configs", PathInRepo: "b.conf", Status: gitmeta.StatusUntracked},
	}
	c := &Combiner{Root: root, Git: git}
	out, err := c.Combine(context.Background(), []string{
		filepath.Join(root, "a.conf"),
		filepath.Join(root, "b.conf"),
		filepath.Join(root, "c.conf"),
	})
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}

	for _, want := range []string{
		"# From: a.conf\n# Git: configs/site/a.conf @ 0123456789ab (modified)\n",
		"# From: b.conf\n# Git: configs/b.conf @ no commits (untracked)\n",
		"# From: c.conf\n# ========================================\n",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("output missing %q:\n%s", want, out.Text)
		}
	}
}

func TestCombine_Inlining(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"scripts/a.star": "load('a.star','x')",
		"scripts/run.sh": "echo hi\n",
		"processors.conf": "[[processors.starlark]]\n" +
			"  script = \"${DIR}/a.star\"\n",
		"outputs.conf": "[[outputs.execd]]\n" +
			"  command = [\"${DIR}/run.sh\"]\n" +
			"[[outputs.execd]]\n" +
			"  command = [\"/usr/bin/tool.bin\"]\n",
	})

	c := &Combiner{
		Root:           root,
		Vars:           varexpand.Vars{"DIR": "scripts"},
		InlineStarlark: true,
		InlineShell:    true,
	}
	out, err := c.Combine(context.Background(), []string{
		filepath.Join(root, "processors.conf"),
		filepath.Join(root, "outputs.conf"),
	})
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}

	if !strings.Contains(out.Text, "  source = '''\nload('a.star','x')'''\n") {
		t.Errorf("Starlark script not inlined:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "  command = [\"sh\", \"-c\", '''\n") {
		t.Errorf("shell script not inlined:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "  command = [\"/usr/bin/tool.bin\"]\n") {
		t.Errorf("binary command changed:\n%s", out.Text)
	}
	if out.ScriptsInlined != 1 || out.CommandsInlined != 1 {
		t.Errorf("inlined counts = %d scripts, %d commands, want 1 and 1", out.ScriptsInlined, out.CommandsInlined)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Kind != inline.NonShellReference {
		t.Fatalf("Warnings = %+v, want one NonShellReference", out.Warnings)
	}
	if out.Warnings[0].Fragment != filepath.Join(root, "outputs.conf") || out.Warnings[0].Line != 4 {
		t.Errorf("warning = %+v", out.Warnings[0])
	}
}

func TestCombine_InliningDisabledLeavesReferences(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"a.conf": "script = \"missing.star\"\ncommand = [\"missing.sh\"]\n",
	})

	out, err := (&Combiner{Root: root}).Combine(context.Background(), []string{filepath.Join(root, "a.conf")})
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}
	if !strings.HasSuffix(out.Text, "script = \"missing.star\"\ncommand = [\"missing.sh\"]\n") {
		t.Errorf("fragment changed:\n%s", out.Text)
	}
}

func TestCombine_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"syntax.conf":     "interval = ${INTERVAL}\n",
		"unresolved.conf": "script = \"${DIR}/a.star\"\n",
		"quotes.conf":     "script = \"q.star\"\n",
		"q.star":          "x = '''y'''",
	})

	tests := []struct {
		name       string
		file       string
		wantIssue  issue.Id
		wantIs     error
		suggestion string
	}{
		{"missing fragment", "nope.conf", issue.ConfigFileNotFoundId, os.ErrNotExist, "--config"},
		{"syntax error", "syntax.conf", issue.ConfigSyntaxErrorId, tomlmatch.ErrSyntax, "--temporary-expand-var INTERVAL=<value>"},
		{"unresolved reference", "unresolved.conf", issue.UnresolvedReferenceId, inline.ErrUnresolvedReference, "--temporary-expand-var DIR=<value>"},
		{"triple quotes", "quotes.conf", issue.UnsupportedScriptContentId, inline.ErrUnsupportedScriptContent, "'''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &Combiner{Root: root, InlineStarlark: true}
			out, err := c.Combine(context.Background(), []string{filepath.Join(root, tt.file)})
			if out != nil {
				t.Errorf("Combine() returned output alongside an error")
			}
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Combine() error = %v, want %v", err, tt.wantIs)
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Combine() error type = %T, want *issue.ActionableError", err)
			}
			if ae.IssueID != tt.wantIssue {
				t.Errorf("IssueID = %d, want %d", ae.IssueID, tt.wantIssue)
			}
			if !strings.Contains(strings.Join(ae.Suggestions, "\n"), tt.suggestion) {
				t.Errorf("Suggestions = %q, want one mentioning %q", ae.Suggestions, tt.suggestion)
			}
		})
	}
}

func TestCombine_InvalidRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"file": "x"})

	_, err := (&Combiner{Root: filepath.Join(root, "file")}).Combine(context.Background(), nil)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.InvalidOptionsId {
		t.Errorf("Combine() error = %v, want invalid options issue", err)
	}
}

func TestCombine_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"a.conf": "a = 1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Combiner{Root: root}).Combine(ctx, []string{filepath.Join(root, "a.conf")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Combine() error = %v, want context.Canceled", err)
	}
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "nested", "combined.conf")

	if err := WriteOutput(path, []byte("first")); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}
	if err := WriteOutput(path, []byte("second")); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}
	if got := testutil.MustReadFile(t, path); got != "second" {
		t.Errorf("output = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output directory holds %d entries, want only the output file", len(entries))
	}
}

func TestWriteOutput_Failure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"blocker": "x"})

	err := WriteOutput(filepath.Join(dir, "blocker", "combined.conf"), []byte("data"))
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.OutputWriteFailedId {
		t.Errorf("WriteOutput() error = %v, want output write issue", err)
	}
}
