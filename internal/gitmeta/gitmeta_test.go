// SPDX-License-Identifier: MPL-2.0

package gitmeta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fixedit/combine-files/internal/testutil"
)

func initRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "telegraf-configs")
	testutil.WriteFiles(t, dir, files)

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error: %v", err)
	}
	for name := range files {
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("Add(%q) error: %v", name, err)
		}
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	return dir, hash.String()
}

func TestLookup(t *testing.T) {
	t.Parallel()

	dir, commit := initRepo(t, map[string]string{
		"clean.conf":       "a = 1\n",
		"modified.conf":    "a = 1\n",
		"staged.conf":      "a = 1\n",
		"nested/deep.conf": "a = 1\n",
		".gitignore":       "ignored.conf\n",
	})

	testutil.WriteFiles(t, dir, map[string]string{
		"modified.conf":  "a = 2\n",
		"staged.conf":    "a = 3\n",
		"untracked.conf": "a = 4\n",
		"ignored.conf":   "a = 5\n",
	})
	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("staged.conf"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		file     string
		wantPath string
		want     Status
	}{
		{"clean.conf", "clean.conf", StatusClean},
		{"modified.conf", "modified.conf", StatusModified},
		{"staged.conf", "staged.conf", StatusStaged},
		{"untracked.conf", "untracked.conf", StatusUntracked},
		{"nested/deep.conf", "nested/deep.conf", StatusClean},
		{"ignored.conf", "ignored.conf", StatusUnknown},
	}

	r := NewResolver()
	for _, tt := range tests {
		info, ok := r.Lookup(filepath.Join(dir, filepath.FromSlash(tt.file)))
		if !ok {
			t.Errorf("Lookup(%q) reported not in a repository", tt.file)
			continue
		}
		if info.RepoName != "telegraf-configs" {
			t.Errorf("Lookup(%q).RepoName = %q, want %q", tt.file, info.RepoName, "telegraf-configs")
		}
		if info.PathInRepo != tt.wantPath {
			t.Errorf("Lookup(%q).PathInRepo = %q, want %q", tt.file, info.PathInRepo, tt.wantPath)
		}
		if info.Commit != commit {
			t.Errorf("Lookup(%q).Commit = %q, want %q", tt.file, info.Commit, commit)
		}
		if info.Status != tt.want {
			t.Errorf("Lookup(%q).Status = %q, want %q", tt.file, info.Status, tt.want)
		}
	}
}

func TestLookup_NotInRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.conf")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if info, ok := NewResolver().Lookup(path); ok {
		t.Errorf("Lookup() = %+v, want not in a repository", info)
	}
}

func TestLookup_NoCommits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFiles(t, dir, map[string]string{"a.conf": "a = 1\n"})

	var r Resolver
	info, ok := r.Lookup(filepath.Join(dir, "a.conf"))
	if !ok {
		t.Fatal("Lookup() reported not in a repository")
	}
	if info.Commit != "" {
		t.Errorf("Commit = %q, want empty", info.Commit)
	}
	if info.Status != StatusUntracked {
		t.Errorf("Status = %q, want %q", info.Status, StatusUntracked)
	}
}

func TestInfo_ShortCommit(t *testing.T) {
	t.Parallel()

	info := Info{Commit: "0123456789abcdef0123456789abcdef01234567"}
	if got := info.ShortCommit(); got != "0123456789ab" {
		t.Errorf("ShortCommit() = %q, want %q", got, "0123456789ab")
	}
	if got := (Info{}).ShortCommit(); got != "" {
		t.Errorf("ShortCommit() on empty = %q, want empty", got)
	}
}
