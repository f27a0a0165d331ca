// SPDX-License-Identifier: MPL-2.0

package gitmeta

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Working tree statuses of a file.
const (
	StatusClean     Status = "clean"
	StatusModified  Status = "modified"
	StatusStaged    Status = "staged"
	StatusUntracked Status = "untracked"
	StatusUnknown   Status = "unknown"
)

// shortCommitLen is the number of hash characters shown in banners.
const shortCommitLen = 12

type (
	// Status is the working tree status of a file.
	Status string

	// Info describes where a file lives in a git repository.
	Info struct {
		// RepoName is the base name of the repository's working tree root.
		RepoName string
		// PathInRepo is the slash-separated path of the file relative to
		// the working tree root.
		PathInRepo string
		// Commit is the full hash of HEAD, empty when the repository has no
		// commits yet.
		Commit string
		Status Status
	}

	// Resolver looks up git metadata with go-git. Working tree status is
	// computed once per repository and reused for later lookups.
	Resolver struct {
		statuses map[string]git.Status
	}
)

// NewResolver returns a Resolver with an empty status cache.
func NewResolver() *Resolver {
	return &Resolver{statuses: map[string]git.Status{}}
}

// ShortCommit returns the abbreviated commit hash.
func (i Info) ShortCommit() string {
	if len(i.Commit) > shortCommitLen {
		return i.Commit[:shortCommitLen]
	}
	return i.Commit
}

// Lookup returns the git metadata of path, or false when path is not inside
// a git working tree.
func (r *Resolver) Lookup(path string) (*Info, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	abs = realPath(abs)

	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, false
	}

	root := realPath(wt.Filesystem.Root())
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}

	info := &Info{
		RepoName:   filepath.Base(root),
		PathInRepo: filepath.ToSlash(rel),
		Status:     StatusUnknown,
	}
	if head, err := repo.Head(); err == nil {
		info.Commit = head.Hash().String()
	}

	status, ok := r.statuses[root]
	if !ok {
		status, err = wt.Status()
		if err != nil {
			return info, true
		}
		if r.statuses == nil {
			r.statuses = map[string]git.Status{}
		}
		r.statuses[root] = status
	}
	info.Status = fileStatus(status, info.PathInRepo)
	if _, listed := status[info.PathInRepo]; !listed && !tracked(repo, info.PathInRepo) {
		// Ignored files are left out of the status map just like unchanged
		// ones.
		info.Status = StatusUnknown
	}

	return info, true
}

// tracked reports whether path has an entry in the repository index.
func tracked(repo *git.Repository, path string) bool {
	idx, err := repo.Storer.Index()
	if err != nil {
		return false
	}
	_, err = idx.Entry(path)
	return err == nil
}

// fileStatus maps go-git status codes to a Status. Files missing from the
// status map are reported clean; Lookup tells ignored files apart.
func fileStatus(status git.Status, path string) Status {
	fs, ok := status[path]
	if !ok {
		return StatusClean
	}
	switch {
	case fs.Worktree == git.Untracked || fs.Staging == git.Untracked:
		return StatusUntracked
	case fs.Worktree != git.Unmodified:
		return StatusModified
	case fs.Staging != git.Unmodified:
		return StatusStaged
	default:
		return StatusClean
	}
}

func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
