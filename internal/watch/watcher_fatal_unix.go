// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// brokenWatcherHint reports whether err means inotify can no longer deliver
// events for the watched tree, with what the user can do about it.
func brokenWatcherHint(err error) (string, bool) {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return "inotify watch limit reached; raise fs.inotify.max_user_watches or point --file-path-root at a smaller tree", true
	case errors.Is(err, syscall.EMFILE):
		return "too many open files in this process; raise the limit with ulimit -n", true
	case errors.Is(err, syscall.ENFILE):
		return "system file table is full; close other programs or raise fs.file-max", true
	}
	return "", false
}
