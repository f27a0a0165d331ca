// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 error codes returned through ReadDirectoryChangesW.
const (
	errnoTooManyOpenFiles = syscall.Errno(4)
	errnoInvalidHandle    = syscall.Errno(6)
	errnoNotEnoughMemory  = syscall.Errno(8)
)

// brokenWatcherHint reports whether err means the directory watch can no
// longer deliver events for the watched tree, with what the user can do
// about it.
func brokenWatcherHint(err error) (string, bool) {
	switch {
	case errors.Is(err, errnoTooManyOpenFiles):
		return "too many open handles in this process; watch fewer directories", true
	case errors.Is(err, errnoInvalidHandle):
		return "a watched directory was removed or unmounted; restart with --watch once it is back", true
	case errors.Is(err, errnoNotEnoughMemory):
		return "not enough memory for change notifications", true
	}
	return "", false
}
