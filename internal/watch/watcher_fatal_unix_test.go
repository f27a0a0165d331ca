// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestStoppedError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantHint string
	}{
		{name: "watch limit", err: syscall.ENOSPC, wantHint: "fs.inotify.max_user_watches"},
		{name: "process file limit", err: syscall.EMFILE, wantHint: "ulimit -n"},
		{name: "system file table", err: syscall.ENFILE, wantHint: "fs.file-max"},
		{name: "wrapped watch limit", err: fmt.Errorf("inotify_add_watch: %w", syscall.ENOSPC), wantHint: "--file-path-root"},
		{name: "permission denied keeps watching", err: syscall.EACCES},
		{name: "operation not permitted keeps watching", err: syscall.EPERM},
		{name: "plain error keeps watching", err: errors.New("event queue overflow")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := stoppedError(tt.err)
			if tt.wantHint == "" {
				if got != nil {
					t.Errorf("stoppedError(%v) = %v, want nil", tt.err, got)
				}
				return
			}
			if !errors.Is(got, ErrStopped) || !errors.Is(got, tt.err) {
				t.Errorf("stoppedError(%v) = %v, want ErrStopped wrapping the cause", tt.err, got)
			}
			if !strings.Contains(got.Error(), tt.wantHint) {
				t.Errorf("stoppedError(%v) = %q, want hint containing %q", tt.err, got, tt.wantHint)
			}
		})
	}
}
