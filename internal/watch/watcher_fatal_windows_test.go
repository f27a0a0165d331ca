// SPDX-License-Identifier: MPL-2.0

//go:build windows

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
		{name: "handle limit", err: syscall.Errno(4), wantHint: "open handles"},
		{name: "directory removed", err: syscall.Errno(6), wantHint: "removed or unmounted"},
		{name: "out of memory", err: syscall.Errno(8), wantHint: "memory"},
		{name: "wrapped directory removed", err: fmt.Errorf("ReadDirectoryChanges: %w", syscall.Errno(6)), wantHint: "--watch"},
		{name: "access denied keeps watching", err: syscall.Errno(5)},
		{name: "file not found keeps watching", err: syscall.Errno(2)},
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
