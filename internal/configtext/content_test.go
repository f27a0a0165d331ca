// SPDX-License-Identifier: MPL-2.0

package configtext

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fixedit/combine-files/internal/varexpand"
)

func TestNew_NoVariablesRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"[agent]\ninterval = \"10s\"\n",
		"a = 1\r\nb = 2",
		"# only a comment",
		"\n\n\n",
	}

	for _, raw := range inputs {
		c := New(raw, nil)
		if got := c.Original(); got != raw {
			t.Errorf("Original() = %q, want %q", got, raw)
		}
		if got := c.Expanded(); got != raw {
			t.Errorf("Expanded() = %q, want %q", got, raw)
		}
	}
}

func TestNew_MultiLineExpansionMap(t *testing.T) {
	t.Parallel()

	raw := "a = 1\n${BLOCK}\nb = 2"
	c := New(raw, varexpand.Vars{"BLOCK": "x = 1\ny = 2"})

	want := []string{"a = 1", "x = 1", "y = 2", "b = 2"}
	if diff := cmp.Diff(want, c.ExpandedLines()); diff != "" {
		t.Errorf("ExpandedLines() mismatch (-want +got):\n%s", diff)
	}

	for expanded, wantOrig := range []int{0, 1, 1, 2} {
		got, err := c.OriginalIndex(expanded)
		if err != nil {
			t.Fatalf("OriginalIndex(%d) error: %v", expanded, err)
		}
		if got != wantOrig {
			t.Errorf("OriginalIndex(%d) = %d, want %d", expanded, got, wantOrig)
		}
	}

	if _, err := c.OriginalIndex(4); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("OriginalIndex(4) error = %v, want ErrLineOutOfRange", err)
	}
}

func TestOriginalLines(t *testing.T) {
	t.Parallel()

	c := New("script = \"${DIR}/a.star\"\nother = 1", varexpand.Vars{"DIR": "scripts"})

	got, err := c.OriginalLines(0, 0)
	if err != nil {
		t.Fatalf("OriginalLines() error: %v", err)
	}
	if want := "script = \"${DIR}/a.star\""; got != want {
		t.Errorf("OriginalLines(0, 0) = %q, want %q", got, want)
	}
	if c.ExpandedLines()[0] != "script = \"scripts/a.star\"" {
		t.Errorf("expanded line 0 = %q", c.ExpandedLines()[0])
	}
}

func TestReplaceLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		vars        varexpand.Vars
		start, end  int
		replacement string
		wantOrig    string
		wantExp     string
	}{
		{
			name:        "single line",
			raw:         "a = 1\nscript = \"x.star\"\nb = 2",
			start:       1,
			end:         1,
			replacement: "source = '''\nprint(1)'''",
			wantOrig:    "a = 1\nsource = '''\nprint(1)'''\nb = 2",
			wantExp:     "a = 1\nsource = '''\nprint(1)'''\nb = 2",
		},
		{
			name:        "range keeps placeholders elsewhere",
			raw:         "dir = \"${DIR}\"\ncommand = [\n  \"x.sh\",\n]",
			vars:        varexpand.Vars{"DIR": "/opt"},
			start:       1,
			end:         3,
			replacement: "command = [\"sh\"]",
			wantOrig:    "dir = \"${DIR}\"\ncommand = [\"sh\"]",
			wantExp:     "dir = \"/opt\"\ncommand = [\"sh\"]",
		},
		{
			name:        "replacement introduces variable",
			raw:         "a = 1",
			vars:        varexpand.Vars{"V": "2"},
			start:       0,
			end:         0,
			replacement: "a = ${V}",
			wantOrig:    "a = ${V}",
			wantExp:     "a = 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(tt.raw, tt.vars)
			if err := c.ReplaceLines(tt.start, tt.end, tt.replacement); err != nil {
				t.Fatalf("ReplaceLines() error: %v", err)
			}
			if got := c.Original(); got != tt.wantOrig {
				t.Errorf("Original() = %q, want %q", got, tt.wantOrig)
			}
			if got := c.Expanded(); got != tt.wantExp {
				t.Errorf("Expanded() = %q, want %q", got, tt.wantExp)
			}
		})
	}
}

func TestReplaceLines_MultiLineConflict(t *testing.T) {
	t.Parallel()

	raw := "${BLOCK}\nc = 3"
	c := New(raw, varexpand.Vars{"BLOCK": "a = 1\nb = 2"})

	err := c.ReplaceLines(1, 1, "b = 9")
	if !errors.Is(err, ErrMultiLineReplacement) {
		t.Fatalf("ReplaceLines() error = %v, want ErrMultiLineReplacement", err)
	}

	var mlErr *MultiLineReplacementError
	if !errors.As(err, &mlErr) {
		t.Fatalf("ReplaceLines() error type = %T, want *MultiLineReplacementError", err)
	}
	if mlErr.OriginalLine != 0 || mlErr.ExpandedLines != 2 {
		t.Errorf("MultiLineReplacementError = %+v, want line 0 with 2 expanded lines", mlErr)
	}

	if got := c.Original(); got != raw {
		t.Errorf("Original() after failed replace = %q, want unchanged %q", got, raw)
	}
}

func TestReplaceLines_OutOfRange(t *testing.T) {
	t.Parallel()

	c := New("a = 1", nil)
	if err := c.ReplaceLines(0, 3, "x"); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("ReplaceLines(0, 3) error = %v, want ErrLineOutOfRange", err)
	}
	if err := c.ReplaceLines(1, 0, "x"); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("ReplaceLines(1, 0) error = %v, want ErrLineOutOfRange", err)
	}
}
