// SPDX-License-Identifier: MPL-2.0

package configtext

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/fixedit/combine-files/internal/varexpand"
)

var (
	// ErrMultiLineReplacement is returned when a replacement would cover only
	// part of the lines produced by one authored line.
	ErrMultiLineReplacement = errors.New("replacement spans a multi-line variable expansion")

	// ErrLineOutOfRange is returned for expanded line indexes outside the content.
	ErrLineOutOfRange = errors.New("line index out of range")
)

type (
	// Content is a fragment held as authored lines plus the derived expanded
	// lines. lineMap[e] is the authored line that expanded line e came from;
	// it is non-decreasing and every authored line owns a contiguous run of
	// at least one expanded line.
	Content struct {
		vars     varexpand.Vars
		original []string
		expanded []string
		lineMap  []int
		runs     []int
	}

	// MultiLineReplacementError reports the authored line whose expansion
	// prevents a replacement.
	MultiLineReplacementError struct {
		// OriginalLine is the zero-based authored line index.
		OriginalLine int
		// ExpandedLines is how many expanded lines that authored line produced.
		ExpandedLines int
		// Text is the authored line.
		Text string
	}
)

// New builds the two views of raw using vars. Each authored line is expanded
// on its own; a value spanning several lines yields several expanded lines
// that all map back to the same authored line.
func New(raw string, vars varexpand.Vars) *Content {
	c := &Content{
		vars:     maps.Clone(vars),
		original: strings.Split(raw, "\n"),
	}
	c.rebuild()
	return c
}

// Original returns the authored text.
func (c *Content) Original() string {
	return strings.Join(c.original, "\n")
}

// Expanded returns the text with variables expanded.
func (c *Content) Expanded() string {
	return strings.Join(c.expanded, "\n")
}

// ExpandedLines returns a copy of the expanded lines.
func (c *Content) ExpandedLines() []string {
	return slices.Clone(c.expanded)
}

// Len returns the number of expanded lines.
func (c *Content) Len() int {
	return len(c.expanded)
}

// OriginalIndex maps an expanded line index to its authored line index.
func (c *Content) OriginalIndex(expanded int) (int, error) {
	if expanded < 0 || expanded >= len(c.lineMap) {
		return 0, fmt.Errorf("%w: expanded line %d of %d", ErrLineOutOfRange, expanded, len(c.lineMap))
	}
	return c.lineMap[expanded], nil
}

// OriginalLines returns the authored lines behind the inclusive expanded
// range [start, end], joined by newlines.
func (c *Content) OriginalLines(start, end int) (string, error) {
	origStart, origEnd, err := c.originalRange(start, end)
	if err != nil {
		return "", err
	}
	return strings.Join(c.original[origStart:origEnd+1], "\n"), nil
}

// ReplaceLines replaces the authored lines behind the inclusive expanded
// range [start, end] with the lines of replacement.
//
// Every authored line in the range must have expanded to exactly one line;
// otherwise a *MultiLineReplacementError is returned and nothing changes.
func (c *Content) ReplaceLines(start, end int, replacement string) error {
	origStart, origEnd, err := c.originalRange(start, end)
	if err != nil {
		return err
	}

	for orig := origStart; orig <= origEnd; orig++ {
		if c.runs[orig] != 1 {
			return &MultiLineReplacementError{
				OriginalLine:  orig,
				ExpandedLines: c.runs[orig],
				Text:          c.original[orig],
			}
		}
	}

	c.original = slices.Concat(
		c.original[:origStart:origStart],
		strings.Split(replacement, "\n"),
		c.original[origEnd+1:],
	)
	c.rebuild()
	return nil
}

func (c *Content) originalRange(start, end int) (int, int, error) {
	if start > end {
		return 0, 0, fmt.Errorf("%w: start %d after end %d", ErrLineOutOfRange, start, end)
	}
	origStart, err := c.OriginalIndex(start)
	if err != nil {
		return 0, 0, err
	}
	origEnd, err := c.OriginalIndex(end)
	if err != nil {
		return 0, 0, err
	}
	return origStart, origEnd, nil
}

// rebuild derives expanded, lineMap and runs from original.
func (c *Content) rebuild() {
	c.expanded = c.expanded[:0]
	c.lineMap = c.lineMap[:0]
	c.runs = make([]int, len(c.original))

	for i, line := range c.original {
		parts := strings.Split(varexpand.Expand(line, c.vars), "\n")
		c.expanded = append(c.expanded, parts...)
		for range parts {
			c.lineMap = append(c.lineMap, i)
		}
		c.runs[i] = len(parts)
	}
}

// Error implements the error interface.
func (e *MultiLineReplacementError) Error() string {
	return fmt.Sprintf("cannot replace line %d: its variable expansion produced %d lines (%q)",
		e.OriginalLine+1, e.ExpandedLines, e.Text)
}

// Unwrap returns ErrMultiLineReplacement.
func (e *MultiLineReplacementError) Unwrap() error {
	return ErrMultiLineReplacement
}
