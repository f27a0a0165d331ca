// SPDX-License-Identifier: MPL-2.0

package varexpand

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Vars maps variable names to their values. Values may span several lines.
type Vars map[string]string

// ErrInvalidAssignment is returned when a NAME=value assignment is malformed.
var ErrInvalidAssignment = errors.New("invalid variable assignment")

var (
	// ${NAME:-default}; the default runs up to the first closing brace.
	defaultRef = regexp.MustCompile(`\$\{([A-Za-z0-9_]+):-([^}]*)\}`)
	// ${NAME} or $NAME; the greedy class guarantees a bare name is followed
	// by a non-identifier byte or the end of the text.
	plainRef = regexp.MustCompile(`\$\{[A-Za-z0-9_]+\}|\$[A-Za-z0-9_]+`)
	// Any ${...} reference left behind after expansion.
	leftoverRef = regexp.MustCompile(`\$\{([^}:]+)(?::-[^}]*)?\}`)
)

// Expand substitutes variable references in text using vars.
//
// The ${NAME:-default} form is resolved first and always, falling back to
// the literal default when NAME is not in vars. ${NAME} and $NAME are then
// replaced in a single pass for every NAME present in vars, so substituted
// values are never expanded again. Anything else is kept verbatim.
func Expand(text string, vars Vars) string {
	if !strings.Contains(text, "$") {
		return text
	}

	text = defaultRef.ReplaceAllStringFunc(text, func(ref string) string {
		groups := defaultRef.FindStringSubmatch(ref)
		if value, ok := vars[groups[1]]; ok {
			return value
		}
		return groups[2]
	})

	if len(vars) == 0 {
		return text
	}

	return plainRef.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[1:]
		if strings.HasPrefix(ref, "${") {
			name = ref[2 : len(ref)-1]
		}
		if value, ok := vars[name]; ok {
			return value
		}
		return ref
	})
}

// Unresolved returns the names of ${...} references still present in text,
// in order of first appearance and without duplicates.
func Unresolved(text string) []string {
	var names []string
	for _, groups := range leftoverRef.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(names, groups[1]) {
			names = append(names, groups[1])
		}
	}
	return names
}

// ParseAssignments builds Vars from NAME=value assignments as given on the
// command line. The value is everything after the first '='; later
// assignments of the same name win.
func ParseAssignments(assignments []string) (Vars, error) {
	vars := make(Vars, len(assignments))
	for _, assignment := range assignments {
		name, value, found := strings.Cut(assignment, "=")
		if !found {
			return nil, fmt.Errorf("%w: %q (expected NAME=value)", ErrInvalidAssignment, assignment)
		}
		if name == "" {
			return nil, fmt.Errorf("%w: %q has an empty name", ErrInvalidAssignment, assignment)
		}
		vars[name] = value
	}
	return vars, nil
}

// Names returns the variable names in sorted order.
func (v Vars) Names() []string {
	return slices.Sorted(maps.Keys(v))
}

// Merge returns a copy of v overlaid with other; other wins on conflicts.
func (v Vars) Merge(other Vars) Vars {
	merged := maps.Clone(v)
	if merged == nil {
		merged = make(Vars, len(other))
	}
	maps.Copy(merged, other)
	return merged
}
