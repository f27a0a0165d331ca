// SPDX-License-Identifier: MPL-2.0

// Package configtext holds a configuration fragment in two views: the text as
// authored (with variable placeholders) and the same text with variables
// expanded.
//
// Only the expanded view is guaranteed to be valid TOML, so callers locate
// and reason about edits in expanded coordinates. Edits are applied to the
// authored lines through a line map, and the expanded view is rebuilt after
// every edit. The authored text is what ends up in the combined output.
package configtext
