// SPDX-License-Identifier: MPL-2.0

// Package tomlmatch locates the exact text of `key = value` bindings inside a
// TOML document without reformatting it.
//
// The document is first decoded to learn which values are bound to the key.
// Each value is then turned into a location pattern and searched for in the
// raw text, and every candidate hit is confirmed by a second, independent
// parse of the text around it. This finds bindings regardless of quoting
// style, spacing around '=', or arrays spread over several lines, while
// ignoring commented-out lines and text that only looks like a binding
// because it sits inside a string.
package tomlmatch
