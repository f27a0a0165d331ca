// SPDX-License-Identifier: MPL-2.0

// Package inline replaces references to helper files in a configuration
// fragment with the files' contents.
//
// Scripts turns `script = "<path>"` bindings into `source = '''...'''`
// blocks holding the Starlark code. Commands turns `command = ["<path>.sh",
// args...]` bindings into a `sh -c` wrapper that carries the shell script as
// base64, decodes it to a private temporary file and runs it with the
// original arguments. Both passes locate bindings in the expanded view of a
// configtext.Content and write their edits back onto the authored view.
package inline
