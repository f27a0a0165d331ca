// SPDX-License-Identifier: MPL-2.0

// Package combine merges configuration fragments into one document.
//
// Each fragment is read, optionally has its Starlark and shell script
// references inlined, and is appended to the output below a banner naming
// the file it came from. Any fatal error aborts the whole run and no output
// is produced.
package combine
