// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when the inputs of a combine run change.
//
// It monitors the file path root recursively, plus any extra directories
// holding fragments outside the root, and invokes a callback after a debounce
// period. Events within the debounce window are coalesced so the callback
// fires once with the full set of changed paths.
package watch
