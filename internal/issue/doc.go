// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the file involved and
// suggestions for the user. An error can also point at an Issue from the
// catalogue, whose Markdown guidance the CLI renders with glamour in verbose
// mode.
package issue
