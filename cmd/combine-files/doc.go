// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the combine-files command line interface.
//
// The root command resolves its options through internal/config, runs the
// combiner and writes the result atomically. Errors are reported as
// actionable messages and turn into a non-zero exit code through ExitError.
package cmd
