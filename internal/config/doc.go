// SPDX-License-Identifier: MPL-2.0

// Package config resolves the run options of combine-files using Viper.
//
// Options come from command-line flags, COMBINE_FILES_* environment
// variables and an optional TOML settings file, in that order of precedence.
// Load validates the merged result and reports problems as actionable errors.
package config
