// SPDX-License-Identifier: MPL-2.0

package config

import "github.com/fixedit/combine-files/internal/varexpand"

// EnvPrefix is the prefix of environment variables that override options.
const EnvPrefix = "COMBINE_FILES"

// Viper keys. Flags use the same names with dashes instead of underscores.
const (
	KeyConfigs           = "configs"
	KeyOutput            = "output"
	KeyFilePathRoot      = "file_path_root"
	KeyInlineStarlark    = "inline_starlark"
	KeyInlineShellScript = "inline_shell_script"
	KeyExpandVars        = "expand_vars"
	KeyVerbose           = "verbose"
	KeyWatch             = "watch"
)

// Flag names.
const (
	FlagConfig             = "config"
	FlagOutput             = "output"
	FlagFilePathRoot       = "file-path-root"
	FlagInlineStarlark     = "inline-starlark"
	FlagInlineShellScript  = "inline-shell-script"
	FlagTemporaryExpandVar = "temporary-expand-var"
	FlagExpandPathVar      = "expand-path-var"
	FlagVerbose            = "verbose"
	FlagSettings           = "settings"
	FlagWatch              = "watch"
)

// Options holds the resolved settings of one combine run.
type Options struct {
	// Configs lists the fragment files in the order they are combined.
	Configs []string
	// Output is the path the combined configuration is written to.
	Output string
	// FilePathRoot is the absolute directory script references resolve against.
	FilePathRoot string
	// InlineStarlark enables replacing `script` references with `source`.
	InlineStarlark bool
	// InlineShell enables replacing `.sh` command references with wrappers.
	InlineShell bool
	// Vars are the temporary expansion variables.
	Vars varexpand.Vars
	// Verbose enables debug logging and detailed error output.
	Verbose bool
	// Watch keeps running and rebuilds the output when inputs change.
	Watch bool
	// SettingsFile is the settings file that was read, if any.
	SettingsFile string
}
