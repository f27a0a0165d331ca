// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fixedit/combine-files/internal/issue"
	"github.com/fixedit/combine-files/internal/varexpand"
)

const keySettings = "settings"

var (
	// ErrMissingOption is returned when a required option has no value.
	ErrMissingOption = errors.New("missing required option")
	// ErrInvalidRoot is returned when the file path root is not a directory.
	ErrInvalidRoot = errors.New("file path root is not a directory")
)

// flagKeys maps flags to the Viper keys they are bound to.
var flagKeys = map[string]string{
	FlagConfig:            KeyConfigs,
	FlagOutput:            KeyOutput,
	FlagFilePathRoot:      KeyFilePathRoot,
	FlagInlineStarlark:    KeyInlineStarlark,
	FlagInlineShellScript: KeyInlineShellScript,
	FlagVerbose:           KeyVerbose,
	FlagSettings:          keySettings,
	FlagWatch:             KeyWatch,
}

// RegisterFlags adds the combine-files flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringArray(FlagConfig, nil, "config fragment to combine, in order (repeatable)")
	fs.String(FlagOutput, "", "path of the combined configuration file")
	fs.String(FlagFilePathRoot, "", "directory script references are resolved against (default: current directory)")
	fs.Bool(FlagInlineStarlark, false, `inline Starlark scripts referenced by script = "..."`)
	fs.Bool(FlagInlineShellScript, false, "inline .sh scripts referenced by command = [...]")
	fs.StringArray(FlagTemporaryExpandVar, nil, "NAME=value used to expand ${NAME} while locating scripts (repeatable)")
	fs.StringArray(FlagExpandPathVar, nil, "NAME=value (deprecated alias of --"+FlagTemporaryExpandVar+")")
	_ = fs.MarkDeprecated(FlagExpandPathVar, "use --"+FlagTemporaryExpandVar+" instead")
	fs.Bool(FlagVerbose, false, "enable debug logging and detailed error output")
	fs.String(FlagSettings, "", "TOML settings file providing defaults for these options")
	fs.Bool(FlagWatch, false, "keep running and rebuild the output when fragments or scripts change")
}

// Load merges flags, COMBINE_FILES_* environment variables and the optional
// settings file into validated Options. Flags registered by RegisterFlags
// must already be parsed.
func Load(fs *pflag.FlagSet) (*Options, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyExpandVars, []string{})

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	opts := &Options{SettingsFile: v.GetString(keySettings)}
	if opts.SettingsFile != "" {
		if err := loadSettings(v, opts.SettingsFile); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read settings file").
				WithResource(opts.SettingsFile).
				WithIssue(issue.InvalidOptionsId).
				WithSuggestion("Check that the settings file exists and contains valid TOML").
				WithSuggestion("Only configs, output, file_path_root, inline_starlark, inline_shell_script, expand_vars, verbose and watch are allowed").
				Wrap(err).
				BuildError()
		}
	}

	opts.Configs = stringArray(v, fs, KeyConfigs, FlagConfig)
	opts.Output = v.GetString(KeyOutput)
	opts.InlineStarlark = v.GetBool(KeyInlineStarlark)
	opts.InlineShell = v.GetBool(KeyInlineShellScript)
	opts.Verbose = v.GetBool(KeyVerbose)
	opts.Watch = v.GetBool(KeyWatch)

	if len(opts.Configs) == 0 {
		return nil, missing("--"+FlagConfig, "Pass --config once per fragment, in the order they should be combined")
	}
	if opts.Output == "" {
		return nil, missing("--"+FlagOutput, "Pass --output with the path of the combined file")
	}

	root, err := resolveRoot(v.GetString(KeyFilePathRoot))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("resolve file path root").
			WithResource(v.GetString(KeyFilePathRoot)).
			WithIssue(issue.InvalidOptionsId).
			WithSuggestion("Pass an existing directory to --" + FlagFilePathRoot).
			Wrap(err).
			BuildError()
	}
	opts.FilePathRoot = root

	vars, err := varexpand.ParseAssignments(expandAssignments(v, fs))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse expansion variables").
			WithIssue(issue.InvalidVariableAssignmentId).
			WithSuggestion("Write each variable as --" + FlagTemporaryExpandVar + " NAME=value").
			Wrap(err).
			BuildError()
	}
	opts.Vars = vars

	return opts, nil
}

// stringArray prefers the raw flag values so entries containing commas are
// kept whole; otherwise the Viper value from env or settings is used.
func stringArray(v *viper.Viper, fs *pflag.FlagSet, key, flag string) []string {
	if f := fs.Lookup(flag); f != nil && f.Changed {
		values, err := fs.GetStringArray(flag)
		if err == nil {
			return values
		}
	}
	return v.GetStringSlice(key)
}

func expandAssignments(v *viper.Viper, fs *pflag.FlagSet) []string {
	var fromFlags []string
	for _, flag := range []string{FlagTemporaryExpandVar, FlagExpandPathVar} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			values, _ := fs.GetStringArray(flag)
			fromFlags = append(fromFlags, values...)
		}
	}
	if len(fromFlags) > 0 {
		return fromFlags
	}
	return v.GetStringSlice(KeyExpandVars)
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRoot, abs)
	}
	return abs, nil
}

func missing(flag, suggestion string) error {
	return issue.NewErrorContext().
		WithOperation("validate options").
		WithIssue(issue.InvalidOptionsId).
		WithSuggestion(suggestion).
		Wrap(fmt.Errorf("%w: %s", ErrMissingOption, flag)).
		BuildError()
}
