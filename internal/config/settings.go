// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// MaxSettingsFileSize bounds the settings file read by loadSettings.
const MaxSettingsFileSize = 1 << 20

//go:embed settings_schema.cue
var settingsSchema string

// loadSettings reads a TOML settings file, validates it against the
// #Settings schema and merges it into v below flags and environment.
//
// The file is decoded with go-toml rather than through viper so it can be
// checked against the schema before any value is used.
func loadSettings(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(data) > MaxSettingsFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), MaxSettingsFileSize)
	}

	settings := map[string]any{}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(settingsSchema)
	if schema.Err() != nil {
		return fmt.Errorf("internal error: failed to compile settings schema: %w", schema.Err())
	}

	userValue := ctx.Encode(settings)
	if userValue.Err() != nil {
		return formatSchemaError(userValue.Err(), path)
	}
	unified := schema.LookupPath(cue.ParsePath("#Settings")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err, path)
	}

	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}
	return nil
}

// formatSchemaError renders CUE errors as "<file>: <key path>: <message>".
func formatSchemaError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		keyPath := formatKeyPath(cueerrors.Path(e))
		msg := e.Error()
		if keyPath != "" && strings.HasPrefix(msg, keyPath) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, keyPath), ":"))
		}
		if keyPath != "" {
			msg = keyPath + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", path, strings.Join(lines, "\n  "))
}

// formatKeyPath turns ["expand_vars", "0"] into "expand_vars[0]". The
// leading #Settings selector is dropped.
func formatKeyPath(path []string) string {
	var b strings.Builder
	for _, part := range path {
		if part == "#Settings" {
			continue
		}
		if isIndex(part) && b.Len() > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
