// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fixedit/combine-files/internal/combine"
	"github.com/fixedit/combine-files/internal/config"
	"github.com/fixedit/combine-files/internal/gitmeta"
	"github.com/fixedit/combine-files/internal/issue"
	"github.com/fixedit/combine-files/internal/watch"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// app holds the state shared between the command and the error handler.
type app struct {
	verbose bool
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine-files",
		Short: "Combine Telegraf configuration fragments into a single file",
		Long: TitleStyle.Render("combine-files") + SubtitleStyle.Render(" - Combine Telegraf configuration fragments") + `

Fragments are concatenated in the order given, each below a banner naming
its source file. Starlark scripts referenced with script = "..." and shell
scripts referenced with command = ["x.sh", ...] can be inlined so the
combined file does not need any helper files next to it.

` + SubtitleStyle.Render("Examples:") + `
  combine-files --config agent.conf --config outputs.conf --output telegraf.conf
  combine-files --config processors.conf --inline-starlark \
    --temporary-expand-var HELPER_FILES_DIR=. --output combined.conf`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         a.run,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func (a *app) run(cmd *cobra.Command, _ []string) error {
	a.verbose, _ = cmd.Flags().GetBool(config.FlagVerbose)

	opts, err := config.Load(cmd.Flags())
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	a.verbose = opts.Verbose

	logger := newLogger(cmd.ErrOrStderr(), opts)
	logger.Debug("resolved options", "configs", opts.Configs, "root", opts.FilePathRoot, "settings", opts.SettingsFile)

	out, err := build(cmd.Context(), opts, logger)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Fprint(cmd.ErrOrStderr(), renderSummary(opts, out))

	if opts.Watch {
		if err := watchInputs(cmd.Context(), opts, logger); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
	}
	return nil
}

// build combines the fragments and writes the output file.
func build(ctx context.Context, opts *config.Options, logger *log.Logger) (*combine.Output, error) {
	c := &combine.Combiner{
		Root:           opts.FilePathRoot,
		Vars:           opts.Vars,
		InlineStarlark: opts.InlineStarlark,
		InlineShell:    opts.InlineShell,
		Git:            gitmeta.NewResolver(),
		Logger:         logger,
	}
	out, err := c.Combine(ctx, opts.Configs)
	if err != nil {
		return nil, err
	}
	if err := combine.WriteOutput(opts.Output, []byte(out.Text)); err != nil {
		return nil, err
	}
	return out, nil
}

// watchInputs rebuilds the output whenever a fragment or script changes,
// until ctx is cancelled. Failed rebuilds are logged and leave the previous
// output in place.
func watchInputs(ctx context.Context, opts *config.Options, logger *log.Logger) error {
	w, err := watch.New(watch.Config{
		BaseDir:     opts.FilePathRoot,
		Dirs:        outsideDirs(opts.FilePathRoot, opts.Configs),
		IgnorePaths: []string{opts.Output},
		Logger:      logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("rebuilding", "changed", changed)
			out, err := build(ctx, opts, logger)
			if err != nil {
				return errors.New(renderError(err, opts.Verbose))
			}
			logger.Info("rebuilt", "output", opts.Output, "fragments", out.Fragments, "warnings", len(out.Warnings))
			return nil
		},
	})
	if err != nil {
		return err
	}
	logger.Info("watching for changes", "root", opts.FilePathRoot)
	return w.Run(ctx)
}

// outsideDirs returns the directories of fragments that are not below root.
func outsideDirs(root string, paths []string) []string {
	var dirs []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		dir := filepath.Dir(abs)
		rel, err := filepath.Rel(root, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (a *app) handleError(w io.Writer, _ fang.Styles, err error) {
	fmt.Fprint(w, renderError(err, a.verbose))
}

// newLogger logs warnings by default, progress in watch mode and
// everything with --verbose.
func newLogger(w io.Writer, opts *config.Options) *log.Logger {
	level := log.WarnLevel
	switch {
	case opts.Verbose:
		level = log.DebugLevel
	case opts.Watch:
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "combine-files",
		Level:  level,
	})
}

// renderSummary returns the report printed after a successful run.
func renderSummary(opts *config.Options, out *combine.Output) string {
	var b strings.Builder
	b.WriteString(SuccessStyle.Render(fmt.Sprintf("Successfully combined %d config file(s) into %s", out.Fragments, opts.Output)))
	b.WriteString("\n")

	var details []string
	if opts.InlineStarlark {
		details = append(details, "  - Starlark scripts inlined")
	}
	if opts.InlineShell {
		details = append(details, "  - Shell scripts inlined (base64 encoded)")
	}
	if len(opts.Vars) > 0 {
		details = append(details, "  - Path variables expanded: "+strings.Join(opts.Vars.Names(), ", "))
	}
	for _, line := range details {
		b.WriteString(VerboseStyle.Render(line))
		b.WriteString("\n")
	}
	if n := len(out.Warnings); n > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("  - %d reference(s) left unchanged, see warnings above", n)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderError formats an error for display. Actionable errors carry their
// suggestions, and in verbose mode the error chain and the catalogue entry.
func renderError(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return ErrorStyle.Render("Error:") + " " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(ErrorStyle.Render("Error:") + " " + ae.Format(verbose) + "\n")
	if verbose {
		if iss := ae.Issue(); iss != nil {
			if md, err := iss.Render("auto"); err == nil {
				b.WriteString(md)
			}
		}
	}
	return b.String()
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the command line and returns the process exit code.
func Main() int {
	a := &app{}
	if err := fang.Execute(
		context.Background(),
		a.command(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(a.handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// Execute runs the command line and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}
