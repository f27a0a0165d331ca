// SPDX-License-Identifier: MPL-2.0

package combine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fixedit/combine-files/internal/issue"
)

// WriteOutput writes data to path, creating parent directories as needed.
// The data goes to a temporary file in the same directory that is renamed
// over path, so a failed write never leaves a partial file behind.
func WriteOutput(path string, data []byte) error {
	fail := func(err error) error {
		return issue.NewErrorContext().
			WithOperation("write combined config").
			WithResource(path).
			WithIssue(issue.OutputWriteFailedId).
			Wrap(err).
			BuildError()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fail(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(fmt.Errorf("replacing output: %w", err))
	}
	return nil
}
