// SPDX-License-Identifier: MPL-2.0

// Package cli contains end-to-end tests of the combine-files command line
// using testscript. The command runs in-process through testscript.Main, so
// no binary has to be built beforehand.
package cli

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	cmd "github.com/fixedit/combine-files/cmd/combine-files"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"combine-files": func() { os.Exit(cmd.Main()) },
	})
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		// Continue running all tests even if one fails
		ContinueOnError: true,
	})
}
