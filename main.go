// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/fixedit/combine-files/cmd/combine-files"

func main() {
	cmd.Execute()
}
