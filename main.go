// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/srcpm/srcpm/cmd/srcpm"

func main() {
	cmd.Execute()
}
