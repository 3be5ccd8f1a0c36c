// vrtctl is the command-line front end for the vrt visual-regression
// engine: it loads a project's VRTConfig and drives capture, comparison,
// cross-browser diffing, and baseline acceptance from the shell.
package main

import (
	"fmt"
	"os"

	"go.vrtcore.dev/cmd/vrtctl/commands"
)

func main() {
	if err := commands.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
