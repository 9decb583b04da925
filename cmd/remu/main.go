// Command remu is the emulator driver (spec.md §6): it loads an
// executable file, optionally with a holotape image inserted for the
// program's own tape syscalls, and runs it to completion, optionally
// tracing each step.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "remu",
		Short: "run a robco-processor executable",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newTraceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "remu:", err)
		os.Exit(1)
	}
}
