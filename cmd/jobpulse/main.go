package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the root command and reports any error on stderr. Cobra's own
// error printing is silenced so every failure, including an unknown command,
// surfaces exactly once here.
func execute(args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
