package main

import (
	"fmt"
	"os"

	"github.com/codex7/codex7/cmd/codex7/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if code, ok := cmd.ExitCode(err); ok {
		return code
	}
	return 1
}
