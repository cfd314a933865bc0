package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"splice/internal/faults"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes to distinct process exit statuses.
func exitCode(err error) int {
	switch faults.Category(err) {
	case "schema":
		return 3
	case "value":
		return 4
	case "container":
		return 5
	case "reference":
		return 6
	default:
		return 1
	}
}
