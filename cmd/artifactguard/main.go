// Package main provides the artifactguard binary entry point.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/c360studio/artifactguard/commands"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.Root().Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			// The command already reported its outcome.
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
