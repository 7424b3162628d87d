// Package main provides the reportbuilder CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hiepdl65/reportbuilder/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own failures before returning an ExitError.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
