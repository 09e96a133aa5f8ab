// Voyage keeps a family recipe collection on the local machine.
//
// Usage:
//
//	voyage [--config file] [--data-dir dir] <command>
package main

import (
	"fmt"
	"os"

	"github.com/tomioM/recipe-voyage-sub000/internal/cli"
	"github.com/tomioM/recipe-voyage-sub000/internal/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
