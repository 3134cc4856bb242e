package main

import (
	"fmt"
	"os"

	"codeberg.org/mutker/cyclectl/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cyclectl: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
