package main

import (
	"fmt"
	"os"

	"github.com/d4ytona/mpr-soluciones-app/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
