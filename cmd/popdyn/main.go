// Command popdyn simulates population dynamics tasks written in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/popdyn/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
