// Command tgsync programs trigger/gate channels and plays synchronization
// descriptions on the software timeline generator.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tgsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
