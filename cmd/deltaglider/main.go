// Command deltaglider is the CLI frontend for DeltaGlider's storage
// engine (spec.md §6.3): put, get, cp, ls, rm, stats, analyze and the
// maintenance operations the engine exposes, all against a
// boto3-shaped backend configured from flags, a config file, or DG_*
// environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/beshu-tech/deltaglider/cmd/deltaglider/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.Style().Render(err.Error()))
		os.Exit(commands.ExitCodeFor(err))
	}
}
