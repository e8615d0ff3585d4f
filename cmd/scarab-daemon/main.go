// Command scarab-daemon runs the Scarab terminal daemon.
package main

import (
	"fmt"
	"os"

	"github.com/scarab-term/scarab/internal/cmd"
)

func main() {
	root := cmd.NewDaemonRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scarab-daemon:", err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}
