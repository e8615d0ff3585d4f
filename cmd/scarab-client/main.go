// Command scarab-client attaches to and manages Scarab terminal sessions.
package main

import (
	"fmt"
	"os"

	"github.com/scarab-term/scarab/internal/cmd"
)

func main() {
	root := cmd.NewClientRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scarab-client:", err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}
