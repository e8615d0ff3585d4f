package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/protocol"
)

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			var reply protocol.SessionCreated
			if err := client.Call(protocol.TagSessionCreate, protocol.SessionCreate{Name: args[0]}, &reply); err != nil {
				return err
			}
			fmt.Printf("created session %q (%s)\n", args[0], reply.ID)
			return nil
		},
	}
}
