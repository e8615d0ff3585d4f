package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/protocol"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := resolveSessionByName(client, args[0])
			if err != nil {
				return err
			}
			if err := client.Call(protocol.TagSessionDelete, protocol.SessionDelete{ID: id}, nil); err != nil {
				return err
			}
			fmt.Printf("deleted session %q\n", args[0])
			return nil
		},
	}
}
