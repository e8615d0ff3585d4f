package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/protocol"
)

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
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
			if err := client.Call(protocol.TagSessionRename, protocol.SessionRename{ID: id, Name: args[1]}, nil); err != nil {
				return err
			}
			fmt.Printf("renamed %q to %q\n", args[0], args[1])
			return nil
		},
	}
}
