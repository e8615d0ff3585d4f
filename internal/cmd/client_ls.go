package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/protocol"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List sessions known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			var reply protocol.SessionListReply
			if err := client.Call(protocol.TagSessionList, protocol.SessionList{}, &reply); err != nil {
				return err
			}

			if len(reply.Sessions) == 0 {
				fmt.Println("No sessions.")
				return nil
			}
			for _, s := range reply.Sessions {
				status := "running"
				if s.Exited {
					status = "exited"
				}
				fmt.Printf("  %-20s %s  attached=%d  last=%s\n", s.Name, status, s.Attached, s.LastAttached.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
