package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/control"
	"github.com/scarab-term/scarab/internal/daemon"
	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/xdg"
)

// NewClientRootCmd builds scarab-client's command tree (spec.md §6.1):
// attach, ls, new, rm, rename. Structure follows the teacher's
// NewRootCmd — a bare cobra.Command with subcommands registered via
// small newXxxCmd() constructors, one per file.
func NewClientRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scarab-client",
		Short: "Attach to and manage scarab terminal sessions",
	}
	root.AddCommand(
		newAttachCmd(),
		newLsCmd(),
		newNewCmd(),
		newRmCmd(),
		newRenameCmd(),
		newHiddenDaemonCmd(),
	)
	return root
}

// dialDaemon connects to the daemon's control socket, forking one into
// the background on first connect failure the way the teacher's CLI
// forks an h2 daemon on demand (spec.md §4.9).
func dialDaemon() (*control.Client, error) {
	conn, err := control.Dial(xdg.SocketPath())
	if err == nil {
		return control.NewClient(conn), nil
	}

	if forkErr := daemon.ForkBackground(nil); forkErr != nil {
		return nil, socketConflictError("cannot connect to scarab-daemon and failed to start one: %v", forkErr)
	}

	conn, err = control.Dial(xdg.SocketPath())
	if err != nil {
		return nil, socketConflictError("scarab-daemon started but is not accepting connections: %v", err)
	}
	return control.NewClient(conn), nil
}

// resolveSessionByName looks up a session's id from its unique display
// name, since SessionDelete/SessionRename/Attach all key on id while the
// CLI's surface (spec.md §6.1) takes the human-chosen name.
func resolveSessionByName(client *control.Client, name string) (protocol.SessionID, error) {
	var reply protocol.SessionListReply
	if err := client.Call(protocol.TagSessionList, protocol.SessionList{}, &reply); err != nil {
		return "", err
	}
	for _, s := range reply.Sessions {
		if s.Name == name {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("no session named %q", name)
}
