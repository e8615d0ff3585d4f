package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/config"
	"github.com/scarab-term/scarab/internal/daemon"
	"github.com/scarab-term/scarab/internal/logging"
	"github.com/scarab-term/scarab/internal/xdg"
)

// NewDaemonRootCmd builds scarab-daemon's command tree: running in the
// foreground by default, plus the hidden _daemon entrypoint ForkBackground
// re-execs into.
func NewDaemonRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "scarab-daemon",
		Short: "Run the scarab terminal daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.AddCommand(newHiddenDaemonCmd())
	return root
}

func newHiddenDaemonCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:    "_daemon",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}

func runDaemon(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return configError("load config: %v", err)
	}

	logPath := xdg.DaemonLogPath()
	if err := os.MkdirAll(parentOf(logPath), 0o700); err != nil {
		return configError("create log dir: %v", err)
	}
	logger := logging.New(logging.ComponentDaemon, logging.DefaultOptions(logPath))

	d := daemon.New(cfg, logger, xdg.SocketPath(), xdg.SessionsDBPath())
	code := d.Run()
	if code != daemon.ExitOK {
		return &ExitError{Code: int(code), Err: fmt.Errorf("daemon exited with code %d", code)}
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
