package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// stopCmd represents the stop command.
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running `start` process to shut down",
	Long: `Stop reads the pid start wrote to --pid-file and sends it SIGTERM.

There is no daemon or Unix-domain-socket control plane in this build:
start IS the foreground process, and stop is only a convenience over
"kill -TERM <pid>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop()
	},
}

func runStop() error {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		exitWithError(fmt.Sprintf("read pid file %s (is start running?)", pidFile), err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		exitWithError("parse pid file contents", err)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		exitWithError(fmt.Sprintf("signal pid %d", pid), err)
	}
	fmt.Printf("sent SIGTERM to pid %d\n", pid)
	return nil
}
