package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last status snapshot a running `start` process wrote",
	Long: `Status reads --status-file, which start overwrites roughly once per
second with pipeline_status_string() and the run id, and prints it.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatusCommand()
	},
}

func runStatusCommand() {
	snap, err := readSnapshot(statusFile)
	if err != nil {
		exitWithError(fmt.Sprintf("read status file %s (is start running?)", statusFile), err)
	}
	fmt.Printf("run_id=%s %s\n", snap.RunID, snap.Status)
}
