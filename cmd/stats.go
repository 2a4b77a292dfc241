package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the last per-stage counters a running `start` process wrote, as JSON",
	Long: `Stats reads --status-file's stage_stats field, which start overwrites
roughly once per second with each enabled stage's processed-batch
counter, and prints it as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatsCommand()
	},
}

func runStatsCommand() {
	snap, err := readSnapshot(statusFile)
	if err != nil {
		exitWithError(fmt.Sprintf("read status file %s (is start running?)", statusFile), err)
	}
	data, err := json.MarshalIndent(snap.StageStats, "", "  ")
	if err != nil {
		exitWithError("format stage stats", err)
	}
	fmt.Println(string(data))
}
