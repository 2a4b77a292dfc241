// Package cmd implements the CLI surface using the cobra framework, in
// the teacher's own root/subcommand style.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	pidFile    string
	statusFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "highwaypipe",
	Short: "highwaypipe runs a bounded concurrent multi-stage video-frame event pipeline",
	Long: `highwaypipe drives a fixed five-stage frame processing pipeline
(segmentation, mask post-process, detection, tracking, event
determination) over a bounded Batch Buffer and per-stage worker pools,
and exposes a blocking submit/get API over it.

This binary runs the pipeline in the foreground against a config file
and a demo frame source; there is no daemon or remote control plane.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml",
		"pipeline config file path")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pid-file", "highwaypipe.pid",
		"path start writes its process id to, and stop/status/stats read it from")
	rootCmd.PersistentFlags().StringVar(&statusFile, "status-file", "highwaypipe.status.json",
		"path start periodically writes a status snapshot to")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
