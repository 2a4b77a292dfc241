package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWwei/highway-event-pipeline/internal/config"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a pipeline config file without starting anything",
	Long: `Validate loads --config the same way start does (viper + the
HIGHWAY_EVENT_ environment override prefix) and runs the stage-dependency
checks (mask/event require seg, track requires detect), without
constructing a Coordinator or touching any inference engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Printf("INVALID: %v\n", err)
		exitWithError("validation failed", nil)
	}
	fmt.Printf("VALID: %q — seg=%v mask=%v detect=%v track=%v event=%v\n",
		cfg.Name, cfg.EnableSeg, cfg.EnableMask, cfg.EnableDetect, cfg.EnableTrack, cfg.EnableEvent)
}
