package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ilog "github.com/MrWwei/highway-event-pipeline/internal/log"
	"github.com/MrWwei/highway-event-pipeline/internal/metrics"

	"github.com/MrWwei/highway-event-pipeline/internal/config"
	"github.com/MrWwei/highway-event-pipeline/internal/coordinator"
	"github.com/MrWwei/highway-event-pipeline/internal/stage"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
	"github.com/MrWwei/highway-event-pipeline/pkg/pipelineapi"
)

var (
	framesDir     string
	submitRateMS  int
	metricsAddr   string
	snapshotEvery time.Duration
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the pipeline in the foreground against a config file and a demo frame source",
	Long: `Start loads the pipeline config, wires the five stages against the
bundled mock inference engines, and feeds it frames read from a
directory of JPEG/PNG files at a fixed rate until interrupted
(SIGINT/SIGTERM) or the directory is exhausted once.

There is no daemon process: start IS the running pipeline. Use stop to
signal this same process to shut down, and status/stats to read back
the snapshot it writes periodically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd)
	},
}

func init() {
	startCmd.Flags().StringVar(&framesDir, "frames", "", "directory of .jpg/.jpeg/.png frames to submit (required)")
	startCmd.Flags().IntVar(&submitRateMS, "submit-interval-ms", 33, "delay between successive Submit calls")
	startCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address the Prometheus /metrics endpoint listens on")
	startCmd.MarkFlagRequired("frames")
}

func runStart(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg, err := config.LoadLogConfig(configFile)
	if err != nil {
		return fmt.Errorf("load log config: %w", err)
	}
	if err := ilog.Init(*logCfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	src, err := newFileSource(framesDir)
	if err != nil {
		return err
	}

	pool := workerpool.New(cfg.ThreadsSeg + cfg.ThreadsMask + cfg.ThreadsDetect)
	procs := coordinator.Processors{
		Seg:    stage.NewSegmentationProcessor(&engine.MockSegEngine{GridW: 64, GridH: 64}, pool, 1024, 960),
		Mask:   stage.NewMaskPostProcessProcessor(pool),
		Detect: stage.NewDetectionProcessor(&engine.MockDetectEngine{}, pool),
		Track:  stage.NewTrackingProcessor(&engine.MockTrackEngine{}, &engine.MockParkingDetect{}),
		Event:  stage.NewEventProcessor(0.8, 0),
	}

	pipe, err := pipelineapi.Init(*cfg, procs)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	if err := pipe.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer pipe.Stop()

	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidFile)

	metricsSrv := metrics.NewServer(metricsAddr, "/metrics")
	if err := metricsSrv.Start(cmd.Context()); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer metricsSrv.Stop(cmd.Context())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	snapTicker := time.NewTicker(1 * time.Second)
	defer snapTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < src.Len(); i++ {
			img, err := src.Open(i)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping frame %d: %v\n", i, err)
				continue
			}
			id, err := pipe.Submit(img)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: submit failed for frame %d: %v\n", i, err)
				continue
			}
			res := pipe.Get(id)
			fmt.Fprintf(cmd.OutOrStdout(), "frame %d: status=%s detections=%d\n", id, res.Status, len(res.Detections))
			time.Sleep(time.Duration(submitRateMS) * time.Millisecond)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "✓ pipeline started, run_id=%s\n", pipe.RunID())
	for {
		select {
		case <-done:
			return nil
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "received %s, stopping\n", sig)
			return nil
		case <-snapTicker.C:
			_ = writeSnapshot(statusFile, statusSnapshot{
				RunID:      pipe.RunID(),
				Status:     pipe.StatusString(),
				StageStats: pipe.StageCounters(),
			})
		}
	}
}
