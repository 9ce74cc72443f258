package main

import (
	"github.com/spf13/cobra"

	"github.com/LdDl/beecount/detect/replay"
	"github.com/LdDl/beecount/pipeline"
)

var replayFlags runFlags

var replayCmd = &cobra.Command{
	Use:   "replay <detections.csv>",
	Short: "Count crossings over recorded detections",
	Long:  `Replays per-frame blobs stored as "frame;x;y;area" rows and prints arrivals and departures.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := replay.Open(args[0])
		if err != nil {
			return err
		}
		defer source.Close()

		tracker, opts, cleanup, err := prepareRun(replayFlags, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signalContext()
		defer stop()
		summary, err := pipeline.Run[replay.Frame](ctx, source, replay.NewDetector(), tracker, opts)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

func init() {
	replayFlags.register(replayCmd)
	rootCmd.AddCommand(replayCmd)
}
