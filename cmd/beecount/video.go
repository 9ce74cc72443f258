package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/LdDl/beecount/detect"
	"github.com/LdDl/beecount/detect/mog2"
	"github.com/LdDl/beecount/detect/replay"
	"github.com/LdDl/beecount/pipeline"
)

var (
	videoFlags     runFlags
	recordFilePath string
	learnFrames    int
)

var videoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Count crossings on a video file",
	Long: `Finds moving blobs with MOG2 background subtraction and counts their boundary crossings.
Background model is learned on the first frames of the file before tracking starts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detectorCfg := mog2.Config{
			History:       appConfig.Detector.History,
			VarThreshold:  appConfig.Detector.VarThreshold,
			DetectShadows: appConfig.Detector.DetectShadows,
			KernelSize:    appConfig.Detector.KernelSize,
			LearnFrames:   appConfig.Detector.LearnFrames,
		}
		if learnFrames >= 0 {
			detectorCfg.LearnFrames = learnFrames
		}
		mogDetector := mog2.NewDetector(detectorCfg)
		defer mogDetector.Close()

		ctx, stop := signalContext()
		defer stop()

		if detectorCfg.LearnFrames > 0 {
			if err := learnBackground(ctx, args[0], mogDetector, detectorCfg.LearnFrames); err != nil {
				return err
			}
		}

		source, err := mog2.OpenVideo(args[0])
		if err != nil {
			return err
		}
		defer source.Close()

		var detector detect.Detector[gocv.Mat] = mogDetector
		if recordFilePath != "" {
			file, err := os.Create(recordFilePath)
			if err != nil {
				return errors.Wrapf(err, "Can't create %s", recordFilePath)
			}
			defer file.Close()
			writer := replay.NewWriter(file)
			defer func() {
				if err := writer.Flush(); err != nil {
					appLogger.Error("Can't flush recorded detections", zap.Error(err))
				}
			}()
			detector = replay.NewRecordingDetector[gocv.Mat](mogDetector, writer)
		}

		tracker, opts, cleanup, err := prepareRun(videoFlags, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := pipeline.Run[gocv.Mat](ctx, source, detector, tracker, opts)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

// learnBackground runs a separate pass over the first frames of the video
// so tracking starts from the beginning with a ready background model
func learnBackground(ctx context.Context, path string, detector *mog2.Detector, limit int) error {
	learnSource, err := mog2.OpenVideo(path)
	if err != nil {
		return err
	}
	defer learnSource.Close()
	learned, err := detect.Warm[gocv.Mat](ctx, learnSource, detector, limit)
	if err != nil {
		return err
	}
	appLogger.Info("Background model learned",
		zap.String("source", path),
		zap.Int("frames", learned),
	)
	return nil
}

func init() {
	videoFlags.register(videoCmd)
	videoCmd.Flags().StringVar(&recordFilePath, "record", "", "write detections to CSV for later replay")
	videoCmd.Flags().IntVar(&learnFrames, "learn-frames", -1, "frames learned by background model before tracking (0 disables, default from config)")
	rootCmd.AddCommand(videoCmd)
}
