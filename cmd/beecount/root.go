package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LdDl/beecount/config"
	"github.com/LdDl/beecount/logger"
	"github.com/LdDl/beecount/mot"
	"github.com/LdDl/beecount/pipeline"
	"github.com/LdDl/beecount/storage"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logFile    string
	dbPath     string

	// Filled by PersistentPreRunE
	appConfig *config.Config
	appLogger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "beecount",
	Short:         "Counts objects crossing a rectangular boundary",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFiles := []string{}
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}
		cfg, err := config.Load(configPath, envFiles...)
		if err != nil {
			return err
		}
		// Flags win over file and environment
		if logLevel != "" {
			cfg.Log.Level = logger.LogLevel(logLevel)
		}
		if logFile != "" {
			cfg.Log.OutputPath = logFile
		}
		if dbPath != "" {
			cfg.Storage.Path = dbPath
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		appConfig = cfg
		appLogger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&envFile, "env-file", "", "dotenv file with BEET_* overrides (default .env when present)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&logFile, "log-file", "", "rotated log file in addition to stderr")
	flags.StringVar(&dbPath, "db", "", "SQLite database for run results")
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFlags are shared by commands which process a stream
type runFlags struct {
	maxFrames    int
	crossingMode string
	algorithm    string
}

func (flags *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flags.maxFrames, "max-frames", 0, "stop after this many frames (0 = whole stream)")
	cmd.Flags().StringVar(&flags.crossingMode, "mode", "", "crossing mode: realtime or deferred")
	cmd.Flags().StringVar(&flags.algorithm, "algorithm", "", "matching algorithm: hungarian, solvemax or greedy (fast, not optimal)")
}

// prepareRun builds tracker and pipeline options from configuration and flags.
// Returned cleanup closes the store when one was opened.
func prepareRun(flags runFlags, sourceName string) (*mot.Tracker, pipeline.Options, func(), error) {
	trackerCfg := appConfig.Tracker
	if flags.crossingMode != "" {
		trackerCfg.CrossingMode = flags.crossingMode
	}
	if flags.algorithm != "" {
		trackerCfg.Algorithm = flags.algorithm
	}
	motCfg, err := trackerCfg.Mot()
	if err != nil {
		return nil, pipeline.Options{}, nil, err
	}
	if !motCfg.Algorithm.Optimal() {
		appLogger.Warn("Matching algorithm does not guarantee minimum total distance",
			zap.String("algorithm", motCfg.Algorithm.String()),
		)
	}
	tracker, err := mot.NewTracker(motCfg)
	if err != nil {
		return nil, pipeline.Options{}, nil, err
	}
	opts := pipeline.Options{
		Logger:     appLogger,
		SourceName: sourceName,
		MinArea:    motCfg.MinArea,
		MaxArea:    motCfg.MaxArea,
		MaxFrames:  flags.maxFrames,
	}
	cleanup := func() {}
	if appConfig.Storage.Path != "" {
		store, err := storage.Open(appConfig.Storage.Path)
		if err != nil {
			return nil, pipeline.Options{}, nil, err
		}
		opts.Recorder = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				appLogger.Error("Can't close database", zap.Error(err))
			}
		}
	}
	return tracker, opts, cleanup, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printSummary(summary pipeline.Summary) {
	fmt.Printf("Run:        %s\n", summary.RunID)
	fmt.Printf("Source:     %s\n", summary.SourceName)
	fmt.Printf("Mode:       %s\n", summary.Mode)
	fmt.Printf("Frames:     %d\n", summary.Frames)
	fmt.Printf("Arrivals:   %d\n", summary.Counts.Arrivals)
	fmt.Printf("Departures: %d\n", summary.Counts.Departures)
	fmt.Printf("Lost:       %d\n", summary.Lost)
	fmt.Printf("Active:     %d\n", summary.Active)
	if summary.Areas.Count > 0 {
		fmt.Printf("Blob area:  min %.1f, max %.1f, mean %.1f, stddev %.1f (%d blobs)\n",
			summary.Areas.Min, summary.Areas.Max, summary.Areas.Mean, summary.Areas.StdDev, summary.Areas.Count)
	}
	if summary.Stopped {
		fmt.Println("Interrupted before the end of the stream")
	}
}
