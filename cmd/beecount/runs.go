package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/LdDl/beecount/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List stored runs or lost tracks of a single run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Storage.Path == "" {
			return errors.New("Database is not configured: use --db or BEET_DB")
		}
		store, err := storage.Open(appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		table := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer table.Flush()

		if len(args) == 0 {
			runs, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(table, "RUN\tSTARTED\tSOURCE\tMODE\tFRAMES\tARRIVALS\tDEPARTURES\tSTOPPED")
			for _, run := range runs {
				fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
					run.RunID, run.StartedAt.Format("2006-01-02 15:04:05"), run.SourceName, run.Mode,
					run.Frames, run.Counts.Arrivals, run.Counts.Departures, run.Stopped,
				)
			}
			return nil
		}

		runID, err := uuid.Parse(args[0])
		if err != nil {
			return errors.Wrapf(err, "Bad run id %q", args[0])
		}
		tracks, err := store.LostTracks(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintln(table, "TRACK\tFRAME\tFLUSHED\tAGE\tVISIBLE\tPOINTS\tFIRST\tLAST")
		for _, track := range tracks {
			first, last := "-", "-"
			if len(track.History) > 0 {
				first = track.History[0].String()
				last = track.History[len(track.History)-1].String()
			}
			fmt.Fprintf(table, "%d\t%d\t%t\t%d\t%d\t%d\t%s\t%s\n",
				track.TrackID, track.Frame, track.Flushed, track.Age, track.TotalVisibleCount,
				len(track.History), first, last,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
