// Package pipeline drives a frame source through a detector into the tracker.
//
// A run reads frames until the source is exhausted (io.EOF), the frame limit is
// reached or the context is cancelled. Cancellation is checked between frames only,
// so a frame is either fully processed or not processed at all.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LdDl/beecount/detect"
	"github.com/LdDl/beecount/mot"
)

// Recorder persists run results. Implemented by storage.Store
type Recorder interface {
	RecordFrame(ctx context.Context, runID uuid.UUID, result mot.FrameResult) error
	RecordSummary(ctx context.Context, summary Summary) error
}

// Options of a single run
type Options struct {
	// Defaults to no-op logger
	Logger *zap.Logger
	// Optional
	Recorder Recorder
	// Human readable name of the input, e.g. file path
	SourceName string
	// Blob area bounds
	MinArea float64
	MaxArea float64
	// Zero means no limit
	MaxFrames int
	// Generated when zero
	RunID uuid.UUID
}

// Summary describes a finished run
type Summary struct {
	RunID      uuid.UUID
	SourceName string
	Mode       mot.CrossingMode
	Boundary   mot.Boundary
	Frames     int
	Counts     mot.Counts
	// Size of the lost collection at the end of the run
	Lost int
	// Tracks still active at the end of the run (zero in deferred mode)
	Active int
	// Tracks moved to the lost collection by the final flush
	Flushed []mot.TrackSnapshot
	Areas   AreaStats
	// Set when the run ended because of context cancellation
	Stopped    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run processes frames until the end of the stream and finalizes the tracker.
// Source is not closed by Run.
func Run[F any](ctx context.Context, src detect.Source[F], det detect.Detector[F], tracker *mot.Tracker, opts Options) (Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	log = log.With(zap.String("run_id", runID.String()))

	summary := Summary{
		RunID:      runID,
		SourceName: opts.SourceName,
		Mode:       tracker.Mode(),
		Boundary:   tracker.Boundary(),
		StartedAt:  time.Now().UTC(),
	}
	log.Info("Run started",
		zap.String("source", opts.SourceName),
		zap.String("crossing_mode", summary.Mode.String()),
		zap.Float64("min_area", opts.MinArea),
		zap.Float64("max_area", opts.MaxArea),
	)

	areas := []float64{}
	for {
		if opts.MaxFrames > 0 && summary.Frames >= opts.MaxFrames {
			log.Info("Frame limit reached", zap.Int("max_frames", opts.MaxFrames))
			break
		}
		if ctx.Err() != nil {
			summary.Stopped = true
			break
		}
		frame, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				summary.Stopped = true
				break
			}
			return summary, errors.Wrapf(err, "Can't read frame %d", summary.Frames)
		}

		blobs, err := det.Detect(frame, opts.MinArea, opts.MaxArea)
		if err != nil {
			return summary, errors.Wrapf(err, "Can't detect blobs on frame %d", summary.Frames)
		}
		areas = append(areas, detect.Areas(blobs)...)

		result, err := tracker.Step(detect.Centers(blobs))
		if err != nil {
			return summary, errors.Wrapf(err, "Can't track frame %d", summary.Frames)
		}
		summary.Frames++

		log.Debug("Frame processed",
			zap.Int("frame", result.Frame),
			zap.Int("detections", result.Detections),
			zap.Int("matched", len(result.Assignment.Pairs)),
			zap.Int("born", len(result.Born)),
			zap.Int("lost", len(result.Lost)),
			zap.Int("active", len(result.Tracks)),
		)
		for _, event := range result.Events {
			log.Info("Boundary crossing",
				zap.Int("frame", result.Frame),
				zap.Int("track_id", event.TrackID),
				zap.String("signal", event.Signal.String()),
				zap.Int("arrivals", result.Counts.Arrivals),
				zap.Int("departures", result.Counts.Departures),
			)
		}

		if opts.Recorder != nil {
			if err := opts.Recorder.RecordFrame(ctx, runID, result); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					summary.Stopped = true
					break
				}
				return summary, errors.Wrapf(err, "Can't record frame %d", result.Frame)
			}
		}
	}

	counts, flushed := tracker.Finish()
	summary.Counts = counts
	summary.Flushed = flushed
	summary.Lost = len(tracker.Lost())
	summary.Active = len(tracker.Tracks())
	summary.Areas = NewAreaStats(areas)
	summary.FinishedAt = time.Now().UTC()

	if opts.Recorder != nil {
		// Summary must be stored even when the run was interrupted
		if err := opts.Recorder.RecordSummary(context.WithoutCancel(ctx), summary); err != nil {
			return summary, errors.Wrap(err, "Can't record run summary")
		}
	}

	log.Info("Run finished",
		zap.Int("frames", summary.Frames),
		zap.Int("arrivals", counts.Arrivals),
		zap.Int("departures", counts.Departures),
		zap.Int("lost", summary.Lost),
		zap.Int("flushed", len(flushed)),
		zap.Bool("stopped", summary.Stopped),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}
