package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/LdDl/beecount/mot"
)

// RunRecord is a stored run summary
type RunRecord struct {
	RunID      uuid.UUID
	SourceName string
	Mode       string
	Boundary   mot.Boundary
	Frames     int
	Counts     mot.Counts
	Lost       int
	Active     int
	Stopped    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// TrackRecord is a stored lost track. Frame is the frame it was lost on
// or, for flushed tracks, the number of frames in the run
type TrackRecord struct {
	TrackID           int
	Frame             int
	Flushed           bool
	Age               int
	TotalVisibleCount int
	TimeInvisible     int
	History           []mot.Point
}

// CrossingRecord is a stored crossing event
type CrossingRecord struct {
	Frame int
	mot.CrossingEvent
}

// ListRuns returns runs ordered by start time, newest first
func (store *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := store.db.QueryContext(ctx, `SELECT run_id, source, crossing_mode,
		boundary_x, boundary_y, boundary_width, boundary_height,
		frames, arrivals, departures, lost, active, stopped, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query runs")
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var (
			run                 RunRecord
			runID               string
			startedAt, finished string
			x, y, width, height float64
		)
		err := rows.Scan(&runID, &run.SourceName, &run.Mode,
			&x, &y, &width, &height,
			&run.Frames, &run.Counts.Arrivals, &run.Counts.Departures, &run.Lost, &run.Active,
			&run.Stopped, &startedAt, &finished,
		)
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan run")
		}
		if run.RunID, err = uuid.Parse(runID); err != nil {
			return nil, errors.Wrapf(err, "Bad run id %q", runID)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, errors.Wrap(err, "Bad start time")
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, errors.Wrap(err, "Bad finish time")
		}
		run.Boundary = mot.NewRect(x, y, width, height)
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "Can't iterate runs")
}

// LostTracks returns lost tracks of the run ordered by identifier
func (store *Store) LostTracks(ctx context.Context, runID uuid.UUID) ([]TrackRecord, error) {
	rows, err := store.db.QueryContext(ctx, `SELECT track_id, frame, flushed, age, total_visible_count, time_invisible, history
		FROM tracks WHERE run_id = ? ORDER BY track_id`, runID.String())
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query tracks of run %s", runID)
	}
	defer rows.Close()

	tracks := []TrackRecord{}
	for rows.Next() {
		var (
			track   TrackRecord
			history string
		)
		err := rows.Scan(&track.TrackID, &track.Frame, &track.Flushed, &track.Age, &track.TotalVisibleCount, &track.TimeInvisible, &history)
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan track")
		}
		if track.History, err = decodeHistory(history); err != nil {
			return nil, errors.Wrapf(err, "Track %d", track.TrackID)
		}
		tracks = append(tracks, track)
	}
	return tracks, errors.Wrap(rows.Err(), "Can't iterate tracks")
}

// Crossings returns crossing events of the run in registration order
func (store *Store) Crossings(ctx context.Context, runID uuid.UUID) ([]CrossingRecord, error) {
	rows, err := store.db.QueryContext(ctx, `SELECT frame, track_id, signal, from_x, from_y, to_x, to_y
		FROM crossings WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query crossings of run %s", runID)
	}
	defer rows.Close()

	crossings := []CrossingRecord{}
	for rows.Next() {
		var (
			record CrossingRecord
			signal int
		)
		err := rows.Scan(&record.Frame, &record.TrackID, &signal,
			&record.From.X, &record.From.Y, &record.To.X, &record.To.Y,
		)
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan crossing")
		}
		record.Signal = mot.CrossingSignal(signal)
		crossings = append(crossings, record)
	}
	return crossings, errors.Wrap(rows.Err(), "Can't iterate crossings")
}
