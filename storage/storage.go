// Package storage keeps run results in SQLite: run summaries, lost tracks
// with their full location history and registered boundary crossings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/LdDl/beecount/mot"
	"github.com/LdDl/beecount/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	crossing_mode TEXT NOT NULL,
	boundary_x REAL NOT NULL,
	boundary_y REAL NOT NULL,
	boundary_width REAL NOT NULL,
	boundary_height REAL NOT NULL,
	frames INTEGER NOT NULL,
	arrivals INTEGER NOT NULL,
	departures INTEGER NOT NULL,
	lost INTEGER NOT NULL,
	active INTEGER NOT NULL,
	area_count INTEGER NOT NULL,
	area_min REAL NOT NULL,
	area_max REAL NOT NULL,
	area_mean REAL NOT NULL,
	area_stddev REAL NOT NULL,
	stopped INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tracks (
	run_id TEXT NOT NULL,
	track_id INTEGER NOT NULL,
	frame INTEGER NOT NULL,
	flushed INTEGER NOT NULL,
	age INTEGER NOT NULL,
	total_visible_count INTEGER NOT NULL,
	time_invisible INTEGER NOT NULL,
	history TEXT NOT NULL,
	PRIMARY KEY (run_id, track_id)
);

CREATE TABLE IF NOT EXISTS crossings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	frame INTEGER NOT NULL,
	track_id INTEGER NOT NULL,
	signal INTEGER NOT NULL,
	from_x REAL NOT NULL,
	from_y REAL NOT NULL,
	to_x REAL NOT NULL,
	to_y REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crossings_run ON crossings (run_id, frame);
`

// Fixed width keeps lexicographic order equal to chronological one
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// Store is SQLite-backed pipeline.Recorder
type Store struct {
	db *sql.DB
}

var _ pipeline.Recorder = (*Store)(nil)

// Open opens (or creates) database file and applies schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open database %s", path)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "Can't execute %q", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't apply schema")
	}
	return &Store{db: db}, nil
}

// Close closes database
func (store *Store) Close() error {
	return store.db.Close()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

type historyPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func encodeHistory(history []mot.Point) (string, error) {
	points := make([]historyPoint, len(history))
	for i, p := range history {
		points[i] = historyPoint{X: p.X, Y: p.Y}
	}
	data, err := json.Marshal(points)
	if err != nil {
		return "", errors.Wrap(err, "Can't encode history")
	}
	return string(data), nil
}

func decodeHistory(data string) ([]mot.Point, error) {
	points := []historyPoint{}
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return nil, errors.Wrap(err, "Can't decode history")
	}
	history := make([]mot.Point, len(points))
	for i, p := range points {
		history[i] = mot.NewPoint(p.X, p.Y)
	}
	return history, nil
}

func insertTracks(ctx context.Context, tx *sql.Tx, runID uuid.UUID, frame int, flushed bool, tracks []mot.TrackSnapshot) error {
	if len(tracks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO tracks
		(run_id, track_id, frame, flushed, age, total_visible_count, time_invisible, history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "Can't prepare track insert")
	}
	defer stmt.Close()
	for _, track := range tracks {
		history, err := encodeHistory(track.History)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, runID.String(), track.ID, frame, boolToInt(flushed), track.Age, track.TotalVisibleCount, track.TimeInvisible, history)
		if err != nil {
			return errors.Wrapf(err, "Can't insert track %d", track.ID)
		}
	}
	return nil
}

// RecordFrame stores tracks lost on the frame and crossings registered on it
func (store *Store) RecordFrame(ctx context.Context, runID uuid.UUID, result mot.FrameResult) error {
	if len(result.Lost) == 0 && len(result.Events) == 0 {
		return nil
	}
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	if err := insertTracks(ctx, tx, runID, result.Frame, false, result.Lost); err != nil {
		return err
	}
	for _, event := range result.Events {
		_, err := tx.ExecContext(ctx, `INSERT INTO crossings
			(run_id, frame, track_id, signal, from_x, from_y, to_x, to_y)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID.String(), result.Frame, event.TrackID, int(event.Signal),
			event.From.X, event.From.Y, event.To.X, event.To.Y,
		)
		if err != nil {
			return errors.Wrapf(err, "Can't insert crossing of track %d", event.TrackID)
		}
	}
	return errors.Wrap(tx.Commit(), "Can't commit frame")
}

// RecordSummary upserts run row and stores tracks flushed at the end of the run
func (store *Store) RecordSummary(ctx context.Context, summary pipeline.Summary) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, source, crossing_mode, boundary_x, boundary_y, boundary_width, boundary_height,
		frames, arrivals, departures, lost, active,
		area_count, area_min, area_max, area_mean, area_stddev,
		stopped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			frames = excluded.frames,
			arrivals = excluded.arrivals,
			departures = excluded.departures,
			lost = excluded.lost,
			active = excluded.active,
			area_count = excluded.area_count,
			area_min = excluded.area_min,
			area_max = excluded.area_max,
			area_mean = excluded.area_mean,
			area_stddev = excluded.area_stddev,
			stopped = excluded.stopped,
			finished_at = excluded.finished_at`,
		summary.RunID.String(), summary.SourceName, summary.Mode.String(),
		summary.Boundary.X, summary.Boundary.Y, summary.Boundary.Width, summary.Boundary.Height,
		summary.Frames, summary.Counts.Arrivals, summary.Counts.Departures, summary.Lost, summary.Active,
		summary.Areas.Count, summary.Areas.Min, summary.Areas.Max, summary.Areas.Mean, summary.Areas.StdDev,
		boolToInt(summary.Stopped), summary.StartedAt.UTC().Format(timeLayout), summary.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.Wrapf(err, "Can't upsert run %s", summary.RunID)
	}
	if err := insertTracks(ctx, tx, summary.RunID, summary.Frames, true, summary.Flushed); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "Can't commit summary")
}
