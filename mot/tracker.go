package mot

import (
	"github.com/pkg/errors"
)

// Tracker turns per-frame detections into persistent tracks and counts boundary crossings.
// It is single-threaded: Step must not be called concurrently.
type Tracker struct {
	store        *TrackStore
	assigner     *Assigner
	policy       LifecyclePolicy
	boundary     Boundary
	mode         CrossingMode
	newEstimator EstimatorFactory
	// Running arrivals and departures
	counts   Counts
	frame    int
	finished bool
}

// TrackerOption customizes Tracker
type TrackerOption func(*Tracker)

// WithEstimatorFactory replaces constant-velocity Kalman estimator for new tracks
func WithEstimatorFactory(factory EstimatorFactory) TrackerOption {
	return func(tracker *Tracker) {
		tracker.newEstimator = factory
	}
}

// NewTracker creates new instance of Tracker
func NewTracker(cfg Config, options ...TrackerOption) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid tracker configuration")
	}
	tracker := &Tracker{
		store:        NewTrackStore(),
		assigner:     NewAssigner(cfg.Algorithm, cfg.MaxMatchDistance),
		policy:       cfg.LifecyclePolicy(),
		boundary:     cfg.Boundary,
		mode:         cfg.CrossingMode,
		newEstimator: DefaultEstimatorFactory,
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker, nil
}

// FrameResult is what the tracker exposes once per processed frame
type FrameResult struct {
	// Zero-based index of the frame
	Frame int
	// Number of detections in the frame
	Detections int
	Assignment AssignmentResult
	// Active tracks after the frame
	Tracks []TrackSnapshot
	// Identifiers of tracks created in the frame
	Born []int
	// Tracks moved to the lost collection in the frame
	Lost []TrackSnapshot
	// Crossings registered in the frame
	Events []CrossingEvent
	// Running counters
	Counts Counts
}

// Step processes detections of a single frame. The order of steps is fixed:
//  1. predict all active tracks
//  2. assign detections to predicted positions
//  3. update matched tracks
//  4. age unmatched tracks
//  5. move lost tracks to the lost collection
//  6. create tracks for unmatched detections
//  7. check crossings of the final active tracks (realtime mode)
//
// Deletion happens before creation so a track born in this frame is never evaluated
// by the deletion predicate in the same frame.
func (tracker *Tracker) Step(detections []Point) (FrameResult, error) {
	if tracker.finished {
		return FrameResult{}, errors.New("Tracker has been finished")
	}
	for i, detection := range detections {
		if !detection.IsFinite() {
			return FrameResult{}, errors.Errorf("Detection %d on frame %d is not finite: %s", i, tracker.frame, detection)
		}
	}
	active := tracker.store.Active()

	predicted := make([]Point, len(active))
	for i, track := range active {
		predicted[i] = track.Predict()
	}

	assignment := tracker.assigner.Assign(predicted, detections)

	for _, pair := range assignment.Pairs {
		track := active[pair.TrackIndex]
		err := track.ApplyMatch(detections[pair.DetectionIndex])
		if err != nil {
			return FrameResult{}, errors.Wrapf(err, "Can't update track on frame %d", tracker.frame)
		}
	}
	for _, trackIndex := range assignment.UnmatchedTracks {
		active[trackIndex].ApplyMiss()
	}

	newlyLost := tracker.store.Sweep(tracker.policy)

	born := make([]int, 0, len(assignment.UnmatchedDetections))
	for _, detectionIndex := range assignment.UnmatchedDetections {
		track := tracker.store.Create(detections[detectionIndex], tracker.newEstimator)
		born = append(born, track.id)
	}

	events := []CrossingEvent{}
	if tracker.mode == CrossingModeRealtime {
		events = CheckCrossings(tracker.store.Active(), tracker.boundary)
		for _, event := range events {
			tracker.counts.Add(event.Signal)
		}
	}

	result := FrameResult{
		Frame:      tracker.frame,
		Detections: len(detections),
		Assignment: assignment,
		Tracks:     tracker.Tracks(),
		Born:       born,
		Lost:       snapshots(newlyLost),
		Events:     events,
		Counts:     tracker.counts,
	}
	tracker.frame++
	return result, nil
}

// Finish ends the run. In deferred mode all active tracks are moved to the lost collection
// and transitions over their full histories are added to the counters.
// Returns final counters and tracks flushed into the lost collection.
func (tracker *Tracker) Finish() (Counts, []TrackSnapshot) {
	if tracker.finished {
		return tracker.counts, []TrackSnapshot{}
	}
	tracker.finished = true
	if tracker.mode != CrossingModeDeferred {
		return tracker.counts, []TrackSnapshot{}
	}
	flushed := tracker.store.Flush()
	tracker.counts.Merge(CountHistoryCrossings(tracker.store.Lost(), tracker.boundary))
	return tracker.counts, snapshots(flushed)
}

// Tracks returns snapshots of active tracks in store order
func (tracker *Tracker) Tracks() []TrackSnapshot {
	return snapshots(tracker.store.Active())
}

// Lost returns lost tracks. The slice is a copy, tracks must not be modified
func (tracker *Tracker) Lost() []*Track {
	lost := tracker.store.Lost()
	copied := make([]*Track, len(lost))
	copy(copied, lost)
	return copied
}

// Counts returns running arrivals and departures
func (tracker *Tracker) Counts() Counts {
	return tracker.counts
}

// Frame returns number of processed frames
func (tracker *Tracker) Frame() int {
	return tracker.frame
}

// Boundary returns boundary region
func (tracker *Tracker) Boundary() Boundary {
	return tracker.boundary
}

// Mode returns crossing mode
func (tracker *Tracker) Mode() CrossingMode {
	return tracker.mode
}

func snapshots(tracks []*Track) []TrackSnapshot {
	result := make([]TrackSnapshot, len(tracks))
	for i, track := range tracks {
		result[i] = track.Snapshot()
	}
	return result
}
