package mot

import (
	"github.com/pkg/errors"
)

// Track is a persistent identity estimating one object's position across frames.
type Track struct {
	id                int
	estimator         StateEstimator
	age               int
	totalVisibleCount int
	timeInvisible     int
	locationHistory   []Point
	predictedPosition Point
}

// NewTrack creates track seeded with the initial detection.
// Estimator should already be seeded with the same position (see EstimatorFactory).
func NewTrack(id int, initial Point, estimator StateEstimator) *Track {
	track := Track{
		id:                id,
		estimator:         estimator,
		age:               0,
		totalVisibleCount: 0,
		timeInvisible:     0,
		locationHistory:   make([]Point, 0, 16),
		predictedPosition: initial,
	}
	track.locationHistory = append(track.locationHistory, initial)
	return &track
}

// GetID returns track's identifier
func (track *Track) GetID() int {
	return track.id
}

// GetAge returns number of frames elapsed since creation
func (track *Track) GetAge() int {
	return track.age
}

// GetTotalVisibleCount returns number of frames in which track was matched
func (track *Track) GetTotalVisibleCount() int {
	return track.totalVisibleCount
}

// GetTimeInvisible returns number of consecutive frames without a match
func (track *Track) GetTimeInvisible() int {
	return track.timeInvisible
}

// Visibility returns fraction of track's age during which it was matched.
// Zero for a track which has not aged yet.
func (track *Track) Visibility() float64 {
	if track.age == 0 {
		return 0
	}
	return float64(track.totalVisibleCount) / float64(track.age)
}

// GetPredictedPosition returns the most recent prediction
func (track *Track) GetPredictedPosition() Point {
	return track.predictedPosition
}

// GetPosition returns the last recorded position
func (track *Track) GetPosition() Point {
	return track.locationHistory[len(track.locationHistory)-1]
}

// GetHistory returns track's location history. Be careful: this is not copy of history, but reference to it
func (track *Track) GetHistory() []Point {
	return track.locationHistory
}

// LastTwo returns two most recent positions. False if history holds less than two positions
func (track *Track) LastTwo() (Point, Point, bool) {
	n := len(track.locationHistory)
	if n < 2 {
		return Point{}, Point{}, false
	}
	return track.locationHistory[n-2], track.locationHistory[n-1], true
}

// Predict asks estimator for the position in the current frame. Counters are not touched
func (track *Track) Predict() Point {
	track.predictedPosition = track.estimator.Predict()
	return track.predictedPosition
}

// ApplyMatch corrects estimator with matched detection and registers the frame as visible
func (track *Track) ApplyMatch(detection Point) error {
	err := track.estimator.Correct(detection)
	if err != nil {
		return errors.Wrapf(err, "Can't correct track %d", track.id)
	}
	track.age++
	track.totalVisibleCount++
	track.timeInvisible = 0
	track.locationHistory = append(track.locationHistory, detection)
	return nil
}

// ApplyMiss registers the frame as invisible. History and estimator are not touched
func (track *Track) ApplyMiss() {
	track.age++
	track.timeInvisible++
}

// Snapshot returns a copy of track's state which is safe to keep after next frames
func (track *Track) Snapshot() TrackSnapshot {
	history := make([]Point, len(track.locationHistory))
	copy(history, track.locationHistory)
	return TrackSnapshot{
		ID:                track.id,
		Position:          track.GetPosition(),
		PredictedPosition: track.predictedPosition,
		Age:               track.age,
		TotalVisibleCount: track.totalVisibleCount,
		TimeInvisible:     track.timeInvisible,
		History:           history,
	}
}

// TrackSnapshot is read-only view of a track for rendering, diagnostics and storage
type TrackSnapshot struct {
	ID                int
	Position          Point
	PredictedPosition Point
	Age               int
	TotalVisibleCount int
	TimeInvisible     int
	History           []Point
}
