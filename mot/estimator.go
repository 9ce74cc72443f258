package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// StateEstimator is a per-track position filter.
// Each track owns exactly one estimator; estimators are never shared between tracks.
type StateEstimator interface {
	// Predict advances the state by one frame and returns the predicted position
	Predict() Point
	// Correct adjusts the state with a measured position
	Correct(measurement Point) error
}

// EstimatorFactory creates an estimator seeded with the initial position of a new track
type EstimatorFactory func(initial Point) StateEstimator

// KalmanEstimator is constant-velocity Kalman filter over state [x, y, vx, vy]
// with measurement [x, y]. With dt = 1 and zero control input its transition matrix is
//
//	| 1 0 1 0 |
//	| 0 1 0 1 |
//	| 0 0 1 0 |
//	| 0 0 0 1 |
//
// and measurement matrix is [[1, 0, 0, 0], [0, 1, 0, 0]].
type KalmanEstimator struct {
	kf *kalman_filter.Kalman2D
}

// NewKalmanEstimator creates a Kalman estimator with unit time step seeded at initial position
func NewKalmanEstimator(initial Point) *KalmanEstimator {
	return NewKalmanEstimatorWithTime(initial, 1.0)
}

// NewKalmanEstimatorWithTime creates a Kalman estimator with the given time step
func NewKalmanEstimatorWithTime(initial Point, dt float64) *KalmanEstimator {
	/* Kalman filter props */
	ux := 0.0
	uy := 0.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(initial.X, initial.Y))
	return &KalmanEstimator{
		kf: kf,
	}
}

// DefaultEstimatorFactory returns constant-velocity Kalman estimators
func DefaultEstimatorFactory(initial Point) StateEstimator {
	return NewKalmanEstimator(initial)
}

// Predict executes Kalman filter's first step and returns the predicted position
func (est *KalmanEstimator) Predict() Point {
	est.kf.Predict()
	x, y := est.kf.GetState()
	return Point{X: x, Y: y}
}

// Correct executes Kalman filter's second step (evaluate state vector based on Kalman gain)
func (est *KalmanEstimator) Correct(measurement Point) error {
	err := est.kf.Update(measurement.X, measurement.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update Kalman filter")
	}
	return nil
}
