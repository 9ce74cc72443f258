// Package detect defines how frames and per-frame detections reach the tracker.
//
// Frame acquisition and blob extraction are not part of the tracking engine:
// a Source yields frames in order, a Detector turns one frame into blob centroids.
// Implementations live in sub-packages (replay for recorded detections, mog2 for video).
package detect

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/LdDl/beecount/mot"
)

// Blob is a single foreground region found on a frame
type Blob struct {
	Center mot.Point
	Area   float64
}

// Source yields frames one by one. io.EOF marks the end of the stream
type Source[F any] interface {
	Next(ctx context.Context) (F, error)
	Close() error
}

// Detector finds blobs whose area lies within [minArea, maxArea].
// Order of returned blobs must be deterministic for the same frame:
// it defines detection indices for the whole frame.
type Detector[F any] interface {
	Detect(frame F, minArea, maxArea float64) ([]Blob, error)
}

// Centers extracts centroids of blobs keeping their order
func Centers(blobs []Blob) []mot.Point {
	centers := make([]mot.Point, len(blobs))
	for i, blob := range blobs {
		centers[i] = blob.Center
	}
	return centers
}

// Areas extracts areas of blobs keeping their order
func Areas(blobs []Blob) []float64 {
	areas := make([]float64, len(blobs))
	for i, blob := range blobs {
		areas[i] = blob.Area
	}
	return areas
}

// InBounds reports whether area lies within [minArea, maxArea]
func InBounds(area, minArea, maxArea float64) bool {
	return area >= minArea && area <= maxArea
}

// Learner updates a background model with a frame without looking for blobs
type Learner[F any] interface {
	Learn(frame F) error
}

// Warm feeds up to limit frames of src into learner before tracking starts.
// Non-positive limit means the whole stream. Returns number of learned frames.
func Warm[F any](ctx context.Context, src Source[F], learner Learner[F], limit int) (int, error) {
	learned := 0
	for limit <= 0 || learned < limit {
		frame, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return learned, errors.Wrapf(err, "Can't read frame %d for background model", learned)
		}
		if err := learner.Learn(frame); err != nil {
			return learned, errors.Wrapf(err, "Can't learn background on frame %d", learned)
		}
		learned++
	}
	return learned, nil
}
