package pipeline

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AreaStats summarizes areas of accepted blobs over a run
type AreaStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// NewAreaStats computes statistics. Zero value for empty input, zero deviation for a single value
func NewAreaStats(areas []float64) AreaStats {
	if len(areas) == 0 {
		return AreaStats{}
	}
	stats := AreaStats{
		Count: len(areas),
		Min:   floats.Min(areas),
		Max:   floats.Max(areas),
		Mean:  stat.Mean(areas, nil),
	}
	if len(areas) > 1 {
		stats.StdDev = stat.StdDev(areas, nil)
	}
	return stats
}
